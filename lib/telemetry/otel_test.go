package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gradewatch/lib/configutil"

	"github.com/stretchr/testify/require"
)

func TestSetupWithoutEndpoints(t *testing.T) {
	tel, err := Setup(context.Background(), "gradewatch-test", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetupOnlyConfiguredSignals(t *testing.T) {
	tel, err := Setup(context.Background(), "gradewatch-test", Config{
		Otlp: OtlpConfig{
			Traces: OtlpConnConfig{HttpEndpoint: "http://127.0.0.1:4318/v1/traces"},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		tel.Shutdown(context.Background())
	})
	require.NotNil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
}

func TestReadTelemetryConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		otlp: {metrics: {grpc_endpoint: "http://collector:4317", headers: {"x-key": "k"}}},
	}`), 0600))

	cfg, err := configutil.ReadConfig[Config](path)
	require.NoError(t, err)
	require.False(t, cfg.Otlp.Traces.configured())
	require.True(t, cfg.Otlp.Metrics.configured())
	require.Equal(t, map[string]string{"x-key": "k"}, cfg.Otlp.Metrics.Headers)
}
