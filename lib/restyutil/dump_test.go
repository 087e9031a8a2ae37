package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestDumpExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"responseCode": -1}`))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "dump")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	client := resty.New().SetBaseURL(server.URL).SetAuthToken("secret-token")
	DumpExchanges(client, output)

	_, err = client.R().Get("/api/student-registration-courses")
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, "0001-get.txt"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "GET "+server.URL+"/api/student-registration-courses")
	require.Contains(t, string(contents), "Authorization: <redacted>")
	require.NotContains(t, string(contents), "secret-token")
	require.Contains(t, string(contents), `{"responseCode": -1}`)
}

func TestFormatHeadersSorted(t *testing.T) {
	headers := http.Header{}
	headers.Set("X-B", "2")
	headers.Set("X-A", "1")
	require.Equal(t, "X-A: 1\nX-B: 2", formatHeaders(headers))
}
