package main

import (
	"context"
	"log/slog"
	"os"

	"gradewatch/cmd/gradewatch/commands"
	"gradewatch/lib/serviceutil"
	"gradewatch/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "gradewatch")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	if tel.MeterProvider != nil {
		telemetry.InstrumentPerfStats(ctx)
	}

	code := commands.ExecuteContext(ctx)

	err = tel.Shutdown(context.WithoutCancel(ctx))
	if err != nil {
		slog.Warn("failed to shutdown telemetry", "err", err)
	}
	if code != 0 {
		os.Exit(code)
	}
}
