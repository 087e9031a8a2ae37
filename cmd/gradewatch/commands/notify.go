package commands

import (
	"log/slog"

	"gradewatch/internal/notify"
	"gradewatch/lib/telemetry"

	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify <subject> <body>",
	Short: "Send a test email with the configured SMTP settings.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		err = cfg.Validate()
		if err != nil {
			return err
		}

		err = notify.NewSmtp(cfg.Smtp, telemetry.SlogAPI{}).Notify(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		slog.Info("test email sent", "receiver", cfg.Smtp.Receiver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}
