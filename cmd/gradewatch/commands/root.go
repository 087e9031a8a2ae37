package commands

import (
	"context"
	"fmt"
	"os"

	"gradewatch/internal/app"
	"gradewatch/internal/config"
	"gradewatch/internal/notify"
	"gradewatch/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpHttp   string
)

var rootCmd = &cobra.Command{
	Use:           "gradewatch",
	Short:         "gradewatch watches the university portal for open registration and new grades.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "path to the json5 config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "write every portal http exchange to this directory")
}

// ExecuteContext runs the root command and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if dumpHttp != "" {
		cfg.Portal.DumpDir = dumpHttp
	}
	return cfg, nil
}

// newApp builds the app from the loaded config, validate should be set by commands that
// need the whole config (smtp included) to be usable.
func newApp(cfg config.Config, validate bool) (*app.App, error) {
	if validate {
		err := cfg.Validate()
		if err != nil {
			return nil, fmt.Errorf("invalid config:\n%w", err)
		}
	}
	tel := telemetry.SlogAPI{}
	return app.New(cfg, notify.NewSmtp(cfg.Smtp, tel), tel)
}

// loggedIn builds the app and logs in, used by the one-shot fetch commands.
func loggedIn(ctx context.Context) (*app.App, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return nil, config.Config{}, err
	}
	err = a.Login(ctx)
	if err != nil {
		return nil, config.Config{}, err
	}
	return a, cfg, nil
}
