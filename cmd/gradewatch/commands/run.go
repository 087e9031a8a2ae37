package commands

import (
	"github.com/spf13/cobra"
)

var (
	runRegistration bool
	runGrades       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the enabled watchers until interrupted.",
	Long: `Run logs in once and polls the portal until interrupted.

Without flags every watcher enabled in the config runs, --registration and --grades
restrict the run to the selected watchers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if runRegistration || runGrades {
			cfg.Registration.Enabled = runRegistration
			cfg.Grades.Enabled = runGrades
		}

		a, err := newApp(cfg, true)
		if err != nil {
			return err
		}
		return a.Run(cmd.Context())
	},
}

func init() {
	runCmd.Flags().BoolVar(&runRegistration, "registration", false, "run the registration watcher")
	runCmd.Flags().BoolVar(&runGrades, "grades", false, "run the grade watcher")
	rootCmd.AddCommand(runCmd)
}
