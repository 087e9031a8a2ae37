package commands

import (
	"fmt"

	"gradewatch/internal/config"
	"gradewatch/internal/snapshot"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the persisted grade snapshot.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Grades.Mode == config.GradeModeMemory {
			return fmt.Errorf("grades.mode is %q, nothing is persisted", cfg.Grades.Mode)
		}

		store := snapshot.NewFileStore(cfg.Grades.SnapshotPath)
		snap, err := store.Load()
		if err != nil {
			return err
		}

		t := newTable("Course", "Grade")
		for _, course := range snap.Courses() {
			t.AppendRow([]any{course, gradeCell(snap[course])})
		}
		t.SetCaption("%s", store.Path())
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}
