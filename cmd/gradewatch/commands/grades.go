package commands

import (
	"gradewatch/internal/courses"

	"github.com/spf13/cobra"
)

var gradesCmd = &cobra.Command{
	Use:   "grades",
	Short: "Fetch grades once and print them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cfg, err := loggedIn(cmd.Context())
		if err != nil {
			return err
		}
		grades, err := a.Client().FetchGrades(cmd.Context())
		if err != nil {
			return err
		}

		names := make([]string, len(grades))
		for i, g := range grades {
			names[i] = g.Course
		}
		links, unresolved := courses.Resolve(cfg.Grades.TargetCourses, names)
		tracked := courses.Set(links)

		t := newTable("Course", "Grade", "Tracked")
		for _, g := range grades {
			_, ok := tracked[g.Course]
			if len(cfg.Grades.TargetCourses) == 0 {
				ok = true
			}
			t.AppendRow([]any{g.Course, gradeCell(g.Grade), ok})
		}
		t.Render()

		if len(unresolved) > 0 {
			u := newTable("Unresolved target")
			for _, target := range unresolved {
				u.AppendRow([]any{target})
			}
			u.Render()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gradesCmd)
}
