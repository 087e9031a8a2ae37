package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(header ...any) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	if len(header) > 0 {
		t.AppendHeader(table.Row(header))
	}
	return t
}

func gradeCell(grade *string) string {
	if grade == nil {
		return "-"
	}
	return *grade
}
