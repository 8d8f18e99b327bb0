package commands

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/roadsync/internal/catalog"
)

// NewTasksCommand creates the tasks command.
func NewTasksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List pipeline tasks in execution order",
		Long: `List the tasks of the run command in the order they execute, with their
flags, stored functions and the object tables they require.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderTasks(cmd.OutOrStdout(), catalog.Default())
			return nil
		},
	}
}

func renderTasks(w io.Writer, cat *catalog.Catalog) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"#", "Task", "Flag", "Kernel", "Zone", "Requires", "Description"})
	for i, d := range cat.Ordered() {
		kernel := d.Kernel
		if kernel == "" {
			kernel = "-"
		}
		zone := ""
		if d.UsesZone {
			zone = "yes"
		}
		t.AppendRow(table.Row{
			i + 1,
			d.Name,
			"-" + d.Flag,
			kernel,
			zone,
			strings.Join(d.Requires, ", "),
			d.Title,
		})
	}
	t.Render()
}
