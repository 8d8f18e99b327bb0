package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/roadsync/internal/journal"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [batch-id]",
		Short: "Show recorded batches from the run journal",
		Long: `List the most recent batches recorded in the run journal, or the road
outcomes of one batch when its id is given. Requires --journal.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Journal == "" {
				return fmt.Errorf("no journal configured: use --journal or the journal config key")
			}

			j, err := journal.Open(cfg.Journal, nil)
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()

			if len(args) == 1 {
				return renderBatch(cmd.Context(), cmd.OutOrStdout(), j, args[0])
			}
			return renderHistory(cmd.Context(), cmd.OutOrStdout(), j, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of batches to show")

	return cmd
}

func renderHistory(ctx context.Context, w io.Writer, j *journal.Journal, limit int) error {
	batches, err := j.RecentBatches(ctx, limit)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		_, _ = fmt.Fprintln(w, "(no batches)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Command", "Started", "Duration", "Amount", "Errors", "Status"})
	for _, b := range batches {
		duration := "-"
		if b.CompletedAt != nil {
			duration = b.CompletedAt.Sub(b.StartedAt).Round(time.Second).String()
		}
		t.AppendRow(table.Row{
			b.ID,
			b.Command,
			b.StartedAt.Format(time.DateTime),
			duration,
			formatMeters(b.Amount),
			b.Errors,
			b.Status,
		})
	}
	t.Render()
	return nil
}

func renderBatch(ctx context.Context, w io.Writer, j *journal.Journal, id string) error {
	b, err := j.GetBatch(ctx, id)
	if err != nil {
		return err
	}
	outcomes, err := j.Outcomes(ctx, id)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "Batch %s (%s) %s: %s\n", b.ID, b.Command, b.Status, b.Message)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Road", "Status", "Kind", "Phase", "Tasks", "Duration", "Error"})
	for _, o := range outcomes {
		t.AppendRow(table.Row{
			o.Road,
			o.Status,
			o.Kind,
			o.Phase,
			strings.Join(o.Tasks, ", "),
			o.Duration,
			truncate(o.Error, 80),
		})
	}
	t.Render()
	return nil
}
