package commands

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/leapstack-labs/roadsync/pkg/core"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

var printer = message.NewPrinter(language.English)

// formatMeters renders a length with thousands separators.
func formatMeters(m int64) string {
	return printer.Sprintf("%d m", m)
}

// statusLabel returns the final status word, styled when color is set.
func statusLabel(failed, color bool) string {
	label, style := "SUCCESS", successStyle
	if failed {
		label, style = "FAIL", failStyle
	}
	if !color {
		return label
	}
	return style.Render(label)
}

// renderReport writes the per-road summary of a batch.
func renderReport(w io.Writer, report *core.Report, color bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Road", "Status", "Phase", "Tasks", "Duration", "Error"})
	for _, o := range report.Outcomes {
		errText := ""
		if o.Err != nil {
			errText = truncate(o.Err.Error(), 80)
		}
		t.AppendRow(table.Row{
			o.Road,
			statusLabel(!o.OK(), color),
			o.Phase,
			strings.Join(o.Tasks, ", "),
			o.Duration.Round(time.Millisecond),
			errText,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Errors", report.Errors})
	t.Render()

	_, _ = fmt.Fprintf(w, "%s: %s, %d roads, %s\n",
		report.Command, formatMeters(report.AmountMeters), len(report.Outcomes), statusLabel(report.Failed(), color))
}

// logSummary writes the closing lines of a batch log.
func logSummary(logger *slog.Logger, report *core.Report) {
	status := "SUCCESS"
	if report.Status != core.BatchStatusCompleted {
		status = "FAIL"
	}
	logger.Info(fmt.Sprintf("DURATION: %.1f", report.Duration().Seconds()))
	logger.Info("STATUS: " + status)
	logger.Info("MESSAGE: " + report.Message)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
