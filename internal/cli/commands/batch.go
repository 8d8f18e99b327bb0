package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/roadsync/internal/batch"
	"github.com/leapstack-labs/roadsync/pkg/core"
)

// stdoutIsTerminal is replaced in tests.
var stdoutIsTerminal = func() bool { return isTerminal(os.Stdout) }

// runBatch processes roads with proc, prints the summary and returns
// ErrBatchFailed when any road failed or the batch could not start.
func runBatch(cmd *cobra.Command, cc *CommandContext, command string, roads []core.RoadCode, proc batch.Processor) error {
	opts := batch.Options{
		Metrics:     cc.Metrics,
		Pushgateway: cc.Cfg.Pushgateway,
		Logger:      cc.Logger,
	}
	if cc.Journal != nil {
		opts.Recorder = cc.Journal
	}

	runner := batch.NewRunner(command, cc.Store, proc, opts)
	report, err := runner.Run(cmd.Context(), roads)
	if err != nil {
		cc.Logger.Error("batch aborted", "command", command, "error", err)
		report.Finish()
		report.Status = core.BatchStatusFailed
		report.Message = err.Error()
		logSummary(cc.Logger, report)
		return ErrBatchFailed
	}

	renderReport(cmd.OutOrStdout(), report, stdoutIsTerminal())
	logSummary(cc.Logger, report)

	if report.Failed() {
		return ErrBatchFailed
	}
	return nil
}
