// Package batch runs a processor over a list of roads, isolating failures of
// individual roads and summarizing the outcome of the whole batch.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/roadsync/internal/metrics"
	"github.com/leapstack-labs/roadsync/pkg/core"
)

// Processor processes a single road.
type Processor interface {
	Process(ctx context.Context, road core.RoadCode) core.Outcome
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, road core.RoadCode) core.Outcome

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, road core.RoadCode) core.Outcome {
	return f(ctx, road)
}

// Estimator returns the total length of roads in metres.
type Estimator interface {
	TotalMeters(ctx context.Context, roads []core.RoadCode) (int64, error)
}

// Recorder keeps a history of batches.
type Recorder interface {
	BeginBatch(ctx context.Context, r *core.Report) error
	RecordOutcome(ctx context.Context, batchID string, o core.Outcome) error
	CompleteBatch(ctx context.Context, r *core.Report) error
}

// Options configures a Runner. Every field is optional.
type Options struct {
	// Recorder journals the batch. Recording failures are logged only.
	Recorder Recorder
	Metrics  *metrics.Collector
	// Pushgateway receives the metrics when the batch ends.
	Pushgateway string
	Logger      *slog.Logger
}

// Runner processes roads sequentially.
type Runner struct {
	command   string
	estimator Estimator
	processor Processor
	recorder  Recorder
	metrics   *metrics.Collector
	pushURL   string
	logger    *slog.Logger
}

// NewRunner creates a runner for command.
func NewRunner(command string, est Estimator, proc Processor, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		command:   command,
		estimator: est,
		processor: proc,
		recorder:  opts.Recorder,
		metrics:   opts.Metrics,
		pushURL:   opts.Pushgateway,
		logger:    logger,
	}
}

// Run processes roads in order.
//
// The returned error is only set when the batch could not start: the roads
// could not be estimated, or their total length is empty. Road failures are
// reported through the Report. Cancelling ctx stops the batch between roads;
// a road already in progress always finishes.
func (r *Runner) Run(ctx context.Context, roads []core.RoadCode) (*core.Report, error) {
	report := core.NewReport(uuid.New().String(), r.command)

	amount, err := r.estimator.TotalMeters(ctx, roads)
	if err != nil {
		return report, fmt.Errorf("failed to estimate batch: %w", err)
	}
	report.AmountMeters = amount
	r.logger.Info(fmt.Sprintf("AMOUNT: %d", amount), "roads", len(roads))

	r.record("begin", func() error { return r.recorder.BeginBatch(ctx, report) })

	for i, road := range roads {
		if err := ctx.Err(); err != nil {
			r.cancelRemaining(ctx, report, roads[i:], err)
			break
		}

		out := r.processor.Process(context.WithoutCancel(ctx), road)
		r.finishRoad(ctx, report, out)
	}

	report.Finish()
	r.metrics.SetBatch(report.AmountMeters, report.Errors)

	// Journal and metrics still go out when ctx was cancelled.
	finalCtx := context.WithoutCancel(ctx)
	r.record("complete", func() error { return r.recorder.CompleteBatch(finalCtx, report) })
	if err := r.metrics.Push(finalCtx, r.pushURL, r.command); err != nil {
		r.logger.Warn("metrics push failed", "error", err)
	}

	return report, nil
}

func (r *Runner) finishRoad(ctx context.Context, report *core.Report, out core.Outcome) {
	report.Add(out)
	r.metrics.RecordRoad(string(out.Status))

	if out.OK() {
		r.logger.Info("road done", "road", out.Road, "tasks", out.Tasks, "duration", out.Duration)
	} else {
		r.logger.Error("road failed",
			"road", out.Road,
			"phase", out.Phase,
			"kind", out.Kind.String(),
			"error", out.Err,
		)
	}

	r.record("outcome", func() error {
		return r.recorder.RecordOutcome(context.WithoutCancel(ctx), report.BatchID, out)
	})
}

// cancelRemaining reports every road that was not started as failed.
func (r *Runner) cancelRemaining(ctx context.Context, report *core.Report, roads []core.RoadCode, cause error) {
	r.logger.Warn("batch cancelled", "remaining", len(roads))
	for _, road := range roads {
		out := core.Outcome{
			Road:   road,
			Status: core.OutcomeFailed,
			Kind:   core.KindProcessing,
			Phase:  "cancelled",
			Err:    errors.Join(errors.New("batch cancelled before the road started"), cause),
		}
		report.Add(out)
		r.metrics.RecordRoad(string(out.Status))
		r.record("outcome", func() error {
			return r.recorder.RecordOutcome(context.WithoutCancel(ctx), report.BatchID, out)
		})
	}
}

func (r *Runner) record(step string, fn func() error) {
	if r.recorder == nil {
		return
	}
	start := time.Now()
	if err := fn(); err != nil {
		r.logger.Warn("journal write failed", "step", step, "error", err)
		return
	}
	r.logger.Debug("journal written", "step", step, "duration", time.Since(start))
}
