package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/leapstack-labs/roadsync/internal/chainage"
	"github.com/leapstack-labs/roadsync/internal/metrics"
	"github.com/leapstack-labs/roadsync/internal/store"
	"github.com/leapstack-labs/roadsync/pkg/core"
)

// Shifter moves the chainage origin of roads by a fixed delta.
type Shifter struct {
	st         *store.Store
	maintainer *chainage.Maintainer
	delta      float64
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// NewShifter creates a shifter for delta kilometres.
func NewShifter(st *store.Store, delta float64, opts Options) *Shifter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Shifter{
		st:         st,
		maintainer: chainage.NewMaintainer(st, logger),
		delta:      delta,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// Process verifies road and runs the full chainage maintenance on it.
func (s *Shifter) Process(ctx context.Context, road core.RoadCode) core.Outcome {
	start := time.Now()

	s.logger.Info("processing road", "road", road, "km_beg", s.delta)

	if err := VerifyRoad(ctx, s.st, road, s.logger); err != nil {
		out := core.Failed(road, nil, err)
		out.Duration = time.Since(start)
		return out
	}

	_, err := s.maintainer.Shift(ctx, road, s.delta)
	s.metrics.ObserveTask("shift", time.Since(start))

	var out core.Outcome
	if err != nil {
		out = core.Failed(road, nil, err)
	} else {
		out = core.Succeeded(road, []string{"shift"})
	}
	out.Duration = time.Since(start)
	return out
}
