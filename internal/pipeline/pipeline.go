// Package pipeline drives a single road through prerequisite checks,
// elevation, the import phase and the selected derived tasks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/roadsync/internal/catalog"
	"github.com/leapstack-labs/roadsync/internal/chainage"
	"github.com/leapstack-labs/roadsync/internal/imports"
	"github.com/leapstack-labs/roadsync/internal/metrics"
	"github.com/leapstack-labs/roadsync/internal/store"
	"github.com/leapstack-labs/roadsync/pkg/core"
)

const phaseVerify = "verify"

// Options configures an Orchestrator.
type Options struct {
	// SRID overrides UTM zone detection when positive.
	SRID    int
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Orchestrator processes roads one at a time. It is not safe for concurrent use.
type Orchestrator struct {
	st         *store.Store
	catalog    *catalog.Catalog
	selection  catalog.Selection
	imports    *imports.Phase
	maintainer *chainage.Maintainer
	metrics    *metrics.Collector
	logger     *slog.Logger

	srid     int
	elevated map[core.RoadCode]bool
}

// New creates an orchestrator for the selected tasks.
func New(st *store.Store, cat *catalog.Catalog, sel catalog.Selection, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		st:         st,
		catalog:    cat,
		selection:  sel,
		imports:    imports.NewPhase(st, opts.Metrics, logger),
		maintainer: chainage.NewMaintainer(st, logger),
		metrics:    opts.Metrics,
		logger:     logger,
		srid:       opts.SRID,
		elevated:   make(map[core.RoadCode]bool),
	}
}

// Process runs every selected step for road and stops at the first failure.
func (o *Orchestrator) Process(ctx context.Context, road core.RoadCode) core.Outcome {
	start := time.Now()
	var done []string

	finish := func(err error) core.Outcome {
		var out core.Outcome
		if err != nil {
			out = core.Failed(road, done, err)
		} else {
			out = core.Succeeded(road, done)
		}
		out.Duration = time.Since(start)
		return out
	}

	o.logger.Info("processing road", "road", road)

	zone, err := o.verify(ctx, road)
	if err != nil {
		return finish(err)
	}

	if o.selection.Has(catalog.Import) {
		if !o.elevated[road] {
			if err := o.timed("elevate", func() error {
				_, err := o.maintainer.Elevate(ctx, road)
				return err
			}); err != nil {
				return finish(err)
			}
			o.elevated[road] = true
			done = append(done, "elevate")
		}

		if err := o.timed(string(catalog.Import), func() error {
			summary, err := o.imports.Run(ctx, road)
			if err == nil {
				o.logger.Info("import finished", "road", road, "tables", len(summary.Tables), "rows", summary.Rows)
			}
			return err
		}); err != nil {
			return finish(err)
		}
		done = append(done, string(catalog.Import))
	}

	for _, task := range o.catalog.Plan(o.selection) {
		if err := o.checkRequires(ctx, road, task); err != nil {
			return finish(err)
		}

		args := []any{int(road)}
		if task.UsesZone {
			args = append(args, zone)
		}

		o.logger.Info("running task", "road", road, "task", task.Name)
		if err := o.timed(string(task.Name), func() error {
			return o.st.CallFunction(ctx, task.Kernel, args...)
		}); err != nil {
			return finish(core.Processing(road, string(task.Name), err))
		}
		done = append(done, string(task.Name))
	}

	o.logger.Info("road processed", "road", road, "tasks", done, "duration", time.Since(start))
	return finish(nil)
}

// verify checks the road's prerequisites and returns the UTM zone SRID.
func (o *Orchestrator) verify(ctx context.Context, road core.RoadCode) (int, error) {
	zone, err := o.zone(ctx, road)
	if err != nil {
		return 0, err
	}

	if err := VerifyRoad(ctx, o.st, road, o.logger); err != nil {
		return 0, err
	}
	return zone, nil
}

// zone returns the configured SRID or the detected one, detected once per batch.
func (o *Orchestrator) zone(ctx context.Context, road core.RoadCode) (int, error) {
	if o.srid > 0 {
		return o.srid, nil
	}

	srid, ok, err := o.st.ResolveZone(ctx)
	if err != nil {
		return 0, core.Processing(road, phaseVerify, err)
	}
	if !ok {
		return 0, core.Precondition(road, phaseVerify, errors.New("utm zone could not be determined"))
	}

	o.logger.Debug("utm zone resolved", "srid", srid)
	o.srid = srid
	return srid, nil
}

// checkRequires fails when a table the task reads holds no rows for road.
func (o *Orchestrator) checkRequires(ctx context.Context, road core.RoadCode, task *catalog.Descriptor) error {
	for _, table := range task.Requires {
		ident, err := o.st.Registry().Object(table)
		if err != nil {
			return core.Processing(road, string(task.Name), err)
		}
		ok, err := o.st.HasRows(ctx, ident, road)
		if err != nil {
			return core.Processing(road, string(task.Name), err)
		}
		if !ok {
			return core.Precondition(road, string(task.Name), fmt.Errorf("%s has no rows for the road", table))
		}
	}
	return nil
}

func (o *Orchestrator) timed(task string, fn func() error) error {
	start := time.Now()
	err := fn()
	o.metrics.ObserveTask(task, time.Since(start))
	return err
}

// VerifyRoad checks that the centerline exists, has a length and that at
// least one elevation surface is registered for it.
func VerifyRoad(ctx context.Context, st *store.Store, road core.RoadCode, logger *slog.Logger) error {
	exists, err := st.RoadExists(ctx, road)
	if err != nil {
		return core.Processing(road, phaseVerify, err)
	}
	if !exists {
		return core.Precondition(road, phaseVerify, errors.New("road centerline not found"))
	}

	meters, err := st.TotalMeters(ctx, []core.RoadCode{road})
	if errors.Is(err, store.ErrNoLength) {
		return core.Precondition(road, phaseVerify, err)
	}
	if err != nil {
		return core.Processing(road, phaseVerify, err)
	}
	if logger != nil {
		logger.Info("road length", "road", road, "meters", meters)
	}

	ok, err := st.SurfacesRegistered(ctx, road)
	if err != nil {
		return core.Processing(road, phaseVerify, err)
	}
	if !ok {
		return core.Precondition(road, phaseVerify, errors.New("no elevation surfaces registered"))
	}
	return nil
}
