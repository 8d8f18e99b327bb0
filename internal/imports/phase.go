package imports

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/roadsync/internal/metrics"
	"github.com/leapstack-labs/roadsync/internal/store"
	"github.com/leapstack-labs/roadsync/pkg/core"
)

// PriorityTables are imported first and in this order. Later tables and the
// derived tasks reference their geometry.
var PriorityTables = []string{
	"tbl_roadways_line",
	"tbl_crossroads_endline",
	"tbl_crossroads",
	"tbl_roadsides_forcedline",
	"tbl_roadsides_stopline",
	"tbl_roadsides_slopeline",
	"tbl_constructionsapproach",
	"tbl_constructionssidewalk",
	"tbl_tbl_constructions",
	"tbl_busstationsstopping",
	"tbl_busstationspavilions",
	"tbl_busstationslanding",
	"tbl_transitionalroadway",
}

// Summary describes what an import phase did for one road.
type Summary struct {
	Tables []string
	Rows   int64
}

// Phase imports every staged table of a road.
type Phase struct {
	gate    *Gate
	runner  *Runner
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewPhase creates an import phase. m may be nil.
func NewPhase(st *store.Store, m *metrics.Collector, logger *slog.Logger) *Phase {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Phase{
		gate:    NewGate(st, logger),
		runner:  NewRunner(st, logger),
		metrics: m,
		logger:  logger,
	}
}

// Run imports the priority tables, then every other staged table.
//
// A table whose staged rows fail validation is left untouched and the
// remaining tables are still imported; the road then fails with an input
// validation error listing every rejected table. Any other error stops the
// phase immediately.
func (p *Phase) Run(ctx context.Context, road core.RoadCode) (Summary, error) {
	var summary Summary

	staged, err := p.gate.StagedTables(ctx)
	if err != nil {
		return summary, core.Processing(road, "import", err)
	}

	tables := slices.Clone(PriorityTables)
	for _, t := range staged {
		if !slices.Contains(PriorityTables, t) {
			tables = append(tables, t)
		}
	}

	var rejected []error
	for _, table := range tables {
		pending, err := p.gate.HasPendingImport(ctx, road, table)
		if err != nil {
			return summary, core.Processing(road, "import:"+table, err)
		}
		if !pending {
			continue
		}

		rows, err := p.runner.ImportTable(ctx, road, table)
		switch {
		case core.KindOf(err) == core.KindInputValidation:
			p.metrics.RecordImport(metrics.ImportInvalid)
			p.logger.Warn("staged objects rejected", "road", road, "table", table, "error", err)
			rejected = append(rejected, err)
			continue
		case err != nil:
			p.metrics.RecordImport(metrics.ImportFailed)
			return summary, err
		}

		p.metrics.RecordImport(metrics.ImportOK)
		p.logger.Info("imported", "road", road, "table", table, "rows", rows)
		summary.Tables = append(summary.Tables, table)
		summary.Rows += rows
	}

	if len(rejected) > 0 {
		return summary, core.InputValidation(road, "import", errors.Join(rejected...))
	}
	return summary, nil
}
