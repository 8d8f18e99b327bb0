// Package rebind makes object tables re-derive their chainage for a road.
//
// The object tables compute their chainage in triggers, so a no-op update of
// the road's rows is enough to re-bind them to the current centerline.
package rebind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/roadsync/internal/store"
	"github.com/leapstack-labs/roadsync/pkg/core"
)

// Layer is an object table listed in the layer catalog.
type Layer struct {
	Table string
	Title string
}

// Tables whose touch update also clears a derived column so that the trigger
// recomputes it.
var (
	clearServiceDistance = map[string]bool{
		"tbl_contactpoints":       true,
		"tbl_autostations":        true,
		"tbl_carwashstations":     true,
		"tbl_phones":              true,
		"tbl_puliccaterings":      true,
		"tbl_publictoilets":       true,
		"tbl_petrolstations":      true,
		"tbl_hotels":              true,
		"tbl_maintenancestations": true,
	}
	clearPosition = map[string]bool{
		"tbl_stationaryweightcontrolposts": true,
		"tbl_borders_attrs":                true,
	}
)

const crossroads = "tbl_crossroads"

// LoadLayers lists the object tables of the layer catalog, optionally
// restricted to only. Entries with unusable table names are skipped.
// An empty result is an error.
func LoadLayers(ctx context.Context, st *store.Store, only []string, logger *slog.Logger) ([]Layer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	query := fmt.Sprintf(`
		SELECT db_name, coalesce(name, '')
		FROM %s
		WHERE schema_name = $1 AND type = 5
		  AND (always_show_all IS NULL OR NOT always_show_all)
		  AND db_name NOT LIKE 'dtp_%%'`, st.Registry().MustTable(store.StructDB))

	args := []any{st.Registry().ObjectSchema()}
	if len(only) > 0 {
		placeholders := make([]string, len(only))
		for i, name := range only {
			placeholders[i] = fmt.Sprintf("$%d", i+2)
			args = append(args, name)
		}
		query += fmt.Sprintf(" AND db_name IN (%s)", strings.Join(placeholders, ", "))
	}
	query += " ORDER BY db_name"

	rows, err := st.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read layer catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var layers []Layer
	for rows.Next() {
		var l Layer
		if err := rows.Scan(&l.Table, &l.Title); err != nil {
			return nil, fmt.Errorf("failed to scan layer: %w", err)
		}
		if !store.ValidIdentifier(l.Table) {
			logger.Warn("skipping layer with invalid table name", "table", l.Table)
			continue
		}
		layers = append(layers, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating layers: %w", err)
	}

	if len(layers) == 0 {
		return nil, errors.New("no layers to rebind")
	}
	return layers, nil
}

// Rebinder touches the rows of every layer for a road.
type Rebinder struct {
	st     *store.Store
	layers []Layer
	logger *slog.Logger
}

// New creates a rebinder over layers.
func New(st *store.Store, layers []Layer, logger *slog.Logger) *Rebinder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Rebinder{st: st, layers: layers, logger: logger}
}

// Process re-binds every layer of road.
func (r *Rebinder) Process(ctx context.Context, road core.RoadCode) core.Outcome {
	start := time.Now()
	var done []string

	fail := func(err error) core.Outcome {
		out := core.Failed(road, done, err)
		out.Duration = time.Since(start)
		return out
	}

	meters, err := r.st.TotalMeters(ctx, []core.RoadCode{road})
	if errors.Is(err, store.ErrNoLength) {
		return fail(core.Precondition(road, "verify", err))
	}
	if err != nil {
		return fail(core.Processing(road, "verify", err))
	}
	r.logger.Info("rebinding road", "road", road, "meters", meters, "layers", len(r.layers))

	for _, layer := range r.layers {
		n, err := r.rebindLayer(ctx, road, layer)
		if err != nil {
			return fail(core.Processing(road, "rebind:"+layer.Table, err))
		}
		if n > 0 {
			r.logger.Info("chainage rebound", "road", road, "table", layer.Table, "title", layer.Title, "rows", n)
			done = append(done, layer.Table)
		}
	}

	out := core.Succeeded(road, done)
	out.Duration = time.Since(start)
	return out
}

// rebindLayer touches the rows of one layer and returns how many it counted.
// Layers without id or road_code columns are skipped.
func (r *Rebinder) rebindLayer(ctx context.Context, road core.RoadCode, layer Layer) (int64, error) {
	ident, err := r.st.Registry().Object(layer.Table)
	if err != nil {
		return 0, err
	}
	db := r.st.DB()

	const columnsQuery = `
		SELECT count(DISTINCT column_name)
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2 AND column_name IN ('id', 'road_code')`

	var columns int
	if err := db.QueryRowContext(ctx, columnsQuery, ident.Schema, ident.Name).Scan(&columns); err != nil {
		return 0, fmt.Errorf("failed to inspect %s: %w", layer.Table, err)
	}
	if columns != 2 {
		r.logger.Debug("layer has no road binding", "table", layer.Table)
		return 0, nil
	}

	var count int64
	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s WHERE road_code = $1`, ident)
	if err := db.QueryRowContext(ctx, countQuery, int(road)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", layer.Table, err)
	}
	if count == 0 {
		return 0, nil
	}

	if _, err := db.ExecContext(ctx, touchQuery(ident), int(road)); err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", layer.Table, err)
	}
	return count, nil
}

// touchQuery builds the no-op update for a layer.
func touchQuery(ident store.Ident) string {
	switch {
	case clearServiceDistance[ident.Name]:
		return fmt.Sprintf(`UPDATE %s SET k_s040_1 = NULL, id = id WHERE road_code = $1`, ident)
	case clearPosition[ident.Name]:
		return fmt.Sprintf(`UPDATE %s SET position = NULL, id = id WHERE road_code = $1`, ident)
	case ident.Name == crossroads:
		// Only the side of a crossroad is derived; other attributes are maintained by hand.
		return fmt.Sprintf(`UPDATE %s SET k_s025_1 = NULL, id = id WHERE road_code = $1 AND k_s025_1 IN (1, 2)`, ident)
	default:
		return fmt.Sprintf(`UPDATE %s SET id = id WHERE road_code = $1`, ident)
	}
}
