// Package imports replaces object tables of a road with rows staged in the
// editor staging table.
package imports

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/roadsync/internal/store"
	"github.com/leapstack-labs/roadsync/pkg/core"
)

// Gate answers whether staged rows are waiting for a road and table.
type Gate struct {
	st     *store.Store
	logger *slog.Logger
}

// NewGate creates a gate. If logger is nil, a discard logger is used.
func NewGate(st *store.Store, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gate{st: st, logger: logger}
}

// HasPendingImport reports whether staging holds rows for road and table.
// A missing staging schema or table means nothing is pending.
func (g *Gate) HasPendingImport(ctx context.Context, road core.RoadCode, table string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE road_code = $1 AND table_name = $2)`,
		g.st.Registry().MustTable(store.Staging))

	var pending bool
	err := g.st.DB().QueryRowContext(ctx, query, int(road), table).Scan(&pending)
	if store.IsUndefinedTable(err) {
		g.logger.Debug("staging table not present", "road", road, "table", table)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check staged rows for %s: %w", table, err)
	}
	return pending, nil
}

// StagedTables lists every table name present in staging, sorted.
// A missing staging table yields no tables.
func (g *Gate) StagedTables(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT table_name FROM %s ORDER BY table_name`,
		g.st.Registry().MustTable(store.Staging))

	rows, err := g.st.DB().QueryContext(ctx, query)
	if store.IsUndefinedTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list staged tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan staged table: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staged tables: %w", err)
	}
	return tables, nil
}
