package imports

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/leapstack-labs/roadsync/internal/store"
	"github.com/leapstack-labs/roadsync/pkg/core"
)

// Runner replaces one object table of a road with its staged rows.
type Runner struct {
	st     *store.Store
	logger *slog.Logger
}

// NewRunner creates a runner. If logger is nil, a discard logger is used.
func NewRunner(st *store.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{st: st, logger: logger}
}

// ImportTable validates the staged rows of road and table, then replaces the
// road's rows in the target table with them and consumes the staged rows.
// Everything happens in one transaction. Returns the number of inserted rows.
// Nothing is deleted or inserted when nothing is staged.
func (r *Runner) ImportTable(ctx context.Context, road core.RoadCode, table string) (int64, error) {
	phase := "import:" + table

	target, err := r.st.Registry().Object(table)
	if err != nil {
		return 0, core.InputValidation(road, phase, err)
	}
	staging := r.st.Registry().MustTable(store.Staging)

	var inserted int64
	err = r.st.InTx(ctx, func(tx *sql.Tx) error {
		total, err := validateStaged(ctx, tx, staging, road, table)
		if err != nil {
			return err
		}
		if total == 0 {
			return nil
		}

		columns, err := targetColumns(ctx, tx, target)
		if err != nil {
			return core.Processing(road, phase, err)
		}

		del := fmt.Sprintf(`DELETE FROM %s WHERE road_code = $1`, target)
		if _, err := tx.ExecContext(ctx, del, int(road)); err != nil {
			return core.Processing(road, phase, fmt.Errorf("failed to clear %s: %w", table, err))
		}

		res, err := tx.ExecContext(ctx, insertQuery(target, staging, columns), int(road), table)
		if err != nil {
			return core.Processing(road, phase, fmt.Errorf("failed to insert into %s: %w", table, err))
		}
		inserted, _ = res.RowsAffected()

		consume := fmt.Sprintf(`DELETE FROM %s WHERE road_code = $1 AND table_name = $2`, staging)
		if _, err := tx.ExecContext(ctx, consume, int(road), table); err != nil {
			return core.Processing(road, phase, fmt.Errorf("failed to consume staged rows: %w", err))
		}
		return nil
	})
	if err != nil {
		if core.KindOf(err) == core.KindInputValidation {
			return 0, err
		}
		if core.PhaseOf(err) == "" {
			err = core.Processing(road, phase, err)
		}
		return 0, err
	}

	r.logger.Debug("table imported", "road", road, "table", table, "rows", inserted)
	return inserted, nil
}

// validateStaged counts the staged rows and rejects rows without an object
// identifier or geometry.
func validateStaged(ctx context.Context, tx *sql.Tx, staging store.Ident, road core.RoadCode, table string) (int64, error) {
	query := fmt.Sprintf(`
		SELECT
			count(*) FILTER (WHERE coalesce(acid::text, '') = ''),
			count(*) FILTER (WHERE geom IS NULL),
			count(*)
		FROM %s
		WHERE road_code = $1 AND table_name = $2`, staging)

	var noID, noGeom, total int64
	if err := tx.QueryRowContext(ctx, query, int(road), table).Scan(&noID, &noGeom, &total); err != nil {
		return 0, core.Processing(road, "import:"+table, fmt.Errorf("failed to validate staged rows: %w", err))
	}

	var problems []string
	if noID > 0 {
		problems = append(problems, fmt.Sprintf("%d without acid", noID))
	}
	if noGeom > 0 {
		problems = append(problems, fmt.Sprintf("%d without geometry", noGeom))
	}
	if len(problems) > 0 {
		return 0, core.InputValidation(road, "import:"+table,
			fmt.Errorf("staged objects of %s: %s", table, strings.Join(problems, ", ")))
	}
	return total, nil
}

// targetColumns returns the target's columns without defaults, in table order.
func targetColumns(ctx context.Context, tx *sql.Tx, target store.Ident) ([]string, error) {
	const query = `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2 AND column_default IS NULL
		ORDER BY ordinal_position`

	rows, err := tx.QueryContext(ctx, query, target.Schema, target.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", target.Name, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("target table %s not found", target.Name)
	}
	return columns, nil
}

// insertQuery builds the INSERT ... SELECT that maps staged attributes onto
// the target row type. $1 is the road code, $2 the table name.
func insertQuery(target, staging store.Ident, columns []string) string {
	quoted := make([]string, len(columns))
	selected := make([]string, len(columns))
	for i, c := range columns {
		q := pgx.Identifier{c}.Sanitize()
		quoted[i] = q
		selected[i] = "r." + q
	}

	return fmt.Sprintf(`INSERT INTO %[1]s (%[2]s) SELECT %[3]s FROM %[4]s s, `+
		`jsonb_populate_record(NULL::%[1]s, coalesce(s.attrs, '{}'::jsonb) || `+
		`jsonb_build_object('road_code', s.road_code, 'acid', s.acid, 'geom', s.geom::text)) r `+
		`WHERE s.road_code = $1 AND s.table_name = $2`,
		target, strings.Join(quoted, ", "), strings.Join(selected, ", "), staging)
}
