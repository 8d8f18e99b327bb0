package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/roadsync/pkg/core"
)

// ErrNoLength is returned when the requested roads are missing or have no length.
var ErrNoLength = errors.New("roads not found or length_km is not filled")

// RoadExists reports whether a centerline exists for road.
func (s *Store) RoadExists(ctx context.Context, road core.RoadCode) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE road_code = $1)`, s.reg.MustTable(Roads))

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, int(road)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check road: %w", err)
	}
	return exists, nil
}

// TableExists reports whether ident names an existing table.
func (s *Store) TableExists(ctx context.Context, ident Ident) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, ident.Schema, ident.Name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", ident.Name, err)
	}
	return exists, nil
}

// SurfacesRegistered reports whether at least one elevation surface is linked
// to road. A missing surface table counts as no surfaces.
func (s *Store) SurfacesRegistered(ctx context.Context, road core.RoadCode) (bool, error) {
	surfaces := s.reg.MustTable(Surfaces)

	exists, err := s.TableExists(ctx, surfaces)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE fname IN (SELECT fname FROM %s WHERE road_code = $1)
		)`, surfaces, s.reg.MustTable(SurfaceLinks))

	var found bool
	if err := s.db.QueryRowContext(ctx, query, int(road)).Scan(&found); err != nil {
		if IsUndefinedTable(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check surfaces: %w", err)
	}
	return found, nil
}

// TotalMeters returns the summed length of roads in metres.
// ErrNoLength is returned when the sum is NULL or not positive. Totals under
// a metre are reported as 0.
func (s *Store) TotalMeters(ctx context.Context, roads []core.RoadCode) (int64, error) {
	if len(roads) == 0 {
		return 0, ErrNoLength
	}

	placeholders := make([]string, len(roads))
	args := make([]any, len(roads))
	for i, road := range roads {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = int(road)
	}

	query := fmt.Sprintf(`SELECT sum(length_km)*1000 FROM %s WHERE road_code IN (%s)`,
		s.reg.MustTable(Roads), strings.Join(placeholders, ", "))

	var total sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to estimate road length: %w", err)
	}
	if !total.Valid || total.Float64 <= 0 {
		return 0, ErrNoLength
	}
	return int64(total.Float64), nil
}

// ResolveZone returns the most common UTM zone SRID of the road network.
// ok is false when no zone could be determined.
func (s *Store) ResolveZone(ctx context.Context) (srid int, ok bool, err error) {
	query := fmt.Sprintf(`
		SELECT srid
		FROM (
			SELECT utmzone(geom) AS srid, count(1) AS c
			FROM %s
			GROUP BY utmzone(geom)
		) AS zones
		ORDER BY c DESC
		LIMIT 1`, s.reg.MustTable(Roads))

	var zone sql.NullInt64
	err = s.db.QueryRowContext(ctx, query).Scan(&zone)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve utm zone: %w", err)
	}
	if !zone.Valid || zone.Int64 == 0 {
		return 0, false, nil
	}
	return int(zone.Int64), true, nil
}

// HasRows reports whether table holds rows for road.
func (s *Store) HasRows(ctx context.Context, table Ident, road core.RoadCode) (bool, error) {
	return HasRows(ctx, s.db, table, road)
}

// HasRows reports whether table holds rows for road, using q.
func HasRows(ctx context.Context, q Querier, table Ident, road core.RoadCode) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE road_code = $1)`, table)

	var exists bool
	if err := q.QueryRowContext(ctx, query, int(road)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check rows of %s: %w", table.Name, err)
	}
	return exists, nil
}

// CallFunction invokes a registered stored function with bound arguments.
func (s *Store) CallFunction(ctx context.Context, name string, args ...any) error {
	fn, err := s.reg.Function(name)
	if err != nil {
		return err
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`SELECT %s(%s)`, fn, strings.Join(placeholders, ", "))

	s.logger.Debug("calling function", "function", fn, "args", args)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s failed: %w", fn, err)
	}
	return nil
}
