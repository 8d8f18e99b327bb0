// Package chainage keeps the linear reference of a road consistent after its
// centerline changes: it recomputes the 3D geometry and measures, optionally
// shifts the chainage origin, re-snaps panoramas and maintains the road
// dictionary.
package chainage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/roadsync/internal/store"
	"github.com/leapstack-labs/roadsync/pkg/core"
)

// Step names, used as error phases.
const (
	StepElevate    = "chainage:elevate"
	StepMeasure    = "chainage:measure"
	StepLength     = "chainage:length"
	StepShift      = "chainage:shift"
	StepPanoramas  = "chainage:panoramas"
	StepDictionary = "chainage:dictionary"
)

// Result describes what a maintenance run changed.
type Result struct {
	Road     core.RoadCode
	LengthKm float64
	// Shifted is set when the chainage origin was moved.
	Shifted bool
	// Start and End are the new chainage bounds, only set when Shifted.
	Start, End float64
	// Resnapped is the number of panoramas moved to the new chainage.
	Resnapped int64
	// DictionaryInserted is set when the dictionary entry was created rather than updated.
	DictionaryInserted bool
}

// Maintainer runs the chainage maintenance steps of a road.
type Maintainer struct {
	st     *store.Store
	logger *slog.Logger
}

// NewMaintainer creates a maintainer. If logger is nil, a discard logger is used.
func NewMaintainer(st *store.Store, logger *slog.Logger) *Maintainer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Maintainer{st: st, logger: logger}
}

// Elevate recomputes the 3D centerline and the measures of road in one transaction.
func (m *Maintainer) Elevate(ctx context.Context, road core.RoadCode) (Result, error) {
	res := Result{Road: road}
	err := m.st.InTx(ctx, func(tx *sql.Tx) error {
		length, err := m.elevate(ctx, tx, road)
		res.LengthKm = length
		return err
	})
	if err != nil {
		return Result{Road: road}, err
	}

	m.logger.Info("elevation recalculated", "road", road, "length_km", res.LengthKm)
	return res, nil
}

// Shift recomputes the 3D centerline and the measures of road, moves its
// chainage origin by delta kilometres, re-snaps its panoramas and upserts its
// dictionary entry, all in one transaction. A delta that is not positive
// leaves the origin and the panoramas alone.
func (m *Maintainer) Shift(ctx context.Context, road core.RoadCode, delta float64) (Result, error) {
	res := Result{Road: road}

	err := m.st.InTx(ctx, func(tx *sql.Tx) error {
		length, err := m.elevate(ctx, tx, road)
		if err != nil {
			return err
		}
		res.LengthKm = length

		if delta > 0 {
			start, end, err := m.shiftOrigin(ctx, tx, road, delta)
			if err != nil {
				return err
			}
			res.Shifted, res.Start, res.End = true, start, end

			res.Resnapped, err = m.resnapPanoramas(ctx, tx, road)
			if err != nil {
				return err
			}
		}

		res.DictionaryInserted, err = m.upsertDictionary(ctx, tx, road)
		return err
	})
	if err != nil {
		return Result{Road: road}, err
	}

	m.logger.Info("chainage updated",
		"road", road,
		"length_km", res.LengthKm,
		"shifted", res.Shifted,
		"start", res.Start,
		"end", res.End,
		"panoramas", res.Resnapped,
		"dictionary_inserted", res.DictionaryInserted,
	)
	return res, nil
}

// elevate runs the 3D recomputation, the measure update and reads back the length.
func (m *Maintainer) elevate(ctx context.Context, tx *sql.Tx, road core.RoadCode) (float64, error) {
	roads := m.st.Registry().MustTable(store.Roads)

	m.logger.Debug("computing 3d centerline", "road", road)
	q := fmt.Sprintf(`UPDATE %s SET geomz = get_linez_from_line(geom, road_code) WHERE road_code = $1`, roads)
	if _, err := tx.ExecContext(ctx, q, int(road)); err != nil {
		return 0, core.Processing(road, StepElevate, err)
	}

	q = fmt.Sprintf(`UPDATE %s SET geom = ST_Force3DM(geomz) WHERE road_code = $1`, roads)
	if _, err := tx.ExecContext(ctx, q, int(road)); err != nil {
		return 0, core.Processing(road, StepElevate, err)
	}

	m.logger.Debug("updating road measure", "road", road)
	if _, err := tx.ExecContext(ctx, `SELECT update_road_measure($1)`, int(road)); err != nil {
		return 0, core.Processing(road, StepMeasure, err)
	}

	q = fmt.Sprintf(`SELECT sum(length_km) FROM %s WHERE road_code = $1`, roads)
	var length sql.NullFloat64
	if err := tx.QueryRowContext(ctx, q, int(road)).Scan(&length); err != nil {
		return 0, core.Processing(road, StepLength, err)
	}
	if !length.Valid {
		return 0, core.Processing(road, StepLength, errors.New("road length is not filled"))
	}
	return length.Float64, nil
}

// shiftOrigin moves fmp by delta, sets tmp to the new fmp plus the length and
// re-measures the geometry along the new bounds.
func (m *Maintainer) shiftOrigin(ctx context.Context, tx *sql.Tx, road core.RoadCode, delta float64) (start, end float64, err error) {
	roads := m.st.Registry().MustTable(store.Roads)

	m.logger.Debug("shifting chainage origin", "road", road, "delta", delta)
	// Both right-hand sides see the old fmp.
	q := fmt.Sprintf(`UPDATE %s SET fmp = fmp + $2, tmp = fmp + $2 + length_km WHERE road_code = $1`, roads)
	if _, err := tx.ExecContext(ctx, q, int(road), delta); err != nil {
		return 0, 0, core.Processing(road, StepShift, err)
	}

	q = fmt.Sprintf(`UPDATE %s SET geom = ST_AddMeasure_Meters(geom, fmp, tmp) WHERE road_code = $1`, roads)
	if _, err := tx.ExecContext(ctx, q, int(road)); err != nil {
		return 0, 0, core.Processing(road, StepShift, err)
	}

	q = fmt.Sprintf(`SELECT min(fmp), max(tmp) FROM %s WHERE road_code = $1`, roads)
	if err := tx.QueryRowContext(ctx, q, int(road)).Scan(&start, &end); err != nil {
		return 0, 0, core.Processing(road, StepShift, err)
	}
	return start, end, nil
}

// resnapPanoramas recomputes km_beg of every panorama of road against the
// nearest centerline segment of the same road.
func (m *Maintainer) resnapPanoramas(ctx context.Context, tx *sql.Tx, road core.RoadCode) (int64, error) {
	reg := m.st.Registry()
	q := fmt.Sprintf(`
		UPDATE %s ta
		SET km_beg = ST_InterpolatePoint_Meters(
			(
				SELECT tb.geom
				FROM %s tb
				WHERE tb.road_code = ta.road_code
				ORDER BY ST_Distance(tb.geom, ta.geom)
				LIMIT 1
			),
			ta.geom
		)
		WHERE ta.road_code = $1`, reg.MustTable(store.Panoramas), reg.MustTable(store.Roads))

	res, err := tx.ExecContext(ctx, q, int(road))
	if err != nil {
		return 0, core.Processing(road, StepPanoramas, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// upsertDictionary updates the length of the road's dictionary entry, or
// creates the entry. Returns true when it was created.
func (m *Maintainer) upsertDictionary(ctx context.Context, tx *sql.Tx, road core.RoadCode) (bool, error) {
	reg := m.st.Registry()
	dict, roads := reg.MustTable(store.Dictionary), reg.MustTable(store.Roads)

	exists, err := store.HasRows(ctx, tx, dict, road)
	if err != nil {
		return false, core.Processing(road, StepDictionary, err)
	}

	if exists {
		q := fmt.Sprintf(`
			UPDATE %s SET lenght = (
				SELECT sum(length_km) FROM %s WHERE road_code = $1
			)
			WHERE road_code = $1`, dict, roads)
		if _, err := tx.ExecContext(ctx, q, int(road)); err != nil {
			return false, core.Processing(road, StepDictionary, err)
		}
		return false, nil
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (road_code, name, lenght)
		SELECT road_code, min(name), sum(length_km)
		FROM %s
		WHERE road_code = $1
		GROUP BY road_code`, dict, roads)
	if _, err := tx.ExecContext(ctx, q, int(road)); err != nil {
		return false, core.Processing(road, StepDictionary, err)
	}
	return true, nil
}
