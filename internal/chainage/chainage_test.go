package chainage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/roadsync/internal/store"
	"github.com/leapstack-labs/roadsync/internal/testutil"
	"github.com/leapstack-labs/roadsync/pkg/core"
)

const road core.RoadCode = 42

func newTestMaintainer(t *testing.T) (*Maintainer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := testutil.NewMockDB(t)
	reg, err := store.DefaultRegistry("")
	require.NoError(t, err)
	st := store.New(db, reg, nil)
	return NewMaintainer(st, testutil.NewTestLogger(t)), mock
}

func expectElevate(mock sqlmock.Sqlmock, lengthKm float64) {
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "dorgis"."tbl_roads" SET geomz = get_linez_from_line(geom, road_code) WHERE road_code = $1`)).
		WithArgs(int(road)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "dorgis"."tbl_roads" SET geom = ST_Force3DM(geomz) WHERE road_code = $1`)).
		WithArgs(int(road)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`SELECT update_road_measure($1)`)).
		WithArgs(int(road)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT sum(length_km) FROM "dorgis"."tbl_roads" WHERE road_code = $1`)).
		WithArgs(int(road)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(lengthKm))
}

func expectDictionary(mock sqlmock.Sqlmock, exists bool) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM "dorgis"."dict_roads" WHERE road_code = $1)`)).
		WithArgs(int(road)).
		WillReturnRows(testutil.Exists(exists))
	if exists {
		mock.ExpectExec(`UPDATE "dorgis"."dict_roads" SET lenght = \( SELECT sum\(length_km\) FROM "dorgis"."tbl_roads" WHERE road_code = \$1 \) WHERE road_code = \$1`).
			WithArgs(int(road)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		return
	}
	mock.ExpectExec(`INSERT INTO "dorgis"."dict_roads" \(road_code, name, lenght\) SELECT road_code, min\(name\), sum\(length_km\) FROM "dorgis"."tbl_roads" WHERE road_code = \$1 GROUP BY road_code`).
		WithArgs(int(road)).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestMaintainer_Elevate(t *testing.T) {
	m, mock := newTestMaintainer(t)
	mock.ExpectBegin()
	expectElevate(mock, 12.5)
	mock.ExpectCommit()

	res, err := m.Elevate(context.Background(), road)
	require.NoError(t, err)
	assert.Equal(t, 12.5, res.LengthKm)
	assert.False(t, res.Shifted)
}

func TestMaintainer_Shift_PositiveDelta(t *testing.T) {
	m, mock := newTestMaintainer(t)
	mock.ExpectBegin()
	expectElevate(mock, 12.5)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "dorgis"."tbl_roads" SET fmp = fmp + $2, tmp = fmp + $2 + length_km WHERE road_code = $1`)).
		WithArgs(int(road), 3.2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "dorgis"."tbl_roads" SET geom = ST_AddMeasure_Meters(geom, fmp, tmp) WHERE road_code = $1`)).
		WithArgs(int(road)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT min(fmp), max(tmp) FROM "dorgis"."tbl_roads" WHERE road_code = $1`)).
		WithArgs(int(road)).
		WillReturnRows(sqlmock.NewRows([]string{"min", "max"}).AddRow(3.2, 15.7))
	mock.ExpectExec(`UPDATE "dorgis"."tbl_panoram_road" ta SET km_beg = ST_InterpolatePoint_Meters\( \( SELECT tb.geom FROM "dorgis"."tbl_roads" tb WHERE tb.road_code = ta.road_code ORDER BY ST_Distance\(tb.geom, ta.geom\) LIMIT 1 \), ta.geom \) WHERE ta.road_code = \$1`).
		WithArgs(int(road)).
		WillReturnResult(sqlmock.NewResult(0, 17))
	expectDictionary(mock, true)
	mock.ExpectCommit()

	res, err := m.Shift(context.Background(), road, 3.2)
	require.NoError(t, err)
	assert.True(t, res.Shifted)
	assert.Equal(t, 3.2, res.Start)
	assert.Equal(t, 15.7, res.End)
	assert.Equal(t, int64(17), res.Resnapped)
	assert.False(t, res.DictionaryInserted)
}

func TestMaintainer_Shift_SkipsOriginWhenNotPositive(t *testing.T) {
	for _, delta := range []float64{0, -1.5} {
		m, mock := newTestMaintainer(t)
		mock.ExpectBegin()
		expectElevate(mock, 4)
		expectDictionary(mock, false)
		mock.ExpectCommit()

		res, err := m.Shift(context.Background(), road, delta)
		require.NoError(t, err)
		assert.False(t, res.Shifted)
		assert.Zero(t, res.Resnapped)
		assert.True(t, res.DictionaryInserted)
	}
}

func TestMaintainer_Shift_FailureRollsBack(t *testing.T) {
	m, mock := newTestMaintainer(t)
	mock.ExpectBegin()
	expectElevate(mock, 12.5)
	mock.ExpectExec(`SET fmp = fmp \+ \$2`).
		WithArgs(int(road), 1.0).
		WillReturnError(errors.New("numeric overflow"))
	mock.ExpectRollback()

	res, err := m.Shift(context.Background(), road, 1)
	require.Error(t, err)
	assert.Equal(t, core.KindProcessing, core.KindOf(err))
	assert.Equal(t, StepShift, core.PhaseOf(err))
	assert.False(t, res.Shifted)
}

func TestMaintainer_Elevate_KernelFailure(t *testing.T) {
	m, mock := newTestMaintainer(t)
	mock.ExpectBegin()
	mock.ExpectExec(`get_linez_from_line`).
		WithArgs(int(road)).
		WillReturnError(errors.New("no surface covers the road"))
	mock.ExpectRollback()

	_, err := m.Elevate(context.Background(), road)
	require.Error(t, err)
	assert.Equal(t, StepElevate, core.PhaseOf(err))
}

func TestMaintainer_Elevate_NullLength(t *testing.T) {
	m, mock := newTestMaintainer(t)
	mock.ExpectBegin()
	mock.ExpectExec(`get_linez_from_line`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`ST_Force3DM`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`update_road_measure`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT sum\(length_km\)`).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(nil))
	mock.ExpectRollback()

	_, err := m.Elevate(context.Background(), road)
	require.Error(t, err)
	assert.Equal(t, StepLength, core.PhaseOf(err))
}
