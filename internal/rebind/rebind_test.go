package rebind

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

const road core.RoadCode = 3

func newTestStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := testutil.NewMockDB(t)
	reg, err := store.DefaultRegistry("")
	require.NoError(t, err)
	return store.New(db, reg, nil), mock
}

func expectLength(mock sqlmock.Sqlmock, meters any) {
	mock.ExpectQuery(`sum\(length_km\)\*1000`).
		WithArgs(int(road)).
		WillReturnRows(sqlmock.NewRows([]string{"len"}).AddRow(meters))
}

func expectLayer(mock sqlmock.Sqlmock, table string, columns, count int) {
	mock.ExpectQuery(`count\(DISTINCT column_name\)`).
		WithArgs("dorgis", table).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(columns))
	if columns != 2 {
		return
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "dorgis"."` + table + `" WHERE road_code = $1`)).
		WithArgs(int(road)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func TestLoadLayers(t *testing.T) {
	st, mock := newTestStore(t)
	mock.ExpectQuery(`FROM "dorgis"."struct_db" WHERE schema_name = \$1 AND type = 5 .* AND db_name NOT LIKE 'dtp_%' AND db_name IN \(\$2, \$3\) ORDER BY db_name`).
		WithArgs("dorgis", "tbl_signs", "tbl_hotels").
		WillReturnRows(sqlmock.NewRows([]string{"db_name", "name"}).
			AddRow("tbl_hotels", "Hotels").
			AddRow("Bad Name", "Broken").
			AddRow("tbl_signs", "Signs"))

	layers, err := LoadLayers(context.Background(), st, []string{"tbl_signs", "tbl_hotels"}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []Layer{{"tbl_hotels", "Hotels"}, {"tbl_signs", "Signs"}}, layers)
}

func TestLoadLayers_ObjectSchema(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	reg, err := store.DefaultRegistry("roads_test")
	require.NoError(t, err)
	st := store.New(db, reg, nil)

	mock.ExpectQuery(`WHERE schema_name = \$1 AND type = 5 .* ORDER BY db_name$`).
		WithArgs("roads_test").
		WillReturnRows(sqlmock.NewRows([]string{"db_name", "name"}).AddRow("tbl_signs", "Signs"))

	layers, err := LoadLayers(context.Background(), st, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []Layer{{"tbl_signs", "Signs"}}, layers)
}

func TestLoadLayers_Empty(t *testing.T) {
	st, mock := newTestStore(t)
	mock.ExpectQuery(`struct_db`).WillReturnRows(sqlmock.NewRows([]string{"db_name", "name"}))

	_, err := LoadLayers(context.Background(), st, nil, nil)
	assert.ErrorContains(t, err, "no layers")
}

func TestTouchQuery(t *testing.T) {
	tests := []struct {
		table string
		want  string
	}{
		{"tbl_signs", `UPDATE "dorgis"."tbl_signs" SET id = id WHERE road_code = $1`},
		{"tbl_hotels", `UPDATE "dorgis"."tbl_hotels" SET k_s040_1 = NULL, id = id WHERE road_code = $1`},
		{"tbl_borders_attrs", `UPDATE "dorgis"."tbl_borders_attrs" SET position = NULL, id = id WHERE road_code = $1`},
		{"tbl_crossroads", `UPDATE "dorgis"."tbl_crossroads" SET k_s025_1 = NULL, id = id WHERE road_code = $1 AND k_s025_1 IN (1, 2)`},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			assert.Equal(t, tt.want, touchQuery(store.Ident{Schema: "dorgis", Name: tt.table}))
		})
	}
}

func TestRebinder_Process(t *testing.T) {
	st, mock := newTestStore(t)
	layers := []Layer{
		{Table: "tbl_signs", Title: "Signs"},
		{Table: "tbl_notes", Title: "Unbound"},
		{Table: "tbl_crossroads", Title: "Crossroads"},
		{Table: "tbl_hotels", Title: "Hotels"},
	}

	expectLength(mock, 2500.0)
	expectLayer(mock, "tbl_signs", 2, 4)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "dorgis"."tbl_signs" SET id = id WHERE road_code = $1`)).
		WithArgs(int(road)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	expectLayer(mock, "tbl_notes", 1, 0)
	expectLayer(mock, "tbl_crossroads", 2, 2)
	mock.ExpectExec(regexp.QuoteMeta(`SET k_s025_1 = NULL, id = id WHERE road_code = $1 AND k_s025_1 IN (1, 2)`)).
		WithArgs(int(road)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectLayer(mock, "tbl_hotels", 2, 0)

	out := New(st, layers, testutil.NewTestLogger(t)).Process(context.Background(), road)
	require.True(t, out.OK(), "unexpected failure: %v", out.Err)
	assert.Equal(t, []string{"tbl_signs", "tbl_crossroads"}, out.Tasks)
}

func TestRebinder_NoLength(t *testing.T) {
	st, mock := newTestStore(t)
	expectLength(mock, nil)

	out := New(st, []Layer{{Table: "tbl_signs"}}, nil).Process(context.Background(), road)
	assert.Equal(t, core.KindPrecondition, out.Kind)
}

func TestRebinder_UpdateFailure(t *testing.T) {
	st, mock := newTestStore(t)
	expectLength(mock, 100.0)
	expectLayer(mock, "tbl_signs", 2, 1)
	mock.ExpectExec(`UPDATE "dorgis"."tbl_signs"`).WillReturnError(errors.New("trigger failed"))

	out := New(st, []Layer{{Table: "tbl_signs"}}, nil).Process(context.Background(), road)
	assert.Equal(t, core.KindProcessing, out.Kind)
	assert.Equal(t, "rebind:tbl_signs", out.Phase)
}
