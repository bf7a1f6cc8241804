package dataset_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/absmach/fedkm/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waltons = `T,E,group
6,1,miR-137
13,1,control
13,0,control
15,1,miR-137
`

func TestReadCSV(t *testing.T) {
	ds, err := dataset.ReadCSV(strings.NewReader(waltons))
	require.NoError(t, err)

	assert.Equal(t, 4, ds.Len())
	assert.Equal(t, []string{"T", "E", "group"}, ds.Columns())

	times, err := ds.Float64s("T")
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 13, 13, 15}, times)

	_, err = ds.Float64s("group")
	assert.ErrorIs(t, err, dataset.ErrNotNumeric)

	groups, err := ds.Strings("group")
	require.NoError(t, err)
	assert.Equal(t, "control", groups[1])

	_, err = ds.Float64s("missing")
	assert.ErrorIs(t, err, dataset.ErrColumnNotFound)
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := dataset.ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, dataset.ErrEmptySource)
}

func TestCloneAndSelect(t *testing.T) {
	ds := dataset.New()
	require.NoError(t, ds.AddNumeric("T", []float64{1, 2, 3}))
	require.NoError(t, ds.AddText("site", []string{"a", "b", "c"}))

	err := ds.AddNumeric("short", []float64{1})
	assert.ErrorIs(t, err, dataset.ErrLengthMismatch)

	clone := ds.Clone()
	require.NoError(t, clone.SetFloat64s("T", []float64{9, 9, 9}))
	orig, _ := ds.Float64s("T")
	assert.Equal(t, []float64{1, 2, 3}, orig)

	sel := ds.Select([]int{2, 0})
	assert.Equal(t, 2, sel.Len())
	times, _ := sel.Float64s("T")
	assert.Equal(t, []float64{3, 1}, times)
	sites, _ := sel.Strings("site")
	assert.Equal(t, []string{"c", "a"}, sites)
}

func TestSQLProvider(t *testing.T) {
	db, err := sql.Open(dataset.SQLiteDriver, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `CREATE TABLE cohort (time_at_risk REAL, mortality_flag INTEGER, site TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO cohort VALUES (4.5, 1, 'a'), (7, 0, 'b'), (2, 1, 'a')`)
	require.NoError(t, err)

	ds, err := dataset.NewSQLProvider(db, `SELECT time_at_risk, mortality_flag, site FROM cohort ORDER BY rowid`).Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	times, err := ds.Float64s("time_at_risk")
	require.NoError(t, err)
	assert.Equal(t, []float64{4.5, 7, 2}, times)
	flags, err := ds.Float64s("mortality_flag")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 1}, flags)
	_, err = ds.Float64s("site")
	assert.ErrorIs(t, err, dataset.ErrNotNumeric)
}
