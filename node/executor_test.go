package node_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/fedkm/node"
	"github.com/absmach/fedkm/pkg/dataset"
	"github.com/absmach/fedkm/pkg/errors"
	"github.com/absmach/fedkm/pkg/eventtable"
	"github.com/absmach/fedkm/pkg/noise"
	"github.com/absmach/fedkm/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

const csvData = `TIME_AT_RISK,MORTALITY_FLAG,ARM
4,1,a
2,0,b
7,1,a
2,1,b
9,0,a
`

func newExecutor(t *testing.T, cfg node.Config) *node.Executor {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0o600))

	policy, err := cfg.Policy()
	require.NoError(t, err)

	return node.NewExecutor(dataset.NewCSVProvider(path), eventtable.NewBuilder(policy, cfg.Noise(), logger), logger)
}

func TestExecute(t *testing.T) {
	e := newExecutor(t, node.Config{MinRecords: 3, NoiseType: noise.None})
	args := task.Arguments{TimeColumn: "TIME_AT_RISK", CensorColumn: "MORTALITY_FLAG"}

	out, err := e.Execute(context.Background(), task.Task{ID: "t1", Operation: task.OpUniqueEventTimes, Args: args})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 7, 9}, out)

	args.Axis = []float64{0, 2, 4, 7, 9}
	out, err = e.Execute(context.Background(), task.Task{ID: "t2", Operation: task.OpEventTable, Args: args})
	require.NoError(t, err)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"TIME_AT_RISK": 0, "removed": 0, "observed": 0, "censored": 0, "at_risk": 5},
		{"TIME_AT_RISK": 2, "removed": 2, "observed": 1, "censored": 1, "at_risk": 5},
		{"TIME_AT_RISK": 4, "removed": 1, "observed": 1, "censored": 0, "at_risk": 3},
		{"TIME_AT_RISK": 7, "removed": 1, "observed": 1, "censored": 0, "at_risk": 2},
		{"TIME_AT_RISK": 9, "removed": 1, "observed": 0, "censored": 1, "at_risk": 1}
	]`, string(data))
}

func TestExecuteErrors(t *testing.T) {
	cases := []struct {
		desc string
		cfg  node.Config
		t    task.Task
		err  error
	}{
		{
			desc: "too few records",
			cfg:  node.Config{MinRecords: 5, NoiseType: noise.None},
			t:    task.Task{Operation: task.OpUniqueEventTimes, Args: task.Arguments{TimeColumn: "TIME_AT_RISK"}},
			err:  errors.ErrInput,
		},
		{
			desc: "cohort too small",
			cfg:  node.Config{MinRecords: 2, FilterColumn: "ARM", NoiseType: noise.None},
			t:    task.Task{Operation: task.OpUniqueEventTimes, Args: task.Arguments{TimeColumn: "TIME_AT_RISK", FilterValue: "b"}},
			err:  errors.ErrInput,
		},
		{
			desc: "unknown noise type",
			cfg:  node.Config{MinRecords: 3, NoiseType: noise.ParseMechanism("laplace")},
			t:    task.Task{Operation: task.OpUniqueEventTimes, Args: task.Arguments{TimeColumn: "TIME_AT_RISK"}},
			err:  errors.ErrConfiguration,
		},
		{
			desc: "unknown operation",
			cfg:  node.Config{MinRecords: 3, NoiseType: noise.None},
			t:    task.Task{Operation: "get_raw_rows", Args: task.Arguments{TimeColumn: "TIME_AT_RISK"}},
			err:  errors.ErrInvalidData,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			e := newExecutor(t, tc.cfg)
			_, err := e.Execute(context.Background(), tc.t)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestConfigPolicy(t *testing.T) {
	_, err := node.Config{MinRecords: -1}.Policy()
	assert.ErrorIs(t, err, errors.ErrConfiguration)

	cfg := node.Config{MinRecords: 4, AllowedTimeColumns: []string{"TIME_.*"}}
	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, 4, p.MinRecords())
	assert.Equal(t, []string{"TIME_.*"}, p.AllowedTimeColumns())
}
