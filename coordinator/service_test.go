package coordinator_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/absmach/fedkm/coordinator"
	"github.com/absmach/fedkm/coordinator/mocks"
	"github.com/absmach/fedkm/node"
	"github.com/absmach/fedkm/pkg/dataset"
	"github.com/absmach/fedkm/pkg/errors"
	"github.com/absmach/fedkm/pkg/eventtable"
	"github.com/absmach/fedkm/pkg/noise"
	"github.com/absmach/fedkm/pkg/storage"
	"github.com/absmach/fedkm/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	timeColumn   = "TIME_AT_RISK"
	censorColumn = "MORTALITY_FLAG"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// allEvents holds n records dying at 1..n.
func allEvents(t *testing.T, n int) *dataset.Dataset {
	t.Helper()

	times := make([]float64, n)
	events := make([]float64, n)
	for i := range n {
		times[i] = float64(i + 1)
		events[i] = 1
	}

	ds := dataset.New()
	require.NoError(t, ds.AddNumeric(timeColumn, times))
	require.NoError(t, ds.AddNumeric(censorColumn, events))

	return ds
}

func newExecutor(t *testing.T, ds *dataset.Dataset, cfg node.Config) coordinator.Executor {
	t.Helper()

	policy, err := cfg.Policy()
	require.NoError(t, err)

	return node.NewExecutor(dataset.NewStaticProvider(ds), eventtable.NewBuilder(policy, cfg.Noise(), logger), logger)
}

func newService(launcher coordinator.Launcher) coordinator.Service {
	return coordinator.NewService(
		launcher,
		storage.NewInMemoryStorage(),
		coordinator.NewRunRepository(storage.NewInMemoryStorage()),
		coordinator.DefMinNodes,
		logger,
	)
}

func scenario(t *testing.T, cfg node.Config) coordinator.Service {
	t.Helper()

	executors := make(map[int]coordinator.Executor)
	for id := 1; id <= 3; id++ {
		executors[id] = newExecutor(t, allEvents(t, 20), cfg)
	}

	return newService(coordinator.NewLocalLauncher(executors))
}

var curveReq = coordinator.CurveRequest{
	TimeColumn:   timeColumn,
	CensorColumn: censorColumn,
	Nodes:        []int{3, 1, 2},
}

func TestComputeCurveScenario(t *testing.T) {
	svc := scenario(t, node.Config{MinRecords: 3, NoiseType: noise.None})

	run, err := svc.ComputeCurve(context.Background(), curveReq)
	require.NoError(t, err)
	assert.Equal(t, coordinator.Completed, run.State)
	assert.Equal(t, []int{1, 2, 3}, run.Nodes)
	assert.Empty(t, run.Error)

	expectedAxis := make([]float64, 21)
	for i := range expectedAxis {
		expectedAxis[i] = float64(i)
	}
	assert.Equal(t, expectedAxis, run.Axis)

	require.NotNil(t, run.Curve)
	require.Equal(t, expectedAxis, run.Curve.Times())
	for _, r := range run.Curve.Rows[1:] {
		assert.Equal(t, int64(3), r.Observed)
		assert.InDelta(t, 3/float64(r.AtRisk), r.Hazard, 1e-12)
		assert.InDelta(t, (20-r.Time)/20, r.Survival, 1e-9)
	}

	stored, err := svc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, stored)

	page, err := svc.ListRuns(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), page.Total)
	assert.Equal(t, run.ID, page.Runs[0].ID)
}

func TestComputeCurveDeterministic(t *testing.T) {
	cfg := node.Config{MinRecords: 3, NoiseType: noise.Gaussian, SNR: 2, RandomSeed: 7}

	first, err := scenario(t, cfg).ComputeCurve(context.Background(), curveReq)
	require.NoError(t, err)
	second, err := scenario(t, cfg).ComputeCurve(context.Background(), curveReq)
	require.NoError(t, err)

	assert.Equal(t, first.Axis, second.Axis)
	assert.Equal(t, first.Curve, second.Curve)

	prev := 1.0
	for i, r := range first.Curve.Rows {
		if i > 0 {
			assert.Less(t, first.Curve.Rows[i-1].Time, r.Time)
		}
		assert.LessOrEqual(t, r.Survival, prev)
		assert.GreaterOrEqual(t, r.Survival, 0.0)
		prev = r.Survival
	}
}

func TestComputeCurveBinned(t *testing.T) {
	svc := scenario(t, node.Config{MinRecords: 3, NoiseType: noise.None})

	req := curveReq
	req.BinSize = 5
	run, err := svc.ComputeCurve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5, 10, 15, 20}, run.Axis)

	var removed int64
	for _, r := range run.Curve.Rows {
		removed += r.Removed
	}
	assert.Equal(t, int64(60), removed)
	assert.Equal(t, int64(15), run.Curve.Rows[1].Removed)
}

func TestComputeCurveTooFewNodes(t *testing.T) {
	launcher := new(mocks.Launcher)
	svc := newService(launcher)

	req := curveReq
	req.Nodes = []int{1, 2}
	_, err := svc.ComputeCurve(context.Background(), req)
	assert.ErrorIs(t, err, errors.ErrPrivacyThresholdViolation)
	launcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	page, err := svc.ListRuns(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestComputeCurveDuplicateNodes(t *testing.T) {
	launcher := new(mocks.Launcher)
	svc := newService(launcher)

	req := curveReq
	req.Nodes = []int{1, 2, 2}
	_, err := svc.ComputeCurve(context.Background(), req)
	assert.ErrorIs(t, err, errors.ErrInput)
	launcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestComputeCurveNodeFailure(t *testing.T) {
	cfg := node.Config{MinRecords: 3, NoiseType: noise.None}
	executors := map[int]coordinator.Executor{
		1: newExecutor(t, allEvents(t, 20), cfg),
		2: newExecutor(t, allEvents(t, 3), cfg),
		3: newExecutor(t, allEvents(t, 20), node.Config{MinRecords: 3, NoiseType: noise.Gaussian}),
	}
	svc := newService(coordinator.NewLocalLauncher(executors))

	run, err := svc.ComputeCurve(context.Background(), curveReq)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInput)
	assert.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Contains(t, err.Error(), "node 2")
	assert.Contains(t, err.Error(), "node 3")

	var nodeErr *errors.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, 2, nodeErr.NodeID)

	assert.Equal(t, coordinator.Failed, run.State)
	assert.Nil(t, run.Curve)

	stored, err := svc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, coordinator.Failed, stored.State)
	assert.NotEmpty(t, stored.Error)
}

func TestComputeCurvePhaseOneFailureStopsRound(t *testing.T) {
	launcher := new(mocks.Launcher)
	failure := errors.NewNodeError(2, errors.KindInput, "number of records must be greater than 3")
	launcher.On("Dispatch", mock.Anything, mock.Anything, task.OpUniqueEventTimes, mock.Anything, []int{1, 2, 3}).Return(nil, failure)

	run, err := newService(launcher).ComputeCurve(context.Background(), curveReq)
	assert.ErrorIs(t, err, errors.ErrInput)
	assert.Equal(t, coordinator.Failed, run.State)
	assert.Empty(t, run.Axis)
	launcher.AssertNumberOfCalls(t, "Dispatch", 1)
	launcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, task.OpEventTable, mock.Anything, mock.Anything)
}

func TestComputeCurveRejectsMisalignedTable(t *testing.T) {
	launcher := new(mocks.Launcher)
	times := []json.RawMessage{json.RawMessage(`[1,2]`), json.RawMessage(`[2]`), json.RawMessage(`[3]`)}
	launcher.On("Dispatch", mock.Anything, mock.Anything, task.OpUniqueEventTimes, mock.Anything, []int{1, 2, 3}).Return(times, nil)

	table := func(ts ...float64) json.RawMessage {
		tb := eventtable.Table{TimeColumn: timeColumn}
		for _, v := range ts {
			tb.Rows = append(tb.Rows, eventtable.Row{Time: v})
		}
		data, err := json.Marshal(tb)
		require.NoError(t, err)

		return data
	}
	tables := []json.RawMessage{table(0, 1, 2, 3), table(0, 1, 2, 3), table(0, 1, 3)}
	launcher.On("Dispatch", mock.Anything, mock.Anything, task.OpEventTable, mock.MatchedBy(func(a task.Arguments) bool {
		return fmt.Sprint(a.Axis) == fmt.Sprint([]float64{0, 1, 2, 3})
	}), []int{1, 2, 3}).Return(tables, nil)

	run, err := newService(launcher).ComputeCurve(context.Background(), curveReq)
	assert.ErrorIs(t, err, errors.ErrInvalidData)
	assert.Contains(t, err.Error(), "node 3")
	assert.Equal(t, coordinator.Failed, run.State)
	launcher.AssertExpectations(t)
	for _, call := range launcher.Calls {
		assert.Equal(t, run.ID, call.Arguments.String(1))
	}
}

func TestComputeCurveTooManyBins(t *testing.T) {
	launcher := new(mocks.Launcher)
	times := []json.RawMessage{json.RawMessage(`[1]`), json.RawMessage(`[2]`), json.RawMessage(`[100000000]`)}
	launcher.On("Dispatch", mock.Anything, mock.Anything, task.OpUniqueEventTimes, mock.Anything, []int{1, 2, 3}).Return(times, nil)

	req := curveReq
	req.BinSize = 1
	run, err := newService(launcher).ComputeCurve(context.Background(), req)
	assert.ErrorIs(t, err, errors.ErrInput)
	assert.Equal(t, coordinator.Failed, run.State)
	assert.Empty(t, run.Axis)
	launcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, task.OpEventTable, mock.Anything, mock.Anything)
}

func TestComputeCurveAllLiveNodes(t *testing.T) {
	const live = 101

	nodesDB := storage.NewInMemoryStorage()
	executors := make(map[int]coordinator.Executor)
	cfg := node.Config{MinRecords: 3, NoiseType: noise.None}
	for id := 1; id <= live+1; id++ {
		n := coordinator.Node{ID: id, AliveHistory: []time.Time{time.Now()}}
		if id > live {
			n.AliveHistory = []time.Time{time.Now().Add(-time.Hour)}
		}
		require.NoError(t, nodesDB.Create(context.Background(), strconv.Itoa(id), n))
		executors[id] = newExecutor(t, allEvents(t, 20), cfg)
	}

	svc := coordinator.NewService(
		coordinator.NewLocalLauncher(executors),
		nodesDB,
		coordinator.NewRunRepository(storage.NewInMemoryStorage()),
		coordinator.DefMinNodes,
		logger,
	)
	run, err := svc.ComputeCurve(context.Background(), coordinator.CurveRequest{TimeColumn: timeColumn, CensorColumn: censorColumn})
	require.NoError(t, err)
	require.Len(t, run.Nodes, live)
	assert.Equal(t, 1, run.Nodes[0])
	assert.Equal(t, live, run.Nodes[live-1])

	var removed int64
	for _, r := range run.Curve.Rows {
		removed += r.Removed
	}
	assert.Equal(t, int64(live*20), removed)
}

func TestGetRunNotFound(t *testing.T) {
	_, err := newService(new(mocks.Launcher)).GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
