package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/absmach/fedkm/pkg/errors"
	"github.com/absmach/fedkm/pkg/eventtable"
	"github.com/absmach/fedkm/pkg/storage"
	"github.com/absmach/fedkm/pkg/survival"
	"github.com/absmach/fedkm/task"
	"github.com/google/uuid"
)

const (
	DefMinNodes = 3

	defOffset = 0
	defLimit  = 100
)

type service struct {
	launcher Launcher
	nodesDB  storage.Storage
	runs     RunRepository
	minNodes int
	logger   *slog.Logger
}

func NewService(launcher Launcher, nodesDB storage.Storage, runs RunRepository, minNodes int, logger *slog.Logger) Service {
	return &service{
		launcher: launcher,
		nodesDB:  nodesDB,
		runs:     runs,
		minNodes: minNodes,
		logger:   logger,
	}
}

func (svc *service) ComputeCurve(ctx context.Context, req CurveRequest) (Run, error) {
	nodes, err := svc.resolveNodes(ctx, req.Nodes)
	if err != nil {
		return Run{}, err
	}
	if len(nodes) < svc.minNodes {
		return Run{}, fmt.Errorf("%w: %d nodes take part, at least %d are required", errors.ErrPrivacyThresholdViolation, len(nodes), svc.minNodes)
	}

	now := time.Now()
	run := Run{
		ID:        uuid.NewString(),
		State:     CollectingTimes,
		Request:   req,
		Nodes:     nodes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := svc.runs.Save(ctx, run); err != nil {
		return Run{}, err
	}

	args := task.Arguments{
		TimeColumn:   req.TimeColumn,
		CensorColumn: req.CensorColumn,
		BinSize:      req.BinSize,
		FilterValue:  req.FilterValue,
	}

	axis, err := svc.collectTimes(ctx, run.ID, args, nodes)
	if err != nil {
		return svc.fail(ctx, run, err)
	}
	run.Axis = axis
	if run, err = svc.advance(ctx, run, CollectingTables); err != nil {
		return run, err
	}

	args.Axis = axis
	tables, err := svc.collectTables(ctx, run.ID, args, nodes, axis)
	if err != nil {
		return svc.fail(ctx, run, err)
	}
	if run, err = svc.advance(ctx, run, Aggregating); err != nil {
		return run, err
	}

	curve, err := survival.Aggregate(tables)
	if err != nil {
		return svc.fail(ctx, run, err)
	}
	run.Curve = &curve

	return svc.advance(ctx, run, Completed)
}

// collectTimes builds the global time axis: the union of every node's
// event times plus 0, or the binned axis when a bin size is requested.
func (svc *service) collectTimes(ctx context.Context, runID string, args task.Arguments, nodes []int) ([]float64, error) {
	results, err := svc.launcher.Dispatch(ctx, runID, task.OpUniqueEventTimes, args, nodes)
	if err != nil {
		return nil, err
	}

	axis := []float64{0}
	for i, res := range results {
		var times []float64
		if err := json.Unmarshal(res, &times); err != nil {
			return nil, fmt.Errorf("%w: event times of node %d: %s", errors.ErrInvalidData, nodes[i], err)
		}
		axis = append(axis, times...)
	}
	slices.Sort(axis)
	axis = slices.Compact(axis)

	if args.BinSize > 0 {
		return eventtable.BinnedAxis(axis[len(axis)-1], args.BinSize)
	}

	return axis, nil
}

func (svc *service) collectTables(ctx context.Context, runID string, args task.Arguments, nodes []int, axis []float64) ([]eventtable.Table, error) {
	results, err := svc.launcher.Dispatch(ctx, runID, task.OpEventTable, args, nodes)
	if err != nil {
		return nil, err
	}

	tables := make([]eventtable.Table, len(results))
	for i, res := range results {
		if err := json.Unmarshal(res, &tables[i]); err != nil {
			return nil, fmt.Errorf("%w: event table of node %d: %s", errors.ErrInvalidData, nodes[i], err)
		}
		if !slices.Equal(tables[i].Times(), axis) {
			return nil, fmt.Errorf("%w: event table of node %d is not aligned to the time axis", errors.ErrInvalidData, nodes[i])
		}
	}

	return tables, nil
}

func (svc *service) advance(ctx context.Context, run Run, state RunState) (Run, error) {
	run.State = state
	run.UpdatedAt = time.Now()
	if err := svc.runs.Save(ctx, run); err != nil {
		return run, err
	}

	return run, nil
}

func (svc *service) fail(ctx context.Context, run Run, cause error) (Run, error) {
	run.State = Failed
	run.Error = cause.Error()
	run.UpdatedAt = time.Now()
	if err := svc.runs.Save(ctx, run); err != nil {
		svc.logger.Error("failed to record failed run", slog.String("run_id", run.ID), slog.Any("error", err))
	}

	return run, cause
}

// resolveNodes validates the requested nodes, or selects every live node of
// the directory, in ascending ID order.
func (svc *service) resolveNodes(ctx context.Context, requested []int) ([]int, error) {
	if len(requested) > 0 {
		nodes := slices.Clone(requested)
		slices.Sort(nodes)
		if len(slices.Compact(slices.Clone(nodes))) != len(nodes) {
			return nil, fmt.Errorf("%w: duplicate node IDs", errors.ErrInput)
		}

		return nodes, nil
	}

	var nodes []int
	for offset := uint64(defOffset); ; offset += defLimit {
		page, err := svc.ListNodes(ctx, offset, defLimit)
		if err != nil {
			return nil, err
		}
		for _, n := range page.Nodes {
			if n.Alive {
				nodes = append(nodes, n.ID)
			}
		}
		if len(page.Nodes) == 0 || offset+defLimit >= page.Total {
			break
		}
	}
	slices.Sort(nodes)

	return nodes, nil
}

func (svc *service) GetRun(ctx context.Context, runID string) (Run, error) {
	return svc.runs.Get(ctx, runID)
}

func (svc *service) ListRuns(ctx context.Context, offset, limit uint64) (RunPage, error) {
	runs, total, err := svc.runs.List(ctx, offset, limit)
	if err != nil {
		return RunPage{}, err
	}

	return RunPage{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Runs:   runs,
	}, nil
}

func (svc *service) ListNodes(ctx context.Context, offset, limit uint64) (NodePage, error) {
	data, total, err := svc.nodesDB.List(ctx, offset, limit)
	if err != nil {
		return NodePage{}, err
	}

	nodes := make([]Node, len(data))
	for i := range data {
		n, ok := data[i].(Node)
		if !ok {
			return NodePage{}, errors.ErrInvalidData
		}
		n.SetAlive()
		nodes[i] = n
	}

	return NodePage{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Nodes:  nodes,
	}, nil
}
