package node

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/absmach/fedkm/pkg/dataset"
	"github.com/absmach/fedkm/pkg/errors"
	"github.com/absmach/fedkm/pkg/eventtable"
	"github.com/absmach/fedkm/task"
)

type Executor struct {
	provider dataset.Provider
	builder  *eventtable.Builder
	logger   *slog.Logger
}

func NewExecutor(provider dataset.Provider, builder *eventtable.Builder, logger *slog.Logger) *Executor {
	return &Executor{
		provider: provider,
		builder:  builder,
		logger:   logger,
	}
}

// Execute loads the dataset and runs the task's operation on it.
func (e *Executor) Execute(ctx context.Context, t task.Task) (any, error) {
	ds, err := e.provider.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	p := eventtable.Params{
		TimeColumn:   t.Args.TimeColumn,
		CensorColumn: t.Args.CensorColumn,
		FilterValue:  t.Args.FilterValue,
		BinSize:      t.Args.BinSize,
	}

	switch t.Operation {
	case task.OpUniqueEventTimes:
		e.logger.Info("Getting unique event times", slog.String("run_id", t.RunID), slog.String("task_id", t.ID), slog.String("time_column", p.TimeColumn))

		return e.builder.UniqueEventTimes(ds, p)
	case task.OpEventTable:
		e.logger.Info("Getting event table", slog.String("run_id", t.RunID), slog.String("task_id", t.ID), slog.String("time_column", p.TimeColumn), slog.Int("axis_length", len(t.Args.Axis)))

		return e.builder.Build(ds, p, t.Args.Axis)
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", errors.ErrInvalidData, t.Operation)
	}
}
