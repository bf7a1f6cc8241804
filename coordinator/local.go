package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/absmach/fedkm/pkg/errors"
	"github.com/absmach/fedkm/task"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Executor runs a task against a node's private dataset.
type Executor interface {
	Execute(ctx context.Context, t task.Task) (any, error)
}

var _ Launcher = (*localLauncher)(nil)

type localLauncher struct {
	executors map[int]Executor
}

// NewLocalLauncher dispatches tasks to in-process executors, keyed by node
// ID. Results go through the same encoding as over MQTT.
func NewLocalLauncher(executors map[int]Executor) Launcher {
	return &localLauncher{executors: executors}
}

func (l *localLauncher) Dispatch(ctx context.Context, runID string, op task.Operation, args task.Arguments, nodeIDs []int) ([]json.RawMessage, error) {
	for _, id := range nodeIDs {
		if _, ok := l.executors[id]; !ok {
			return nil, fmt.Errorf("%w: node %d", pkgerrors.ErrNotFound, id)
		}
	}

	results := make([]json.RawMessage, len(nodeIDs))
	errs := make([]error, len(nodeIDs))

	var g errgroup.Group
	for i, id := range nodeIDs {
		g.Go(func() error {
			t := task.Task{
				ID:        uuid.NewString(),
				RunID:     runID,
				NodeID:    id,
				Operation: op,
				Args:      args,
				State:     task.Running,
				CreatedAt: time.Now(),
			}
			out, err := l.executors[id].Execute(ctx, t)
			res, err := task.NewResult(t, out, err)
			if err != nil {
				return err
			}
			if errs[i] = res.Err(); errs[i] == nil {
				results[i] = res.Results
			}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return results, nil
}
