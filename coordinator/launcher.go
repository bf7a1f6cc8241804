package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/fedkm/pkg/mqtt"
	"github.com/absmach/fedkm/task"
	"github.com/google/uuid"
)

// Launcher sends one operation of a run to a set of nodes and blocks until every
// node has answered. results[i] is the answer of nodeIDs[i]. When any node
// fails, the failures of all failing nodes are joined and no results are
// returned.
type Launcher interface {
	Dispatch(ctx context.Context, runID string, op task.Operation, args task.Arguments, nodeIDs []int) ([]json.RawMessage, error)
}

var _ Launcher = (*MQTTLauncher)(nil)

// MQTTLauncher publishes a task per node on the node's task topic and
// collects the results nodes publish on the results topic.
type MQTTLauncher struct {
	channelID string
	pubsub    mqtt.PubSub
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]chan task.Result
}

// NewMQTTLauncher returns a launcher bounding each dispatch by timeout. A
// zero timeout waits for as long as ctx allows.
func NewMQTTLauncher(channelID string, pubsub mqtt.PubSub, timeout time.Duration, logger *slog.Logger) *MQTTLauncher {
	return &MQTTLauncher{
		channelID: channelID,
		pubsub:    pubsub,
		timeout:   timeout,
		logger:    logger,
		pending:   make(map[string]chan task.Result),
	}
}

func (l *MQTTLauncher) Dispatch(ctx context.Context, runID string, op task.Operation, args task.Arguments, nodeIDs []int) ([]json.RawMessage, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	tasks := make([]task.Task, len(nodeIDs))
	waits := make([]chan task.Result, len(nodeIDs))

	l.mu.Lock()
	for i, id := range nodeIDs {
		tasks[i] = task.Task{
			ID:        uuid.NewString(),
			RunID:     runID,
			NodeID:    id,
			Operation: op,
			Args:      args,
			State:     task.Scheduled,
			CreatedAt: time.Now(),
		}
		waits[i] = make(chan task.Result, 1)
		l.pending[tasks[i].ID] = waits[i]
	}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		for _, t := range tasks {
			delete(l.pending, t.ID)
		}
		l.mu.Unlock()
	}()

	for _, t := range tasks {
		if err := l.pubsub.Publish(ctx, mqtt.TaskTopic(l.channelID, t.NodeID), t); err != nil {
			return nil, err
		}
		l.logger.Debug("Published task", slog.String("run_id", runID), slog.String("task_id", t.ID), slog.Int("node_id", t.NodeID), slog.String("operation", string(op)))
	}

	results := make([]json.RawMessage, len(nodeIDs))
	var errs []error
	for i, wait := range waits {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-wait:
			if err := res.Err(); err != nil {
				errs = append(errs, err)

				continue
			}
			results[i] = res.Results
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return results, nil
}

// HandleResult delivers a node result to the dispatch waiting for it.
// Results of unknown or already answered tasks are dropped.
func (l *MQTTLauncher) HandleResult(res task.Result) error {
	l.mu.Lock()
	wait, ok := l.pending[res.TaskID]
	if ok {
		delete(l.pending, res.TaskID)
	}
	l.mu.Unlock()

	if !ok {
		l.logger.Warn("Dropped result of unknown task", slog.String("task_id", res.TaskID), slog.Int("node_id", res.NodeID))

		return nil
	}
	wait <- res

	return nil
}
