package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/absmach/fedkm/pkg/mqtt"
	"github.com/absmach/fedkm/task"
)

// TaskExecutor runs one task against the node's dataset.
type TaskExecutor interface {
	Execute(ctx context.Context, t task.Task) (any, error)
}

type Service struct {
	channelID          string
	nodeID             int
	name               string
	livelinessInterval time.Duration
	pubsub             mqtt.PubSub
	executor           TaskExecutor
	logger             *slog.Logger
}

// NewService announces the node on the channel and starts publishing
// liveness messages until ctx is done.
func NewService(ctx context.Context, channelID string, nodeID int, name string, livelinessInterval time.Duration, pubsub mqtt.PubSub, executor TaskExecutor, logger *slog.Logger) (*Service, error) {
	s := &Service{
		channelID:          channelID,
		nodeID:             nodeID,
		name:               name,
		livelinessInterval: livelinessInterval,
		pubsub:             pubsub,
		executor:           executor,
		logger:             logger,
	}

	a := mqtt.Announcement{NodeID: nodeID, Name: name}
	if err := pubsub.Publish(ctx, mqtt.DiscoveryTopic(channelID), a); err != nil {
		return nil, errors.Join(errors.New("failed to publish discovery"), err)
	}

	go s.startLivelinessUpdates(ctx)

	return s, nil
}

func (s *Service) startLivelinessUpdates(ctx context.Context) {
	ticker := time.NewTicker(s.livelinessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping liveliness updates")

			return
		case <-ticker.C:
			topic := mqtt.AliveTopic(s.channelID)
			a := mqtt.Announcement{NodeID: s.nodeID, Status: mqtt.StatusAlive}
			if err := s.pubsub.Publish(ctx, topic, a); err != nil {
				s.logger.Error("failed to publish liveliness message", slog.Any("error", err))

				continue
			}

			s.logger.Debug("Published liveliness message", slog.String("topic", topic))
		}
	}
}

// Run subscribes to the node's task topic and serves tasks until ctx is
// done.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Subscribe(ctx); err != nil {
		return err
	}

	s.logger.Info("Node service is running.", slog.Int("node_id", s.nodeID))
	<-ctx.Done()

	return s.pubsub.Unsubscribe(context.Background(), mqtt.TaskTopic(s.channelID, s.nodeID))
}

func (s *Service) Subscribe(ctx context.Context) error {
	topic := mqtt.TaskTopic(s.channelID, s.nodeID)
	if err := s.pubsub.Subscribe(ctx, topic, s.handleTask(ctx)); err != nil {
		return fmt.Errorf("failed to subscribe to task topic: %w", err)
	}

	return nil
}

func (s *Service) handleTask(ctx context.Context) mqtt.Handler {
	return func(msg mqtt.Message) error {
		var t task.Task
		if err := msg.Decode(&t); err != nil {
			return err
		}
		if t.NodeID != s.nodeID {
			return fmt.Errorf("task %s is addressed to node %d", t.ID, t.NodeID)
		}

		go s.execute(ctx, t)

		return nil
	}
}

func (s *Service) execute(ctx context.Context, t task.Task) {
	out, err := s.executor.Execute(ctx, t)
	if err != nil {
		s.logger.Warn("Task failed", slog.String("run_id", t.RunID), slog.String("task_id", t.ID), slog.String("operation", string(t.Operation)), slog.Any("error", err))
	}

	res, err := task.NewResult(t, out, err)
	if err != nil {
		s.logger.Error("failed to encode task result", slog.String("task_id", t.ID), slog.Any("error", err))
		res, _ = task.NewResult(t, nil, err)
	}

	if err := s.pubsub.Publish(ctx, mqtt.ResultsTopic(s.channelID), res); err != nil {
		s.logger.Error("failed to publish task result", slog.String("task_id", t.ID), slog.Any("error", err))

		return
	}

	s.logger.Info("Published task result", slog.String("run_id", t.RunID), slog.String("task_id", t.ID), slog.Bool("failed", res.Error != ""))
}
