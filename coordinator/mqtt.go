package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/absmach/fedkm/pkg/mqtt"
	"github.com/absmach/fedkm/pkg/storage"
	"github.com/absmach/fedkm/task"
)

const aliveHistoryLimit = 10

var errInvalidNodeID = errors.New("invalid node_id")

// ResultHandler receives the results nodes publish.
type ResultHandler interface {
	HandleResult(res task.Result) error
}

// Subscribe listens on the channel for node discovery, liveness and task
// results.
func Subscribe(ctx context.Context, channelID string, pubsub mqtt.PubSub, nodesDB storage.Storage, results ResultHandler, logger *slog.Logger) error {
	topic := mqtt.BaseTopic(channelID) + "/#"

	return pubsub.Subscribe(ctx, topic, Handle(ctx, channelID, nodesDB, results, logger))
}

func Handle(ctx context.Context, channelID string, nodesDB storage.Storage, results ResultHandler, logger *slog.Logger) mqtt.Handler {
	return func(msg mqtt.Message) error {
		switch msg.Topic {
		case mqtt.DiscoveryTopic(channelID):
			a, err := announcement(msg)
			if err != nil {
				return err
			}
			n, err := createNode(ctx, a, nodesDB)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "successfully registered node", slog.Int("node_id", n.ID), slog.String("name", n.Name))
		case mqtt.AliveTopic(channelID):
			a, err := announcement(msg)
			if err != nil {
				return err
			}

			return updateLiveness(ctx, a, nodesDB)
		case mqtt.ResultsTopic(channelID):
			var res task.Result
			if err := msg.Decode(&res); err != nil {
				return err
			}

			return results.HandleResult(res)
		}

		return nil
	}
}

func announcement(msg mqtt.Message) (mqtt.Announcement, error) {
	var a mqtt.Announcement
	if err := msg.Decode(&a); err != nil {
		return mqtt.Announcement{}, errors.Join(errInvalidNodeID, err)
	}
	if a.NodeID <= 0 {
		return mqtt.Announcement{}, errInvalidNodeID
	}

	return a, nil
}

func createNode(ctx context.Context, a mqtt.Announcement, nodesDB storage.Storage) (Node, error) {
	n := Node{
		ID:           a.NodeID,
		Name:         a.Name,
		Alive:        true,
		AliveHistory: []time.Time{time.Now()},
	}
	key := strconv.Itoa(a.NodeID)
	if err := nodesDB.Create(ctx, key, n); err != nil {
		// A restarted node announces itself again.
		if err := nodesDB.Update(ctx, key, n); err != nil {
			return Node{}, err
		}
	}

	return n, nil
}

func updateLiveness(ctx context.Context, a mqtt.Announcement, nodesDB storage.Storage) error {
	key := strconv.Itoa(a.NodeID)
	data, err := nodesDB.Get(ctx, key)
	if err != nil {
		return err
	}
	n, ok := data.(Node)
	if !ok {
		return fmt.Errorf("invalid data for node %d", a.NodeID)
	}

	if a.Status == mqtt.StatusOffline {
		n.Alive = false
		n.AliveHistory = nil

		return nodesDB.Update(ctx, key, n)
	}

	n.Alive = true
	n.AliveHistory = append(n.AliveHistory, time.Now())
	if len(n.AliveHistory) > aliveHistoryLimit {
		n.AliveHistory = n.AliveHistory[1:]
	}

	return nodesDB.Update(ctx, key, n)
}
