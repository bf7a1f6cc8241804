package node_test

import (
	"context"
	"testing"
	"time"

	"github.com/absmach/fedkm/node"
	"github.com/absmach/fedkm/pkg/errors"
	"github.com/absmach/fedkm/pkg/mqtt"
	"github.com/absmach/fedkm/pkg/mqtt/mocks"
	"github.com/absmach/fedkm/pkg/noise"
	"github.com/absmach/fedkm/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const channelID = "channel"

func TestServiceAnswersTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := mocks.NewBroker()
	e := newExecutor(t, node.Config{MinRecords: 3, NoiseType: noise.None})

	svc, err := node.NewService(ctx, channelID, 2, "beta", time.Hour, broker, e, logger)
	require.NoError(t, err)
	require.NoError(t, svc.Subscribe(ctx))

	discovery := broker.Published(mqtt.DiscoveryTopic(channelID))
	require.Len(t, discovery, 1)
	assert.JSONEq(t, `{"node_id": 2, "name": "beta"}`, string(discovery[0].Payload))

	tasks := []task.Task{
		{ID: "ok", NodeID: 2, Operation: task.OpUniqueEventTimes, Args: task.Arguments{TimeColumn: "TIME_AT_RISK"}},
		{ID: "denied", NodeID: 2, Operation: task.OpUniqueEventTimes, Args: task.Arguments{TimeColumn: "MISSING"}},
		{ID: "misrouted", NodeID: 3, Operation: task.OpUniqueEventTimes, Args: task.Arguments{TimeColumn: "TIME_AT_RISK"}},
	}
	for _, tk := range tasks {
		require.NoError(t, broker.Publish(ctx, mqtt.TaskTopic(channelID, 2), tk))
	}

	var results map[string]task.Result
	assert.Eventually(t, func() bool {
		results = make(map[string]task.Result)
		for _, m := range broker.Published(mqtt.ResultsTopic(channelID)) {
			var res task.Result
			if err := m.Decode(&res); err != nil {
				return false
			}
			results[res.TaskID] = res
		}

		return len(results) == 2
	}, time.Second, 10*time.Millisecond)

	require.Contains(t, results, "ok")
	assert.NoError(t, results["ok"].Err())
	assert.JSONEq(t, `[2,4,7,9]`, string(results["ok"].Results))

	require.Contains(t, results, "denied")
	assert.Equal(t, errors.KindInput, results["denied"].Kind)
	assert.ErrorIs(t, results["denied"].Err(), errors.ErrInput)

	assert.NotContains(t, results, "misrouted")
}

func TestNewServiceDiscoveryFailure(t *testing.T) {
	pubsub := new(mocks.MockPubSub)
	pubsub.On("Publish", mock.Anything, mqtt.DiscoveryTopic(channelID), mock.Anything).Return(assert.AnError)

	_, err := node.NewService(context.Background(), channelID, 1, "alpha", time.Hour, pubsub, nil, logger)
	assert.ErrorIs(t, err, assert.AnError)
	pubsub.AssertExpectations(t)
}
