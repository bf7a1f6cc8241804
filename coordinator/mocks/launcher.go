package mocks

import (
	"context"
	"encoding/json"

	"github.com/absmach/fedkm/coordinator"
	"github.com/absmach/fedkm/task"
	"github.com/stretchr/testify/mock"
)

var _ coordinator.Launcher = (*Launcher)(nil)

type Launcher struct {
	mock.Mock
}

func (m *Launcher) Dispatch(ctx context.Context, runID string, op task.Operation, args task.Arguments, nodeIDs []int) ([]json.RawMessage, error) {
	ret := m.Called(ctx, runID, op, args, nodeIDs)

	var results []json.RawMessage
	if r := ret.Get(0); r != nil {
		results = r.([]json.RawMessage)
	}

	return results, ret.Error(1)
}
