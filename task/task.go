// Package task defines the subtasks the coordinator sends to nodes and the
// results nodes send back.
package task

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/absmach/fedkm/pkg/errors"
)

type State uint8

const (
	Pending State = iota
	Scheduled
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Scheduled:
		return "Scheduled"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Operation is the closed set of computations a node performs.
type Operation string

const (
	OpUniqueEventTimes Operation = "get_unique_event_times"
	OpEventTable       Operation = "get_km_event_table"
)

func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.TrimSpace(s)); op {
	case OpUniqueEventTimes, OpEventTable:
		return op, nil
	default:
		return "", fmt.Errorf("%w: unknown operation %q", errors.ErrInvalidData, s)
	}
}

type Arguments struct {
	TimeColumn   string    `json:"time_column_name"`
	CensorColumn string    `json:"censor_column_name"`
	Axis         []float64 `json:"unique_event_times,omitempty"`
	BinSize      int       `json:"bin_size,omitempty"`
	FilterValue  string    `json:"filter_value,omitempty"`
}

type Task struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	NodeID    int       `json:"node_id"`
	Operation Operation `json:"operation"`
	Args      Arguments `json:"args"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Result is a node's answer to one task. Exactly one of Results and Error is
// set.
type Result struct {
	TaskID  string          `json:"task_id"`
	NodeID  int             `json:"node_id"`
	Results json.RawMessage `json:"results,omitempty"`
	Error   string          `json:"error,omitempty"`
	Kind    errors.Kind     `json:"kind,omitempty"`
}

func NewResult(t Task, results any, err error) (Result, error) {
	res := Result{
		TaskID: t.ID,
		NodeID: t.NodeID,
	}
	if err != nil {
		res.Error = err.Error()
		res.Kind = errors.KindOf(err)

		return res, nil
	}

	data, err := json.Marshal(results)
	if err != nil {
		return Result{}, err
	}
	res.Results = data

	return res, nil
}

// Err rebuilds the node's failure, or returns nil for a successful result.
func (r Result) Err() error {
	if r.Error == "" {
		return nil
	}

	return errors.NewNodeError(r.NodeID, r.Kind, r.Error)
}
