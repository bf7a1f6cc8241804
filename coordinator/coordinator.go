package coordinator

import (
	"context"
	"time"

	"github.com/absmach/fedkm/pkg/survival"
)

type Service interface {
	// ComputeCurve runs both collection phases across the nodes and
	// aggregates their event tables. The run is recorded whatever its
	// outcome, except when too few nodes take part.
	ComputeCurve(ctx context.Context, req CurveRequest) (Run, error)
	GetRun(ctx context.Context, runID string) (Run, error)
	ListRuns(ctx context.Context, offset, limit uint64) (RunPage, error)
	ListNodes(ctx context.Context, offset, limit uint64) (NodePage, error)
}

type CurveRequest struct {
	TimeColumn   string `json:"time_column_name"   cbor:"time_column_name"`
	CensorColumn string `json:"censor_column_name" cbor:"censor_column_name"`
	// Nodes restricts the run to these nodes. Empty selects every live node
	// of the directory.
	Nodes       []int  `json:"nodes,omitempty"        cbor:"nodes,omitempty"`
	BinSize     int    `json:"bin_size,omitempty"     cbor:"bin_size,omitempty"`
	FilterValue string `json:"filter_value,omitempty" cbor:"filter_value,omitempty"`
}

type RunState string

const (
	CollectingTimes  RunState = "COLLECTING_TIMES"
	CollectingTables RunState = "COLLECTING_TABLES"
	Aggregating      RunState = "AGGREGATING"
	Completed        RunState = "COMPLETED"
	Failed           RunState = "FAILED"
)

type Run struct {
	ID        string          `json:"id"`
	State     RunState        `json:"state"`
	Request   CurveRequest    `json:"request"`
	Nodes     []int           `json:"nodes"`
	Axis      []float64       `json:"axis,omitempty"`
	Curve     *survival.Curve `json:"curve,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type RunPage struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
	Runs   []Run  `json:"runs"`
}

const aliveTimeout = 10 * time.Second

type Node struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	Alive        bool        `json:"alive"`
	AliveHistory []time.Time `json:"alive_history"`
}

func (n *Node) SetAlive() {
	if len(n.AliveHistory) > 0 {
		lastAlive := n.AliveHistory[len(n.AliveHistory)-1]
		if time.Since(lastAlive) <= aliveTimeout {
			n.Alive = true

			return
		}
	}
	n.Alive = false
}

type NodePage struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
	Nodes  []Node `json:"nodes"`
}
