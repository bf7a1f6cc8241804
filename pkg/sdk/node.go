package sdk

import (
	"encoding/json"
	"net/http"
	"time"
)

const nodesEndpoint = "/nodes"

type Node struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	Alive        bool        `json:"alive"`
	AliveHistory []time.Time `json:"alive_history"`
}

type NodePage struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
	Nodes  []Node `json:"nodes"`
}

func (sdk *fedSDK) ListNodes(offset, limit uint64) (NodePage, error) {
	url := sdk.coordinatorURL + nodesEndpoint + pageQuery(offset, limit)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return NodePage{}, err
	}

	var np NodePage
	if err := json.Unmarshal(body, &np); err != nil {
		return NodePage{}, err
	}

	return np, nil
}
