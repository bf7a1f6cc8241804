package sdk

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	curvesEndpoint = "/curves"
	runsEndpoint   = "/runs"
)

type CurveRequest struct {
	TimeColumn   string `json:"time_column_name"`
	CensorColumn string `json:"censor_column_name"`
	Nodes        []int  `json:"nodes,omitempty"`
	BinSize      int    `json:"bin_size,omitempty"`
	FilterValue  string `json:"filter_value,omitempty"`
}

type CurveRow struct {
	Time     float64 `json:"time"`
	Removed  int64   `json:"removed"`
	Observed int64   `json:"observed"`
	Censored int64   `json:"censored"`
	AtRisk   int64   `json:"at_risk"`
	Hazard   float64 `json:"hazard"`
	Survival float64 `json:"survival"`
	CDF      float64 `json:"cdf"`
	PMF      float64 `json:"pmf"`
}

type Curve struct {
	TimeColumn string     `json:"time_column"`
	Rows       []CurveRow `json:"rows"`
}

type Run struct {
	ID        string       `json:"id"`
	State     string       `json:"state"`
	Request   CurveRequest `json:"request"`
	Nodes     []int        `json:"nodes"`
	Axis      []float64    `json:"axis,omitempty"`
	Curve     *Curve       `json:"curve,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type RunPage struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
	Runs   []Run  `json:"runs"`
}

func (sdk *fedSDK) ComputeCurve(req CurveRequest) (Run, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Run{}, err
	}

	url := sdk.coordinatorURL + curvesEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusCreated)
	if err != nil {
		return Run{}, err
	}

	var r Run
	if err := json.Unmarshal(body, &r); err != nil {
		return Run{}, err
	}

	return r, nil
}

func (sdk *fedSDK) GetRun(id string) (Run, error) {
	url := sdk.coordinatorURL + runsEndpoint + "/" + id

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Run{}, err
	}

	var r Run
	if err := json.Unmarshal(body, &r); err != nil {
		return Run{}, err
	}

	return r, nil
}

func (sdk *fedSDK) ListRuns(offset, limit uint64) (RunPage, error) {
	url := sdk.coordinatorURL + runsEndpoint + pageQuery(offset, limit)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return RunPage{}, err
	}

	var rp RunPage
	if err := json.Unmarshal(body, &rp); err != nil {
		return RunPage{}, err
	}

	return rp, nil
}
