package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const CTJSON string = "application/json"

type PageMetadata struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type SDK interface {
	// ComputeCurve runs a federated Kaplan-Meier computation and returns the
	// completed run.
	//
	// example:
	//  req := sdk.CurveRequest{
	//    TimeColumn:   "TIME_AT_RISK",
	//    CensorColumn: "MORTALITY_FLAG",
	//    Nodes:        []int{1, 2, 3},
	//  }
	//  run, _ := sdk.ComputeCurve(req)
	//  fmt.Println(run.Curve)
	ComputeCurve(req CurveRequest) (Run, error)

	// GetRun gets a run by id.
	//
	// example:
	//  run, _ := sdk.GetRun("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(run)
	GetRun(id string) (Run, error)

	// ListRuns lists runs.
	//
	// example:
	//  runPage, _ := sdk.ListRuns(0, 10)
	//  fmt.Println(runPage)
	ListRuns(offset uint64, limit uint64) (RunPage, error)

	// ListNodes lists the nodes known to the coordinator.
	//
	// example:
	//  nodePage, _ := sdk.ListNodes(0, 10)
	//  fmt.Println(nodePage)
	ListNodes(offset uint64, limit uint64) (NodePage, error)
}

type fedSDK struct {
	coordinatorURL string
	client         *http.Client
}

type Config struct {
	CoordinatorURL  string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &fedSDK{
		coordinatorURL: strings.TrimSuffix(cfg.CoordinatorURL, "/"),
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

type errorRes struct {
	Error string `json:"error"`
}

func (sdk *fedSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		var e errorRes
		if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
			return []byte{}, fmt.Errorf("unexpected response code %d: %s", resp.StatusCode, e.Error)
		}

		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}

func pageQuery(offset, limit uint64) string {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	if len(queries) == 0 {
		return ""
	}

	return "?" + strings.Join(queries, "&")
}
