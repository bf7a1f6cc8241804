package cli_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/absmach/fedkm/cli"
	"github.com/absmach/fedkm/pkg/sdk"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func newRoot() *cobra.Command {
	root := &cobra.Command{Use: "fedkm-cli"}
	root.AddCommand(cli.NewCurvesCmd(), cli.NewRunsCmd(), cli.NewNodesCmd())

	return root
}

func newStub(t *testing.T) {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/curves":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"run-1","state":"COMPLETED","nodes":[1,2,3],"curve":{"time_column":"T","rows":[{"time":0,"at_risk":3,"survival":1},{"time":1,"removed":3,"observed":3,"at_risk":3,"hazard":1,"survival":0,"cdf":1,"pmf":1}]}}`))
		case r.URL.Path == "/runs/run-1":
			_, _ = w.Write([]byte(`{"id":"run-1","state":"COMPLETED"}`))
		case r.URL.Path == "/runs":
			_, _ = w.Write([]byte(`{"offset":0,"limit":10,"total":1,"runs":[{"id":"run-1","state":"COMPLETED"}]}`))
		case r.URL.Path == "/nodes":
			_, _ = w.Write([]byte(`{"offset":0,"limit":10,"total":1,"nodes":[{"id":1,"name":"station","alive":true}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		}
	}))
	t.Cleanup(ts.Close)

	cli.SetSDK(sdk.NewSDK(sdk.Config{CoordinatorURL: ts.URL}))
}

func TestCommands(t *testing.T) {
	newStub(t)

	cases := []struct {
		desc     string
		args     []string
		contains string
		stderr   string
	}{
		{desc: "compute curve", args: []string{"curves", "compute", "T", "E", "--nodes=1,2,3"}, contains: "run-1"},
		{desc: "compute curve as table", args: []string{"curves", "compute", "T", "E", "--table"}, contains: "survival"},
		{desc: "compute curve usage", args: []string{"curves", "compute", "T"}, contains: "usage"},
		{desc: "view run", args: []string{"runs", "view", "run-1"}, contains: "COMPLETED"},
		{desc: "view unknown run", args: []string{"runs", "view", "other"}, stderr: "not found"},
		{desc: "list runs", args: []string{"runs", "list", "0", "10"}, contains: "run-1"},
		{desc: "list runs usage", args: []string{"runs", "list", "x"}, contains: "usage"},
		{desc: "list nodes", args: []string{"nodes", "list"}, contains: "station"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			root := newRoot()
			var stdout, stderr bytes.Buffer
			root.SetOut(&stdout)
			root.SetErr(&stderr)
			root.SetArgs(tc.args)

			assert.NoError(t, root.Execute())
			if tc.contains != "" {
				assert.Contains(t, stdout.String(), tc.contains)
			}
			if tc.stderr != "" {
				assert.Contains(t, stderr.String(), tc.stderr)
			}
		})
	}
}
