package api

import (
	"net/http"

	"github.com/absmach/fedkm/coordinator"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*runResponse)(nil)
	_ supermq.Response = (*listRunsResponse)(nil)
	_ supermq.Response = (*listNodesResponse)(nil)
)

type runResponse struct {
	coordinator.Run
	created bool
}

func (r runResponse) Code() int {
	if r.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (r runResponse) Headers() map[string]string {
	if r.created {
		return map[string]string{
			"Location": "/runs/" + r.ID,
		}
	}

	return map[string]string{}
}

func (r runResponse) Empty() bool {
	return false
}

type listRunsResponse struct {
	coordinator.RunPage
}

func (l listRunsResponse) Code() int {
	return http.StatusOK
}

func (l listRunsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listRunsResponse) Empty() bool {
	return false
}

type listNodesResponse struct {
	coordinator.NodePage
}

func (l listNodesResponse) Code() int {
	return http.StatusOK
}

func (l listNodesResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listNodesResponse) Empty() bool {
	return false
}
