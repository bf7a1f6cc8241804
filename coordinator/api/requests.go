package api

import (
	"errors"
	"fmt"

	"github.com/absmach/fedkm/coordinator"
	"github.com/absmach/fedkm/pkg/api"
	apiutil "github.com/absmach/supermq/api/http/util"
)

var (
	errMissingTimeColumn   = errors.New("missing time column name")
	errMissingCensorColumn = errors.New("missing censor column name")
	errInvalidBinSize      = errors.New("bin size must not be negative")
	errInvalidNodeID       = errors.New("node IDs must be positive")
	errLimitSize           = errors.New("invalid limit size")
)

type curveReq struct {
	coordinator.CurveRequest
}

func (req *curveReq) validate() error {
	if req.TimeColumn == "" {
		return errMissingTimeColumn
	}
	if req.CensorColumn == "" {
		return errMissingCensorColumn
	}
	if req.BinSize < 0 {
		return errInvalidBinSize
	}
	for _, id := range req.Nodes {
		if id <= 0 {
			return fmt.Errorf("%w: %d", errInvalidNodeID, id)
		}
	}

	return nil
}

type entityReq struct {
	id string
}

func (e *entityReq) validate() error {
	if e.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type listEntityReq struct {
	offset, limit uint64
}

func (e *listEntityReq) validate() error {
	if e.limit > api.MaxLimitSize {
		return errLimitSize
	}

	return nil
}
