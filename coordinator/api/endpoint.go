package api

import (
	"context"
	"errors"

	"github.com/absmach/fedkm/coordinator"
	pkgerrors "github.com/absmach/fedkm/pkg/errors"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func computeCurveEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(curveReq)
		if !ok {
			return runResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return runResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		run, err := svc.ComputeCurve(ctx, req.CurveRequest)
		if err != nil {
			return runResponse{}, err
		}

		return runResponse{
			Run:     run,
			created: true,
		}, nil
	}
}

func getRunEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return runResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return runResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		run, err := svc.GetRun(ctx, req.id)
		if err != nil {
			return runResponse{}, err
		}

		return runResponse{
			Run: run,
		}, nil
	}
}

func listRunsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listRunsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listRunsResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		runs, err := svc.ListRuns(ctx, req.offset, req.limit)
		if err != nil {
			return listRunsResponse{}, err
		}

		return listRunsResponse{
			RunPage: runs,
		}, nil
	}
}

func listNodesEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listNodesResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listNodesResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		nodes, err := svc.ListNodes(ctx, req.offset, req.limit)
		if err != nil {
			return listNodesResponse{}, err
		}

		return listNodesResponse{
			NodePage: nodes,
		}, nil
	}
}
