package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/absmach/fedkm/coordinator"
	"github.com/absmach/fedkm/pkg/api"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodySize = 1024 * 1024

func MakeHandler(svc coordinator.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Post("/curves", otelhttp.NewHandler(kithttp.NewServer(
		computeCurveEndpoint(svc),
		decodeCurveReq,
		api.EncodeResponse,
		opts...,
	), "compute-curve").ServeHTTP)

	mux.Route("/runs", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listRunsEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-runs").ServeHTTP)
		r.Get("/{runID}", otelhttp.NewHandler(kithttp.NewServer(
			getRunEndpoint(svc),
			decodeEntityReq("runID"),
			api.EncodeResponse,
			opts...,
		), "get-run").ServeHTTP)
	})

	mux.Get("/nodes", otelhttp.NewHandler(kithttp.NewServer(
		listNodesEndpoint(svc),
		decodeListEntityReq,
		api.EncodeResponse,
		opts...,
	), "list-nodes").ServeHTTP)

	mux.Get("/health", supermq.Health("coordinator", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// decodeCurveReq accepts JSON and CBOR bodies.
func decodeCurveReq(_ context.Context, r *http.Request) (any, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req curveReq
	switch mediaType {
	case api.ContentType:
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req.CurveRequest); err != nil {
			return nil, errors.Join(err, apiutil.ErrValidation)
		}
	case api.CBORContentType:
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			return nil, errors.Join(err, apiutil.ErrValidation)
		}
		if err := cbor.Unmarshal(data, &req.CurveRequest); err != nil {
			return nil, errors.Join(err, apiutil.ErrValidation)
		}
	default:
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	return req, nil
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeListEntityReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listEntityReq{
		offset: o,
		limit:  l,
	}, nil
}
