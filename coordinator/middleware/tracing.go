package middleware

import (
	"context"

	"github.com/absmach/fedkm/coordinator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ coordinator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    coordinator.Service
}

func Tracing(tracer trace.Tracer, svc coordinator.Service) coordinator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) ComputeCurve(ctx context.Context, req coordinator.CurveRequest) (run coordinator.Run, err error) {
	ctx, span := tm.tracer.Start(ctx, "compute-curve", trace.WithAttributes(
		attribute.String("time_column", req.TimeColumn),
		attribute.String("censor_column", req.CensorColumn),
		attribute.IntSlice("nodes", req.Nodes),
		attribute.Int("bin_size", req.BinSize),
	))
	defer func() {
		span.SetAttributes(
			attribute.String("run_id", run.ID),
			attribute.String("state", string(run.State)),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return tm.svc.ComputeCurve(ctx, req)
}

func (tm *tracing) GetRun(ctx context.Context, runID string) (coordinator.Run, error) {
	ctx, span := tm.tracer.Start(ctx, "get-run", trace.WithAttributes(
		attribute.String("id", runID),
	))
	defer span.End()

	return tm.svc.GetRun(ctx, runID)
}

func (tm *tracing) ListRuns(ctx context.Context, offset, limit uint64) (coordinator.RunPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-runs", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListRuns(ctx, offset, limit)
}

func (tm *tracing) ListNodes(ctx context.Context, offset, limit uint64) (coordinator.NodePage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-nodes", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListNodes(ctx, offset, limit)
}
