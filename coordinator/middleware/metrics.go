package middleware

import (
	"context"
	"time"

	"github.com/absmach/fedkm/coordinator"
	"github.com/go-kit/kit/metrics"
)

var _ coordinator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     coordinator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc coordinator.Service) coordinator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) ComputeCurve(ctx context.Context, req coordinator.CurveRequest) (coordinator.Run, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "compute-curve").Add(1)
		mm.latency.With("method", "compute-curve").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ComputeCurve(ctx, req)
}

func (mm *metricsMiddleware) GetRun(ctx context.Context, runID string) (coordinator.Run, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-run").Add(1)
		mm.latency.With("method", "get-run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRun(ctx, runID)
}

func (mm *metricsMiddleware) ListRuns(ctx context.Context, offset, limit uint64) (coordinator.RunPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-runs").Add(1)
		mm.latency.With("method", "list-runs").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListRuns(ctx, offset, limit)
}

func (mm *metricsMiddleware) ListNodes(ctx context.Context, offset, limit uint64) (coordinator.NodePage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-nodes").Add(1)
		mm.latency.With("method", "list-nodes").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListNodes(ctx, offset, limit)
}
