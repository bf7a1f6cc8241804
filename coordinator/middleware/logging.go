package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/fedkm/coordinator"
)

var _ coordinator.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    coordinator.Service
}

func Logging(logger *slog.Logger, svc coordinator.Service) coordinator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) ComputeCurve(ctx context.Context, req coordinator.CurveRequest) (run coordinator.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("request",
				slog.String("time_column", req.TimeColumn),
				slog.String("censor_column", req.CensorColumn),
				slog.Any("nodes", req.Nodes),
				slog.Int("bin_size", req.BinSize),
			),
			slog.Group("run",
				slog.String("id", run.ID),
				slog.String("state", string(run.State)),
				slog.Any("nodes", run.Nodes),
				slog.Int("axis_length", len(run.Axis)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Compute curve failed", args...)

			return
		}
		lm.logger.Info("Compute curve completed successfully", args...)
	}(time.Now())

	return lm.svc.ComputeCurve(ctx, req)
}

func (lm *loggingMiddleware) GetRun(ctx context.Context, runID string) (run coordinator.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", runID),
				slog.String("state", string(run.State)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get run failed", args...)

			return
		}
		lm.logger.Info("Get run completed successfully", args...)
	}(time.Now())

	return lm.svc.GetRun(ctx, runID)
}

func (lm *loggingMiddleware) ListRuns(ctx context.Context, offset, limit uint64) (resp coordinator.RunPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List runs failed", args...)

			return
		}
		lm.logger.Info("List runs completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRuns(ctx, offset, limit)
}

func (lm *loggingMiddleware) ListNodes(ctx context.Context, offset, limit uint64) (resp coordinator.NodePage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List nodes failed", args...)

			return
		}
		lm.logger.Info("List nodes completed successfully", args...)
	}(time.Now())

	return lm.svc.ListNodes(ctx, offset, limit)
}
