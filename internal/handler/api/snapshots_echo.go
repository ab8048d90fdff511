package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	models "FeatureSnap/internal/domain/models"
	domrepo "FeatureSnap/internal/domain/repository"
	"FeatureSnap/internal/service/ratelimit"
	"FeatureSnap/internal/usecase"
	xhttp "FeatureSnap/pkg/http"
	xlogger "FeatureSnap/pkg/logger"
	xutil "FeatureSnap/pkg/util"

	"github.com/labstack/echo/v4"
)

// BackfillEnqueuer pushes backfill messages onto the background queue.
type BackfillEnqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// SnapshotsEchoHandler exposes the snapshot engine over HTTP.
type SnapshotsEchoHandler struct {
	logger      *xlogger.Logger
	snapshots   *usecase.SnapshotsUseCase
	featureSets *usecase.FeatureSetsUseCase
	backfill    BackfillEnqueuer
	rl          *ratelimit.Limiter
}

func NewSnapshotsEchoHandler(
	logger *xlogger.Logger,
	snapshots *usecase.SnapshotsUseCase,
	featureSets *usecase.FeatureSetsUseCase,
	backfill BackfillEnqueuer,
) *SnapshotsEchoHandler {
	return &SnapshotsEchoHandler{
		logger:      logger,
		snapshots:   snapshots,
		featureSets: featureSets,
		backfill:    backfill,
		rl:          ratelimit.New(),
	}
}

func (h *SnapshotsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/snapshots/ensure", h.Ensure)
	g.GET("/snapshots", h.List)
	g.POST("/snapshots/backfill", h.Backfill)
	g.POST("/feature-sets/resolve", h.ResolveFeatureSet)
	g.GET("/feature-sets", h.ListFeatureSets)
}

// Ensure computes any missing snapshots in the requested window and returns
// the merged range. Large windows belong on the backfill queue instead.
func (h *SnapshotsEchoHandler) Ensure(c echo.Context) error {
	req := &models.EnsureSnapshotsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// Ensure can trigger a full recompute; keep one client from hammering it.
	if !h.rl.Allow(c.RealIP()+":ensure", 5, 2) {
		return xhttp.AppErrorResponse(c, rateLimitedError())
	}
	params, appErr := h.ensureParams(req.Pair, req.Interval, req.FeatureSetVersionID, req.StartAt, req.EndAt)
	if appErr != nil {
		return xhttp.BadRequestResponse(c, appErr)
	}

	rows, err := h.snapshots.Ensure(c.Request().Context(), params)
	if err != nil {
		if errors.Is(err, usecase.ErrFeatureSetNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
		}
		h.logger.Error("ensure snapshots usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// List returns persisted snapshots only; nothing is computed.
func (h *SnapshotsEchoHandler) List(c echo.Context) error {
	req := &models.ListSnapshotsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	end := xhttp.ParseTimeDefault(req.EndAt, time.Now().UTC())
	start := xhttp.ParseTimeDefault(req.StartAt, end.Add(-24*time.Hour))

	rows, err := h.snapshots.List(c.Request().Context(), usecase.EnsureParams{
		Pair:                req.Pair,
		Interval:            req.Interval,
		FeatureSetVersionID: req.FeatureSetVersionID,
		StartAt:             start,
		EndAt:               end,
	})
	if err != nil {
		h.logger.Error("list snapshots usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if req.Limit > 0 && len(rows) > req.Limit {
		rows = rows[len(rows)-req.Limit:]
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Backfill enqueues the window for background workers and returns immediately.
func (h *SnapshotsEchoHandler) Backfill(c echo.Context) error {
	req := &models.EnsureSnapshotsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.backfill == nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("backfill queue is not configured"))
	}
	if !h.rl.Allow(c.RealIP()+":backfill", 3, 1) {
		return xhttp.AppErrorResponse(c, rateLimitedError())
	}
	if _, appErr := h.ensureParams(req.Pair, req.Interval, req.FeatureSetVersionID, req.StartAt, req.EndAt); appErr != nil {
		return xhttp.BadRequestResponse(c, appErr)
	}

	msg := usecase.BackfillMessage{
		Pair:                req.Pair,
		Interval:            req.Interval,
		FeatureSetVersionID: req.FeatureSetVersionID,
		StartAt:             req.StartAt,
		EndAt:               req.EndAt,
	}
	if err := h.backfill.Enqueue(c.Request().Context(), usecase.BackfillMessageType, msg); err != nil {
		h.logger.Error("enqueue backfill error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "queued"})
}

// ResolveFeatureSet finds or registers the version for a submitted config.
func (h *SnapshotsEchoHandler) ResolveFeatureSet(c echo.Context) error {
	req := &models.ResolveFeatureSetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg := models.DefaultFeatureSetConfig()
	cfg.IncludeNews = req.IncludeNews
	cfg.IncludeOcr = req.IncludeOcr
	if len(req.Technical.Indicators) > 0 {
		cfg.Technical = req.Technical
	}

	version, err := h.featureSets.Resolve(c.Request().Context(), cfg)
	if err != nil {
		h.logger.Error("resolve feature set usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, version)
}

// ListFeatureSets returns all registered feature set versions.
func (h *SnapshotsEchoHandler) ListFeatureSets(c echo.Context) error {
	versions, err := h.featureSets.ListVersions(c.Request().Context())
	if err != nil {
		h.logger.Error("list feature sets usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, versions, int64(len(versions)))
}

func rateLimitedError() *xhttp.AppError {
	return xhttp.NewAppError("ERR_RATE_LIMITED", "", "rate limited", http.StatusTooManyRequests)
}

func (h *SnapshotsEchoHandler) ensureParams(pair, interval, versionID, startAt, endAt string) (usecase.EnsureParams, *xhttp.AppError) {
	start, ok := xhttp.ParseTime(startAt)
	if !ok {
		return usecase.EnsureParams{}, xhttp.BadRequestErrorf("invalid start_at %q", startAt)
	}
	end, ok := xhttp.ParseTime(endAt)
	if !ok {
		return usecase.EnsureParams{}, xhttp.BadRequestErrorf("invalid end_at %q", endAt)
	}
	if start.After(end) {
		return usecase.EnsureParams{}, xhttp.BadRequestError("start_at must be <= end_at")
	}
	step, err := domrepo.IntervalDuration(domrepo.NormalizeInterval(interval))
	if err != nil {
		return usecase.EnsureParams{}, xhttp.BadRequestError(err.Error())
	}
	start, end = xutil.AlignRange(start, end, step)
	return usecase.EnsureParams{
		Pair:                pair,
		Interval:            interval,
		FeatureSetVersionID: versionID,
		StartAt:             start,
		EndAt:               end,
	}, nil
}
