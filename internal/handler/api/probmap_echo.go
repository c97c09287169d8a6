package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	models "VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	"VariantMap/internal/services/fingerprint"
	"VariantMap/internal/usecase"
	xhttp "VariantMap/pkg/http"
	xlogger "VariantMap/pkg/logger"
	"VariantMap/pkg/queue"

	"github.com/labstack/echo/v4"
)

// Rebuilder runs one build-and-publish cycle.
type Rebuilder interface {
	Run(ctx context.Context) (*models.RunResult, error)
}

// MapEchoHandler serves the probability map over HTTP.
type MapEchoHandler struct {
	logger  *xlogger.Logger
	query   *usecase.MapQuery
	rebuild Rebuilder
	queue   queue.Enqueuer
}

// NewMapEchoHandler creates the handler. A nil rebuild disables POST /api/rebuild.
func NewMapEchoHandler(logger *xlogger.Logger, query *usecase.MapQuery, rebuild Rebuilder) *MapEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &MapEchoHandler{logger: logger, query: query, rebuild: rebuild}
}

// SetQueue enables POST /api/rebuild?async=true.
func (h *MapEchoHandler) SetQueue(q queue.Enqueuer) { h.queue = q }

func (h *MapEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/map", h.Map)
	g.GET("/map/:variant", h.Variant)
	g.GET("/days", h.Days)
	g.GET("/diagnostics", h.Diagnostics)
	g.GET("/variants", h.Variants)
	if h.rebuild != nil {
		g.POST("/rebuild", h.Rebuild)
	}
}

// WriteMethods reports POST only when rebuilds are enabled.
func (h *MapEchoHandler) WriteMethods() []string {
	if h.rebuild == nil {
		return nil
	}
	return []string{http.MethodPost}
}

func (h *MapEchoHandler) Health(c echo.Context) error {
	res := map[string]interface{}{"status": "ok"}
	d, err := h.query.Diagnostics(c.Request().Context())
	switch {
	case err == nil:
		res["run_id"] = d.RunID
	case errors.Is(err, domrepo.ErrNotFound):
		res["run_id"] = ""
	default:
		h.logger.Warn("health: latest run unavailable", xlogger.Error(err))
		res["status"] = "degraded"
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MapEchoHandler) Map(c echo.Context) error {
	req := &models.MapRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.query.Map(c.Request().Context(), usecase.MapParams{
		MinN:        req.MinN,
		Reliability: models.Reliability(req.Reliability),
		Limit:       req.Limit,
	})
	if err != nil {
		return h.fail(c, "map", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *MapEchoHandler) Variant(c echo.Context) error {
	raw, err := url.PathUnescape(c.Param("variant"))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("malformed variant"))
	}
	res, err := h.query.Variant(c.Request().Context(), models.Variant(raw))
	if err != nil {
		return h.fail(c, "variant", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MapEchoHandler) Days(c echo.Context) error {
	req := &models.DaysRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.query.Days(c.Request().Context(), usecase.DaysParams{
		From:    req.From,
		To:      req.To,
		Variant: models.Variant(req.Variant),
		Limit:   req.Limit,
	})
	if err != nil {
		return h.fail(c, "days", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MapEchoHandler) Diagnostics(c echo.Context) error {
	res, err := h.query.Diagnostics(c.Request().Context())
	if err != nil {
		return h.fail(c, "diagnostics", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MapEchoHandler) Variants(c echo.Context) error {
	res, err := h.query.Variants(c.Request().Context())
	if err != nil {
		return h.fail(c, "variants", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MapEchoHandler) Rebuild(c echo.Context) error {
	if c.QueryParam("async") == "true" {
		return h.enqueueRebuild(c)
	}
	run, err := h.rebuild.Run(c.Request().Context())
	if err != nil && run == nil {
		return h.fail(c, "rebuild", err)
	}
	res := map[string]interface{}{
		"run_id":      run.RunID,
		"diagnostics": run.Diagnostics,
	}
	if err != nil {
		h.logger.Error("rebuild published partially", xlogger.String("run_id", run.RunID), xlogger.Error(err))
		res["publish_error"] = err.Error()
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MapEchoHandler) enqueueRebuild(c echo.Context) error {
	if h.queue == nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("async rebuild needs the redis queue"))
	}
	id, err := h.queue.Enqueue(c.Request().Context(), usecase.RebuildJobType, usecase.RebuildRequest{
		Reason:      c.QueryParam("reason"),
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return h.fail(c, "enqueue rebuild", err)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{"job_id": id})
}

// fail maps usecase errors onto API errors.
func (h *MapEchoHandler) fail(c echo.Context, op string, err error) error {
	var bad *usecase.BadVariantError
	switch {
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no map for this query yet").WithError(err))
	case errors.As(err, &bad):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(bad.Error()).WithParam("space", fingerprint.Space()))
	case errors.Is(err, usecase.ErrInvalidRange):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	case errors.Is(err, usecase.ErrBuildInProgress):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	}
	h.logger.Error(op+" usecase error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalError("request failed").WithError(err))
}
