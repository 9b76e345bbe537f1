// Package report serves the ops surface: run history, health, and metrics.
package report

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/audit"
	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/platform/telemetry"
)

type Handler struct {
	runs    audit.RunRepository
	metrics *telemetry.Metrics
	version string
}

func NewHandler(runs audit.RunRepository, metrics *telemetry.Metrics, version string) *Handler {
	return &Handler{runs: runs, metrics: metrics, version: version}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	api.GET("/runs", h.ListRuns)
	api.GET("/runs/:id", h.GetRun)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

func (h *Handler) ListRuns(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
	}
	runs, err := h.runs.List(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if runs == nil {
		runs = []*audit.Run{}
	}
	return c.JSON(http.StatusOK, runs)
}

func (h *Handler) GetRun(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	run, err := h.runs.GetByID(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return c.JSON(http.StatusOK, run)
}
