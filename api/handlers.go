package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nrtkbb/forensic/config"
	"github.com/nrtkbb/forensic/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Handler serves the state of a single run. It only reads the shared
// counters and never touches the walk itself.
type Handler struct {
	runID     string
	stats     *models.ProgressStats
	cfg       *config.RunConfig
	cancelled func() bool
}

func NewHandler(runID string, stats *models.ProgressStats, cfg *config.RunConfig, cancelled func() bool) *Handler {
	if cancelled == nil {
		cancelled = func() bool { return false }
	}
	return &Handler{runID: runID, stats: stats, cfg: cfg, cancelled: cancelled}
}

// GetProgress returns the directory and file counters of the run
func (h *Handler) GetProgress(c echo.Context) error {
	ctx := c.Request().Context()
	tracer := otel.Tracer("api/handlers")
	ctx, span := tracer.Start(ctx, "GetProgress")
	defer span.End()

	c.SetRequest(c.Request().WithContext(ctx))

	resp := ProgressResponse{
		RunID:       h.runID,
		Directories: h.stats.DirsEntered.Load(),
		Files:       h.stats.FilesProcessed.Load(),
		ElapsedMS:   time.Since(h.stats.StartTime).Milliseconds(),
		Cancelled:   h.cancelled(),
	}
	span.SetAttributes(
		attribute.String("run_id", resp.RunID),
		attribute.Int64("directories", resp.Directories),
		attribute.Int64("files", resp.Files),
	)

	return c.JSON(http.StatusOK, resp)
}

// GetConfig returns the resolved run configuration
func (h *Handler) GetConfig(c echo.Context) error {
	ctx := c.Request().Context()
	tracer := otel.Tracer("api/handlers")
	_, span := tracer.Start(ctx, "GetConfig")
	defer span.End()

	if h.cfg == nil {
		return echo.NewHTTPError(http.StatusNotFound, "No configuration available")
	}
	return c.JSON(http.StatusOK, h.cfg)
}
