package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/providers"
	"github.com/stitts-dev/gridiron-sim/internal/ratings"
	"github.com/stitts-dev/gridiron-sim/internal/services"
	"github.com/stitts-dev/gridiron-sim/internal/simulator"
	"github.com/stitts-dev/gridiron-sim/internal/store"
	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

// Forecaster is the forecast service surface used by the API.
type Forecaster interface {
	Simulate(ctx context.Context, req services.Request) (*services.Forecast, error)
	Get(ctx context.Context, id uuid.UUID) (*services.Forecast, error)
	Latest(ctx context.Context, season int) (*services.Forecast, error)
	History(ctx context.Context, season, limit int) ([]*services.Forecast, error)
	Ratings(ctx context.Context, season int) (*services.RatingsReport, error)
}

type ForecastHandler struct {
	forecasts  Forecaster
	logger     *logrus.Logger
	runTimeout time.Duration
}

func NewForecastHandler(forecasts Forecaster, logger *logrus.Logger, runTimeout time.Duration) *ForecastHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if runTimeout <= 0 {
		runTimeout = 10 * time.Minute
	}
	return &ForecastHandler{forecasts: forecasts, logger: logger, runTimeout: runTimeout}
}

// CreateForecast runs a forecast. With ?async=true it returns 202 and the run ID
// immediately; progress and completion are pushed on /ws/forecasts/:id.
func (h *ForecastHandler) CreateForecast(c *gin.Context) {
	var req services.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if req.Trials < 0 {
		utils.SendValidationError(c, "Invalid request body", "trials must not be negative")
		return
	}

	if c.Query("async") == "true" {
		id := uuid.New()
		if req.ID != nil && *req.ID != uuid.Nil {
			id = *req.ID
		}
		req.ID = &id
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), h.runTimeout)
			defer cancel()
			if _, err := h.forecasts.Simulate(ctx, req); err != nil {
				h.logger.WithError(err).WithField("forecast_id", id).Warn("Async forecast failed")
			}
		}()
		utils.SendAccepted(c, gin.H{"id": id, "progress": "/ws/forecasts/" + id.String()})
		return
	}

	forecast, err := h.forecasts.Simulate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendCreated(c, forecast)
}

func (h *ForecastHandler) GetForecast(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendValidationError(c, "Invalid forecast ID", err.Error())
		return
	}
	forecast, err := h.forecasts.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, forecast)
}

// GetLatestForecast returns the newest stored forecast for :season.
func (h *ForecastHandler) GetLatestForecast(c *gin.Context) {
	season, ok := seasonParam(c)
	if !ok {
		return
	}
	forecast, err := h.forecasts.Latest(c.Request.Context(), season)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, forecast)
}

// ListForecasts returns stored run headers for :season, newest first.
func (h *ForecastHandler) ListForecasts(c *gin.Context) {
	season, ok := seasonParam(c)
	if !ok {
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			utils.SendValidationError(c, "Invalid limit", "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	history, err := h.forecasts.History(c.Request.Context(), season, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, history, &utils.Meta{Total: len(history), Limit: limit})
}

// GetRatings returns the composite rating for :season.
func (h *ForecastHandler) GetRatings(c *gin.Context) {
	season, ok := seasonParam(c)
	if !ok {
		return
	}
	report, err := h.forecasts.Ratings(c.Request.Context(), season)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, report, &utils.Meta{Total: len(report.Teams)})
}

func seasonParam(c *gin.Context) (int, bool) {
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil || season <= 0 {
		utils.SendValidationError(c, "Invalid season", c.Param("season"))
		return 0, false
	}
	return season, true
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.SendNotFound(c, "Forecast not found")
	case errors.Is(err, providers.ErrDataUnavailable):
		utils.SendDataUnavailable(c, "League data unavailable", err.Error())
	case errors.Is(err, simulator.ErrInvalidConfig),
		errors.Is(err, simulator.ErrInvalidInput),
		errors.Is(err, ratings.ErrInvalidConfig):
		utils.SendValidationError(c, "Invalid forecast request", err.Error())
	case errors.Is(err, services.ErrSimulationFailed):
		utils.SendError(c, http.StatusInternalServerError, utils.NewAppError(utils.ErrCodeSimulation, "Simulation failed", err.Error()))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		utils.SendError(c, http.StatusServiceUnavailable, utils.NewAppError(utils.ErrCodeSimulation, "Simulation did not finish", err.Error()))
	default:
		utils.SendInternalError(c, "Internal error")
	}
}
