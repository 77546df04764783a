package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/api/handlers"
	"github.com/stitts-dev/gridiron-sim/internal/api/middleware"
)

// RouterConfig carries what the HTTP surface needs.
type RouterConfig struct {
	Forecasts   *handlers.ForecastHandler
	Health      *handlers.HealthHandler
	WebSocket   gin.HandlerFunc
	JWTSecret   string
	CorsOrigins []string
	Logger      *logrus.Logger
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Logger))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	router.GET("/health", cfg.Health.GetHealth)
	router.GET("/ready", cfg.Health.GetReady)

	SetupRoutes(router.Group("/api/v1"), cfg)

	// WebSocket endpoint at root level (not under /api/v1)
	if cfg.WebSocket != nil {
		router.GET("/ws/forecasts/:id", cfg.WebSocket)
	}
	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, cfg RouterConfig) {
	group.GET("/forecasts/:id", cfg.Forecasts.GetForecast)
	group.GET("/seasons/:season/forecast", cfg.Forecasts.GetLatestForecast)
	group.GET("/seasons/:season/forecasts", cfg.Forecasts.ListForecasts)
	group.GET("/seasons/:season/ratings", cfg.Forecasts.GetRatings)

	protected := group.Group("")
	protected.Use(middleware.AuthRequired(cfg.JWTSecret))
	{
		protected.POST("/forecasts", cfg.Forecasts.CreateForecast)
	}
}
