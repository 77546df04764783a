package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/api"
	"github.com/stitts-dev/gridiron-sim/internal/api/handlers"
	"github.com/stitts-dev/gridiron-sim/internal/providers"
	"github.com/stitts-dev/gridiron-sim/internal/services"
	"github.com/stitts-dev/gridiron-sim/internal/store"
	"github.com/stitts-dev/gridiron-sim/pkg/config"
	"github.com/stitts-dev/gridiron-sim/pkg/database"
	"github.com/stitts-dev/gridiron-sim/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := store.Migrate(db.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	checks := map[string]handlers.Checker{"database": db}

	// Redis is optional: without it forecasts are served from the database
	var cache services.Cache
	var feedCache providers.Cache
	redisClient, err := services.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	defer redisClient.Close()
	cacheService := services.NewCacheService(redisClient)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := cacheService.Ping(pingCtx); err != nil {
		log.WithError(err).Warn("Redis unavailable, caching disabled")
	} else {
		cache, feedCache = cacheService, cacheService
		checks["redis"] = handlers.PingCheck(cacheService.Ping)
	}
	cancelPing()

	provider, err := buildProvider(cfg, db, feedCache, log)
	if err != nil {
		log.Fatalf("Failed to configure data providers: %v", err)
	}

	hub := services.NewProgressHub(log)
	go hub.Run()
	defer hub.Stop()

	forecasts := services.NewForecastService(provider, store.NewForecastStore(db.DB), cache, hub, forecastDefaults(cfg), log)

	if cfg.EnableScheduledRefresh {
		refresher := services.NewRefreshScheduler(forecasts, services.Request{Season: cfg.DefaultSeason}, cfg.RefreshSchedule, cfg.RefreshTimeout, log)
		if err := refresher.Start(); err != nil {
			log.Errorf("Failed to start refresh scheduler: %v", err)
		} else {
			defer refresher.Stop()
		}
	}

	router := api.NewRouter(api.RouterConfig{
		Forecasts:   handlers.NewForecastHandler(forecasts, log, cfg.RefreshTimeout),
		Health:      handlers.NewHealthHandler(checks),
		WebSocket:   hub.HandleWebSocket,
		JWTSecret:   cfg.JWTSecret,
		CorsOrigins: cfg.CorsOrigins,
		Logger:      log,
	})

	for _, route := range router.Routes() {
		log.Debugf("%s %s", route.Method, route.Path)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RefreshTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func buildProvider(cfg *config.Config, db *database.DB, cache providers.Cache, log *logrus.Logger) (providers.Provider, error) {
	var chain providers.Chain
	for _, name := range cfg.DataProviders {
		switch name {
		case "db":
			chain = append(chain, providers.NewDBProvider(db.DB))
		case "feed":
			chain = append(chain, providers.NewFeedProvider(providers.FeedConfig{
				BaseURL:           cfg.FeedBaseURL,
				Timeout:           cfg.ExternalAPITimeout,
				RequestsPerMinute: cfg.FeedRateLimit,
				BreakerThreshold:  cfg.CircuitBreakerThreshold,
				BreakerTimeout:    cfg.CircuitBreakerTimeout,
				CacheTTL:          cfg.CacheTTL,
			}, cache, log))
		default:
			return nil, fmt.Errorf("unknown data provider %q", name)
		}
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}

func forecastDefaults(cfg *config.Config) services.ForecastDefaults {
	return services.ForecastDefaults{
		Season:        cfg.DefaultSeason,
		Trials:        cfg.DefaultTrials,
		MaxTrials:     cfg.MaxTrials,
		Workers:       cfg.SimulationWorkers,
		RankNoiseSD:   cfg.RankNoiseSD,
		HomeAdvantage: cfg.HomeAdvantage,
		OutcomeSD:     cfg.OutcomeSD,
		TieFraction:   cfg.TieFraction,
		Wildcards:     cfg.Wildcards,
		Systems:       cfg.RatingSystems,
		CacheTTL:      cfg.CacheTTL,
	}
}
