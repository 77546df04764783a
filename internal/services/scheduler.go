package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Forecaster runs a forecast request.
type Forecaster interface {
	Simulate(ctx context.Context, req Request) (*Forecast, error)
}

// RefreshScheduler re-runs the default-season forecast on a cron schedule.
type RefreshScheduler struct {
	forecaster Forecaster
	request    Request
	schedule   string
	timeout    time.Duration
	logger     *logrus.Logger
	cron       *cron.Cron
	mu         sync.Mutex
	isRunning  bool
	lastRun    time.Time
	lastErr    error
}

// NewRefreshScheduler runs req on schedule, which accepts standard cron
// expressions and descriptors such as "@every 6h".
func NewRefreshScheduler(forecaster Forecaster, req Request, schedule string, timeout time.Duration, logger *logrus.Logger) *RefreshScheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &RefreshScheduler{
		forecaster: forecaster,
		request:    req,
		schedule:   schedule,
		timeout:    timeout,
		logger:     logger,
		cron:       cron.New(),
	}
}

// Start begins the scheduled refresh
func (s *RefreshScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("refresh scheduler is already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, s.refresh); err != nil {
		return fmt.Errorf("failed to schedule forecast refresh: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	s.logger.WithField("schedule", s.schedule).Info("Forecast refresh scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	// refresh takes mu, so wait unlocked
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("Forecast refresh scheduler stopped")
}

// LastRun reports when the last refresh finished and its error.
func (s *RefreshScheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

// RunNow performs one refresh synchronously.
func (s *RefreshScheduler) RunNow() {
	s.refresh()
}

func (s *RefreshScheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	log := s.logger.WithField("season", s.request.Season)
	log.Info("Starting scheduled forecast refresh")

	req := s.request
	req.ID = nil
	forecast, err := s.forecaster.Simulate(ctx, req)

	s.mu.Lock()
	s.lastRun, s.lastErr = time.Now(), err
	s.mu.Unlock()

	if err != nil {
		log.WithError(err).Error("Scheduled forecast refresh failed")
		return
	}
	log.WithField("forecast_id", forecast.ID).Info("Completed scheduled forecast refresh")
}
