package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/stitts-dev/gridiron-sim/internal/league"
	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/providers"
	"github.com/stitts-dev/gridiron-sim/internal/ratings"
	"github.com/stitts-dev/gridiron-sim/internal/simulator"
	"github.com/stitts-dev/gridiron-sim/internal/store"
)

// ErrSimulationFailed is returned when no trial of a run succeeded.
var ErrSimulationFailed = errors.New("simulation failed")

// ForecastStore persists combined forecast runs.
type ForecastStore interface {
	SaveForecast(ctx context.Context, run *models.ForecastRun) error
	GetForecast(ctx context.Context, id uuid.UUID) (*models.ForecastRun, error)
	LatestForecast(ctx context.Context, season int) (*models.ForecastRun, error)
	ListForecasts(ctx context.Context, season, limit int) ([]models.ForecastRun, error)
}

// ProgressBroadcaster receives run progress keyed by forecast ID.
type ProgressBroadcaster interface {
	BroadcastProgress(id uuid.UUID, p simulator.Progress)
	BroadcastDone(id uuid.UUID, err error)
}

// ForecastDefaults fill in request fields the caller leaves unset.
type ForecastDefaults struct {
	Season        int
	Trials        int
	MaxTrials     int
	Workers       int
	RankNoiseSD   float64
	HomeAdvantage float64
	OutcomeSD     float64
	TieFraction   float64
	Wildcards     int
	Systems       []string
	CacheTTL      time.Duration
}

func DefaultForecastDefaults() ForecastDefaults {
	cfg := simulator.DefaultConfig()
	return ForecastDefaults{
		Trials:        cfg.Trials,
		MaxTrials:     100000,
		Workers:       runtime.NumCPU(),
		RankNoiseSD:   cfg.RankNoiseSD,
		HomeAdvantage: cfg.HomeAdvantage,
		OutcomeSD:     cfg.OutcomeSD,
		TieFraction:   cfg.TieFraction,
		Wildcards:     cfg.Wildcards,
		Systems:       []string{"srs"},
		CacheTTL:      30 * time.Minute,
	}
}

// RegressionConfig selects a mean-regression baseline. Baseline is one of
// "constant" (toward Value), "field_mean" (the default when empty) or "system"
// (toward the published ratings of System).
type RegressionConfig struct {
	Baseline        string   `json:"baseline"`
	Value           float64  `json:"value,omitempty"`
	System          string   `json:"system,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	FullWeightGames int      `json:"full_weight_games,omitempty"`
}

// SystemConfig names a rating system. "srs" is computed from played games,
// every other name is served by the provider.
type SystemConfig struct {
	Name       string            `json:"name"`
	Weight     float64           `json:"weight"`
	Regression *RegressionConfig `json:"regression,omitempty"`
}

// Request describes one forecast. Nil and zero fields take the service defaults.
type Request struct {
	ID              *uuid.UUID        `json:"id,omitempty"`
	Season          int               `json:"season"`
	Trials          int               `json:"trials"`
	Systems         []SystemConfig    `json:"systems,omitempty"`
	Regression      *RegressionConfig `json:"regression,omitempty"`
	RankNoiseSD     *float64          `json:"rank_noise_sd,omitempty"`
	HomeAdvantage   *float64          `json:"home_advantage,omitempty"`
	OutcomeSD       float64           `json:"outcome_sd,omitempty"`
	TieFraction     *float64          `json:"tie_fraction,omitempty"`
	Wildcards       *int              `json:"wildcards,omitempty"`
	SeriesHomeGames []bool            `json:"series_home_games,omitempty"`
	Parallel        *bool             `json:"parallel,omitempty"`
	Combine         *bool             `json:"combine,omitempty"`
	Seed            *int64            `json:"seed,omitempty"`
}

// Forecast is a finished run. Teams is set for combined runs, Results otherwise.
type Forecast struct {
	ID        uuid.UUID               `json:"id"`
	Season    int                     `json:"season"`
	Trials    int                     `json:"trials"`
	Failed    int                     `json:"failed"`
	ElapsedMS int64                   `json:"elapsed_ms"`
	Params    json.RawMessage         `json:"params,omitempty"`
	Ratings   map[string]float64      `json:"ratings"`
	Teams     []simulator.TeamSummary `json:"teams,omitempty"`
	Results   []*simulator.Trial      `json:"results,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// TeamRating is one row of a composite ratings report.
type TeamRating struct {
	Team        string             `json:"team"`
	Conference  string             `json:"conference"`
	Division    string             `json:"division"`
	Rating      float64            `json:"rating"`
	GamesPlayed float64            `json:"games_played"`
	Components  map[string]float64 `json:"components"`
}

// RatingsReport is the composite rating of a season, strongest first.
type RatingsReport struct {
	Season  int          `json:"season"`
	Systems []string     `json:"systems"`
	Teams   []TeamRating `json:"teams"`
}

// ForecastService wires providers, the ensemble runner, persistence, caching
// and progress broadcasting together. Store, cache and hub may be nil.
type ForecastService struct {
	provider providers.Provider
	store    ForecastStore
	cache    Cache
	hub      ProgressBroadcaster
	defaults ForecastDefaults
	logger   *logrus.Logger
}

func NewForecastService(provider providers.Provider, forecasts ForecastStore, cache Cache, hub ProgressBroadcaster, defaults ForecastDefaults, logger *logrus.Logger) *ForecastService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ForecastService{
		provider: provider,
		store:    forecasts,
		cache:    cache,
		hub:      hub,
		defaults: defaults,
		logger:   logger,
	}
}

// Defaults returns the configured request defaults.
func (s *ForecastService) Defaults() ForecastDefaults {
	return s.defaults
}

// Simulate runs a forecast end to end. Combined runs are persisted and cached.
func (s *ForecastService) Simulate(ctx context.Context, req Request) (forecast *Forecast, err error) {
	req = s.withDefaults(req)
	id := uuid.New()
	if req.ID != nil && *req.ID != uuid.Nil {
		id = *req.ID
	}
	req.ID = &id

	log := s.logger.WithFields(logrus.Fields{
		"forecast_id": id,
		"season":      req.Season,
		"trials":      req.Trials,
	})
	defer func() {
		if s.hub != nil {
			s.hub.BroadcastDone(id, err)
		}
		if err != nil {
			log.WithError(err).Error("Forecast failed")
		}
	}()

	cfg, err := s.runConfig(req)
	if err != nil {
		return nil, err
	}
	input, err := s.prepare(ctx, req.Season, req.Systems, req.Regression, cfg.HomeAdvantage)
	if err != nil {
		return nil, err
	}

	log.Info("Starting forecast")
	progress := make(chan simulator.Progress, 16)
	relayed := make(chan struct{})
	go s.relay(id, progress, relayed)

	result, err := simulator.NewRunner(cfg, s.logger).Run(ctx, input, progress)
	close(progress)
	<-relayed
	if err != nil {
		return nil, fmt.Errorf("simulate season %d: %w", req.Season, err)
	}
	if len(result.Failures) == cfg.Trials {
		return nil, fmt.Errorf("%w: all %d trials failed: %v", ErrSimulationFailed, cfg.Trials, result.Failures[0].Err)
	}

	params, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	forecast = &Forecast{
		ID:        id,
		Season:    req.Season,
		Trials:    cfg.Trials,
		Failed:    len(result.Failures),
		ElapsedMS: result.Elapsed.Milliseconds(),
		Params:    params,
		Ratings:   input.Composite.Ratings,
		CreatedAt: time.Now().UTC(),
	}
	if result.Ensemble == nil {
		forecast.Results = result.Trials
	} else {
		forecast.Teams = result.Ensemble.Summarize()
		if err := s.persist(ctx, forecast); err != nil {
			return nil, err
		}
	}

	log.WithFields(logrus.Fields{
		"failed":     forecast.Failed,
		"elapsed_ms": forecast.ElapsedMS,
	}).Info("Forecast completed")
	return forecast, nil
}

// Get loads a stored forecast, cache first.
func (s *ForecastService) Get(ctx context.Context, id uuid.UUID) (*Forecast, error) {
	return s.cached(ctx, ForecastCacheKey(id), func() (*models.ForecastRun, error) {
		return s.store.GetForecast(ctx, id)
	})
}

// Latest loads the newest stored forecast for season, cache first.
func (s *ForecastService) Latest(ctx context.Context, season int) (*Forecast, error) {
	return s.cached(ctx, LatestForecastKey(season), func() (*models.ForecastRun, error) {
		return s.store.LatestForecast(ctx, season)
	})
}

// History lists stored forecasts for season, newest first, without team rows.
func (s *ForecastService) History(ctx context.Context, season, limit int) ([]*Forecast, error) {
	if s.store == nil {
		return []*Forecast{}, nil
	}
	runs, err := s.store.ListForecasts(ctx, season, limit)
	if err != nil {
		return nil, err
	}
	history := make([]*Forecast, 0, len(runs))
	for i := range runs {
		f, err := forecastFromRun(&runs[i])
		if err != nil {
			return nil, err
		}
		history = append(history, f)
	}
	return history, nil
}

// Ratings blends the default rating systems for season from games played so far.
func (s *ForecastService) Ratings(ctx context.Context, season int) (*RatingsReport, error) {
	if season == 0 {
		season = s.defaults.Season
	}
	key := RatingsCacheKey(season)
	if s.cache != nil {
		var report RatingsReport
		if err := s.cache.Get(ctx, key, &report); err == nil {
			return &report, nil
		}
	}

	systems := s.defaultSystems()
	input, err := s.prepare(ctx, season, systems, nil, s.defaults.HomeAdvantage)
	if err != nil {
		return nil, err
	}

	report := &RatingsReport{Season: season}
	for _, sys := range systems {
		report.Systems = append(report.Systems, sys.Name)
	}
	for _, t := range input.Teams {
		row := TeamRating{
			Team:        t.Name,
			Conference:  t.Conference,
			Division:    t.Division,
			Rating:      input.Composite.Ratings[t.Name],
			GamesPlayed: input.Composite.GamesPlayed[t.Name],
			Components:  make(map[string]float64, len(input.Composite.Components)),
		}
		for name, z := range input.Composite.Components {
			row.Components[name] = z[t.Name]
		}
		report.Teams = append(report.Teams, row)
	}
	sort.Slice(report.Teams, func(i, j int) bool {
		if report.Teams[i].Rating != report.Teams[j].Rating {
			return report.Teams[i].Rating > report.Teams[j].Rating
		}
		return report.Teams[i].Team < report.Teams[j].Team
	})

	s.cacheSet(ctx, key, report)
	return report, nil
}

func (s *ForecastService) withDefaults(req Request) Request {
	d := s.defaults
	if req.Season == 0 {
		req.Season = d.Season
	}
	if req.Trials == 0 {
		req.Trials = d.Trials
	}
	if len(req.Systems) == 0 {
		req.Systems = s.defaultSystems()
	}
	if req.RankNoiseSD == nil {
		req.RankNoiseSD = &d.RankNoiseSD
	}
	if req.HomeAdvantage == nil {
		req.HomeAdvantage = &d.HomeAdvantage
	}
	if req.OutcomeSD == 0 {
		req.OutcomeSD = d.OutcomeSD
	}
	if req.TieFraction == nil {
		req.TieFraction = &d.TieFraction
	}
	if req.Wildcards == nil {
		req.Wildcards = &d.Wildcards
	}
	if req.Parallel == nil {
		parallel := true
		req.Parallel = &parallel
	}
	if req.Combine == nil {
		combine := true
		req.Combine = &combine
	}
	return req
}

func (s *ForecastService) defaultSystems() []SystemConfig {
	systems := make([]SystemConfig, 0, len(s.defaults.Systems))
	for _, name := range s.defaults.Systems {
		systems = append(systems, SystemConfig{Name: name, Weight: 1})
	}
	return systems
}

func (s *ForecastService) runConfig(req Request) (simulator.Config, error) {
	if s.defaults.MaxTrials > 0 && req.Trials > s.defaults.MaxTrials {
		return simulator.Config{}, fmt.Errorf("%w: %d trials exceeds the limit of %d", simulator.ErrInvalidConfig, req.Trials, s.defaults.MaxTrials)
	}
	cfg := simulator.Config{
		Trials:          req.Trials,
		Workers:         s.defaults.Workers,
		Parallel:        *req.Parallel,
		Combine:         *req.Combine,
		RankNoiseSD:     *req.RankNoiseSD,
		HomeAdvantage:   *req.HomeAdvantage,
		OutcomeSD:       req.OutcomeSD,
		TieFraction:     *req.TieFraction,
		Wildcards:       *req.Wildcards,
		SeriesHomeGames: req.SeriesHomeGames,
		Seed:            req.Seed,
	}
	return cfg, cfg.Validate()
}

// prepare loads the season and blends the composite rating from played games.
func (s *ForecastService) prepare(ctx context.Context, season int, systems []SystemConfig, regression *RegressionConfig, homeAdvantage float64) (simulator.Input, error) {
	teams, err := s.provider.GetTeams(ctx, season)
	if err != nil {
		return simulator.Input{}, fmt.Errorf("load teams for season %d: %w", season, err)
	}
	schedule, err := s.provider.GetSchedule(ctx, season)
	if err != nil {
		return simulator.Input{}, fmt.Errorf("load schedule for season %d: %w", season, err)
	}
	dir, err := league.NewDirectory(teams)
	if err != nil {
		return simulator.Input{}, fmt.Errorf("%w: %v", simulator.ErrInvalidInput, err)
	}
	played, unplayed := league.SplitSchedule(schedule)
	gamelog, err := league.BuildGamelog(played, dir, homeAdvantage)
	if err != nil {
		return simulator.Input{}, fmt.Errorf("%w: %v", simulator.ErrInvalidInput, err)
	}

	blender, err := s.blender(ctx, season, systems, regression, dir.Names(), gamelog)
	if err != nil {
		return simulator.Input{}, err
	}
	composite, err := blender.Blend(ctx, season, gamelog, dir.Names())
	if err != nil {
		return simulator.Input{}, fmt.Errorf("blend ratings for season %d: %w", season, err)
	}

	return simulator.Input{
		Teams:     teams,
		Played:    played,
		Unplayed:  unplayed,
		Composite: composite,
	}, nil
}

func (s *ForecastService) blender(ctx context.Context, season int, systems []SystemConfig, regression *RegressionConfig, teams []string, played league.Gamelog) (*ratings.Blender, error) {
	b := &ratings.Blender{}
	for _, sys := range systems {
		var source ratings.Source
		if sys.Name == "srs" {
			source = ratings.SRS{Teams: teams}
		} else {
			source = ratings.ProviderSource{System: sys.Name, Provider: s.provider}
		}
		reg, err := s.regression(ctx, season, sys.Regression, played)
		if err != nil {
			return nil, err
		}
		b.Systems = append(b.Systems, ratings.System{Source: source, Weight: sys.Weight, Regression: reg})
	}
	reg, err := s.regression(ctx, season, regression, played)
	if err != nil {
		return nil, err
	}
	b.Regression = reg
	return b, nil
}

func (s *ForecastService) regression(ctx context.Context, season int, cfg *RegressionConfig, played league.Gamelog) (*ratings.Regression, error) {
	if cfg == nil {
		return nil, nil
	}
	var baseline ratings.Baseline
	switch cfg.Baseline {
	case "constant":
		baseline = ratings.ConstantBaseline(cfg.Value)
	case "", "field_mean":
		baseline = ratings.FieldMeanBaseline{}
	case "system":
		vals, err := s.provider.GetRatingSystemRaw(ctx, cfg.System, season, played)
		if err != nil {
			return nil, fmt.Errorf("load baseline system %q: %w", cfg.System, err)
		}
		baseline = ratings.TableBaseline(vals.Ratings())
	default:
		return nil, fmt.Errorf("%w: unknown regression baseline %q", ratings.ErrInvalidConfig, cfg.Baseline)
	}

	reg := ratings.NewRegression(baseline)
	reg.Weight = cfg.Weight
	if cfg.FullWeightGames > 0 {
		reg.FullWeightGames = cfg.FullWeightGames
	}
	return reg, nil
}

func (s *ForecastService) relay(id uuid.UUID, progress <-chan simulator.Progress, done chan<- struct{}) {
	defer close(done)
	for p := range progress {
		if s.hub != nil {
			s.hub.BroadcastProgress(id, p)
		}
	}
}

func (s *ForecastService) persist(ctx context.Context, f *Forecast) error {
	if s.store != nil {
		run, err := runFromForecast(f)
		if err != nil {
			return err
		}
		if err := s.store.SaveForecast(ctx, run); err != nil {
			return err
		}
		f.CreatedAt = run.CreatedAt
	}
	s.cacheSet(ctx, ForecastCacheKey(f.ID), f)
	s.cacheSet(ctx, LatestForecastKey(f.Season), f)
	return nil
}

func (s *ForecastService) cached(ctx context.Context, key string, load func() (*models.ForecastRun, error)) (*Forecast, error) {
	if s.cache != nil {
		var f Forecast
		err := s.cache.Get(ctx, key, &f)
		if err == nil {
			return &f, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		}
	}
	if s.store == nil {
		return nil, store.ErrNotFound
	}

	run, err := load()
	if err != nil {
		return nil, err
	}
	f, err := forecastFromRun(run)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, f)
	return f, nil
}

func (s *ForecastService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.defaults.CacheTTL); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

func runFromForecast(f *Forecast) (*models.ForecastRun, error) {
	ratingsJSON, err := json.Marshal(f.Ratings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ratings: %w", err)
	}
	run := &models.ForecastRun{
		ID:        f.ID,
		Season:    f.Season,
		Trials:    f.Trials,
		Failed:    f.Failed,
		Params:    datatypes.JSON(f.Params),
		Ratings:   datatypes.JSON(ratingsJSON),
		ElapsedMS: f.ElapsedMS,
		CreatedAt: f.CreatedAt,
	}
	for _, t := range f.Teams {
		seeds, err := json.Marshal(t.SeedFrequency)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal seed frequency: %w", err)
		}
		run.Teams = append(run.Teams, models.TeamForecast{
			Team:                  t.Team,
			Conference:            t.Conference,
			Division:              t.Division,
			MeanWins:              t.MeanWins,
			MeanLosses:            t.MeanLosses,
			MeanRating:            t.MeanRating,
			SeedFrequency:         datatypes.JSON(seeds),
			PlayoffFrequency:      t.PlayoffFrequency,
			DivisionTitle:         t.DivisionTitle,
			ConferenceTitle:       t.ConferenceTitle,
			ChampionshipFrequency: t.ChampionshipFrequency,
		})
	}
	return run, nil
}

func forecastFromRun(run *models.ForecastRun) (*Forecast, error) {
	f := &Forecast{
		ID:        run.ID,
		Season:    run.Season,
		Trials:    run.Trials,
		Failed:    run.Failed,
		ElapsedMS: run.ElapsedMS,
		Params:    json.RawMessage(run.Params),
		CreatedAt: run.CreatedAt,
	}
	if err := json.Unmarshal(run.Ratings, &f.Ratings); err != nil {
		return nil, fmt.Errorf("failed to decode ratings: %w", err)
	}
	for _, t := range run.Teams {
		summary := simulator.TeamSummary{
			Team:                  t.Team,
			Conference:            t.Conference,
			Division:              t.Division,
			MeanWins:              t.MeanWins,
			MeanLosses:            t.MeanLosses,
			MeanRating:            t.MeanRating,
			PlayoffFrequency:      t.PlayoffFrequency,
			DivisionTitle:         t.DivisionTitle,
			ConferenceTitle:       t.ConferenceTitle,
			ChampionshipFrequency: t.ChampionshipFrequency,
		}
		if err := json.Unmarshal(t.SeedFrequency, &summary.SeedFrequency); err != nil {
			return nil, fmt.Errorf("failed to decode seed frequency for %s: %w", t.Team, err)
		}
		f.Teams = append(f.Teams, summary)
	}
	return f, nil
}
