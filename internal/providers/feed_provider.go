package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/stitts-dev/gridiron-sim/internal/league"
	"github.com/stitts-dev/gridiron-sim/internal/ratings"
)

// Cache stores decoded feed responses.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// FeedConfig configures the JSON feed client.
type FeedConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	BreakerThreshold  int
	BreakerTimeout    time.Duration
	CacheTTL          time.Duration
}

// FeedProvider reads league data from a remote JSON feed laid out as
// {base}/seasons/{season}/teams, /games and /ratings/{system}.
type FeedProvider struct {
	client   *http.Client
	baseURL  string
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	cache    Cache
	cacheTTL time.Duration
	logger   *logrus.Logger
}

type feedTeam struct {
	Name       string `json:"name"`
	Conference string `json:"conference"`
	Division   string `json:"division"`
}

type feedGame struct {
	Home       string   `json:"home"`
	Away       string   `json:"away"`
	HomePoints *float64 `json:"home_points"`
	AwayPoints *float64 `json:"away_points"`
	Played     bool     `json:"played"`
}

type feedRating struct {
	Team        string   `json:"team"`
	Value       float64  `json:"value"`
	GamesPlayed *float64 `json:"games_played"`
}

// NewFeedProvider creates a feed client. A nil cache disables caching.
func NewFeedProvider(cfg FeedConfig, cache Cache, logger *logrus.Logger) *FeedProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	threshold := uint32(cfg.BreakerThreshold)
	settings := gobreaker.Settings{
		Name:        "ratings-feed",
		MaxRequests: threshold,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &FeedProvider{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		breaker:  gobreaker.NewCircuitBreaker(settings),
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		logger:   logger,
	}
}

func (p *FeedProvider) Name() string { return "feed" }

// BreakerState reports the circuit breaker state.
func (p *FeedProvider) BreakerState() gobreaker.State {
	return p.breaker.State()
}

func (p *FeedProvider) GetTeams(ctx context.Context, season int) ([]league.Team, error) {
	var rows []feedTeam
	if err := p.fetch(ctx, fmt.Sprintf("seasons/%d/teams", season), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: feed returned no teams for season %d", ErrDataUnavailable, season)
	}
	teams := make([]league.Team, 0, len(rows))
	for _, r := range rows {
		if r.Name == "" || r.Conference == "" || r.Division == "" {
			return nil, fmt.Errorf("%w: incomplete team record %+v", ErrDataUnavailable, r)
		}
		teams = append(teams, league.Team{Name: r.Name, Conference: r.Conference, Division: r.Division})
	}
	return teams, nil
}

func (p *FeedProvider) GetSchedule(ctx context.Context, season int) ([]league.GameRecord, error) {
	var rows []feedGame
	if err := p.fetch(ctx, fmt.Sprintf("seasons/%d/games", season), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: feed returned no games for season %d", ErrDataUnavailable, season)
	}
	games := make([]league.GameRecord, 0, len(rows))
	for _, r := range rows {
		g := league.GameRecord{Home: r.Home, Away: r.Away}
		if r.Played {
			if r.HomePoints == nil || r.AwayPoints == nil {
				return nil, fmt.Errorf("%w: played game %s at %s has no score", ErrDataUnavailable, r.Away, r.Home)
			}
			g.HomePoints, g.AwayPoints, g.Played = *r.HomePoints, *r.AwayPoints, true
		}
		games = append(games, g)
	}
	return games, nil
}

func (p *FeedProvider) GetRatingSystemRaw(ctx context.Context, system string, season int, _ league.Gamelog) (ratings.Values, error) {
	var rows []feedRating
	if err := p.fetch(ctx, fmt.Sprintf("seasons/%d/ratings/%s", season, url.PathEscape(system)), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: feed returned no %s ratings", ErrDataUnavailable, system)
	}
	vals := make(ratings.Values, len(rows))
	for _, r := range rows {
		v := ratings.Value{Rating: r.Value}
		if r.GamesPlayed != nil {
			v.GamesPlayed, v.HasGamesPlayed = *r.GamesPlayed, true
		}
		vals[r.Team] = v
	}
	return vals, nil
}

func (p *FeedProvider) cacheKey(path string) string {
	return "feed:" + path
}

// fetch decodes path into dest, consulting the cache first.
func (p *FeedProvider) fetch(ctx context.Context, path string, dest interface{}) error {
	key := p.cacheKey(path)
	if p.cache != nil {
		if err := p.cache.Get(ctx, key, dest); err == nil {
			return nil
		}
	}

	body, err := p.breaker.Execute(func() (interface{}, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return p.get(ctx, path)
	})
	if err != nil {
		p.logger.WithError(err).WithField("path", path).Warn("Feed request failed")
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	if err := json.Unmarshal(body.([]byte), dest); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %v", ErrDataUnavailable, path, err)
	}

	if p.cache != nil && p.cacheTTL > 0 {
		if err := p.cache.Set(ctx, key, dest, p.cacheTTL); err != nil {
			p.logger.WithError(err).WithField("key", key).Warn("Failed to cache feed response")
		}
	}
	return nil
}

func (p *FeedProvider) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d for %s", resp.StatusCode, path)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
