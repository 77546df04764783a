package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stitts-dev/gridiron-sim/internal/league"
	"github.com/stitts-dev/gridiron-sim/internal/league/leaguetest"
	"github.com/stitts-dev/gridiron-sim/internal/providers"
	"github.com/stitts-dev/gridiron-sim/internal/ratings"
	"github.com/stitts-dev/gridiron-sim/internal/simulator"
	"github.com/stitts-dev/gridiron-sim/internal/store"
)

const testSeason = 2024

type fixtureProvider struct{}

func (fixtureProvider) Name() string { return "fixture" }

func (fixtureProvider) GetTeams(_ context.Context, season int) ([]league.Team, error) {
	if season != testSeason {
		return nil, fmt.Errorf("%w: season %d", providers.ErrDataUnavailable, season)
	}
	return leaguetest.Teams(), nil
}

func (fixtureProvider) GetSchedule(_ context.Context, _ int) ([]league.GameRecord, error) {
	games := leaguetest.Schedule()
	rng := rand.New(rand.NewSource(1))
	rng.Shuffle(len(games), func(i, j int) { games[i], games[j] = games[j], games[i] })
	return leaguetest.PlayFirst(games, 100, rng), nil
}

func (fixtureProvider) GetRatingSystemRaw(_ context.Context, system string, _ int, _ league.Gamelog) (ratings.Values, error) {
	if system != "power" {
		return nil, fmt.Errorf("%w: no system %q", providers.ErrDataUnavailable, system)
	}
	vals := make(ratings.Values)
	for team, r := range leaguetest.Ratings() {
		vals[team] = ratings.Value{Rating: r}
	}
	return vals, nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type recordingHub struct {
	mu       sync.Mutex
	progress []simulator.Progress
	done     []error
}

func (h *recordingHub) BroadcastProgress(_ uuid.UUID, p simulator.Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.progress = append(h.progress, p)
}

func (h *recordingHub) BroadcastDone(_ uuid.UUID, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.done = append(h.done, err)
}

func testStore(t *testing.T) *store.ForecastStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "forecast.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	return store.NewForecastStore(db)
}

func newTestService(t *testing.T) (*ForecastService, *memoryCache, *recordingHub) {
	t.Helper()
	defaults := DefaultForecastDefaults()
	defaults.Season = testSeason
	defaults.Trials = 20
	defaults.MaxTrials = 500
	defaults.Workers = 4
	cache := newMemoryCache()
	hub := &recordingHub{}
	return NewForecastService(fixtureProvider{}, testStore(t), cache, hub, defaults, nil), cache, hub
}

func seed(v int64) *int64 { return &v }

func TestForecastService_SimulateCombined(t *testing.T) {
	svc, cache, hub := newTestService(t)
	ctx := context.Background()

	f, err := svc.Simulate(ctx, Request{Seed: seed(7)})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, f.ID)
	assert.Equal(t, testSeason, f.Season)
	assert.Equal(t, 20, f.Trials)
	assert.Zero(t, f.Failed)
	assert.Len(t, f.Ratings, 32)
	require.Len(t, f.Teams, 32)
	assert.Empty(t, f.Results)

	champ := 0.0
	for _, team := range f.Teams {
		champ += team.ChampionshipFrequency
	}
	assert.InDelta(t, 1.0, champ, 1e-9)

	assert.True(t, cache.has(ForecastCacheKey(f.ID)))
	assert.True(t, cache.has(LatestForecastKey(testSeason)))

	hub.mu.Lock()
	defer hub.mu.Unlock()
	require.Len(t, hub.done, 1)
	assert.NoError(t, hub.done[0])
	require.NotEmpty(t, hub.progress)
	assert.Equal(t, 20, hub.progress[len(hub.progress)-1].Completed)
}

func TestForecastService_Persisted(t *testing.T) {
	svc, cache, _ := newTestService(t)
	ctx := context.Background()

	f, err := svc.Simulate(ctx, Request{Seed: seed(3)})
	require.NoError(t, err)

	require.NoError(t, cache.Delete(ctx, ForecastCacheKey(f.ID), LatestForecastKey(testSeason)))

	got, err := svc.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	require.Len(t, got.Teams, 32)
	assert.Equal(t, f.Teams[0].Team, got.Teams[0].Team)
	assert.InDelta(t, f.Teams[0].ChampionshipFrequency, got.Teams[0].ChampionshipFrequency, 1e-9)
	assert.Equal(t, f.Teams[0].SeedFrequency, got.Teams[0].SeedFrequency)
	assert.InDeltaMapValues(t, f.Ratings, got.Ratings, 1e-9)
	assert.True(t, cache.has(ForecastCacheKey(f.ID)))

	latest, err := svc.Latest(ctx, testSeason)
	require.NoError(t, err)
	assert.Equal(t, f.ID, latest.ID)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestForecastService_History(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Simulate(ctx, Request{Trials: 2, Seed: seed(1)})
	require.NoError(t, err)
	second, err := svc.Simulate(ctx, Request{Trials: 3, Seed: seed(2)})
	require.NoError(t, err)

	history, err := svc.History(ctx, testSeason, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	ids := []uuid.UUID{history[0].ID, history[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, ids)
	for _, f := range history {
		assert.Empty(t, f.Teams)
		assert.Len(t, f.Ratings, 32)
	}

	empty, err := svc.History(ctx, 1999, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestForecastService_Deterministic(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Simulate(ctx, Request{Seed: seed(11)})
	require.NoError(t, err)
	b, err := svc.Simulate(ctx, Request{Seed: seed(11)})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Teams, b.Teams)
}

func TestForecastService_Uncombined(t *testing.T) {
	svc, cache, _ := newTestService(t)
	ctx := context.Background()
	combine := false

	f, err := svc.Simulate(ctx, Request{Trials: 5, Combine: &combine, Seed: seed(1)})
	require.NoError(t, err)
	assert.Len(t, f.Results, 5)
	assert.Empty(t, f.Teams)
	for _, trial := range f.Results {
		assert.NotEmpty(t, trial.Champion)
	}

	assert.False(t, cache.has(LatestForecastKey(testSeason)))
	_, err = svc.Latest(ctx, testSeason)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestForecastService_RequestedID(t *testing.T) {
	svc, _, _ := newTestService(t)
	id := uuid.New()

	f, err := svc.Simulate(context.Background(), Request{ID: &id, Trials: 2, Seed: seed(1)})
	require.NoError(t, err)
	assert.Equal(t, id, f.ID)
}

func TestForecastService_Systems(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	half := 0.5

	f, err := svc.Simulate(ctx, Request{
		Trials: 4,
		Seed:   seed(2),
		Systems: []SystemConfig{
			{Name: "srs", Weight: 1, Regression: &RegressionConfig{Baseline: "system", System: "power"}},
			{Name: "power", Weight: 2},
		},
		Regression: &RegressionConfig{Baseline: "field_mean", Weight: &half},
	})
	require.NoError(t, err)
	assert.Len(t, f.Teams, 32)
}

func TestForecastService_RegressionBaselines(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	reg, err := svc.regression(ctx, testSeason, &RegressionConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, ratings.FieldMeanBaseline{}, reg.Baseline)
	assert.Equal(t, ratings.DefaultFullWeightGames, reg.FullWeightGames)

	reg, err = svc.regression(ctx, testSeason, &RegressionConfig{Baseline: "constant", Value: 1.5, FullWeightGames: 8}, nil)
	require.NoError(t, err)
	assert.Equal(t, ratings.ConstantBaseline(1.5), reg.Baseline)
	assert.Equal(t, 8, reg.FullWeightGames)

	reg, err = svc.regression(ctx, testSeason, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, reg)
}

func TestForecastService_Errors(t *testing.T) {
	negative := -1.0
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"too many trials", Request{Trials: 501}, simulator.ErrInvalidConfig},
		{"negative noise", Request{RankNoiseSD: &negative}, simulator.ErrInvalidConfig},
		{"even series", Request{SeriesHomeGames: []bool{true, false}}, simulator.ErrInvalidConfig},
		{"unknown system", Request{Systems: []SystemConfig{{Name: "elo", Weight: 1}}}, providers.ErrDataUnavailable},
		{"unknown season", Request{Season: 1999}, providers.ErrDataUnavailable},
		{"bad baseline", Request{Regression: &RegressionConfig{Baseline: "median"}}, ratings.ErrInvalidConfig},
		{"zero weight", Request{Systems: []SystemConfig{{Name: "srs"}}}, ratings.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, cache, hub := newTestService(t)
			_, err := svc.Simulate(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			require.Len(t, hub.done, 1)
			assert.Error(t, hub.done[0])
			assert.False(t, cache.has(LatestForecastKey(testSeason)))
		})
	}
}

func TestForecastService_Ratings(t *testing.T) {
	svc, cache, _ := newTestService(t)
	ctx := context.Background()

	report, err := svc.Ratings(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, testSeason, report.Season)
	assert.Equal(t, []string{"srs"}, report.Systems)
	require.Len(t, report.Teams, 32)

	for i := 1; i < len(report.Teams); i++ {
		assert.GreaterOrEqual(t, report.Teams[i-1].Rating, report.Teams[i].Rating)
	}
	played := 0.0
	for _, row := range report.Teams {
		assert.Contains(t, row.Components, "srs")
		played += row.GamesPlayed
	}
	assert.Equal(t, 200.0, played)
	assert.True(t, cache.has(RatingsCacheKey(testSeason)))

	again, err := svc.Ratings(ctx, testSeason)
	require.NoError(t, err)
	assert.Equal(t, report.Teams[0].Team, again.Teams[0].Team)
}

func TestForecastService_NoStore(t *testing.T) {
	defaults := DefaultForecastDefaults()
	defaults.Season = testSeason
	defaults.Trials = 3
	svc := NewForecastService(fixtureProvider{}, nil, nil, nil, defaults, nil)

	f, err := svc.Simulate(context.Background(), Request{Seed: seed(5)})
	require.NoError(t, err)
	assert.Len(t, f.Teams, 32)

	_, err = svc.Latest(context.Background(), testSeason)
	assert.ErrorIs(t, err, store.ErrNotFound)

	history, err := svc.History(context.Background(), testSeason, 5)
	require.NoError(t, err)
	assert.Empty(t, history)
}
