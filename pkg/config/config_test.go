package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 1000, cfg.DefaultTrials)
	assert.Equal(t, 100000, cfg.MaxTrials)
	assert.Equal(t, runtime.NumCPU(), cfg.SimulationWorkers)
	assert.Equal(t, 2.0, cfg.RankNoiseSD)
	assert.Equal(t, 3.0, cfg.HomeAdvantage)
	assert.Equal(t, 13.0, cfg.OutcomeSD)
	assert.Equal(t, 0.05, cfg.TieFraction)
	assert.Equal(t, 2, cfg.Wildcards)
	assert.Equal(t, []string{"srs"}, cfg.RatingSystems)
	assert.Equal(t, []string{"db"}, cfg.DataProviders)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CorsOrigins)
	assert.Equal(t, 10*time.Second, cfg.ExternalAPITimeout)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "@every 6h", cfg.RefreshSchedule)
	assert.False(t, cfg.EnableScheduledRefresh)
	assert.Equal(t, time.Now().Year(), cfg.DefaultSeason)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DEFAULT_SEASON", "2023")
	t.Setenv("MAX_TRIALS", "5000")
	t.Setenv("HOME_ADVANTAGE", "1.5")
	t.Setenv("RATING_SYSTEMS", "srs, power ,")
	t.Setenv("DATA_PROVIDERS", "db,feed")
	t.Setenv("FEED_BASE_URL", "https://feed.example.com")
	t.Setenv("EXTERNAL_API_TIMEOUT", "3s")
	t.Setenv("ENABLE_SCHEDULED_REFRESH", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 2023, cfg.DefaultSeason)
	assert.Equal(t, 5000, cfg.MaxTrials)
	assert.Equal(t, 1.5, cfg.HomeAdvantage)
	assert.Equal(t, []string{"srs", "power"}, cfg.RatingSystems)
	assert.Equal(t, []string{"db", "feed"}, cfg.DataProviders)
	assert.Equal(t, 3*time.Second, cfg.ExternalAPITimeout)
	assert.True(t, cfg.EnableScheduledRefresh)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero trials", map[string]string{"DEFAULT_TRIALS": "0"}},
		{"max below default", map[string]string{"MAX_TRIALS": "10"}},
		{"no outcome spread", map[string]string{"OUTCOME_SD": "0"}},
		{"no systems", map[string]string{"RATING_SYSTEMS": " "}},
		{"unknown provider", map[string]string{"DATA_PROVIDERS": "csv"}},
		{"feed without url", map[string]string{"DATA_PROVIDERS": "feed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
