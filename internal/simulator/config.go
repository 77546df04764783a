package simulator

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/stitts-dev/gridiron-sim/internal/season"
	"github.com/stitts-dev/gridiron-sim/internal/tiebreak"
)

var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrInvalidInput  = errors.New("invalid simulation input")
)

// Config controls an ensemble run.
type Config struct {
	Trials   int  `json:"trials"`
	Workers  int  `json:"workers"`
	Parallel bool `json:"parallel"`
	Combine  bool `json:"combine"`

	RankNoiseSD   float64 `json:"rank_noise_sd"`
	HomeAdvantage float64 `json:"home_advantage"`
	OutcomeSD     float64 `json:"outcome_sd"`
	TieFraction   float64 `json:"tie_fraction"`

	Wildcards       int    `json:"wildcards"`
	SeriesHomeGames []bool `json:"series_home_games,omitempty"`

	// Seed makes the run reproducible: trial i draws from Seed+i.
	Seed *int64 `json:"seed,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Trials:        1000,
		Workers:       runtime.NumCPU(),
		Parallel:      true,
		Combine:       true,
		RankNoiseSD:   2,
		HomeAdvantage: 3,
		OutcomeSD:     13,
		TieFraction:   season.DefaultTieFraction,
		Wildcards:     tiebreak.DefaultWildcards,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Trials <= 0:
		return fmt.Errorf("%w: trials must be positive", ErrInvalidConfig)
	case !(c.OutcomeSD > 0):
		return fmt.Errorf("%w: outcome standard deviation must be positive", ErrInvalidConfig)
	case c.RankNoiseSD < 0:
		return fmt.Errorf("%w: rank noise must not be negative", ErrInvalidConfig)
	case c.TieFraction < 0 || c.TieFraction > 1:
		return fmt.Errorf("%w: tie fraction %v outside [0, 1]", ErrInvalidConfig, c.TieFraction)
	case c.Wildcards < 0:
		return fmt.Errorf("%w: negative wildcard count", ErrInvalidConfig)
	case len(c.SeriesHomeGames)%2 == 0 && len(c.SeriesHomeGames) > 0:
		return fmt.Errorf("%w: series length must be odd", ErrInvalidConfig)
	}
	return nil
}

func (c Config) workers() int {
	if !c.Parallel {
		return 1
	}
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
