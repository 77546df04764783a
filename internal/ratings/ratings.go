// Package ratings blends independent team-rating systems into one composite power rating.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/stitts-dev/gridiron-sim/internal/league"
)

var (
	// ErrDataUnavailable marks a rating system that has no value for a required team.
	ErrDataUnavailable = errors.New("rating data unavailable")
	ErrInvalidConfig   = errors.New("invalid rating configuration")
)

// Value is one team's raw rating in one system.
type Value struct {
	Rating         float64 `json:"rating"`
	GamesPlayed    float64 `json:"games_played"`
	HasGamesPlayed bool    `json:"has_games_played"`
}

// Values maps team name to rating.
type Values map[string]Value

func (v Values) Ratings() map[string]float64 {
	out := make(map[string]float64, len(v))
	for team, val := range v {
		out[team] = val.Rating
	}
	return out
}

func (v Values) clone() Values {
	out := make(Values, len(v))
	for team, val := range v {
		out[team] = val
	}
	return out
}

// Source produces raw per-team ratings for a season from the games played so far.
type Source interface {
	Name() string
	Calculate(ctx context.Context, season int, played league.Gamelog) (Values, error)
}

// gameDerived is implemented by sources computed purely from played games.
type gameDerived interface {
	GameDerived() bool
}

// Table is a fixed set of ratings, such as a preseason prior or a published snapshot.
type Table struct {
	SystemName string
	Entries    Values
}

func (t Table) Name() string { return t.SystemName }

func (t Table) Calculate(_ context.Context, _ int, _ league.Gamelog) (Values, error) {
	if len(t.Entries) == 0 {
		return nil, fmt.Errorf("%w: table %q is empty", ErrDataUnavailable, t.SystemName)
	}
	return t.Entries.clone(), nil
}

// RawProvider serves named rating systems from an external source.
type RawProvider interface {
	GetRatingSystemRaw(ctx context.Context, system string, season int, played league.Gamelog) (Values, error)
}

// ProviderSource delegates a named system to a RawProvider.
type ProviderSource struct {
	System   string
	Provider RawProvider
}

func (p ProviderSource) Name() string { return p.System }

func (p ProviderSource) Calculate(ctx context.Context, season int, played league.Gamelog) (Values, error) {
	vals, err := p.Provider.GetRatingSystemRaw(ctx, p.System, season, played)
	if err != nil {
		return nil, fmt.Errorf("rating system %q: %w", p.System, err)
	}
	return vals, nil
}

// System is a weighted rating source with optional mean regression.
type System struct {
	Source     Source
	Weight     float64
	Regression *Regression
}

// Composite is the blended rating of a league-season. It is not modified after Blend.
type Composite struct {
	Ratings     map[string]float64            `json:"ratings"`
	GamesPlayed map[string]float64            `json:"games_played"`
	Components  map[string]map[string]float64 `json:"components"`
}

// Noised returns a trial-local copy with one Gaussian perturbation per team.
func (c *Composite) Noised(rng *rand.Rand, sd float64) map[string]float64 {
	out := make(map[string]float64, len(c.Ratings))
	for _, team := range sortedKeys(c.Ratings) {
		r := c.Ratings[team]
		if sd > 0 {
			r -= rng.NormFloat64() * sd
		}
		out[team] = r
	}
	return out
}
