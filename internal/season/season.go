// Package season completes a regular season by simulating its unplayed games.
package season

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/stitts-dev/gridiron-sim/internal/league"
	"github.com/stitts-dev/gridiron-sim/internal/outcome"
)

// DefaultTieFraction is the share of overtime games that end tied.
const DefaultTieFraction = 0.05

var ErrMissingRating = errors.New("missing rating")

// Simulator plays unplayed regular-season games from trial ratings.
type Simulator struct {
	Model       outcome.Model
	TieFraction float64
}

// Season is one completed regular season.
type Season struct {
	Games     []league.GameRecord `json:"games"`
	Gamelog   league.Gamelog      `json:"-"`
	Standings []league.Standing   `json:"standings"`
}

// SimulateGames returns a synthetic record for every unplayed game. The input is not modified.
func (s Simulator) SimulateGames(rng *rand.Rand, unplayed []league.GameRecord, ratings map[string]float64) ([]league.GameRecord, error) {
	out := make([]league.GameRecord, 0, len(unplayed))
	for _, g := range unplayed {
		home, ok := ratings[g.Home]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingRating, g.Home)
		}
		away, ok := ratings[g.Away]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingRating, g.Away)
		}
		v := s.Model.RegularSeason(rng, home, away, s.TieFraction).HomeWinValue()
		out = append(out, league.GameRecord{
			Home:       g.Home,
			Away:       g.Away,
			HomePoints: v,
			AwayPoints: 1 - v,
			Played:     true,
			Simulated:  true,
		})
	}
	return out, nil
}

// Play completes the season and derives its gamelog and standings.
func (s Simulator) Play(rng *rand.Rand, played, unplayed []league.GameRecord, ratings map[string]float64, dir league.Directory) (*Season, error) {
	simulated, err := s.SimulateGames(rng, unplayed, ratings)
	if err != nil {
		return nil, err
	}
	games := make([]league.GameRecord, 0, len(played)+len(simulated))
	games = append(games, played...)
	games = append(games, simulated...)

	log, err := league.BuildGamelog(games, dir, s.Model.HomeAdvantage)
	if err != nil {
		return nil, fmt.Errorf("build trial gamelog: %w", err)
	}
	return &Season{
		Games:     games,
		Gamelog:   log,
		Standings: league.ComputeStandings(log, dir, ratings),
	}, nil
}
