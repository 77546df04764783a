// Package outcome samples single-game results from two team ratings.
package outcome

import (
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

var ErrInvalidStdDev = errors.New("outcome standard deviation must be positive")

// Regulation ties are detected in a one-point window around a zero margin.
const (
	regulationBand = 0.5
	overtimeCutoff = 0.0
)

// Result is the outcome of one game from the home team's perspective.
type Result int

const (
	HomeWin Result = iota
	AwayWin
	Tie
)

func (r Result) String() string {
	switch r {
	case HomeWin:
		return "home_win"
	case AwayWin:
		return "away_win"
	case Tie:
		return "tie"
	}
	return "unknown"
}

// HomeWinValue is the home team's win indicator: 1, 0 or 0.5.
func (r Result) HomeWinValue() float64 {
	switch r {
	case HomeWin:
		return 1
	case Tie:
		return 0.5
	}
	return 0
}

// Model treats the home margin as Normal((home + HomeAdvantage) - away, StdDev).
type Model struct {
	HomeAdvantage float64 `json:"home_advantage"`
	StdDev        float64 `json:"std_dev"`
}

func (m Model) Validate() error {
	if !(m.StdDev > 0) {
		return ErrInvalidStdDev
	}
	return nil
}

// Neutral returns the model with no home edge, for games at a neutral site.
func (m Model) Neutral() Model {
	m.HomeAdvantage = 0
	return m
}

func (m Model) ExpectedMargin(home, away float64) float64 {
	return home + m.HomeAdvantage - away
}

func (m Model) dist(home, away float64) distuv.Normal {
	return distuv.Normal{Mu: m.ExpectedMargin(home, away), Sigma: m.StdDev}
}

// WinProbability is the chance the home team finishes ahead, with no ties.
func (m Model) WinProbability(home, away float64) float64 {
	return 1 - m.dist(home, away).CDF(overtimeCutoff)
}

// RegulationProbabilities returns the outright home-win probability and the
// width of the tie band that sends a regular-season game to overtime.
func (m Model) RegulationProbabilities(home, away float64) (win, tieBand float64) {
	d := m.dist(home, away)
	win = 1 - d.CDF(regulationBand)
	tieBand = (1 - d.CDF(-regulationBand)) - win
	return win, tieBand
}

// Elimination plays a game that must produce a winner.
func (m Model) Elimination(rng *rand.Rand, home, away float64) Result {
	if rng.Float64() < m.WinProbability(home, away) {
		return HomeWin
	}
	return AwayWin
}

// RegularSeason plays a game that may end tied. Games inside the tie band go to
// overtime, which ends tied with probability tieFraction.
func (m Model) RegularSeason(rng *rand.Rand, home, away, tieFraction float64) Result {
	win, band := m.RegulationProbabilities(home, away)
	u := rng.Float64()
	switch {
	case u < win:
		return HomeWin
	case u < win+band:
		if rng.Float64() < tieFraction {
			return Tie
		}
		return m.Elimination(rng, home, away)
	}
	return AwayWin
}
