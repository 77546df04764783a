package ratings

import (
	"context"
	"math"
	"sort"

	"github.com/stitts-dev/gridiron-sim/internal/league"
)

const (
	srsTolerance = 0.001
	srsMaxPasses = 10000
)

// SRS is the simple rating system: average margin plus average opponent rating,
// iterated to a fixed point and centred on zero. Margins already exclude the home edge.
type SRS struct {
	// Teams are reported with a zero rating when they have not played yet.
	Teams []string
}

func (SRS) Name() string { return "srs" }

func (SRS) GameDerived() bool { return true }

func (s SRS) Calculate(ctx context.Context, _ int, played league.Gamelog) (Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	margin := make(map[string]float64)
	opponents := make(map[string][]string)
	for _, e := range played {
		margin[e.Team] += e.Margin
		opponents[e.Team] = append(opponents[e.Team], e.Opponent)
	}
	teams := make([]string, 0, len(opponents))
	for team := range opponents {
		teams = append(teams, team)
		margin[team] /= float64(len(opponents[team]))
	}
	sort.Strings(teams)

	srs := make(map[string]float64, len(teams))
	for _, team := range teams {
		srs[team] = margin[team]
	}
	for pass := 0; pass < srsMaxPasses; pass++ {
		delta := 0.0
		for _, team := range teams {
			sos := 0.0
			for _, opp := range opponents[team] {
				sos += srs[opp]
			}
			next := margin[team] + sos/float64(len(opponents[team]))
			delta = math.Max(delta, math.Abs(next-srs[team]))
			srs[team] = next
		}
		if delta < srsTolerance {
			break
		}
	}

	out := make(Values, len(teams)+len(s.Teams))
	if len(teams) > 0 {
		mean := 0.0
		for _, team := range teams {
			mean += srs[team]
		}
		mean /= float64(len(teams))
		for _, team := range teams {
			out[team] = Value{
				Rating:         srs[team] - mean,
				GamesPlayed:    float64(len(opponents[team])),
				HasGamesPlayed: true,
			}
		}
	}
	for _, team := range s.Teams {
		if _, ok := out[team]; !ok {
			out[team] = Value{HasGamesPlayed: true}
		}
	}
	return out, nil
}
