package ratings

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/gridiron-sim/internal/league"
)

// DefaultScale converts a blended z-score into points.
const DefaultScale = 5.0

// Blender z-scores each system over the common team set and takes the weighted mean.
type Blender struct {
	Systems    []System
	Regression *Regression
	Scale      float64
}

// Blend builds the composite rating for teams from the games played so far.
func (b *Blender) Blend(ctx context.Context, season int, played league.Gamelog, teams []string) (*Composite, error) {
	if err := b.validate(teams); err != nil {
		return nil, err
	}
	scale := b.Scale
	if scale == 0 {
		scale = DefaultScale
	}

	rowCounts := played.GamesPlayed()
	components := make(map[string]map[string]float64, len(b.Systems))
	gamesPlayed := make(map[string]float64, len(teams))
	weighted := make(map[string]float64, len(teams))
	totalWeight := 0.0

	for i, sys := range b.Systems {
		name := sys.Source.Name()
		vals, err := sys.Source.Calculate(ctx, season, played)
		if err != nil {
			return nil, fmt.Errorf("calculate %s: %w", name, err)
		}
		for team, v := range vals {
			if !v.HasGamesPlayed {
				v.GamesPlayed = rowCounts[team]
				v.HasGamesPlayed = true
				vals[team] = v
			}
		}

		joined := make(Values, len(teams))
		for _, team := range teams {
			v, ok := vals[team]
			if !ok {
				return nil, fmt.Errorf("%w: system %s has no rating for %s", ErrDataUnavailable, name, team)
			}
			joined[team] = v
		}

		if sys.Regression != nil {
			if joined, err = sys.Regression.Apply(joined); err != nil {
				return nil, fmt.Errorf("regress %s: %w", name, err)
			}
		} else if d, ok := sys.Source.(gameDerived); ok && d.GameDerived() && noGames(joined) {
			return nil, fmt.Errorf("%w: %s has no games played and no regression baseline", ErrInvalidConfig, name)
		}

		z := zScores(joined, teams)
		components[name] = z
		for _, team := range teams {
			weighted[team] += z[team] * sys.Weight
			if i == 0 {
				gamesPlayed[team] = joined[team].GamesPlayed
			}
		}
		totalWeight += sys.Weight
	}

	composite := make(Values, len(teams))
	for _, team := range teams {
		composite[team] = Value{
			Rating:         weighted[team] / totalWeight * scale,
			GamesPlayed:    gamesPlayed[team],
			HasGamesPlayed: true,
		}
	}
	if b.Regression != nil {
		var err error
		if composite, err = b.Regression.Apply(composite); err != nil {
			return nil, fmt.Errorf("regress composite: %w", err)
		}
	}

	return &Composite{
		Ratings:     composite.Ratings(),
		GamesPlayed: gamesPlayed,
		Components:  components,
	}, nil
}

func (b *Blender) validate(teams []string) error {
	if len(b.Systems) == 0 {
		return fmt.Errorf("%w: no rating systems", ErrInvalidConfig)
	}
	if len(teams) == 0 {
		return fmt.Errorf("%w: empty team set", ErrInvalidConfig)
	}
	total := 0.0
	for _, sys := range b.Systems {
		if sys.Source == nil {
			return fmt.Errorf("%w: rating system without a source", ErrInvalidConfig)
		}
		if sys.Weight < 0 {
			return fmt.Errorf("%w: negative weight for %s", ErrInvalidConfig, sys.Source.Name())
		}
		total += sys.Weight
	}
	if total <= 0 {
		return fmt.Errorf("%w: total weight must be positive", ErrInvalidConfig)
	}
	return nil
}

func noGames(vals Values) bool {
	for _, v := range vals {
		if v.GamesPlayed > 0 {
			return false
		}
	}
	return true
}

// zScores standardises ratings with the population standard deviation.
// A system with no spread contributes zero for every team.
func zScores(vals Values, teams []string) map[string]float64 {
	x := make([]float64, len(teams))
	for i, team := range teams {
		x[i] = vals[team].Rating
	}
	mean, sd := stat.PopMeanStdDev(x, nil)
	out := make(map[string]float64, len(teams))
	for i, team := range teams {
		if sd > 0 {
			out[team] = (x[i] - mean) / sd
		} else {
			out[team] = 0
		}
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
