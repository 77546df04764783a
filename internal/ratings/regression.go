package ratings

import (
	"fmt"
)

// DefaultFullWeightGames is the games-played count at which the raw rating carries full weight.
const DefaultFullWeightGames = 16

// Baseline supplies the regression target for each team.
type Baseline interface {
	Targets(values Values) (map[string]float64, error)
}

// ConstantBaseline regresses every team toward the same value.
type ConstantBaseline float64

func (b ConstantBaseline) Targets(values Values) (map[string]float64, error) {
	out := make(map[string]float64, len(values))
	for team := range values {
		out[team] = float64(b)
	}
	return out, nil
}

// TableBaseline regresses each team toward its own prior.
type TableBaseline map[string]float64

func (b TableBaseline) Targets(values Values) (map[string]float64, error) {
	out := make(map[string]float64, len(values))
	for team := range values {
		v, ok := b[team]
		if !ok {
			return nil, fmt.Errorf("%w: no baseline for %s", ErrDataUnavailable, team)
		}
		out[team] = v
	}
	return out, nil
}

// FieldMeanBaseline regresses toward the mean raw rating of the field.
type FieldMeanBaseline struct{}

func (FieldMeanBaseline) Targets(values Values) (map[string]float64, error) {
	mean := 0.0
	for _, v := range values {
		mean += v.Rating
	}
	if len(values) > 0 {
		mean /= float64(len(values))
	}
	return ConstantBaseline(mean).Targets(values)
}

// Regression pulls ratings toward a baseline, the field mean when Baseline is nil.
// With a fixed Weight the blend is constant; otherwise the baseline is discounted
// as games accumulate.
type Regression struct {
	Baseline        Baseline
	Weight          *float64
	FullWeightGames int
}

// NewRegression regresses toward baseline by games played, using the default threshold.
func NewRegression(baseline Baseline) *Regression {
	return &Regression{Baseline: baseline, FullWeightGames: DefaultFullWeightGames}
}

func (r *Regression) validate() error {
	if r.Weight != nil && (*r.Weight < 0 || *r.Weight > 1) {
		return fmt.Errorf("%w: regression weight %v outside [0, 1]", ErrInvalidConfig, *r.Weight)
	}
	if r.FullWeightGames < 0 {
		return fmt.Errorf("%w: negative full-weight games", ErrInvalidConfig)
	}
	return nil
}

func (r *Regression) baseline() Baseline {
	if r.Baseline == nil {
		return FieldMeanBaseline{}
	}
	return r.Baseline
}

// Apply returns regressed copies of values.
func (r *Regression) Apply(values Values) (Values, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	targets, err := r.baseline().Targets(values)
	if err != nil {
		return nil, err
	}

	out := make(Values, len(values))
	for team, v := range values {
		b := targets[team]
		if r.Weight != nil {
			w := *r.Weight
			v.Rating = v.Rating*(1-w) + b*w
		} else {
			g := v.GamesPlayed
			prior := float64(r.FullWeightGames) - g
			if prior < 0 {
				prior = 0
			}
			if g+prior > 0 {
				v.Rating = (v.Rating*g + b*prior) / (g + prior)
			} else {
				v.Rating = b
			}
		}
		out[team] = v
	}
	return out, nil
}
