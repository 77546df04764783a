// Package providers supplies teams, schedules and published rating systems for a season.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stitts-dev/gridiron-sim/internal/league"
	"github.com/stitts-dev/gridiron-sim/internal/ratings"
)

// ErrDataUnavailable is returned when a source has no usable data for a request.
var ErrDataUnavailable = ratings.ErrDataUnavailable

// Provider is a read-only source of league data.
type Provider interface {
	Name() string
	GetTeams(ctx context.Context, season int) ([]league.Team, error)
	GetSchedule(ctx context.Context, season int) ([]league.GameRecord, error)
	GetRatingSystemRaw(ctx context.Context, system string, season int, played league.Gamelog) (ratings.Values, error)
}

// Chain tries each provider in order and returns the first success.
type Chain []Provider

func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, p := range c {
		names[i] = p.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

func (c Chain) GetTeams(ctx context.Context, season int) ([]league.Team, error) {
	return first(c, func(p Provider) ([]league.Team, error) { return p.GetTeams(ctx, season) })
}

func (c Chain) GetSchedule(ctx context.Context, season int) ([]league.GameRecord, error) {
	return first(c, func(p Provider) ([]league.GameRecord, error) { return p.GetSchedule(ctx, season) })
}

func (c Chain) GetRatingSystemRaw(ctx context.Context, system string, season int, played league.Gamelog) (ratings.Values, error) {
	return first(c, func(p Provider) (ratings.Values, error) {
		return p.GetRatingSystemRaw(ctx, system, season, played)
	})
}

func first[T any](c Chain, fetch func(Provider) (T, error)) (T, error) {
	var zero T
	if len(c) == 0 {
		return zero, fmt.Errorf("%w: no providers configured", ErrDataUnavailable)
	}
	var errs []error
	for _, p := range c {
		v, err := fetch(p)
		if err == nil {
			return v, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return zero, errors.Join(errs...)
}
