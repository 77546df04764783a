package providers

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/stitts-dev/gridiron-sim/internal/league"
	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/ratings"
)

// DBProvider reads league data loaded into the database.
type DBProvider struct {
	db *gorm.DB
}

func NewDBProvider(db *gorm.DB) *DBProvider {
	return &DBProvider{db: db}
}

func (p *DBProvider) Name() string { return "database" }

func (p *DBProvider) GetTeams(ctx context.Context, season int) ([]league.Team, error) {
	var rows []models.Team
	if err := p.db.WithContext(ctx).Where("season = ?", season).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no teams for season %d", ErrDataUnavailable, season)
	}
	teams := make([]league.Team, len(rows))
	for i, r := range rows {
		teams[i] = r.ToLeague()
	}
	return teams, nil
}

func (p *DBProvider) GetSchedule(ctx context.Context, season int) ([]league.GameRecord, error) {
	var rows []models.Game
	if err := p.db.WithContext(ctx).Where("season = ?", season).Order("week, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no schedule for season %d", ErrDataUnavailable, season)
	}
	games := make([]league.GameRecord, len(rows))
	for i, r := range rows {
		games[i] = r.ToRecord()
	}
	return games, nil
}

func (p *DBProvider) GetRatingSystemRaw(ctx context.Context, system string, season int, _ league.Gamelog) (ratings.Values, error) {
	var rows []models.RatingValue
	err := p.db.WithContext(ctx).
		Where("season = ? AND system = ?", season, system).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s ratings: %w", system, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no %s ratings for season %d", ErrDataUnavailable, system, season)
	}
	vals := make(ratings.Values, len(rows))
	for _, r := range rows {
		v := ratings.Value{Rating: r.Value}
		if r.GamesPlayed != nil {
			v.GamesPlayed = *r.GamesPlayed
			v.HasGamesPlayed = true
		}
		vals[r.Team] = v
	}
	return vals, nil
}
