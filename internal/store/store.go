// Package store persists league data and forecast runs.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stitts-dev/gridiron-sim/internal/league"
	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/ratings"
)

var ErrNotFound = errors.New("forecast not found")

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}
	return nil
}

// Drop removes every table, dependents first.
func Drop(db *gorm.DB) error {
	all := models.AllModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	return nil
}

type ForecastStore struct {
	db *gorm.DB
}

func NewForecastStore(db *gorm.DB) *ForecastStore {
	return &ForecastStore{db: db}
}

// SaveForecast inserts a run together with its team rows.
func (s *ForecastStore) SaveForecast(ctx context.Context, run *models.ForecastRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to save forecast: %w", err)
	}
	return nil
}

func (s *ForecastStore) GetForecast(ctx context.Context, id uuid.UUID) (*models.ForecastRun, error) {
	var run models.ForecastRun
	err := s.db.WithContext(ctx).
		Preload("Teams", orderTeams).
		First(&run, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

// LatestForecast returns the most recent run for season.
func (s *ForecastStore) LatestForecast(ctx context.Context, season int) (*models.ForecastRun, error) {
	var run models.ForecastRun
	err := s.db.WithContext(ctx).
		Preload("Teams", orderTeams).
		Where("season = ?", season).
		Order("created_at DESC").
		First(&run).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

// ListForecasts returns run headers for season, newest first.
func (s *ForecastStore) ListForecasts(ctx context.Context, season, limit int) ([]models.ForecastRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.ForecastRun
	err := s.db.WithContext(ctx).
		Where("season = ?", season).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list forecasts: %w", err)
	}
	return runs, nil
}

func orderTeams(db *gorm.DB) *gorm.DB {
	return db.Order("championship_frequency DESC, team")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to load forecast: %w", err)
}

// SeedLeague replaces a season's teams, schedule and published ratings.
func SeedLeague(ctx context.Context, db *gorm.DB, season int, teams []league.Team, games []league.GameRecord, systems map[string]ratings.Values) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&models.Team{}, &models.Game{}, &models.RatingValue{}} {
			if err := tx.Where("season = ?", season).Delete(m).Error; err != nil {
				return fmt.Errorf("failed to clear season %d: %w", season, err)
			}
		}

		teamRows := make([]models.Team, 0, len(teams))
		for _, t := range teams {
			teamRows = append(teamRows, models.Team{Season: season, Name: t.Name, Conference: t.Conference, Division: t.Division})
		}
		if len(teamRows) > 0 {
			if err := tx.Create(&teamRows).Error; err != nil {
				return fmt.Errorf("failed to insert teams: %w", err)
			}
		}

		perWeek := len(teams) / 2
		if perWeek == 0 {
			perWeek = 1
		}
		gameRows := make([]models.Game, 0, len(games))
		for i, g := range games {
			row := models.Game{Season: season, Week: i/perWeek + 1, HomeTeam: g.Home, AwayTeam: g.Away, Played: g.Played}
			if g.Played {
				home, away := g.HomePoints, g.AwayPoints
				row.HomePoints, row.AwayPoints = &home, &away
			}
			gameRows = append(gameRows, row)
		}
		if len(gameRows) > 0 {
			if err := tx.CreateInBatches(&gameRows, 200).Error; err != nil {
				return fmt.Errorf("failed to insert games: %w", err)
			}
		}

		var ratingRows []models.RatingValue
		for system, vals := range systems {
			for team, v := range vals {
				row := models.RatingValue{Season: season, System: system, Team: team, Value: v.Rating}
				if v.HasGamesPlayed {
					gp := v.GamesPlayed
					row.GamesPlayed = &gp
				}
				ratingRows = append(ratingRows, row)
			}
		}
		if len(ratingRows) > 0 {
			if err := tx.CreateInBatches(&ratingRows, 200).Error; err != nil {
				return fmt.Errorf("failed to insert rating values: %w", err)
			}
		}
		return nil
	})
}
