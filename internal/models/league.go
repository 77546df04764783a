package models

import (
	"time"

	"github.com/stitts-dev/gridiron-sim/internal/league"
)

// Team is a club's membership of a league season.
type Team struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Season     int       `gorm:"uniqueIndex:idx_teams_season_name;not null" json:"season"`
	Name       string    `gorm:"uniqueIndex:idx_teams_season_name;not null" json:"name"`
	Conference string    `gorm:"not null" json:"conference"`
	Division   string    `gorm:"not null" json:"division"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Team) TableName() string {
	return "teams"
}

func (t Team) ToLeague() league.Team {
	return league.Team{Name: t.Name, Conference: t.Conference, Division: t.Division}
}

// Game is a scheduled regular-season game. Points stay null until it is played.
type Game struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Season     int       `gorm:"index;not null" json:"season"`
	Week       int       `gorm:"not null" json:"week"`
	HomeTeam   string    `gorm:"not null" json:"home_team"`
	AwayTeam   string    `gorm:"not null" json:"away_team"`
	HomePoints *float64  `json:"home_points,omitempty"`
	AwayPoints *float64  `json:"away_points,omitempty"`
	Played     bool      `gorm:"default:false" json:"played"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Game) TableName() string {
	return "games"
}

func (g Game) ToRecord() league.GameRecord {
	rec := league.GameRecord{Home: g.HomeTeam, Away: g.AwayTeam, Played: g.Played}
	if g.HomePoints != nil {
		rec.HomePoints = *g.HomePoints
	}
	if g.AwayPoints != nil {
		rec.AwayPoints = *g.AwayPoints
	}
	return rec
}

// RatingValue is one team's published value in a named rating system.
type RatingValue struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Season      int       `gorm:"uniqueIndex:idx_rating_values_key;not null" json:"season"`
	System      string    `gorm:"uniqueIndex:idx_rating_values_key;not null" json:"system"`
	Team        string    `gorm:"uniqueIndex:idx_rating_values_key;not null" json:"team"`
	Value       float64   `gorm:"not null" json:"value"`
	GamesPlayed *float64  `json:"games_played,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (RatingValue) TableName() string {
	return "rating_values"
}
