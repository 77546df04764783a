package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ForecastRun is a persisted ensemble run for a season.
type ForecastRun struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Season    int            `gorm:"index;not null" json:"season"`
	Trials    int            `gorm:"not null" json:"trials"`
	Failed    int            `json:"failed"`
	Params    datatypes.JSON `json:"params"`
	Ratings   datatypes.JSON `json:"ratings"`
	ElapsedMS int64          `json:"elapsed_ms"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	Teams     []TeamForecast `gorm:"foreignKey:ForecastID;constraint:OnDelete:CASCADE" json:"teams,omitempty"`
}

func (ForecastRun) TableName() string {
	return "forecast_runs"
}

func (f *ForecastRun) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.Params = emptyObject(f.Params)
	f.Ratings = emptyObject(f.Ratings)
	return nil
}

func (t *TeamForecast) BeforeCreate(tx *gorm.DB) error {
	t.SeedFrequency = emptyObject(t.SeedFrequency)
	return nil
}

// emptyObject keeps JSON columns non-null.
func emptyObject(j datatypes.JSON) datatypes.JSON {
	if len(j) == 0 {
		return datatypes.JSON("{}")
	}
	return j
}

// TeamForecast is one team's summary within a forecast run.
type TeamForecast struct {
	ID                    uint           `gorm:"primaryKey" json:"-"`
	ForecastID            uuid.UUID      `gorm:"type:uuid;index;not null" json:"-"`
	Team                  string         `gorm:"not null" json:"team"`
	Conference            string         `json:"conference"`
	Division              string         `json:"division"`
	MeanWins              float64        `json:"mean_wins"`
	MeanLosses            float64        `json:"mean_losses"`
	MeanRating            float64        `json:"mean_rating"`
	SeedFrequency         datatypes.JSON `json:"seed_frequency"`
	PlayoffFrequency      float64        `json:"playoff_frequency"`
	DivisionTitle         float64        `json:"division_title_frequency"`
	ConferenceTitle       float64        `json:"conference_title_frequency"`
	ChampionshipFrequency float64        `json:"championship_frequency"`
}

func (TeamForecast) TableName() string {
	return "team_forecasts"
}

// AllModels lists every table managed by migrations.
func AllModels() []interface{} {
	return []interface{}{&Team{}, &Game{}, &RatingValue{}, &ForecastRun{}, &TeamForecast{}}
}
