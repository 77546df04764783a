package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/league"
	"github.com/stitts-dev/gridiron-sim/internal/league/leaguetest"
	"github.com/stitts-dev/gridiron-sim/internal/ratings"
	"github.com/stitts-dev/gridiron-sim/internal/store"
	"github.com/stitts-dev/gridiron-sim/pkg/config"
	"github.com/stitts-dev/gridiron-sim/pkg/database"
)

const usage = "Usage: migrate [up|down|seed [file.json]|createdb]"

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	command := os.Args[1]
	if command == "createdb" {
		created, err := createDatabase(cfg.DatabaseURL)
		if err != nil {
			logrus.Fatalf("Failed to create database: %v", err)
		}
		if created {
			logrus.Info("Database created successfully")
		} else {
			logrus.Info("Database already exists")
		}
		return
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command {
	case "up":
		if err := store.Migrate(db.DB); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := store.Drop(db.DB); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		file := ""
		if len(os.Args) > 2 {
			file = os.Args[2]
		}
		data, err := loadSeed(file, cfg.DefaultSeason)
		if err != nil {
			logrus.Fatalf("Failed to load seed data: %v", err)
		}
		if err := store.Migrate(db.DB); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		if err := store.SeedLeague(context.Background(), db.DB, data.Season, data.Teams, data.Games, data.systems()); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.WithFields(logrus.Fields{
			"season": data.Season,
			"teams":  len(data.Teams),
			"games":  len(data.Games),
		}).Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s\n%s", command, usage)
	}
}

type seedRating struct {
	Team        string   `json:"team"`
	Value       float64  `json:"value"`
	GamesPlayed *float64 `json:"games_played,omitempty"`
}

// seedData is the JSON layout accepted by "migrate seed file.json".
type seedData struct {
	Season  int                     `json:"season"`
	Teams   []league.Team           `json:"teams"`
	Games   []league.GameRecord     `json:"games"`
	Ratings map[string][]seedRating `json:"ratings"`
}

func (d seedData) systems() map[string]ratings.Values {
	out := make(map[string]ratings.Values, len(d.Ratings))
	for system, rows := range d.Ratings {
		vals := make(ratings.Values, len(rows))
		for _, r := range rows {
			v := ratings.Value{Rating: r.Value}
			if r.GamesPlayed != nil {
				v.GamesPlayed, v.HasGamesPlayed = *r.GamesPlayed, true
			}
			vals[r.Team] = v
		}
		out[system] = vals
	}
	return out
}

// loadSeed reads file, or builds the demo league with half the schedule played.
func loadSeed(file string, season int) (*seedData, error) {
	if file == "" {
		return demoSeed(season), nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	var data seedData
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", file, err)
	}
	if data.Season == 0 {
		data.Season = season
	}
	if _, err := league.NewDirectory(data.Teams); err != nil {
		return nil, err
	}
	return &data, nil
}

func demoSeed(season int) *seedData {
	games := leaguetest.Schedule()
	rng := rand.New(rand.NewSource(int64(season)))
	rng.Shuffle(len(games), func(i, j int) { games[i], games[j] = games[j], games[i] })

	power := make([]seedRating, 0, 32)
	for team, r := range leaguetest.Ratings() {
		power = append(power, seedRating{Team: team, Value: r})
	}
	return &seedData{
		Season:  season,
		Teams:   leaguetest.Teams(),
		Games:   leaguetest.PlayFirst(games, len(games)/2, rng),
		Ratings: map[string][]seedRating{"power": power},
	}
}
