// Package leaguetest builds a deterministic two-conference league for tests.
package leaguetest

import (
	"math/rand"

	"github.com/stitts-dev/gridiron-sim/internal/league"
)

var Divisions = []string{"East", "North", "South", "West"}

var rosters = map[string][][]string{
	"AFC": {
		{"Buffalo Bills", "Miami Dolphins", "New England Patriots", "New York Jets"},
		{"Baltimore Ravens", "Cincinnati Bengals", "Cleveland Browns", "Pittsburgh Steelers"},
		{"Houston Texans", "Indianapolis Colts", "Jacksonville Jaguars", "Tennessee Titans"},
		{"Denver Broncos", "Kansas City Chiefs", "Las Vegas Raiders", "Los Angeles Chargers"},
	},
	"NFC": {
		{"Dallas Cowboys", "New York Giants", "Philadelphia Eagles", "Washington Commanders"},
		{"Chicago Bears", "Detroit Lions", "Green Bay Packers", "Minnesota Vikings"},
		{"Atlanta Falcons", "Carolina Panthers", "New Orleans Saints", "Tampa Bay Buccaneers"},
		{"Arizona Cardinals", "Los Angeles Rams", "San Francisco 49ers", "Seattle Seahawks"},
	},
}

// Teams returns 32 teams in 2 conferences of 4 divisions.
func Teams() []league.Team {
	var teams []league.Team
	for _, conf := range []string{"AFC", "NFC"} {
		for d, names := range rosters[conf] {
			for _, n := range names {
				teams = append(teams, league.Team{Name: n, Conference: conf, Division: Divisions[d]})
			}
		}
	}
	return teams
}

func Directory() league.Directory {
	dir, err := league.NewDirectory(Teams())
	if err != nil {
		panic(err)
	}
	return dir
}

// Schedule returns a 14-game-per-team schedule: division rivals twice, one other
// in-conference division once and the same-named division of the other conference once.
func Schedule() []league.GameRecord {
	var games []league.GameRecord
	for _, conf := range []string{"AFC", "NFC"} {
		for _, div := range rosters[conf] {
			for i := range div {
				for j := range div {
					if i != j {
						games = append(games, league.GameRecord{Home: div[i], Away: div[j]})
					}
				}
			}
		}
		// East-North, South-West
		for _, pair := range [][2]int{{0, 1}, {2, 3}} {
			games = append(games, crossover(rosters[conf][pair[0]], rosters[conf][pair[1]])...)
		}
	}
	for d := range Divisions {
		games = append(games, crossover(rosters["AFC"][d], rosters["NFC"][d])...)
	}
	return games
}

func crossover(a, b []string) []league.GameRecord {
	var games []league.GameRecord
	for i := range a {
		for j := range b {
			if (i+j)%2 == 0 {
				games = append(games, league.GameRecord{Home: a[i], Away: b[j]})
			} else {
				games = append(games, league.GameRecord{Home: b[j], Away: a[i]})
			}
		}
	}
	return games
}

// PlayFirst marks the first n games as played with random scores.
func PlayFirst(games []league.GameRecord, n int, rng *rand.Rand) []league.GameRecord {
	out := make([]league.GameRecord, len(games))
	copy(out, games)
	for i := 0; i < n && i < len(out); i++ {
		out[i].HomePoints = float64(10 + rng.Intn(25))
		out[i].AwayPoints = float64(7 + rng.Intn(25))
		out[i].Played = true
	}
	return out
}

// Ratings assigns a spread of ratings, strongest first within each division.
func Ratings() map[string]float64 {
	out := make(map[string]float64)
	for _, conf := range []string{"AFC", "NFC"} {
		for d, div := range rosters[conf] {
			for i, n := range div {
				out[n] = float64(6 - 3*i + d%2)
			}
		}
	}
	return out
}
