package simulator

import (
	"sort"

	"github.com/stitts-dev/gridiron-sim/internal/league"
	"github.com/stitts-dev/gridiron-sim/internal/tiebreak"
)

// GameRow is a simulated regular-season game tagged with its trial.
type GameRow struct {
	Simulation int `json:"simulation"`
	league.GameRecord
}

type StandingRow struct {
	Simulation int `json:"simulation"`
	league.Standing
}

type SeedRow struct {
	Simulation int    `json:"simulation"`
	Conference string `json:"conference"`
	tiebreak.Seed
}

type PlayoffRow struct {
	Simulation int `json:"simulation"`
	PlayoffGame
}

// Ensemble concatenates the outputs of every successful trial.
type Ensemble struct {
	Trials        int           `json:"trials"`
	RegularSeason []GameRow     `json:"regular_season"`
	Standings     []StandingRow `json:"standings"`
	Seeding       []SeedRow     `json:"seeding"`
	Playoffs      []PlayoffRow  `json:"playoffs"`
}

func NewEnsemble(trials []*Trial) *Ensemble {
	e := &Ensemble{}
	for _, t := range trials {
		e.Add(t)
	}
	return e
}

// Add appends one trial. Only simulated games are kept from the regular season
// since played games are identical in every trial.
func (e *Ensemble) Add(t *Trial) {
	e.Trials++
	for _, g := range t.Season.Games {
		if g.Simulated {
			e.RegularSeason = append(e.RegularSeason, GameRow{Simulation: t.Index, GameRecord: g})
		}
	}
	for _, s := range t.Season.Standings {
		e.Standings = append(e.Standings, StandingRow{Simulation: t.Index, Standing: s})
	}
	for _, conf := range sortedConferences(t.Seeding) {
		for _, sd := range t.Seeding[conf] {
			e.Seeding = append(e.Seeding, SeedRow{Simulation: t.Index, Conference: conf, Seed: sd})
		}
	}
	for _, g := range t.Playoffs {
		e.Playoffs = append(e.Playoffs, PlayoffRow{Simulation: t.Index, PlayoffGame: g})
	}
}

// TeamSummary is the distribution of one team's outcomes across trials.
type TeamSummary struct {
	Team                  string          `json:"team"`
	Conference            string          `json:"conference"`
	Division              string          `json:"division"`
	MeanWins              float64         `json:"mean_wins"`
	MeanLosses            float64         `json:"mean_losses"`
	MeanRating            float64         `json:"mean_rating"`
	SeedFrequency         map[int]float64 `json:"seed_frequency"`
	PlayoffFrequency      float64         `json:"playoff_frequency"`
	DivisionTitle         float64         `json:"division_title_frequency"`
	ConferenceTitle       float64         `json:"conference_title_frequency"`
	ChampionshipFrequency float64         `json:"championship_frequency"`
}

// Summarize reduces the ensemble to per-team means and frequencies, ordered by
// championship frequency. The reduction does not depend on trial order.
func (e *Ensemble) Summarize() []TeamSummary {
	if e.Trials == 0 {
		return nil
	}
	n := float64(e.Trials)
	byTeam := make(map[string]*TeamSummary)
	get := func(team string) *TeamSummary {
		s, ok := byTeam[team]
		if !ok {
			s = &TeamSummary{Team: team, SeedFrequency: make(map[int]float64)}
			byTeam[team] = s
		}
		return s
	}

	for _, row := range e.Standings {
		s := get(row.Team)
		s.Conference, s.Division = row.Conference, row.Division
		s.MeanWins += row.Wins / n
		s.MeanLosses += row.Losses / n
		s.MeanRating += row.Rating / n
	}
	divisionSeeds := tiebreak.DivisionsPerConference
	for _, row := range e.Seeding {
		s := get(row.Team)
		s.SeedFrequency[row.Number] += 1 / n
		s.PlayoffFrequency += 1 / n
		if row.Number <= divisionSeeds {
			s.DivisionTitle += 1 / n
		}
	}

	conferenceTitles := make(map[int][]string)
	leagueFinal := make(map[int]string)
	for _, row := range e.Playoffs {
		switch {
		case row.Conference == LeagueConference && row.Round == RoundFinal:
			leagueFinal[row.Simulation] = row.Winner
		case row.Conference != LeagueConference && row.Round == RoundChampionship:
			get(row.Winner).ConferenceTitle += 1 / n
			conferenceTitles[row.Simulation] = append(conferenceTitles[row.Simulation], row.Winner)
		}
	}
	for _, champ := range leagueFinal {
		get(champ).ChampionshipFrequency += 1 / n
	}
	for sim, titles := range conferenceTitles {
		if _, ok := leagueFinal[sim]; !ok && len(titles) == 1 {
			get(titles[0]).ChampionshipFrequency += 1 / n
		}
	}

	out := make([]TeamSummary, 0, len(byTeam))
	for _, s := range byTeam {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChampionshipFrequency != out[j].ChampionshipFrequency {
			return out[i].ChampionshipFrequency > out[j].ChampionshipFrequency
		}
		return out[i].Team < out[j].Team
	})
	return out
}
