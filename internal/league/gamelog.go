package league

import (
	"fmt"
	"math"
	"sort"
)

// GamelogEntry is one team's view of one game. Every game produces two entries.
type GamelogEntry struct {
	Team          string  `json:"team"`
	Opponent      string  `json:"opponent"`
	Conference    string  `json:"conference"`
	Division      string  `json:"division"`
	OppConference string  `json:"opp_conference"`
	OppDivision   string  `json:"opp_division"`
	Points        float64 `json:"points"`
	OppPoints     float64 `json:"opp_points"`
	IsHome        bool    `json:"is_home"`
	// Margin is the scoring difference with the home edge removed.
	Margin      float64 `json:"margin"`
	Win         float64 `json:"win"`
	Loss        float64 `json:"loss"`
	TeamWins    float64 `json:"team_wins"`
	TeamLosses  float64 `json:"team_losses"`
	OppWins     float64 `json:"opp_wins"`
	OppLosses   float64 `json:"opp_losses"`
	GamesPlayed float64 `json:"games_played"`
}

func (e GamelogEntry) IsConferenceGame() bool {
	return e.Conference == e.OppConference
}

func (e GamelogEntry) IsDivisionGame() bool {
	return e.IsConferenceGame() && e.Division == e.OppDivision
}

// Gamelog is the doubled-perspective table of a season.
type Gamelog []GamelogEntry

// Record is a win/loss total. Ties count half to each side.
type Record struct {
	Wins   float64 `json:"wins"`
	Losses float64 `json:"losses"`
}

func (r Record) Games() float64 {
	return r.Wins + r.Losses
}

// Pct is the win percentage, rounded so that equal records compare equal.
func (r Record) Pct() float64 {
	if r.Games() == 0 {
		return 0
	}
	return roundPct(r.Wins / r.Games())
}

func roundPct(v float64) float64 {
	return math.Round(v*1e10) / 1e10
}

// BuildGamelog mirrors each game into two perspective rows and attaches season totals.
func BuildGamelog(games []GameRecord, dir Directory, homeAdvantage float64) (Gamelog, error) {
	log := make(Gamelog, 0, 2*len(games))
	for _, g := range games {
		home, ok := dir.Lookup(g.Home)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, g.Home)
		}
		away, ok := dir.Lookup(g.Away)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, g.Away)
		}
		log = append(log,
			perspective(home, away, g.HomePoints, g.AwayPoints, true, homeAdvantage),
			perspective(away, home, g.AwayPoints, g.HomePoints, false, homeAdvantage),
		)
	}

	records := log.Records()
	for i := range log {
		team := records[log[i].Team]
		opp := records[log[i].Opponent]
		log[i].TeamWins = team.Wins
		log[i].TeamLosses = team.Losses
		log[i].OppWins = opp.Wins
		log[i].OppLosses = opp.Losses
		log[i].GamesPlayed = team.Games()
	}
	return log, nil
}

func perspective(team, opp Team, points, oppPoints float64, isHome bool, homeAdvantage float64) GamelogEntry {
	diff := points - oppPoints
	win := (sign(diff) + 1) / 2
	edge := homeAdvantage
	if !isHome {
		edge = -homeAdvantage
	}
	return GamelogEntry{
		Team:          team.Name,
		Opponent:      opp.Name,
		Conference:    team.Conference,
		Division:      team.Division,
		OppConference: opp.Conference,
		OppDivision:   opp.Division,
		Points:        points,
		OppPoints:     oppPoints,
		IsHome:        isHome,
		Margin:        diff - edge,
		Win:           win,
		Loss:          1 - win,
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Filter returns the rows matching pred.
func (l Gamelog) Filter(pred func(GamelogEntry) bool) Gamelog {
	var out Gamelog
	for _, e := range l {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// ForTeams returns the rows whose Team is in names.
func (l Gamelog) ForTeams(names []string) Gamelog {
	set := NewSet(names)
	return l.Filter(func(e GamelogEntry) bool { return set[e.Team] })
}

// Teams returns the distinct teams present, sorted.
func (l Gamelog) Teams() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range l {
		if !seen[e.Team] {
			seen[e.Team] = true
			out = append(out, e.Team)
		}
	}
	sort.Strings(out)
	return out
}

// Records sums wins and losses per team over the rows present.
func (l Gamelog) Records() map[string]Record {
	out := make(map[string]Record)
	for _, e := range l {
		r := out[e.Team]
		r.Wins += e.Win
		r.Losses += e.Loss
		out[e.Team] = r
	}
	return out
}

func (l Gamelog) WinTotals() map[string]float64 {
	out := make(map[string]float64)
	for team, r := range l.Records() {
		out[team] = r.Wins
	}
	return out
}

// GamesPlayed counts rows per team.
func (l Gamelog) GamesPlayed() map[string]float64 {
	out := make(map[string]float64)
	for _, e := range l {
		out[e.Team]++
	}
	return out
}

// Set is a string membership set.
type Set map[string]bool

func NewSet(items []string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}
