// Package tiebreak resolves tied standings and assigns playoff seeds.
package tiebreak

import (
	"sort"

	"github.com/stitts-dev/gridiron-sim/internal/league"
)

// Context selects the rule table used to break a tie.
type Context int

const (
	Divisional Context = iota
	Wildcard
)

func (c Context) String() string {
	if c == Wildcard {
		return "wildcard"
	}
	return "divisional"
}

// Filter restricts a gamelog to the rows relevant to the tied teams.
type Filter func(log league.Gamelog, teams []string) league.Gamelog

// Resolve returns the teams that survive a comparison over filtered rows.
type Resolve func(filtered league.Gamelog) []string

// Rule is one ordered tiebreak step.
type Rule struct {
	Name    string
	Filter  Filter
	Resolve Resolve
}

var divisionalRules = []Rule{
	{Name: "head-to-head", Filter: headToHead, Resolve: winPercentage},
	{Name: "division record", Filter: divisionGames, Resolve: winPercentage},
	{Name: "common games", Filter: commonGames(1), Resolve: winPercentage},
	{Name: "conference record", Filter: conferenceGames, Resolve: winPercentage},
	{Name: "strength of victory", Filter: gamesWon, Resolve: scheduleStrength},
	{Name: "strength of schedule", Filter: allGames, Resolve: scheduleStrength},
}

var wildcardRules = []Rule{
	{Name: "head-to-head sweep", Filter: roundRobin, Resolve: headToHeadSweep},
	{Name: "conference record", Filter: conferenceGames, Resolve: winPercentage},
	{Name: "common games", Filter: commonGames(4), Resolve: winPercentage},
	{Name: "strength of victory", Filter: gamesWon, Resolve: scheduleStrength},
	{Name: "strength of schedule", Filter: allGames, Resolve: scheduleStrength},
}

// Rules returns the ordered rule table for the context.
func (c Context) Rules() []Rule {
	if c == Wildcard {
		return wildcardRules
	}
	return divisionalRules
}

func allGames(log league.Gamelog, teams []string) league.Gamelog {
	return log.ForTeams(teams)
}

func headToHead(log league.Gamelog, teams []string) league.Gamelog {
	set := league.NewSet(teams)
	return log.Filter(func(e league.GamelogEntry) bool { return set[e.Team] && set[e.Opponent] })
}

// roundRobin keeps head-to-head rows only when every tied team has met every other.
func roundRobin(log league.Gamelog, teams []string) league.Gamelog {
	rows := headToHead(log, teams)
	pairs := make(map[[2]string]bool)
	for _, e := range rows {
		pairs[[2]string{e.Team, e.Opponent}] = true
	}
	if len(pairs) != len(teams)*(len(teams)-1) {
		return nil
	}
	return rows
}

func divisionGames(log league.Gamelog, teams []string) league.Gamelog {
	set := league.NewSet(teams)
	return log.Filter(func(e league.GamelogEntry) bool { return set[e.Team] && e.IsDivisionGame() })
}

func conferenceGames(log league.Gamelog, teams []string) league.Gamelog {
	set := league.NewSet(teams)
	return log.Filter(func(e league.GamelogEntry) bool { return set[e.Team] && e.IsConferenceGame() })
}

func gamesWon(log league.Gamelog, teams []string) league.Gamelog {
	set := league.NewSet(teams)
	return log.Filter(func(e league.GamelogEntry) bool { return set[e.Team] && e.Win == 1 })
}

// commonGames keeps games against opponents every tied team has played, when there are at least min of them.
func commonGames(min int) Filter {
	return func(log league.Gamelog, teams []string) league.Gamelog {
		common := commonOpponents(log, teams)
		if len(common) < min {
			return nil
		}
		set := league.NewSet(teams)
		return log.Filter(func(e league.GamelogEntry) bool { return set[e.Team] && common[e.Opponent] })
	}
}

// commonOpponents intersects the opponent sets of the tied teams that appear in log.
func commonOpponents(log league.Gamelog, teams []string) league.Set {
	tied := league.NewSet(teams)
	opponents := make(map[string]league.Set, len(teams))
	for _, e := range log {
		if !tied[e.Team] {
			continue
		}
		if opponents[e.Team] == nil {
			opponents[e.Team] = league.Set{}
		}
		opponents[e.Team][e.Opponent] = true
	}
	var common league.Set
	for _, t := range teams {
		opps, ok := opponents[t]
		if !ok {
			continue
		}
		if common == nil {
			common = opps
			continue
		}
		next := league.Set{}
		for opp := range common {
			if opps[opp] {
				next[opp] = true
			}
		}
		common = next
	}
	return common
}

func winPercentage(filtered league.Gamelog) []string {
	return keepMax(filtered.Records())
}

// scheduleStrength compares the combined record of each team's distinct opponents
// over the filtered games. An opponent met twice counts once.
func scheduleStrength(filtered league.Gamelog) []string {
	type pairing struct{ team, opponent string }
	seen := make(map[pairing]bool, len(filtered))
	records := make(map[string]league.Record)
	for _, e := range filtered {
		key := pairing{e.Team, e.Opponent}
		if seen[key] {
			continue
		}
		seen[key] = true
		r := records[e.Team]
		r.Wins += e.OppWins
		r.Losses += e.OppLosses
		records[e.Team] = r
	}
	return keepMax(records)
}

// headToHeadSweep advances a team that beat every other tied team, or drops one
// that lost to all of them. Two-team groups compare plain head-to-head record.
func headToHeadSweep(filtered league.Gamelog) []string {
	teams := filtered.Teams()
	if len(teams) == 2 {
		return winPercentage(filtered)
	}
	records := filtered.Records()
	var undefeated, survivors []string
	for _, t := range teams {
		r := records[t]
		if r.Losses == 0 {
			undefeated = append(undefeated, t)
		}
		if r.Wins > 0 {
			survivors = append(survivors, t)
		}
	}
	switch {
	case len(undefeated) > 0:
		return undefeated
	case len(survivors) > 0:
		return survivors
	}
	return teams
}

func keepMax(records map[string]league.Record) []string {
	best := -1.0
	var out []string
	for team, r := range records {
		pct := r.Pct()
		switch {
		case pct > best:
			best = pct
			out = []string{team}
		case pct == best:
			out = append(out, team)
		}
	}
	sort.Strings(out)
	return out
}
