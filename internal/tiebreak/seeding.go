package tiebreak

import (
	"errors"
	"fmt"
	"sort"

	"github.com/stitts-dev/gridiron-sim/internal/league"
)

const (
	DivisionsPerConference = 4
	DefaultWildcards       = 2
)

var ErrInvalidLeague = errors.New("invalid league structure")

// Seed is a playoff position within a conference.
type Seed struct {
	Number int    `json:"seed"`
	Team   string `json:"team"`
}

// SeedSet maps conference to its seeds in order.
type SeedSet map[string][]Seed

// Of reports the conference and seed held by team.
func (s SeedSet) Of(team string) (conference string, seed int, ok bool) {
	for conf, seeds := range s {
		for _, sd := range seeds {
			if sd.Team == team {
				return conf, sd.Number, true
			}
		}
	}
	return "", 0, false
}

// Teams returns the conference's seeded teams, best seed first.
func (s SeedSet) Teams(conference string) []string {
	out := make([]string, 0, len(s[conference]))
	for _, sd := range s[conference] {
		out = append(out, sd.Team)
	}
	return out
}

// Seeding assigns division-winner seeds followed by wildcard seeds in every conference.
func (r *Resolver) Seeding() (SeedSet, error) {
	wildcards := r.Wildcards
	if wildcards < 0 {
		return nil, fmt.Errorf("%w: negative wildcard count", ErrInvalidLeague)
	}
	records := r.log.Records()
	out := make(SeedSet)

	byConf := league.ByConference(r.dir.Teams())
	for _, conf := range r.dir.Conferences() {
		teams := byConf[conf]
		divisions := league.ByDivision(teams)
		if len(divisions) != DivisionsPerConference {
			return nil, fmt.Errorf("%w: %s has %d divisions", ErrInvalidLeague, conf, len(divisions))
		}
		if len(teams) < DivisionsPerConference+wildcards {
			return nil, fmt.Errorf("%w: %s has %d teams", ErrInvalidLeague, conf, len(teams))
		}

		winners := make([]string, 0, len(divisions))
		for _, key := range sortedDivisions(divisions) {
			members := league.Names(divisions[key])
			winners = append(winners, r.BreakDivisionalTie(leaders(members, records)))
		}
		won := league.NewSet(winners)
		var pool []string
		for _, t := range teams {
			if !won[t.Name] {
				pool = append(pool, t.Name)
			}
		}

		seeds := r.rank(winners, 1, len(winners), records)
		seeds = append(seeds, r.rank(pool, len(winners)+1, wildcards, records)...)
		out[conf] = seeds
	}
	return out, nil
}

// rank orders the best count teams by win percentage, breaking ties at each seed boundary.
func (r *Resolver) rank(teams []string, first, count int, records map[string]league.Record) []Seed {
	ranks := minRank(teams, records)
	seeded := make(league.Set, count)
	out := make([]Seed, 0, count)
	for i := 0; i < count; i++ {
		var candidates []string
		for _, t := range sorted(teams) {
			if ranks[t] <= i+1 && !seeded[t] {
				candidates = append(candidates, t)
			}
		}
		winner := r.BreakWildcardTie(candidates)
		seeded[winner] = true
		out = append(out, Seed{Number: first + i, Team: winner})
	}
	return out
}

// leaders returns the teams sharing the best win percentage.
func leaders(teams []string, records map[string]league.Record) []string {
	best := -1.0
	var out []string
	for _, t := range teams {
		pct := records[t].Pct()
		switch {
		case pct > best:
			best = pct
			out = []string{t}
		case pct == best:
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// minRank is 1 plus the number of teams with a strictly better win percentage.
func minRank(teams []string, records map[string]league.Record) map[string]int {
	out := make(map[string]int, len(teams))
	for _, t := range teams {
		rank := 1
		for _, o := range teams {
			if records[o].Pct() > records[t].Pct() {
				rank++
			}
		}
		out[t] = rank
	}
	return out
}
