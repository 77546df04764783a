package tiebreak

import (
	"math/rand"
	"sort"

	"github.com/stitts-dev/gridiron-sim/internal/league"
)

// Resolver breaks ties within one trial's completed season.
type Resolver struct {
	log league.Gamelog
	dir league.Directory
	rng *rand.Rand

	// Wildcards is the number of non-division-winner seeds per conference.
	Wildcards int
}

func NewResolver(log league.Gamelog, dir league.Directory, rng *rand.Rand) *Resolver {
	return &Resolver{log: log, dir: dir, rng: rng, Wildcards: DefaultWildcards}
}

// BreakDivisionalTie picks one team from a tied group using divisional rules.
func (r *Resolver) BreakDivisionalTie(teams []string) string {
	switch len(teams) {
	case 0:
		return ""
	case 1:
		return teams[0]
	}
	return r.breakTies(Divisional, teams)
}

// BreakWildcardTie picks one team from a tied group that may span divisions. Each
// division is first reduced to its best team, then the survivors are compared.
func (r *Resolver) BreakWildcardTie(teams []string) string {
	groups := r.byDivision(teams)
	if len(groups) <= 1 {
		return r.BreakDivisionalTie(teams)
	}
	reps := make([]string, 0, len(groups))
	for _, key := range sortedDivisions(groups) {
		reps = append(reps, r.BreakDivisionalTie(groups[key]))
	}
	return r.breakTies(Wildcard, reps)
}

// Break dispatches to the tie procedure for ctx.
func (r *Resolver) Break(ctx Context, teams []string) string {
	if ctx == Wildcard {
		return r.BreakWildcardTie(teams)
	}
	return r.BreakDivisionalTie(teams)
}

// breakTies applies the context's rules in order. Whenever a rule narrows a larger
// group to two teams, resolution restarts on that pair from the first rule.
func (r *Resolver) breakTies(ctx Context, group []string) string {
	remainder := sorted(group)
	for _, rule := range ctx.Rules() {
		if filtered := rule.Filter(r.log, remainder); len(filtered) > 0 {
			remainder = rule.Resolve(filtered)
		}
		switch {
		case len(remainder) == 1:
			return remainder[0]
		case len(remainder) == 2 && len(group) != 2:
			return r.Break(ctx, remainder)
		}
	}
	return remainder[r.rng.Intn(len(remainder))]
}

func (r *Resolver) byDivision(teams []string) map[league.DivisionKey][]string {
	out := make(map[league.DivisionKey][]string)
	for _, name := range teams {
		t, _ := r.dir.Lookup(name)
		out[t.DivisionKey()] = append(out[t.DivisionKey()], name)
	}
	return out
}

func sortedDivisions[V any](m map[league.DivisionKey]V) []league.DivisionKey {
	keys := make([]league.DivisionKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func sorted(teams []string) []string {
	out := append([]string(nil), teams...)
	sort.Strings(out)
	return out
}
