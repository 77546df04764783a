package league

// GroupBy buckets teams by an arbitrary key, preserving input order inside each bucket.
func GroupBy[K comparable](teams []Team, key func(Team) K) map[K][]Team {
	groups := make(map[K][]Team)
	for _, t := range teams {
		k := key(t)
		groups[k] = append(groups[k], t)
	}
	return groups
}

func ByConference(teams []Team) map[string][]Team {
	return GroupBy(teams, func(t Team) string { return t.Conference })
}

func ByDivision(teams []Team) map[DivisionKey][]Team {
	return GroupBy(teams, Team.DivisionKey)
}

// Names extracts team names in order.
func Names(teams []Team) []string {
	out := make([]string, len(teams))
	for i, t := range teams {
		out[i] = t.Name
	}
	return out
}
