package league

import "sort"

// Standing is a team's regular-season line.
type Standing struct {
	Team       string  `json:"team"`
	Conference string  `json:"conference"`
	Division   string  `json:"division"`
	Wins       float64 `json:"wins"`
	Losses     float64 `json:"losses"`
	Rating     float64 `json:"rating"`
}

func (s Standing) Pct() float64 {
	return Record{Wins: s.Wins, Losses: s.Losses}.Pct()
}

// ComputeStandings totals the gamelog per team. Teams without games are listed with an empty record.
func ComputeStandings(log Gamelog, dir Directory, ratings map[string]float64) []Standing {
	records := log.Records()
	out := make([]Standing, 0, dir.Len())
	for _, t := range dir.Teams() {
		r := records[t.Name]
		out = append(out, Standing{
			Team:       t.Name,
			Conference: t.Conference,
			Division:   t.Division,
			Wins:       r.Wins,
			Losses:     r.Losses,
			Rating:     ratings[t.Name],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Conference != b.Conference {
			return a.Conference < b.Conference
		}
		if a.Division != b.Division {
			return a.Division < b.Division
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.Team < b.Team
	})
	return out
}
