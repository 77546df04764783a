package league

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownTeam   = errors.New("unknown team")
	ErrDuplicateTeam = errors.New("duplicate team")
)

// Team is a club in the league.
type Team struct {
	Name       string   `json:"name"`
	Conference string   `json:"conference"`
	Division   string   `json:"division"`
	Rating     *float64 `json:"rating,omitempty"`
	Seed       *int     `json:"seed,omitempty"`
}

// GameRecord is one scheduled game. Simulated records store win indicators
// (1, 0 or 0.5) in the points fields.
type GameRecord struct {
	Home       string  `json:"home"`
	Away       string  `json:"away"`
	HomePoints float64 `json:"home_points"`
	AwayPoints float64 `json:"away_points"`
	Played     bool    `json:"played"`
	Simulated  bool    `json:"simulated,omitempty"`
}

// DivisionKey identifies a division; division names are only unique within a conference.
type DivisionKey struct {
	Conference string
	Division   string
}

func (k DivisionKey) String() string {
	return k.Conference + " " + k.Division
}

func (t Team) DivisionKey() DivisionKey {
	return DivisionKey{Conference: t.Conference, Division: t.Division}
}

// Directory is a read-only lookup of team metadata by name.
type Directory struct {
	teams map[string]Team
	names []string
}

func NewDirectory(teams []Team) (Directory, error) {
	d := Directory{teams: make(map[string]Team, len(teams))}
	for _, t := range teams {
		if _, ok := d.teams[t.Name]; ok {
			return Directory{}, fmt.Errorf("%w: %s", ErrDuplicateTeam, t.Name)
		}
		d.teams[t.Name] = t
		d.names = append(d.names, t.Name)
	}
	sort.Strings(d.names)
	return d, nil
}

func (d Directory) Lookup(name string) (Team, bool) {
	t, ok := d.teams[name]
	return t, ok
}

// Names returns every team name in sorted order.
func (d Directory) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

func (d Directory) Teams() []Team {
	out := make([]Team, 0, len(d.names))
	for _, n := range d.names {
		out = append(out, d.teams[n])
	}
	return out
}

func (d Directory) Len() int {
	return len(d.names)
}

// Conferences returns the distinct conference names in sorted order.
func (d Directory) Conferences() []string {
	groups := ByConference(d.Teams())
	out := make([]string, 0, len(groups))
	for c := range groups {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// SplitSchedule separates played games from the games left to simulate.
func SplitSchedule(games []GameRecord) (played, unplayed []GameRecord) {
	for _, g := range games {
		if g.Played {
			played = append(played, g)
		} else {
			unplayed = append(unplayed, g)
		}
	}
	return played, unplayed
}
