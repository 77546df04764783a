// Package bracket simulates single-elimination playoffs with byes and optional series.
package bracket

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/stitts-dev/gridiron-sim/internal/outcome"
)

var ErrInvalidBracket = errors.New("invalid bracket")

// Entrant is a seeded playoff team. Lower seeds are better.
type Entrant struct {
	Team   string  `json:"team"`
	Seed   int     `json:"seed"`
	Rating float64 `json:"rating"`
}

// Config controls a bracket run. HomeGames switches matchups to best-of-N series,
// where entry i is true when the higher seed hosts game i.
type Config struct {
	Model     outcome.Model
	Winners   int
	HomeGames []bool
}

// Game is one decided matchup.
type Game struct {
	ID     int    `json:"id"`
	Round  int    `json:"round"`
	Number int    `json:"number"`
	Home   string `json:"home"`
	Away   string `json:"away"`
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
	Length int    `json:"length"`
}

// Result is a completed bracket.
type Result struct {
	Games   []Game    `json:"games"`
	Winners []Entrant `json:"winners"`
}

// Rounds returns the number of rounds played.
func (r *Result) Rounds() int {
	if len(r.Games) == 0 {
		return 0
	}
	return r.Games[len(r.Games)-1].Round
}

// Simulate plays the field down to cfg.Winners teams. The bracket is padded with
// byes for the top seeds so that every round halves the field.
func Simulate(rng *rand.Rand, entrants []Entrant, cfg Config) (*Result, error) {
	if cfg.Winners == 0 {
		cfg.Winners = 1
	}
	if err := cfg.validate(len(entrants)); err != nil {
		return nil, err
	}

	field := append([]Entrant(nil), entrants...)
	sortBySeed(field)

	b := &bracket{rng: rng, cfg: cfg}
	winners := b.play(field, cfg.Winners)
	return &Result{Games: b.games, Winners: winners}, nil
}

func (c Config) validate(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: no entrants", ErrInvalidBracket)
	}
	if c.Winners < 1 || c.Winners > n {
		return fmt.Errorf("%w: cannot return %d winners from %d entrants", ErrInvalidBracket, c.Winners, n)
	}
	if len(c.HomeGames)%2 == 0 && len(c.HomeGames) > 0 {
		return fmt.Errorf("%w: series length %d has no strict majority", ErrInvalidBracket, len(c.HomeGames))
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBracket, err)
	}
	return nil
}

type bracket struct {
	rng   *rand.Rand
	cfg   Config
	games []Game
	round int
}

// Size is the smallest winners * 2^k that holds n teams.
func Size(n, winners int) int {
	size := winners
	for size < n {
		size *= 2
	}
	return size
}

func (b *bracket) play(field []Entrant, winners int) []Entrant {
	n := len(field)
	if n <= winners {
		return field
	}

	advancing := field
	if byes := Size(n, winners) - n; byes > 0 {
		sub := b.play(field[byes:], (n-byes)/2)
		advancing = append(append([]Entrant(nil), field[:byes]...), sub...)
		sortBySeed(advancing)
	}

	for len(advancing) > winners {
		b.round++
		half := len(advancing) / 2
		next := make([]Entrant, 0, half)
		for i := 0; i < half; i++ {
			hi, lo := advancing[i], advancing[len(advancing)-1-i]
			winner, length := b.matchup(hi, lo)
			loser := lo
			if winner.Team == lo.Team {
				loser = hi
			}
			b.games = append(b.games, Game{
				ID:     len(b.games) + 1,
				Round:  b.round,
				Number: i + 1,
				Home:   hi.Team,
				Away:   lo.Team,
				Winner: winner.Team,
				Loser:  loser.Team,
				Length: length,
			})
			next = append(next, winner)
		}
		sortBySeed(next)
		advancing = next
	}
	return advancing
}

// matchup decides hi against lo, where hi is the higher seed.
func (b *bracket) matchup(hi, lo Entrant) (Entrant, int) {
	if len(b.cfg.HomeGames) == 0 {
		if b.cfg.Model.Elimination(b.rng, hi.Rating, lo.Rating) == outcome.HomeWin {
			return hi, 1
		}
		return lo, 1
	}

	need := len(b.cfg.HomeGames)/2 + 1
	hiWins, loWins := 0, 0
	for i, hiHome := range b.cfg.HomeGames {
		var hiWon bool
		if hiHome {
			hiWon = b.cfg.Model.Elimination(b.rng, hi.Rating, lo.Rating) == outcome.HomeWin
		} else {
			hiWon = b.cfg.Model.Elimination(b.rng, lo.Rating, hi.Rating) == outcome.AwayWin
		}
		if hiWon {
			hiWins++
		} else {
			loWins++
		}
		switch {
		case hiWins == need:
			return hi, i + 1
		case loWins == need:
			return lo, i + 1
		}
	}
	// unreachable for odd series lengths
	return hi, len(b.cfg.HomeGames)
}

func sortBySeed(field []Entrant) {
	sort.SliceStable(field, func(i, j int) bool { return field[i].Seed < field[j].Seed })
}
