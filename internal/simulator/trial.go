package simulator

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/stitts-dev/gridiron-sim/internal/bracket"
	"github.com/stitts-dev/gridiron-sim/internal/league"
	"github.com/stitts-dev/gridiron-sim/internal/outcome"
	"github.com/stitts-dev/gridiron-sim/internal/ratings"
	"github.com/stitts-dev/gridiron-sim/internal/season"
	"github.com/stitts-dev/gridiron-sim/internal/tiebreak"
)

const (
	LeagueConference  = "League"
	RoundFinal        = "Final"
	RoundChampionship = "Championship"
	RoundDivisional   = "Divisional"
	RoundWildCard     = "Wild Card"
)

// Input is the canonical league state shared read-only by every trial.
type Input struct {
	Teams     []league.Team
	Played    []league.GameRecord
	Unplayed  []league.GameRecord
	Composite *ratings.Composite
}

// PlayoffGame is one decided postseason matchup.
type PlayoffGame struct {
	Conference string `json:"conference"`
	Round      string `json:"round"`
	Game       int    `json:"game"`
	Home       string `json:"home"`
	Away       string `json:"away"`
	Winner     string `json:"winner"`
	Loser      string `json:"loser"`
	Length     int    `json:"length"`
}

// Trial is one realization of the remaining season and postseason.
type Trial struct {
	Index    int                `json:"index"`
	Ratings  map[string]float64 `json:"ratings"`
	Season   *season.Season     `json:"season"`
	Seeding  tiebreak.SeedSet   `json:"seeding"`
	Playoffs []PlayoffGame      `json:"playoffs"`
	Champion string             `json:"champion"`
}

// TrialError is a failure scoped to a single trial.
type TrialError struct {
	Index int
	Err   error
}

func (e TrialError) Error() string {
	return fmt.Sprintf("trial %d: %v", e.Index, e.Err)
}

func (e TrialError) Unwrap() error { return e.Err }

// pipeline holds the per-run state derived once from Input.
type pipeline struct {
	cfg    Config
	input  Input
	dir    league.Directory
	model  outcome.Model
	season season.Simulator
}

func newPipeline(cfg Config, input Input) (*pipeline, error) {
	if len(input.Teams) == 0 {
		return nil, fmt.Errorf("%w: no teams", ErrInvalidInput)
	}
	if input.Composite == nil {
		return nil, fmt.Errorf("%w: no composite rating", ErrInvalidInput)
	}
	dir, err := league.NewDirectory(input.Teams)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	for _, name := range dir.Names() {
		if _, ok := input.Composite.Ratings[name]; !ok {
			return nil, fmt.Errorf("%w: no composite rating for %s", ErrInvalidInput, name)
		}
	}
	model := outcome.Model{HomeAdvantage: cfg.HomeAdvantage, StdDev: cfg.OutcomeSD}
	return &pipeline{
		cfg:    cfg,
		input:  input,
		dir:    dir,
		model:  model,
		season: season.Simulator{Model: model, TieFraction: cfg.TieFraction},
	}, nil
}

// run plays one full trial. Rating noise is drawn once and reused for every game.
func (p *pipeline) run(index int, rng *rand.Rand) (*Trial, error) {
	noised := p.input.Composite.Noised(rng, p.cfg.RankNoiseSD)

	s, err := p.season.Play(rng, p.input.Played, p.input.Unplayed, noised, p.dir)
	if err != nil {
		return nil, fmt.Errorf("regular season: %w", err)
	}

	resolver := tiebreak.NewResolver(s.Gamelog, p.dir, rng)
	resolver.Wildcards = p.cfg.Wildcards
	seeds, err := resolver.Seeding()
	if err != nil {
		return nil, fmt.Errorf("seeding: %w", err)
	}

	trial := &Trial{Index: index, Ratings: noised, Season: s, Seeding: seeds}
	var champions []bracket.Entrant
	for _, conf := range sortedConferences(seeds) {
		entrants := make([]bracket.Entrant, 0, len(seeds[conf]))
		for _, sd := range seeds[conf] {
			entrants = append(entrants, bracket.Entrant{Team: sd.Team, Seed: sd.Number, Rating: noised[sd.Team]})
		}
		res, err := bracket.Simulate(rng, entrants, bracket.Config{Model: p.model, HomeGames: p.cfg.SeriesHomeGames})
		if err != nil {
			return nil, fmt.Errorf("%s playoffs: %w", conf, err)
		}
		trial.Playoffs = append(trial.Playoffs, playoffGames(conf, res, conferenceRound)...)
		champions = append(champions, res.Winners...)
	}

	switch len(champions) {
	case 0:
	case 1:
		trial.Champion = champions[0].Team
	default:
		res, err := bracket.Simulate(rng, champions, bracket.Config{Model: p.model.Neutral(), HomeGames: p.cfg.SeriesHomeGames})
		if err != nil {
			return nil, fmt.Errorf("league final: %w", err)
		}
		trial.Playoffs = append(trial.Playoffs, playoffGames(LeagueConference, res, leagueRound)...)
		trial.Champion = res.Winners[0].Team
	}
	return trial, nil
}

func playoffGames(conf string, res *bracket.Result, name func(fromFinal, round int) string) []PlayoffGame {
	rounds := res.Rounds()
	out := make([]PlayoffGame, 0, len(res.Games))
	for _, g := range res.Games {
		out = append(out, PlayoffGame{
			Conference: conf,
			Round:      name(rounds-g.Round, g.Round),
			Game:       g.Number,
			Home:       g.Home,
			Away:       g.Away,
			Winner:     g.Winner,
			Loser:      g.Loser,
			Length:     g.Length,
		})
	}
	return out
}

// conferenceRound names rounds counted back from the conference final.
func conferenceRound(fromFinal, round int) string {
	switch fromFinal {
	case 0:
		return RoundChampionship
	case 1:
		return RoundDivisional
	case 2:
		return RoundWildCard
	}
	return fmt.Sprintf("Round %d", round)
}

func leagueRound(fromFinal, round int) string {
	if fromFinal == 0 {
		return RoundFinal
	}
	return fmt.Sprintf("Round %d", round)
}

func sortedConferences(seeds tiebreak.SeedSet) []string {
	out := make([]string, 0, len(seeds))
	for conf := range seeds {
		out = append(out, conf)
	}
	sort.Strings(out)
	return out
}
