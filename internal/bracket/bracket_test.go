package bracket

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gridiron-sim/internal/outcome"
)

var model = outcome.Model{HomeAdvantage: 3, StdDev: 13}

func field(n int) []Entrant {
	out := make([]Entrant, n)
	for i := range out {
		out[i] = Entrant{Team: fmt.Sprintf("team-%02d", i+1), Seed: i + 1, Rating: float64(n - i)}
	}
	return out
}

func TestSimulate_GameCount(t *testing.T) {
	for _, n := range []int{1, 2, 4, 5, 6, 7, 8, 12, 16} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(n)))
			res, err := Simulate(rng, field(n), Config{Model: model})
			require.NoError(t, err)
			assert.Len(t, res.Games, n-1)
			require.Len(t, res.Winners, 1)

			losers := map[string]bool{}
			for i, g := range res.Games {
				assert.Equal(t, i+1, g.ID)
				assert.Equal(t, 1, g.Length)
				assert.False(t, losers[g.Loser], "%s eliminated twice", g.Loser)
				losers[g.Loser] = true
			}
			assert.False(t, losers[res.Winners[0].Team])
		})
	}
}

func TestSimulate_MultipleWinners(t *testing.T) {
	for _, tc := range []struct{ n, winners int }{{12, 2}, {7, 2}, {6, 3}, {4, 4}} {
		res, err := Simulate(rand.New(rand.NewSource(1)), field(tc.n), Config{Model: model, Winners: tc.winners})
		require.NoError(t, err)
		assert.Len(t, res.Games, tc.n-tc.winners)
		assert.Len(t, res.Winners, tc.winners)
	}
}

func TestSimulate_ByesAndHosting(t *testing.T) {
	res, err := Simulate(rand.New(rand.NewSource(3)), field(6), Config{Model: model})
	require.NoError(t, err)
	require.Len(t, res.Games, 5)
	assert.Equal(t, 3, res.Rounds())

	first := res.Games[:2]
	for _, g := range first {
		assert.Equal(t, 1, g.Round)
		assert.NotContains(t, []string{g.Home, g.Away}, "team-01")
		assert.NotContains(t, []string{g.Home, g.Away}, "team-02")
	}
	assert.Equal(t, "team-03", first[0].Home)
	assert.Equal(t, "team-06", first[0].Away)
	assert.Equal(t, "team-04", first[1].Home)
	assert.Equal(t, "team-05", first[1].Away)
	assert.Equal(t, "team-01", res.Games[2].Home)
	assert.Equal(t, 2, res.Games[3].Number)
	assert.Equal(t, 3, res.Games[4].Round)
}

func TestSimulate_SeriesLength(t *testing.T) {
	cfg := Config{Model: model, HomeGames: []bool{true, true, false, false, true, false, true}}
	rng := rand.New(rand.NewSource(8))
	for i := 0; i < 200; i++ {
		res, err := Simulate(rng, field(2), cfg)
		require.NoError(t, err)
		require.Len(t, res.Games, 1)
		assert.GreaterOrEqual(t, res.Games[0].Length, 4)
		assert.LessOrEqual(t, res.Games[0].Length, 7)
	}
}

func TestSimulate_FavouriteWinsMoreOften(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	entrants := []Entrant{{Team: "strong", Seed: 1, Rating: 10}, {Team: "weak", Seed: 2, Rating: 0}}
	wins := 0
	for i := 0; i < 20000; i++ {
		res, err := Simulate(rng, entrants, Config{Model: model})
		require.NoError(t, err)
		if res.Winners[0].Team == "strong" {
			wins++
		}
	}
	assert.InDelta(t, model.WinProbability(10, 0), float64(wins)/20000, 0.015)
}

func TestSimulate_Errors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tests := []struct {
		name     string
		entrants []Entrant
		cfg      Config
	}{
		{"no entrants", nil, Config{Model: model}},
		{"too many winners", field(2), Config{Model: model, Winners: 3}},
		{"negative winners", field(2), Config{Model: model, Winners: -1}},
		{"even series", field(2), Config{Model: model, HomeGames: []bool{true, false}}},
		{"bad model", field(2), Config{Model: outcome.Model{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Simulate(rng, tt.entrants, tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidBracket)
		})
	}
}

func TestSize(t *testing.T) {
	assert.Equal(t, 8, Size(6, 1))
	assert.Equal(t, 8, Size(7, 1))
	assert.Equal(t, 16, Size(12, 1))
	assert.Equal(t, 8, Size(7, 2))
	assert.Equal(t, 1, Size(1, 1))
}
