package league_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gridiron-sim/internal/league"
	"github.com/stitts-dev/gridiron-sim/internal/league/leaguetest"
)

func TestBuildGamelog_DoublesEveryGame(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	games := leaguetest.PlayFirst(leaguetest.Schedule(), 224, rng)
	dir := leaguetest.Directory()

	log, err := league.BuildGamelog(games, dir, 3)
	require.NoError(t, err)
	assert.Len(t, log, 2*len(games))

	wins := make(map[string]float64)
	for _, g := range games {
		switch {
		case g.HomePoints > g.AwayPoints:
			wins[g.Home]++
		case g.HomePoints < g.AwayPoints:
			wins[g.Away]++
		default:
			wins[g.Home] += 0.5
			wins[g.Away] += 0.5
		}
	}
	totals := log.WinTotals()
	for _, name := range dir.Names() {
		assert.InDelta(t, wins[name], totals[name], 1e-9, name)
	}
}

func TestBuildGamelog_PerspectiveFields(t *testing.T) {
	dir := leaguetest.Directory()
	games := []league.GameRecord{
		{Home: "Buffalo Bills", Away: "Dallas Cowboys", HomePoints: 20, AwayPoints: 20, Played: true},
		{Home: "Buffalo Bills", Away: "Miami Dolphins", HomePoints: 27, AwayPoints: 10, Played: true},
	}

	log, err := league.BuildGamelog(games, dir, 3)
	require.NoError(t, err)
	require.Len(t, log, 4)

	tie := log[0]
	assert.Equal(t, 0.5, tie.Win)
	assert.Equal(t, 0.5, tie.Loss)
	assert.Equal(t, -3.0, tie.Margin)
	assert.False(t, tie.IsConferenceGame())

	away := log[3]
	assert.Equal(t, "Miami Dolphins", away.Team)
	assert.False(t, away.IsHome)
	assert.Equal(t, -14.0, away.Margin)
	assert.True(t, away.IsDivisionGame())
	assert.Equal(t, 1.5, away.OppWins)
	assert.Equal(t, 0.5, away.OppLosses)
	assert.Equal(t, 1.0, away.GamesPlayed)
}

func TestBuildGamelog_UnknownTeam(t *testing.T) {
	_, err := league.BuildGamelog([]league.GameRecord{{Home: "Nobody", Away: "Buffalo Bills"}}, leaguetest.Directory(), 0)
	assert.ErrorIs(t, err, league.ErrUnknownTeam)
}

func TestGroupBy(t *testing.T) {
	teams := leaguetest.Teams()

	byConf := league.ByConference(teams)
	assert.Len(t, byConf, 2)
	assert.Len(t, byConf["AFC"], 16)

	byDiv := league.ByDivision(teams)
	assert.Len(t, byDiv, 8)
	assert.Equal(t, []string{"Buffalo Bills", "Miami Dolphins", "New England Patriots", "New York Jets"},
		league.Names(byDiv[league.DivisionKey{Conference: "AFC", Division: "East"}]))
}

func TestNewDirectory_RejectsDuplicates(t *testing.T) {
	_, err := league.NewDirectory([]league.Team{{Name: "A"}, {Name: "A"}})
	assert.ErrorIs(t, err, league.ErrDuplicateTeam)
}

func TestComputeStandings(t *testing.T) {
	dir := leaguetest.Directory()
	games := []league.GameRecord{
		{Home: "Buffalo Bills", Away: "Miami Dolphins", HomePoints: 27, AwayPoints: 10, Played: true},
	}
	log, err := league.BuildGamelog(games, dir, 3)
	require.NoError(t, err)

	standings := league.ComputeStandings(log, dir, map[string]float64{"Buffalo Bills": 4.5})
	require.Len(t, standings, 32)
	assert.Equal(t, "Buffalo Bills", standings[0].Team)
	assert.Equal(t, 1.0, standings[0].Wins)
	assert.Equal(t, 4.5, standings[0].Rating)
	assert.Equal(t, 1.0, standings[0].Pct())
}

func TestSplitSchedule(t *testing.T) {
	games := leaguetest.PlayFirst(leaguetest.Schedule(), 100, rand.New(rand.NewSource(1)))
	played, unplayed := league.SplitSchedule(games)
	assert.Len(t, played, 100)
	assert.Len(t, unplayed, 124)
}
