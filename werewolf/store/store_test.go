package store

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/v2/vfs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/portal-werewolf/werewolf/game"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := Open("werewolf", WithFS(vfs.NewMem()), WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEventsRoundTripInOrder(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()

	for seq := int64(1); seq <= 300; seq++ {
		ev := game.Event{Seq: seq, Kind: game.EventPhase, Day: int(seq / 100)}
		require.NoError(t, s.AppendEvent(ctx, "m1", ev))
	}
	require.NoError(t, s.AppendEvent(ctx, "m10", game.Event{Seq: 1, Kind: game.EventMatchStart}))

	evs, err := s.Events(ctx, "m1", EventFilter{})
	require.NoError(t, err)
	require.Len(t, evs, 300)
	for i, ev := range evs {
		assert.Equal(t, int64(i+1), ev.Seq)
	}

	other, err := s.Events(ctx, "m10", EventFilter{})
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, game.EventMatchStart, other[0].Kind)
}

func TestEventsFilter(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	require.NoError(t, s.AppendEvent(ctx, "m", game.Event{Seq: 1, Kind: game.EventPhase, Day: 0}))
	require.NoError(t, s.AppendEvent(ctx, "m", game.Event{Seq: 2, Kind: game.EventDeath, Day: 1, Seat: 3}))
	require.NoError(t, s.AppendEvent(ctx, "m", game.Event{Seq: 3, Kind: game.EventPhase, Day: 1}))

	day := 1
	evs, err := s.Events(ctx, "m", EventFilter{Day: &day})
	require.NoError(t, err)
	assert.Len(t, evs, 2)

	evs, err = s.Events(ctx, "m", EventFilter{Day: &day, Kind: game.EventDeath})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, 3, evs[0].Seat)
}

func TestFinalSnapshot(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()

	_, found, err := s.LoadFinal(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	snap := game.Snapshot{
		ID:        "m",
		Day:       3,
		Status:    game.StatusEnded,
		Winner:    game.TeamVillage,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveFinal(ctx, snap))
	got, found, err := s.LoadFinal(ctx, "m")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, game.TeamVillage, got.Winner)
	assert.Equal(t, 3, got.Day)
	assert.True(t, snap.CreatedAt.Equal(got.CreatedAt))
}

func TestRankingScores(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()

	first := []game.Outcome{
		{PlayerID: "a", Name: "Ann", Won: true, Survived: true},
		{PlayerID: "b", Name: "Bob", Won: true, Survived: false},
		{PlayerID: "c", Name: "Cid", Won: false, Survived: true},
	}
	second := []game.Outcome{
		{PlayerID: "a", Name: "Ann", Won: false, Survived: false},
		{PlayerID: "c", Name: "Cid", Won: true, Survived: true},
	}
	require.NoError(t, s.UpdateRankings(ctx, "m1", first))
	require.NoError(t, s.UpdateRankings(ctx, "m2", second))

	table, err := s.Ranking(ctx, 0, "")
	require.NoError(t, err)
	require.Len(t, table, 3)

	byID := make(map[string]Standing)
	for _, st := range table {
		byID[st.PlayerID] = st
	}
	assert.Equal(t, Standing{PlayerID: "a", Name: "Ann", Wins: 1, Losses: 1, Games: 2, Score: 1, Deaths: 1, WinRate: 50}, byID["a"])
	assert.Equal(t, Standing{PlayerID: "b", Name: "Bob", Wins: 1, Games: 1, Score: 1, Deaths: 1, WinRate: 100}, byID["b"])
	assert.Equal(t, Standing{PlayerID: "c", Name: "Cid", Wins: 1, Losses: 1, Games: 2, Score: 1, WinRate: 50}, byID["c"])

	// Equal score and wins: fewer games ranks first.
	assert.Equal(t, "b", table[0].PlayerID)

	top, err := s.Ranking(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestRankingByRole(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateRankings(ctx, "m1", []game.Outcome{
		{PlayerID: "a", Name: "Ann", Role: game.RoleWolf, Won: true, Survived: false},
		{PlayerID: "b", Name: "Bob", Role: game.RoleSeer, Won: false, Survived: false},
		{PlayerID: "c", Name: "Cid", Role: game.RoleVillager, Won: false, Survived: true},
	}))
	require.NoError(t, s.UpdateRankings(ctx, "m2", []game.Outcome{
		{PlayerID: "a", Name: "Ann", Role: game.RoleVillager, Won: true, Survived: true},
		{PlayerID: "b", Name: "Bob", Role: game.RoleWolf, Won: true, Survived: true},
		{PlayerID: "c", Name: "Cid", Role: game.RoleWolf, Won: true, Survived: false},
	}))

	wolves, err := s.Ranking(ctx, 0, game.RoleWolf)
	require.NoError(t, err)
	require.Len(t, wolves, 3)
	// Ann 2 wins (score 3) ranks above Bob (score 1) and Cid (score 0).
	assert.Equal(t, "a", wolves[0].PlayerID)
	assert.Equal(t, 1, wolves[0].RoleGames)
	assert.Equal(t, 1, wolves[0].Deaths)
	assert.Equal(t, float64(100), wolves[0].WinRate)
	assert.Equal(t, "b", wolves[1].PlayerID)
	assert.Equal(t, 0, wolves[1].Deaths)
	assert.Equal(t, float64(50), wolves[1].WinRate)

	seers, err := s.Ranking(ctx, 0, game.RoleSeer)
	require.NoError(t, err)
	require.Len(t, seers, 1)
	assert.Equal(t, "b", seers[0].PlayerID)
	assert.Equal(t, 1, seers[0].Deaths)

	hunters, err := s.Ranking(ctx, 0, game.RoleHunter)
	require.NoError(t, err)
	assert.Empty(t, hunters)

	all, err := s.Ranking(ctx, 0, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, RoleRecord{Games: 1, Wins: 1, Deaths: 1}, all[0].Roles[game.RoleWolf])
	assert.Zero(t, all[0].RoleGames)
}

func TestListFinalNewestFirst(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new", "mid"} {
		offset := map[string]time.Duration{"old": 0, "mid": time.Hour, "new": 2 * time.Hour}[id]
		require.NoError(t, s.SaveFinal(ctx, game.Snapshot{
			ID:        id,
			Day:       i + 1,
			Status:    game.StatusEnded,
			Winner:    game.TeamWolf,
			CreatedAt: base.Add(offset),
		}))
	}

	games, err := s.ListFinal(ctx, 0)
	require.NoError(t, err)
	require.Len(t, games, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{games[0].ID, games[1].ID, games[2].ID})

	top, err := s.ListFinal(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
	assert.Equal(t, "new", top[0].ID)
}

func TestCancelledContext(t *testing.T) {
	s := openMem(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.AppendEvent(ctx, "m", game.Event{Seq: 1}), context.Canceled)
}

func TestEngineWithStore(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	e := game.NewEngine(
		game.WithEventSink(s),
		game.WithRanker(s),
		game.WithArchive(s),
		game.WithDecider(autoDecider{}),
		game.WithLogger(zerolog.Nop()),
		game.WithSeed(11),
	)

	roster := make([]game.Participant, 8)
	for i := range roster {
		roster[i] = game.Participant{ID: string(rune('a' + i)), Automated: true}
	}
	snap, err := e.CreateMatch(ctx, roster)
	require.NoError(t, err)
	id := snap.ID

	for i := 0; i < 100 && snap.Status != game.StatusEnded; i++ {
		snap, err = e.Advance(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, snap.Warnings)
	}
	require.Equal(t, game.StatusEnded, snap.Status)

	archived, err := e.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, snap.Winner, archived.Winner)

	evs, err := s.Events(ctx, id, EventFilter{Kind: game.EventMatchEnd})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, snap.Winner, evs[0].Team)

	table, err := s.Ranking(ctx, 0, "")
	require.NoError(t, err)
	assert.Len(t, table, len(roster))

	games, err := s.ListFinal(ctx, 0)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, id, games[0].ID)
}

// autoDecider votes for the lowest other living seat and never acts at night.
type autoDecider struct{}

func (autoDecider) DecideNightAction(game.View, game.ActionKind) (int, bool) { return 0, false }
func (autoDecider) DescribeSpeech(game.View) string                          { return "..." }
func (autoDecider) DecideVote(v game.View) (int, bool) {
	for _, ref := range v.Living {
		if ref.Seat != v.Self.Seat {
			return ref.Seat, true
		}
	}
	return 0, false
}
