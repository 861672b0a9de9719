package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/v2/vfs"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/portal-werewolf/werewolf/bot"
	"github.com/gosuda/portal-werewolf/werewolf/game"
	"github.com/gosuda/portal-werewolf/werewolf/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *game.Engine) {
	t.Helper()
	st, err := store.Open("werewolf", store.WithFS(vfs.NewMem()), store.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	engine := game.NewEngine(
		game.WithEventSink(st),
		game.WithRanker(st),
		game.WithArchive(st),
		game.WithDecider(bot.New(nil)),
		game.WithLogger(zerolog.Nop()),
		game.WithSeed(7),
	)
	hubs := NewHubManager(engine)
	t.Cleanup(hubs.Close)
	srv := httptest.NewServer(NewHTTPServer(engine, st, hubs).Router())
	t.Cleanup(srv.Close)
	return srv, engine
}

func do(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestCreateDefaultMatchStarts(t *testing.T) {
	srv, _ := newTestServer(t)

	var snap game.Snapshot
	status := do(t, http.MethodPost, srv.URL+"/api/matches", nil, &snap)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, game.PhaseNightWolf, snap.Phase)
	require.Len(t, snap.Seats, len(houseBots))
	assert.Equal(t, "Ash", snap.Seats[0].Name)

	var list struct {
		Matches []string `json:"matches"`
	}
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/matches", nil, &list))
	assert.Equal(t, []string{snap.ID}, list.Matches)

	var got game.Snapshot
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/matches/"+snap.ID, nil, &got))
	assert.Equal(t, snap.ID, got.ID)
}

func TestCreateMatchWithoutStart(t *testing.T) {
	srv, _ := newTestServer(t)
	start := false
	body := createMatchRequest{Players: humanRoster(6), Start: &start}

	var snap game.Snapshot
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api/matches", body, &snap))
	assert.Equal(t, game.PhaseWaiting, snap.Phase)

	var apiErr map[string]string
	status := do(t, http.MethodPost, srv.URL+"/api/matches", createMatchRequest{Players: humanRoster(2)}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, apiErr["error"], "invalid seat count")
}

func TestAutoRunsToCompletion(t *testing.T) {
	srv, _ := newTestServer(t)

	var snap game.Snapshot
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api/matches", nil, &snap))

	var res autoResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, srv.URL+"/api/matches/"+snap.ID+"/auto", nil, &res))
	assert.Equal(t, game.StatusEnded, res.Snapshot.Status)
	assert.NotEmpty(t, res.Snapshot.Winner)
	assert.LessOrEqual(t, res.Steps, maxAutoSteps)
	assert.Empty(t, res.Snapshot.Warnings)

	var apiErr map[string]string
	assert.Equal(t, http.StatusConflict, do(t, http.MethodPost, srv.URL+"/api/matches/"+snap.ID+"/advance", nil, &apiErr))

	var archived game.Snapshot
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/matches/"+snap.ID, nil, &archived))
	assert.Equal(t, res.Snapshot.Winner, archived.Winner)

	var evs struct {
		Events []game.Event `json:"events"`
	}
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/matches/"+snap.ID+"/events?kind=match_end", nil, &evs))
	require.Len(t, evs.Events, 1)
	assert.Equal(t, res.Snapshot.Winner, evs.Events[0].Team)

	var night struct {
		Events []game.Event `json:"events"`
	}
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/matches/"+snap.ID+"/events?kind=night_action", nil, &night))
	require.NotEmpty(t, night.Events)
	assert.NotEmpty(t, night.Events[0].Recipients)

	var ranking struct {
		Ranking []store.Standing `json:"ranking"`
	}
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/ranking?limit=3", nil, &ranking))
	assert.Len(t, ranking.Ranking, 3)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, srv.URL+"/api/ranking?limit=x", nil, nil))
}

func TestHumanActionsAndErrors(t *testing.T) {
	srv, engine := newTestServer(t)

	var snap game.Snapshot
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api/matches", createMatchRequest{Players: humanRoster(6)}, &snap))
	base := srv.URL + "/api/matches/" + snap.ID

	m, ok := engine.Store().Get(snap.ID)
	require.True(t, ok)
	var wolf, seer, villager int
	for _, p := range m.Players {
		switch p.Role {
		case game.RoleWolf:
			wolf = p.Seat
		case game.RoleSeer:
			seer = p.Seat
		case game.RoleVillager:
			villager = p.Seat
		}
	}

	var apiErr map[string]string
	status := do(t, http.MethodPost, base+"/night-actions", nightActionRequest{Seat: seer, Kind: game.ActionKill, Target: wolf}, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	var after game.Snapshot
	status = do(t, http.MethodPost, base+"/night-actions", nightActionRequest{Seat: wolf, Kind: game.ActionKill, Target: villager}, &after)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, game.PhaseNightWolf, after.Phase)

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/advance", nil, &after))
	require.Equal(t, game.PhaseNightSeer, after.Phase)
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/night-actions", nightActionRequest{Seat: seer, Kind: game.ActionInspect, Target: wolf}, nil))

	var insp struct {
		Inspections []game.Inspection `json:"inspections"`
	}
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, fmt.Sprintf("%s/inspections/%d", base, seer), nil, &insp))
	require.Len(t, insp.Inspections, 1)
	assert.Equal(t, game.TeamWolf, insp.Inspections[0].Team)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, http.MethodGet, fmt.Sprintf("%s/inspections/%d", base, wolf), nil, nil))

	status = do(t, http.MethodPost, base+"/votes", voteRequest{Seat: wolf, Target: villager}, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, apiErr["error"], "phase")

	status = do(t, http.MethodPost, base+"/speeches", speechRequest{Seat: 1, Text: "hi"}, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPost, srv.URL+"/api/matches/nope/advance", nil, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, base+"/votes", map[string]string{"bogus": "x"}, nil))
}

func TestEventsHidePrivateRecordsWhilePlaying(t *testing.T) {
	srv, engine := newTestServer(t)

	var snap game.Snapshot
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api/matches", createMatchRequest{Players: humanRoster(6)}, &snap))
	base := srv.URL + "/api/matches/" + snap.ID

	m, ok := engine.Store().Get(snap.ID)
	require.True(t, ok)
	var wolf, seer, villager int
	for _, p := range m.Players {
		switch p.Role {
		case game.RoleWolf:
			wolf = p.Seat
		case game.RoleSeer:
			seer = p.Seat
		case game.RoleVillager:
			villager = p.Seat
		}
	}

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/night-actions", nightActionRequest{Seat: wolf, Kind: game.ActionKill, Target: villager}, nil))
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/advance", nil, nil))
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/night-actions", nightActionRequest{Seat: seer, Kind: game.ActionInspect, Target: wolf}, nil))

	var evs struct {
		Events []game.Event `json:"events"`
	}
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, base+"/events", nil, &evs))
	require.NotEmpty(t, evs.Events)
	for _, ev := range evs.Events {
		assert.Empty(t, ev.Recipients, "event %d (%s) leaked", ev.Seq, ev.Kind)
		assert.NotEqual(t, game.EventInspection, ev.Kind)
	}

	var apiErr map[string]string
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+"/api/matches/nope/events", nil, &apiErr))
	assert.Contains(t, apiErr["error"], "not found")
}

func TestGameHistoryAndRoleRanking(t *testing.T) {
	srv, _ := newTestServer(t)

	var snap game.Snapshot
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api/matches", nil, &snap))
	var res autoResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, srv.URL+"/api/matches/"+snap.ID+"/auto", nil, &res))
	require.Equal(t, game.StatusEnded, res.Snapshot.Status)

	var history struct {
		Games []gameSummary `json:"games"`
	}
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/games", nil, &history))
	require.Len(t, history.Games, 1)
	got := history.Games[0]
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, res.Snapshot.Winner, got.Winner)
	assert.Equal(t, res.Snapshot.Day, got.Days)
	require.Len(t, got.Players, game.CanonicalSeats)
	for _, p := range got.Players {
		assert.True(t, p.Role.Valid(), "role of %s", p.Name)
	}
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, srv.URL+"/api/games?limit=-1", nil, nil))

	var all struct {
		Ranking []store.Standing `json:"ranking"`
		Filter  string           `json:"filter"`
	}
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/ranking", nil, &all))
	assert.Equal(t, "all", all.Filter)
	assert.Len(t, all.Ranking, game.CanonicalSeats)

	var wolves struct {
		Ranking []store.Standing `json:"ranking"`
		Filter  string           `json:"filter"`
	}
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/ranking?role=wolf", nil, &wolves))
	assert.Equal(t, "wolf", wolves.Filter)
	counts, err := game.RoleCounts(game.CanonicalSeats)
	require.NoError(t, err)
	require.Len(t, wolves.Ranking, counts[game.RoleWolf])
	for _, st := range wolves.Ranking {
		assert.Equal(t, 1, st.RoleGames)
		assert.Contains(t, st.Roles, game.RoleWolf)
	}

	var apiErr map[string]string
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, srv.URL+"/api/ranking?role=dragon", nil, &apiErr))
	assert.Contains(t, apiErr["error"], "unknown role")
}

func TestWebSocketReceivesSnapshots(t *testing.T) {
	srv, _ := newTestServer(t)

	var snap game.Snapshot
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api/matches", nil, &snap))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?match=" + snap.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev ServerEvent
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, eventSnapshot, ev.Type)
	assert.Equal(t, game.PhaseNightWolf, ev.Snapshot.Phase)

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, srv.URL+"/api/matches/"+snap.ID+"/advance", nil, nil))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, eventSnapshot, ev.Type)
	assert.Equal(t, game.PhaseNightSeer, ev.Snapshot.Phase)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: msgVote, Seat: 1, Target: 2}))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, eventError, ev.Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: msgSync}))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, eventSnapshot, ev.Type)
	assert.Equal(t, snap.ID, ev.Match)

	resp, err := http.Get(srv.URL + "/ws?match=nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDefaultRosterIsStable(t *testing.T) {
	a, b := defaultRoster(), defaultRoster()
	require.Len(t, a, game.CanonicalSeats)
	assert.Equal(t, a, b)
	for _, p := range a {
		assert.True(t, p.Automated)
		assert.True(t, strings.HasPrefix(p.ID, "bot-"))
	}
}

func TestRelayServers(t *testing.T) {
	assert.Equal(t, []string{"wss://a", "wss://b"}, relayServers([]string{" wss://a ", "", "wss://b"}))
	assert.Empty(t, relayServers(nil))
}

func humanRoster(n int) []game.Participant {
	out := make([]game.Participant, n)
	for i := range out {
		out[i] = game.Participant{ID: fmt.Sprintf("human-%d", i+1), Name: fmt.Sprintf("Human %d", i+1)}
	}
	return out
}
