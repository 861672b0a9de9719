package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/portal-werewolf/werewolf/game"
	"github.com/gosuda/portal-werewolf/werewolf/store"
)

const (
	maxAutoSteps       = 100
	defaultRankingSize = 20
	defaultHistorySize = 50
	maxBodyBytes       = 1 << 16
)

// records is the persisted read side served by the API.
type records interface {
	Events(ctx context.Context, matchID string, filter store.EventFilter) ([]game.Event, error)
	Ranking(ctx context.Context, limit int, role game.Role) ([]store.Standing, error)
	ListFinal(ctx context.Context, limit int) ([]game.Snapshot, error)
}

// HTTPServer wires HTTP routes to the engine and the websocket hubs.
type HTTPServer struct {
	engine   *game.Engine
	records  records
	hubs     *HubManager
	upgrader websocket.Upgrader
}

func NewHTTPServer(engine *game.Engine, recs records, hubs *HubManager) *HTTPServer {
	return &HTTPServer{
		engine:  engine,
		records: recs,
		hubs:    hubs,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router exposes the handler used for both the relay and the optional local port.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/ranking", s.handleRanking)
		r.Get("/games", s.handleGames)
		r.Get("/matches", s.handleListMatches)
		r.Post("/matches", s.handleCreateMatch)
		r.Route("/matches/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetMatch)
			r.Post("/advance", s.handleAdvance)
			r.Post("/auto", s.handleAuto)
			r.Post("/night-actions", s.handleNightAction)
			r.Post("/votes", s.handleVote)
			r.Post("/speeches", s.handleSpeech)
			r.Get("/inspections/{seat}", s.handleInspections)
			r.Get("/events", s.handleEvents)
		})
	})

	r.Get("/ws", s.handleWebSocket)
	return r
}

func (s *HTTPServer) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	players := req.Players
	if len(players) == 0 {
		players = defaultRoster()
	}

	snap, err := s.engine.CreateMatch(r.Context(), players)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	if req.Start == nil || *req.Start {
		warnings := snap.Warnings
		snap, err = s.engine.Advance(r.Context(), snap.ID)
		if err != nil {
			respondError(w, statusFor(err), err)
			return
		}
		snap.Warnings = append(warnings, snap.Warnings...)
	}
	log.Info().Str("match", snap.ID).Int("seats", len(snap.Seats)).Msg("[werewolf] match created")
	respondJSON(w, http.StatusCreated, snap)
}

func (s *HTTPServer) handleListMatches(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matches": s.engine.Store().List(),
	})
}

func (s *HTTPServer) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *HTTPServer) handleAdvance(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	s.hubs.Publish(snap)
	respondJSON(w, http.StatusOK, snap)
}

// handleAuto advances until the match ends or maxAutoSteps is reached.
func (s *HTTPServer) handleAuto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var (
		snap     game.Snapshot
		warnings []string
		steps    int
	)
	for steps < maxAutoSteps {
		next, err := s.engine.Advance(r.Context(), id)
		if err != nil {
			if steps > 0 && errors.Is(err, game.ErrMatchAlreadyEnded) {
				break
			}
			respondError(w, statusFor(err), err)
			return
		}
		steps++
		snap = next
		warnings = append(warnings, next.Warnings...)
		if snap.Status == game.StatusEnded {
			break
		}
	}
	snap.Warnings = warnings
	s.hubs.Publish(snap)
	respondJSON(w, http.StatusOK, autoResponse{Steps: steps, Snapshot: snap})
}

func (s *HTTPServer) handleNightAction(w http.ResponseWriter, r *http.Request) {
	var req nightActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	s.mutate(w, r, func(ctx context.Context, id string) ([]string, error) {
		return s.engine.RecordNightAction(ctx, id, req.Seat, req.Kind, req.Target)
	})
}

func (s *HTTPServer) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	s.mutate(w, r, func(ctx context.Context, id string) ([]string, error) {
		return s.engine.RecordVote(ctx, id, req.Seat, req.Target)
	})
}

func (s *HTTPServer) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	s.mutate(w, r, func(ctx context.Context, id string) ([]string, error) {
		return s.engine.RecordSpeech(ctx, id, req.Seat, req.Text)
	})
}

// mutate applies fn to the match in the URL and answers with the updated
// snapshot.
func (s *HTTPServer) mutate(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) ([]string, error)) {
	id := chi.URLParam(r, "id")
	warnings, err := fn(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	snap, err := s.engine.Snapshot(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	snap.Warnings = warnings
	s.hubs.Publish(snap)
	respondJSON(w, http.StatusOK, snap)
}

func (s *HTTPServer) handleInspections(w http.ResponseWriter, r *http.Request) {
	seat, err := strconv.Atoi(chi.URLParam(r, "seat"))
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("parse seat: %w", err))
		return
	}
	results, err := s.engine.Inspections(r.Context(), chi.URLParam(r, "id"), seat)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"seat":        seat,
		"inspections": results,
	})
}

// handleEvents serves the stored transcript. Private events stay hidden until
// the match has ended.
func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.engine.Snapshot(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}

	var filter store.EventFilter
	if raw := r.URL.Query().Get("day"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Errorf("parse day: %w", err))
			return
		}
		filter.Day = &day
	}
	filter.Kind = game.EventKind(r.URL.Query().Get("kind"))

	events, err := s.records.Events(r.Context(), id, filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if snap.Status != game.StatusEnded {
		public := events[:0]
		for _, ev := range events {
			if ev.Public() {
				public = append(public, ev)
			}
		}
		events = public
	}
	if events == nil {
		events = []game.Event{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
	})
}

func (s *HTTPServer) handleRanking(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultRankingSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	filter := r.URL.Query().Get("role")
	var role game.Role
	if filter != "" && filter != "all" {
		role = game.Role(filter)
		if !role.Valid() {
			respondError(w, http.StatusBadRequest, fmt.Errorf("unknown role %q", filter))
			return
		}
	} else {
		filter = "all"
	}
	table, err := s.records.Ranking(r.Context(), limit, role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if table == nil {
		table = []store.Standing{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ranking": table,
		"filter":  filter,
	})
}

// handleGames lists ended matches, newest first, with every seat revealed.
func (s *HTTPServer) handleGames(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultHistorySize)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	snaps, err := s.records.ListFinal(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	games := make([]gameSummary, 0, len(snaps))
	for _, snap := range snaps {
		games = append(games, summarize(snap))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
	})
}

func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

func (s *HTTPServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	match := r.URL.Query().Get("match")
	if match == "" {
		http.Error(w, "missing match", http.StatusBadRequest)
		return
	}
	if _, err := s.engine.Snapshot(r.Context(), match); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("[werewolf] upgrade websocket")
		return
	}

	client := NewClient(match, conn, s.hubs)
	if err := s.hubs.Attach(context.Background(), client); err != nil {
		_ = conn.Close()
		log.Warn().Err(err).Str("match", match).Msg("[werewolf] attach failed")
		return
	}

	go client.writeLoop()
	client.readLoop()
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrMatchAlreadyEnded):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidSeatCount),
		errors.Is(err, game.ErrInvalidRoster),
		errors.Is(err, game.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrInvalidPhase),
		errors.Is(err, game.ErrOutOfTurn),
		errors.Is(err, game.ErrSeatNotAlive),
		errors.Is(err, game.ErrSeatNotFound),
		errors.Is(err, game.ErrInvalidTarget),
		errors.Is(err, game.ErrRoleMismatch),
		errors.Is(err, game.ErrResourceSpent):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("[werewolf] encode json response")
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
