package main

import (
	"time"

	"github.com/gosuda/portal-werewolf/werewolf/game"
)

// Websocket message types.
const (
	msgSync        = "sync"
	msgNightAction = "night_action"
	msgVote        = "vote"
	msgSpeech      = "speech"

	eventSnapshot = "snapshot"
	eventError    = "error"
)

// ClientMessage is the envelope received from websocket clients.
type ClientMessage struct {
	Type   string          `json:"type"`
	Seat   int             `json:"seat,omitempty"`
	Kind   game.ActionKind `json:"kind,omitempty"`
	Target int             `json:"target,omitempty"`
	Text   string          `json:"text,omitempty"`
}

// ServerEvent is pushed to clients for any match update.
type ServerEvent struct {
	Type     string         `json:"type"`
	Match    string         `json:"match,omitempty"`
	Body     string         `json:"body,omitempty"`
	Snapshot *game.Snapshot `json:"snapshot,omitempty"`
}

type createMatchRequest struct {
	Players []game.Participant `json:"players"`
	Start   *bool              `json:"start,omitempty"`
}

type nightActionRequest struct {
	Seat   int             `json:"seat"`
	Kind   game.ActionKind `json:"kind"`
	Target int             `json:"target"`
}

type voteRequest struct {
	Seat   int `json:"seat"`
	Target int `json:"target"`
}

type speechRequest struct {
	Seat int    `json:"seat"`
	Text string `json:"text"`
}

type autoResponse struct {
	Steps    int           `json:"steps"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// gameSummary is one row of the match history.
type gameSummary struct {
	ID        string       `json:"id"`
	Winner    game.Team    `json:"winner"`
	Days      int          `json:"days"`
	CreatedAt time.Time    `json:"created_at"`
	Players   []seatResult `json:"players"`
}

type seatResult struct {
	Name  string    `json:"name"`
	Role  game.Role `json:"role"`
	Alive bool      `json:"alive"`
}

func summarize(snap game.Snapshot) gameSummary {
	sum := gameSummary{
		ID:        snap.ID,
		Winner:    snap.Winner,
		Days:      snap.Day,
		CreatedAt: snap.CreatedAt,
		Players:   make([]seatResult, len(snap.Seats)),
	}
	for i, seat := range snap.Seats {
		sum.Players[i] = seatResult{Name: seat.Name, Role: seat.Role, Alive: seat.Alive}
	}
	return sum
}
