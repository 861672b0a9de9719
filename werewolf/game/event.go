package game

import "time"

// EventKind identifies an emitted match event.
type EventKind string

const (
	EventMatchStart    EventKind = "match_start"
	EventPhase         EventKind = "phase"
	EventNightAction   EventKind = "night_action"
	EventInspection    EventKind = "inspection"
	EventDeath         EventKind = "death"
	EventPeacefulNight EventKind = "peaceful_night"
	EventSpeech        EventKind = "speech"
	EventVoteDetail    EventKind = "vote_detail"
	EventVoteTally     EventKind = "vote_tally"
	EventElimination   EventKind = "elimination"
	EventNoElimination EventKind = "no_elimination"
	EventRetaliation   EventKind = "retaliation"
	EventMatchEnd      EventKind = "match_end"
)

// Event is a structured transcript record. Recipients lists the seats allowed
// to see it; empty means public.
type Event struct {
	Seq        int64       `json:"seq"`
	Kind       EventKind   `json:"kind"`
	Day        int         `json:"day"`
	Phase      Phase       `json:"phase"`
	Seat       int         `json:"seat,omitempty"`
	Target     int         `json:"target,omitempty"`
	Count      int         `json:"count,omitempty"`
	Voters     []int       `json:"voters,omitempty"`
	Action     ActionKind  `json:"action,omitempty"`
	Role       Role        `json:"role,omitempty"`
	Team       Team        `json:"team,omitempty"`
	Reason     DeathReason `json:"reason,omitempty"`
	Text       string      `json:"text,omitempty"`
	Recipients []int       `json:"recipients,omitempty"`
	At         time.Time   `json:"at"`
}

// Public reports whether every participant may see the event.
func (e Event) Public() bool { return len(e.Recipients) == 0 }
