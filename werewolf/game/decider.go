package game

import "math/rand"

// Decider chooses actions and speech for automated seats. Implementations
// return ok=false to pass.
type Decider interface {
	DecideNightAction(v View, kind ActionKind) (target int, ok bool)
	DecideVote(v View) (target int, ok bool)
	DescribeSpeech(v View) string
}

// SeatRef identifies a seat by number and display name.
type SeatRef struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
}

// View is what one seat is allowed to know when deciding.
type View struct {
	MatchID string
	Day     int
	Phase   Phase
	Self    SeatRef
	Role    Role
	Living  []SeatRef
	Dead    []SeatRef

	// Teammates holds the other living wolves; set for wolves only.
	Teammates []int
	// PendingKill, HasCure and HasPoison are set for the witch only.
	PendingKill int
	HasCure     bool
	HasPoison   bool
	// Inspections is set for the seer only.
	Inspections []Inspection
	// Recent holds up to five of today's speeches, newest first.
	Recent []Event

	// Rand is the match's random source; use it for any random choice so
	// runs stay reproducible.
	Rand *rand.Rand
}

func viewFor(m *Match, p *Player) View {
	v := View{
		MatchID: m.ID,
		Day:     m.Day,
		Phase:   m.Phase,
		Self:    SeatRef{Seat: p.Seat, Name: p.Name},
		Role:    p.Role,
		Rand:    m.rng,
	}
	for _, o := range m.Players {
		ref := SeatRef{Seat: o.Seat, Name: o.Name}
		if o.Alive {
			v.Living = append(v.Living, ref)
		} else {
			v.Dead = append(v.Dead, ref)
		}
	}
	switch p.Role.Capability() {
	case CapKill:
		for _, w := range m.livingWith(isWolf) {
			if w.Seat != p.Seat {
				v.Teammates = append(v.Teammates, w.Seat)
			}
		}
	case CapCurePoison:
		v.PendingKill = m.Night.KillTarget
		v.HasCure = m.WitchHasCure
		v.HasPoison = m.WitchHasPoison
	case CapInspect:
		v.Inspections = m.Inspections(p.Seat)
	}
	for i := len(m.events) - 1; i >= 0 && len(v.Recent) < 5; i-- {
		ev := m.events[i]
		if ev.Kind == EventSpeech && ev.Day == m.Day {
			v.Recent = append(v.Recent, ev)
		}
	}
	return v
}
