package game

import "fmt"

// ActionKind names a night ability.
type ActionKind string

const (
	ActionKill    ActionKind = "kill"
	ActionInspect ActionKind = "inspect"
	ActionCure    ActionKind = "cure"
	ActionPoison  ActionKind = "poison"
)

var actionRules = map[ActionKind]struct {
	phase Phase
	cap   Capability
}{
	ActionKill:    {PhaseNightWolf, CapKill},
	ActionInspect: {PhaseNightSeer, CapInspect},
	ActionCure:    {PhaseNightWitch, CapCurePoison},
	ActionPoison:  {PhaseNightWitch, CapCurePoison},
}

// Phase returns the phase the action belongs to.
func (k ActionKind) Phase() (Phase, bool) {
	r, ok := actionRules[k]
	return r.phase, ok
}

func actorAt(m *Match, seat int) (*Player, error) {
	p := m.Seat(seat)
	if p == nil {
		return nil, fmt.Errorf("%w: %d", ErrSeatNotFound, seat)
	}
	if !p.Alive {
		return nil, fmt.Errorf("%w: %d", ErrSeatNotAlive, seat)
	}
	return p, nil
}

func livingTarget(m *Match, seat int) (*Player, error) {
	p := m.Seat(seat)
	if p == nil || !p.Alive {
		return nil, fmt.Errorf("%w: seat %d", ErrInvalidTarget, seat)
	}
	return p, nil
}

// applyNightAction validates and records a night intent into m.Night.
// Later records of the same kind on the same night replace earlier ones.
func applyNightAction(m *Match, seat int, kind ActionKind, target int) error {
	rule, ok := actionRules[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidAction, kind)
	}
	if m.Phase != rule.phase {
		return fmt.Errorf("%w: %s during %s", ErrInvalidPhase, kind, m.Phase)
	}
	actor, err := actorAt(m, seat)
	if err != nil {
		return err
	}
	if actor.Role.Capability() != rule.cap {
		return fmt.Errorf("%w: %s cannot %s", ErrRoleMismatch, actor.Role, kind)
	}
	tp, err := livingTarget(m, target)
	if err != nil {
		return err
	}

	switch kind {
	case ActionKill:
		m.Night.KillTarget = target
		m.emit(Event{Kind: EventNightAction, Action: kind, Seat: seat, Target: target, Recipients: seatsOf(m.livingWith(isWolf))})
	case ActionInspect:
		if target == seat {
			return fmt.Errorf("%w: seer cannot inspect itself", ErrInvalidTarget)
		}
		m.Night.InspectTarget = target
		res := Inspection{Day: m.Day, Target: target, Team: tp.Team()}
		m.inspections[seat] = append(m.inspections[seat], res)
		m.emit(Event{Kind: EventInspection, Action: kind, Seat: seat, Target: target, Team: res.Team, Recipients: []int{seat}})
	case ActionCure:
		if !m.WitchHasCure {
			return fmt.Errorf("%w: cure", ErrResourceSpent)
		}
		if m.Night.KillTarget == 0 || target != m.Night.KillTarget {
			return fmt.Errorf("%w: cure only saves tonight's victim", ErrInvalidTarget)
		}
		m.Night.CureUsed = true
		m.Night.CureTarget = target
		m.emit(Event{Kind: EventNightAction, Action: kind, Seat: seat, Target: target, Recipients: []int{seat}})
	case ActionPoison:
		if !m.WitchHasPoison {
			return fmt.Errorf("%w: poison", ErrResourceSpent)
		}
		m.Night.PoisonTarget = target
		m.emit(Event{Kind: EventNightAction, Action: kind, Seat: seat, Target: target, Recipients: []int{seat}})
	}
	return nil
}

func applyVote(m *Match, voter, target int) error {
	if m.Phase != PhaseVote {
		return fmt.Errorf("%w: vote during %s", ErrInvalidPhase, m.Phase)
	}
	if _, err := actorAt(m, voter); err != nil {
		return err
	}
	if _, err := livingTarget(m, target); err != nil {
		return err
	}
	if voter == target {
		return fmt.Errorf("%w: cannot vote for yourself", ErrInvalidTarget)
	}
	m.Votes[voter] = target
	return nil
}

func applySpeech(m *Match, seat int, text string) error {
	if m.Phase != PhaseDaySpeech {
		return fmt.Errorf("%w: speech during %s", ErrInvalidPhase, m.Phase)
	}
	if _, err := actorAt(m, seat); err != nil {
		return err
	}
	if seat != m.Speaker {
		return fmt.Errorf("%w: seat %d, speaker %d", ErrOutOfTurn, seat, m.Speaker)
	}
	m.emit(Event{Kind: EventSpeech, Seat: seat, Text: text})
	m.Speaker = m.nextLivingFrom(seat + 1)
	return nil
}

func isWolf(p *Player) bool { return p.Team() == TeamWolf }

func seatsOf(ps []*Player) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.Seat
	}
	return out
}
