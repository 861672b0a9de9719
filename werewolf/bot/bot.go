// Package bot decides actions and speech for automated seats.
package bot

import (
	"math/rand"

	"github.com/gosuda/portal-werewolf/werewolf/game"
)

// PoisonChance is the probability an automated witch spends her poison on a
// given night.
const PoisonChance = 0.5

// Decider is a rule-of-thumb game.Decider with personality-flavored speech.
type Decider struct {
	speech Speaker
}

func New(speech Speaker) *Decider {
	if speech == nil {
		speech = PersonalitySpeaker{}
	}
	return &Decider{speech: speech}
}

var _ game.Decider = (*Decider)(nil)

func (d *Decider) DecideNightAction(v game.View, kind game.ActionKind) (int, bool) {
	switch kind {
	case game.ActionKill:
		return pick(v.Rand, others(v, excluding(v.Teammates...)))
	case game.ActionInspect:
		known := make([]int, 0, len(v.Inspections))
		for _, in := range v.Inspections {
			known = append(known, in.Target)
		}
		if target, ok := pick(v.Rand, others(v, excluding(known...))); ok {
			return target, true
		}
		return pick(v.Rand, others(v, nil))
	case game.ActionCure:
		if v.HasCure && v.PendingKill != 0 {
			return v.PendingKill, true
		}
	case game.ActionPoison:
		if !v.HasPoison || v.Rand.Float64() >= PoisonChance {
			return 0, false
		}
		return pick(v.Rand, others(v, excluding(v.PendingKill)))
	}
	return 0, false
}

func (d *Decider) DecideVote(v game.View) (int, bool) {
	switch v.Role.Capability() {
	case game.CapKill:
		return pick(v.Rand, others(v, excluding(v.Teammates...)))
	case game.CapInspect:
		living := make(map[int]bool, len(v.Living))
		for _, ref := range v.Living {
			living[ref.Seat] = true
		}
		for _, in := range v.Inspections {
			if in.Team == game.TeamWolf && living[in.Target] {
				return in.Target, true
			}
		}
	}
	return pick(v.Rand, others(v, nil))
}

func (d *Decider) DescribeSpeech(v game.View) string {
	return d.speech.Speak(v)
}

// others lists living seats except the viewer and any seat skip rejects.
func others(v game.View, skip func(int) bool) []int {
	out := make([]int, 0, len(v.Living))
	for _, ref := range v.Living {
		if ref.Seat == v.Self.Seat || (skip != nil && skip(ref.Seat)) {
			continue
		}
		out = append(out, ref.Seat)
	}
	return out
}

func excluding(seats ...int) func(int) bool {
	set := make(map[int]bool, len(seats))
	for _, s := range seats {
		set[s] = true
	}
	return func(seat int) bool { return set[seat] }
}

func pick(rng *rand.Rand, seats []int) (int, bool) {
	if len(seats) == 0 {
		return 0, false
	}
	return seats[rng.Intn(len(seats))], true
}
