package bot

import (
	"fmt"

	"github.com/gosuda/portal-werewolf/werewolf/game"
)

// Speaker produces a day speech line for an automated seat.
type Speaker interface {
	Speak(v game.View) string
}

// Personality shapes the tone of a seat's speeches.
type Personality string

const (
	Aggressive Personality = "aggressive"
	Suspicious Personality = "suspicious"
	Logical    Personality = "logical"
	Calm       Personality = "calm"
	Friendly   Personality = "friendly"
	Tricky     Personality = "tricky"
	Brave      Personality = "brave"
	Careful    Personality = "careful"
	Emotional  Personality = "emotional"
	Mysterious Personality = "mysterious"
)

var personalities = []Personality{
	Aggressive, Suspicious, Logical, Calm, Friendly,
	Tricky, Brave, Careful, Emotional, Mysterious,
}

// PersonalityFor assigns personalities round-robin by seat.
func PersonalityFor(seat int) Personality {
	if seat < 1 {
		seat = 1
	}
	return personalities[(seat-1)%len(personalities)]
}

// PersonalitySpeaker picks a template by the seat's personality. Wolves
// speak as if they were villagers.
type PersonalitySpeaker struct{}

func (PersonalitySpeaker) Speak(v game.View) string {
	suspect := "nobody yet"
	if seat, ok := pick(v.Rand, others(v, excluding(v.Teammates...))); ok {
		suspect = fmt.Sprintf("%s (seat %d)", nameOf(v, seat), seat)
	}
	claim := v.Role
	if claim.Capability() == game.CapKill {
		claim = game.RoleVillager
	}

	switch PersonalityFor(v.Self.Seat) {
	case Aggressive:
		return fmt.Sprintf("I'm %s. %s is a wolf, I'm sure of it. Vote them out today.", v.Self.Name, suspect)
	case Suspicious:
		if last := lastSpeaker(v); last != "" {
			return fmt.Sprintf("Something about what %s just said doesn't add up.", last)
		}
		return fmt.Sprintf("I don't trust anyone yet, but %s has been very quiet.", suspect)
	case Logical:
		return fmt.Sprintf("%d alive, %d dead after %d nights. By the numbers, %s is our best lead.", len(v.Living), len(v.Dead), v.Day, suspect)
	case Calm:
		return "Let's not rush this. Listen to everyone before we vote."
	case Friendly:
		return fmt.Sprintf("Good morning everyone, %s here. If we stick together we'll find them.", v.Self.Name)
	case Tricky:
		return fmt.Sprintf("Funny how %s always agrees with the last speaker.", suspect)
	case Brave:
		return fmt.Sprintf("I'm a %s and I'll stand by it. Come at me if you doubt that. My vote goes to %s.", claim, suspect)
	case Careful:
		return "I'd rather hold my vote until I've heard a few more people."
	case Emotional:
		if len(v.Dead) > 0 {
			return fmt.Sprintf("We lost %s. I can't let that go unanswered.", v.Dead[len(v.Dead)-1].Name)
		}
		return "My heart says it's someone close to me. I hate this."
	default:
		return fmt.Sprintf("The night told me a name. Watch %s.", suspect)
	}
}

func nameOf(v game.View, seat int) string {
	for _, ref := range v.Living {
		if ref.Seat == seat {
			return ref.Name
		}
	}
	return fmt.Sprintf("seat %d", seat)
}

func lastSpeaker(v game.View) string {
	if len(v.Recent) == 0 {
		return ""
	}
	seat := v.Recent[0].Seat
	for _, refs := range [][]game.SeatRef{v.Living, v.Dead} {
		for _, ref := range refs {
			if ref.Seat == seat {
				return ref.Name
			}
		}
	}
	return ""
}
