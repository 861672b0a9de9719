package game

import (
	"math/rand"
	"sort"
	"time"
)

// Phase is a state of the match cycle.
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseNightWolf  Phase = "night_wolf"
	PhaseNightSeer  Phase = "night_seer"
	PhaseNightWitch Phase = "night_witch"
	PhaseDawn       Phase = "dawn"
	PhaseDaySpeech  Phase = "day_speech"
	PhaseVote       Phase = "vote"
)

// phaseCycle is the repeating order after the match leaves waiting.
var phaseCycle = []Phase{
	PhaseNightWolf,
	PhaseNightSeer,
	PhaseNightWitch,
	PhaseDawn,
	PhaseDaySpeech,
	PhaseVote,
}

// Next returns the successor phase. Vote wraps to night_wolf and waiting is
// never re-entered.
func (p Phase) Next() Phase {
	for i, ph := range phaseCycle {
		if ph == p {
			return phaseCycle[(i+1)%len(phaseCycle)]
		}
	}
	return PhaseNightWolf
}

// Status tells whether a match still accepts advances.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

// DeathReason records why a seat left play.
type DeathReason string

const (
	DeathNone        DeathReason = ""
	DeathKilled      DeathReason = "killed"
	DeathPoisoned    DeathReason = "poisoned"
	DeathVotedOut    DeathReason = "voted_out"
	DeathRetaliation DeathReason = "retaliation"
)

// Participant is a roster entry supplied at match creation.
type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Automated bool   `json:"automated"`
}

// Player is a seated participant. DeathDay is meaningful only when Alive is false.
type Player struct {
	ID          string
	Name        string
	Automated   bool
	Seat        int
	Role        Role
	Alive       bool
	DeathDay    int
	DeathReason DeathReason
}

func (p *Player) Team() Team { return p.Role.Team() }

// die marks the player dead. It reports false if the player was already dead.
func (p *Player) die(day int, reason DeathReason) bool {
	if !p.Alive {
		return false
	}
	p.Alive = false
	p.DeathDay = day
	p.DeathReason = reason
	return true
}

// NightAction holds the pending, revocable intents of the current night.
type NightAction struct {
	KillTarget    int
	CureUsed      bool
	CureTarget    int
	PoisonTarget  int
	InspectTarget int
}

// Inspection is one result learned by the seer.
type Inspection struct {
	Day    int  `json:"day"`
	Target int  `json:"target"`
	Team   Team `json:"team"`
}

// Match is the aggregate state of one game.
type Match struct {
	ID             string
	Day            int
	Phase          Phase
	Status         Status
	Winner         Team
	Players        []*Player
	Night          NightAction
	Votes          map[int]int
	WitchHasCure   bool
	WitchHasPoison bool
	Speaker        int
	CreatedAt      time.Time

	rng         *rand.Rand
	events      []Event
	pending     []Event
	inspections map[int][]Inspection
	seq         int64
	now         func() time.Time
}

// NewMatch seats the roster in order with the given roles. len(roles) must
// equal len(roster).
func NewMatch(id string, roster []Participant, roles []Role, rng *rand.Rand, now func() time.Time) *Match {
	if now == nil {
		now = time.Now
	}
	m := &Match{
		ID:             id,
		Phase:          PhaseWaiting,
		Status:         StatusPlaying,
		Players:        make([]*Player, len(roster)),
		Votes:          make(map[int]int),
		WitchHasCure:   true,
		WitchHasPoison: true,
		CreatedAt:      now().UTC(),
		rng:            rng,
		inspections:    make(map[int][]Inspection),
		now:            now,
	}
	for i, p := range roster {
		m.Players[i] = &Player{
			ID:        p.ID,
			Name:      p.Name,
			Automated: p.Automated,
			Seat:      i + 1,
			Role:      roles[i],
			Alive:     true,
		}
	}
	return m
}

// Seat returns the player at the 1-based seat, or nil.
func (m *Match) Seat(seat int) *Player {
	if seat < 1 || seat > len(m.Players) {
		return nil
	}
	return m.Players[seat-1]
}

// Living returns the living players in seat order.
func (m *Match) Living() []*Player {
	out := make([]*Player, 0, len(m.Players))
	for _, p := range m.Players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

func (m *Match) livingWith(filter func(*Player) bool) []*Player {
	out := make([]*Player, 0, len(m.Players))
	for _, p := range m.Players {
		if p.Alive && filter(p) {
			out = append(out, p)
		}
	}
	return out
}

// nextLivingFrom returns the first living seat >= seat, or 0.
func (m *Match) nextLivingFrom(seat int) int {
	for s := seat; s <= len(m.Players); s++ {
		if m.Players[s-1].Alive {
			return s
		}
	}
	return 0
}

// Events returns the full in-memory log.
func (m *Match) Events() []Event {
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Inspections returns what the seer at seat has learned so far.
func (m *Match) Inspections(seat int) []Inspection {
	out := make([]Inspection, len(m.inspections[seat]))
	copy(out, m.inspections[seat])
	return out
}

func (m *Match) emit(ev Event) Event {
	m.seq++
	ev.Seq = m.seq
	ev.Day = m.Day
	if ev.Phase == "" {
		ev.Phase = m.Phase
	}
	ev.At = m.now().UTC()
	m.events = append(m.events, ev)
	m.pending = append(m.pending, ev)
	return ev
}

func (m *Match) takePending() []Event {
	out := m.pending
	m.pending = nil
	return out
}

func (m *Match) sortedVoters() []int {
	voters := make([]int, 0, len(m.Votes))
	for v := range m.Votes {
		voters = append(voters, v)
	}
	sort.Ints(voters)
	return voters
}
