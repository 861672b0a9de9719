package game

import (
	"fmt"
	"math/rand"
	"testing"
	"time"
)

var testClock = func() time.Time { return time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC) }

// seatedMatch builds a match with a fixed seating; all seats are human.
func seatedMatch(t *testing.T, seed int64, roles ...Role) *Match {
	t.Helper()
	roster := make([]Participant, len(roles))
	for i := range roles {
		roster[i] = Participant{ID: fmt.Sprintf("p%d", i+1), Name: fmt.Sprintf("P%d", i+1)}
	}
	return NewMatch(fmt.Sprintf("m%d", seed), roster, roles, rand.New(rand.NewSource(seed)), testClock)
}

// canonicalSeating is the ten-seat layout used by the end-to-end scenario.
var canonicalSeating = []Role{
	RoleWolf, RoleVillager, RoleWolf, RoleVillager, RoleSeer,
	RoleVillager, RoleHunter, RoleWolf, RoleWitch, RoleVillager,
}

func eventsOf(m *Match, kind EventKind) []Event {
	var out []Event
	for _, ev := range m.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
