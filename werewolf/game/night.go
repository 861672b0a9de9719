package game

// resolveNight applies the intents recorded since the night began and returns
// the seats that died, in order of death. Spent resources are ignored.
func resolveNight(m *Match) []*Player {
	na := m.Night
	var dead []*Player

	cured := false
	if na.CureUsed && m.WitchHasCure && na.KillTarget != 0 && na.CureTarget == na.KillTarget {
		m.WitchHasCure = false
		cured = true
	}

	if na.KillTarget != 0 && !cured {
		if p := m.Seat(na.KillTarget); p != nil && p.die(m.Day, DeathKilled) {
			dead = append(dead, p)
		}
	}

	// Poison is independent of the kill; the cure never cancels it.
	if na.PoisonTarget != 0 && m.WitchHasPoison {
		m.WitchHasPoison = false
		if p := m.Seat(na.PoisonTarget); p != nil && p.die(m.Day, DeathPoisoned) {
			dead = append(dead, p)
		}
	}

	for _, p := range dead {
		m.emit(Event{Kind: EventDeath, Seat: p.Seat, Role: p.Role, Reason: p.DeathReason})
	}
	if len(dead) == 0 {
		m.emit(Event{Kind: EventPeacefulNight})
	}
	return dead
}
