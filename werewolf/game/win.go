package game

// Evaluate returns the winning team, or TeamNone while undecided. Equal
// counts favor the wolves.
func Evaluate(m *Match) Team {
	wolves, village := 0, 0
	for _, p := range m.Living() {
		if p.Team() == TeamWolf {
			wolves++
		} else {
			village++
		}
	}
	switch {
	case wolves == 0:
		return TeamVillage
	case wolves >= village:
		return TeamWolf
	default:
		return TeamNone
	}
}

// decide evaluates the match and freezes it when a team has won.
func decide(m *Match) bool {
	winner := Evaluate(m)
	if winner == TeamNone {
		return false
	}
	m.Winner = winner
	m.Status = StatusEnded
	m.emit(Event{Kind: EventMatchEnd, Team: winner})
	return true
}
