package game

// step performs one advance on a playing match. It reports true when the
// match ended during the step; the phase is left untouched in that case.
func (e *Engine) step(m *Match) bool {
	switch m.Phase {
	case PhaseDawn:
		resolveNight(m)
		m.Day++
		if decide(m) {
			return true
		}
	case PhaseVote:
		resolveVotes(m)
		if decide(m) {
			return true
		}
	}

	m.Phase = m.Phase.Next()
	switch m.Phase {
	case PhaseNightWolf:
		m.Night = NightAction{}
	case PhaseDaySpeech:
		m.Speaker = m.nextLivingFrom(1)
	}
	m.emit(Event{Kind: EventPhase})
	e.automate(m)
	return false
}

// automate records the decisions of automated seats for the phase just
// entered. Rejected decisions are logged and dropped.
func (e *Engine) automate(m *Match) {
	if e.decider == nil {
		if m.Phase == PhaseDaySpeech {
			e.runSpeeches(m)
		}
		return
	}
	switch m.Phase {
	case PhaseNightWolf:
		wolves := m.livingWith(func(p *Player) bool { return p.Automated && isWolf(p) })
		if len(wolves) == 0 {
			return
		}
		w := wolves[m.rng.Intn(len(wolves))]
		e.decideNight(m, w, ActionKill)
	case PhaseNightSeer:
		for _, p := range m.livingWith(automatedWith(CapInspect)) {
			e.decideNight(m, p, ActionInspect)
		}
	case PhaseNightWitch:
		for _, p := range m.livingWith(automatedWith(CapCurePoison)) {
			if m.WitchHasCure && m.Night.KillTarget != 0 {
				e.decideNight(m, p, ActionCure)
			}
			if m.WitchHasPoison {
				e.decideNight(m, p, ActionPoison)
			}
		}
	case PhaseDaySpeech:
		e.runSpeeches(m)
	case PhaseVote:
		for _, p := range m.livingWith(func(p *Player) bool { return p.Automated }) {
			target, ok := e.decider.DecideVote(viewFor(m, p))
			if !ok {
				continue
			}
			if err := applyVote(m, p.Seat, target); err != nil {
				e.logger.Debug().Err(err).Str("match", m.ID).Int("seat", p.Seat).Msg("automated vote rejected")
			}
		}
	}
}

func (e *Engine) decideNight(m *Match, p *Player, kind ActionKind) {
	target, ok := e.decider.DecideNightAction(viewFor(m, p), kind)
	if !ok {
		return
	}
	if err := applyNightAction(m, p.Seat, kind, target); err != nil {
		e.logger.Debug().Err(err).Str("match", m.ID).Int("seat", p.Seat).Str("action", string(kind)).Msg("automated action rejected")
	}
}

// runSpeeches lets automated speakers talk in seat order until a human
// speaker holds the floor or everyone has spoken.
func (e *Engine) runSpeeches(m *Match) {
	for m.Speaker != 0 {
		p := m.Seat(m.Speaker)
		if !p.Automated {
			return
		}
		if e.decider == nil {
			m.Speaker = m.nextLivingFrom(p.Seat + 1)
			continue
		}
		text := e.decider.DescribeSpeech(viewFor(m, p))
		if err := applySpeech(m, p.Seat, text); err != nil {
			e.logger.Debug().Err(err).Str("match", m.ID).Int("seat", p.Seat).Msg("automated speech rejected")
			return
		}
	}
}

func automatedWith(c Capability) func(*Player) bool {
	return func(p *Player) bool { return p.Automated && p.Role.Capability() == c }
}
