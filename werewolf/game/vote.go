package game

import (
	"math/rand"
	"sort"
)

type tally struct {
	target int
	voters []int
}

// resolveVotes tallies the day's ballots, eliminates at most one seat and
// runs the retaliation chain. Votes are cleared afterwards.
func resolveVotes(m *Match) (eliminated, retaliated *Player) {
	defer func() { m.Votes = make(map[int]int) }()

	byTarget := make(map[int]*tally)
	for _, voter := range m.sortedVoters() {
		target := m.Votes[voter]
		vp, tp := m.Seat(voter), m.Seat(target)
		if vp == nil || tp == nil || !vp.Alive || !tp.Alive {
			continue
		}
		m.emit(Event{Kind: EventVoteDetail, Seat: voter, Target: target})
		t, ok := byTarget[target]
		if !ok {
			t = &tally{target: target}
			byTarget[target] = t
		}
		t.voters = append(t.voters, voter)
	}

	if len(byTarget) == 0 {
		m.emit(Event{Kind: EventNoElimination})
		return nil, nil
	}

	rows := make([]*tally, 0, len(byTarget))
	for _, t := range byTarget {
		rows = append(rows, t)
	}
	sort.Slice(rows, func(i, j int) bool {
		if len(rows[i].voters) != len(rows[j].voters) {
			return len(rows[i].voters) > len(rows[j].voters)
		}
		return rows[i].target < rows[j].target
	})
	for _, t := range rows {
		m.emit(Event{Kind: EventVoteTally, Target: t.target, Count: len(t.voters), Voters: t.voters})
	}

	top := len(rows[0].voters)
	candidates := make([]int, 0, len(rows))
	for _, t := range rows {
		if len(t.voters) == top {
			candidates = append(candidates, t.target)
		}
	}

	eliminated = m.Seat(breakTie(m.rng, candidates))
	eliminated.die(m.Day, DeathVotedOut)
	m.emit(Event{Kind: EventElimination, Seat: eliminated.Seat, Count: top, Role: eliminated.Role, Reason: DeathVotedOut})

	if eliminated.Role.Capability() == CapRetaliate {
		retaliated = retaliate(m, eliminated)
	}
	return eliminated, retaliated
}

// breakTie picks uniformly among candidates, which must be non-empty and
// sorted for reproducibility.
func breakTie(rng *rand.Rand, candidates []int) int {
	if len(candidates) == 1 {
		return candidates[0]
	}
	return candidates[rng.Intn(len(candidates))]
}

func retaliate(m *Match, source *Player) *Player {
	others := m.livingWith(func(p *Player) bool { return p.Seat != source.Seat })
	if len(others) == 0 {
		return nil
	}
	victim := others[m.rng.Intn(len(others))]
	victim.die(m.Day, DeathRetaliation)
	m.emit(Event{Kind: EventRetaliation, Seat: source.Seat, Target: victim.Seat, Role: victim.Role, Reason: DeathRetaliation})
	return victim
}
