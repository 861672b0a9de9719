package game

import "time"

const recentEvents = 50

// SeatView is the public projection of a seat. Role and Team are revealed
// once the seat is dead or the match has ended.
type SeatView struct {
	Seat        int         `json:"seat"`
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Automated   bool        `json:"automated"`
	Alive       bool        `json:"alive"`
	Role        Role        `json:"role,omitempty"`
	Team        Team        `json:"team,omitempty"`
	DeathDay    *int        `json:"death_day,omitempty"`
	DeathReason DeathReason `json:"death_reason,omitempty"`
}

type AliveCount struct {
	Total   int `json:"total"`
	Wolf    int `json:"wolf"`
	Village int `json:"village"`
}

// Snapshot is the read-only projection returned to callers.
type Snapshot struct {
	ID        string     `json:"id"`
	Day       int        `json:"day"`
	Phase     Phase      `json:"phase"`
	Status    Status     `json:"status"`
	Winner    Team       `json:"winner,omitempty"`
	Speaker   int        `json:"speaker,omitempty"`
	Seats     []SeatView `json:"seats"`
	Alive     AliveCount `json:"alive"`
	Events    []Event    `json:"events"`
	CreatedAt time.Time  `json:"created_at"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// Project builds the public snapshot of m.
func Project(m *Match) Snapshot {
	snap := Snapshot{
		ID:        m.ID,
		Day:       m.Day,
		Phase:     m.Phase,
		Status:    m.Status,
		Winner:    m.Winner,
		Speaker:   m.Speaker,
		Seats:     make([]SeatView, len(m.Players)),
		CreatedAt: m.CreatedAt,
	}
	ended := m.Status == StatusEnded
	for i, p := range m.Players {
		sv := SeatView{Seat: p.Seat, ID: p.ID, Name: p.Name, Automated: p.Automated, Alive: p.Alive}
		if !p.Alive {
			day := p.DeathDay
			sv.DeathDay = &day
			sv.DeathReason = p.DeathReason
		}
		if !p.Alive || ended {
			sv.Role = p.Role
			sv.Team = p.Team()
		}
		snap.Seats[i] = sv
		if p.Alive {
			snap.Alive.Total++
			if isWolf(p) {
				snap.Alive.Wolf++
			} else {
				snap.Alive.Village++
			}
		}
	}
	public := make([]Event, 0, recentEvents)
	for i := len(m.events) - 1; i >= 0 && len(public) < recentEvents; i-- {
		if m.events[i].Public() {
			public = append(public, m.events[i])
		}
	}
	for i, j := 0, len(public)-1; i < j; i, j = i+1, j-1 {
		public[i], public[j] = public[j], public[i]
	}
	snap.Events = public
	return snap
}
