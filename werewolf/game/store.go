package game

import (
	"context"
	"sort"
	"sync"
)

// MatchStore is the registry of active matches.
type MatchStore interface {
	Get(id string) (*Match, bool)
	Put(m *Match)
	// Retire removes a finished match from the active set and remembers its id.
	Retire(id string)
	Retired(id string) bool
	List() []string
}

// EventSink persists transcript records.
type EventSink interface {
	AppendEvent(ctx context.Context, matchID string, ev Event) error
}

// Outcome is one participant's result at match end.
type Outcome struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Team     Team   `json:"team"`
	Won      bool   `json:"won"`
	Survived bool   `json:"survived"`
}

// Ranker receives final outcomes exactly once per match.
type Ranker interface {
	UpdateRankings(ctx context.Context, matchID string, outcomes []Outcome) error
}

// Archive keeps terminal snapshots of retired matches.
type Archive interface {
	SaveFinal(ctx context.Context, snap Snapshot) error
	LoadFinal(ctx context.Context, matchID string) (Snapshot, bool, error)
}

// MemoryStore is a mutex-guarded in-memory MatchStore.
type MemoryStore struct {
	mu      sync.RWMutex
	matches map[string]*Match
	retired map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches: make(map[string]*Match),
		retired: make(map[string]struct{}),
	}
}

func (s *MemoryStore) Get(id string) (*Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	return m, ok
}

func (s *MemoryStore) Put(m *Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = m
}

func (s *MemoryStore) Retire(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, id)
	s.retired[id] = struct{}{}
}

func (s *MemoryStore) Retired(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.retired[id]
	return ok
}

// List returns active match ids in lexical order.
func (s *MemoryStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.matches))
	for id := range s.matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type nopSink struct{}

func (nopSink) AppendEvent(context.Context, string, Event) error        { return nil }
func (nopSink) UpdateRankings(context.Context, string, []Outcome) error { return nil }

// MemoryArchive keeps final snapshots in memory.
type MemoryArchive struct {
	mu    sync.RWMutex
	final map[string]Snapshot
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{final: make(map[string]Snapshot)}
}

func (a *MemoryArchive) SaveFinal(_ context.Context, snap Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.final[snap.ID] = snap
	return nil
}

func (a *MemoryArchive) LoadFinal(_ context.Context, id string) (Snapshot, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	snap, ok := a.final[id]
	return snap, ok, nil
}
