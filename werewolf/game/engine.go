package game

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Engine runs matches held in an injected MatchStore. Operations on one match
// are serialized; different matches proceed independently.
type Engine struct {
	store   MatchStore
	sink    EventSink
	ranker  Ranker
	archive Archive
	decider Decider
	logger  zerolog.Logger
	now     func() time.Time

	mu     sync.Mutex
	seeds  *rand.Rand
	locks  map[string]*sync.Mutex
	nextID func() string
}

type Option func(*Engine)

func WithStore(s MatchStore) Option    { return func(e *Engine) { e.store = s } }
func WithEventSink(s EventSink) Option { return func(e *Engine) { e.sink = s } }
func WithRanker(r Ranker) Option       { return func(e *Engine) { e.ranker = r } }
func WithArchive(a Archive) Option     { return func(e *Engine) { e.archive = a } }
func WithDecider(d Decider) Option     { return func(e *Engine) { e.decider = d } }
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSeed makes every match's random source derive from seed.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.seeds = rand.New(rand.NewSource(seed)) }
}

// WithIDGenerator overrides match id generation.
func WithIDGenerator(next func() string) Option {
	return func(e *Engine) { e.nextID = next }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		store:   NewMemoryStore(),
		sink:    nopSink{},
		ranker:  nopSink{},
		archive: NewMemoryArchive(),
		logger:  log.Logger.With().Str("component", "engine").Logger(),
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
		nextID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.seeds == nil {
		e.seeds = rand.New(rand.NewSource(newSeed()))
	}
	return e
}

// Store exposes the registry the engine was built with.
func (e *Engine) Store() MatchStore { return e.store }

func newSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func (e *Engine) matchRand() *rand.Rand {
	e.mu.Lock()
	defer e.mu.Unlock()
	return rand.New(rand.NewSource(e.seeds.Int63()))
}

// lock serializes work on one match. Unknown and retired ids have no lock;
// their callers only read the store.
func (e *Engine) lock(id string) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	e.mu.Unlock()
	if !ok {
		return func() {}
	}
	l.Lock()
	return l.Unlock
}

func (e *Engine) register(id string) {
	e.mu.Lock()
	e.locks[id] = &sync.Mutex{}
	e.mu.Unlock()
}

func (e *Engine) forget(id string) {
	e.mu.Lock()
	delete(e.locks, id)
	e.mu.Unlock()
}

// active returns a playing match. Retired ids report ErrMatchAlreadyEnded.
func (e *Engine) active(id string) (*Match, error) {
	m, ok := e.store.Get(id)
	if !ok {
		if e.store.Retired(id) {
			return nil, fmt.Errorf("%w: %s", ErrMatchAlreadyEnded, id)
		}
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	if m.Status == StatusEnded {
		return nil, fmt.Errorf("%w: %s", ErrMatchAlreadyEnded, id)
	}
	return m, nil
}

// CreateMatch seats the roster in order, assigns roles and registers the
// match in the waiting phase.
func (e *Engine) CreateMatch(ctx context.Context, roster []Participant) (Snapshot, error) {
	rng := e.matchRand()
	roles, err := AssignRoles(len(roster), rng)
	if err != nil {
		return Snapshot{}, fmt.Errorf("create match: %w", err)
	}
	seated := make([]Participant, len(roster))
	seen := make(map[string]bool, len(roster))
	for i, p := range roster {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if seen[p.ID] {
			return Snapshot{}, fmt.Errorf("create match: %w: duplicate participant %q", ErrInvalidRoster, p.ID)
		}
		seen[p.ID] = true
		if strings.TrimSpace(p.Name) == "" {
			p.Name = "Seat " + strconv.Itoa(i+1)
		}
		seated[i] = p
	}

	m := NewMatch(e.nextID(), seated, roles, rng, e.now)
	e.register(m.ID)
	unlock := e.lock(m.ID)
	defer unlock()

	m.emit(Event{Kind: EventMatchStart, Count: len(seated)})
	e.store.Put(m)
	e.logger.Info().Str("match", m.ID).Int("seats", len(seated)).Msg("match created")

	snap := Project(m)
	snap.Warnings = e.flush(ctx, m)
	return snap, nil
}

// Adopt registers a match built elsewhere, such as one with a fixed seating.
func (e *Engine) Adopt(m *Match) {
	e.register(m.ID)
	e.store.Put(m)
}

// Advance moves the match one phase forward, resolving night or vote when
// leaving dawn or vote. Collaborator failures are reported as warnings.
func (e *Engine) Advance(ctx context.Context, id string) (Snapshot, error) {
	unlock := e.lock(id)
	defer unlock()

	m, err := e.active(id)
	if err != nil {
		return Snapshot{}, err
	}
	ended := e.step(m)
	warnings := e.flush(ctx, m)
	if ended {
		warnings = append(warnings, e.finish(ctx, m)...)
	}
	e.logger.Debug().Str("match", m.ID).Int("day", m.Day).Str("phase", string(m.Phase)).Msg("advanced")

	snap := Project(m)
	snap.Warnings = warnings
	return snap, nil
}

// RecordNightAction stores a night intent for the current night.
func (e *Engine) RecordNightAction(ctx context.Context, id string, seat int, kind ActionKind, target int) ([]string, error) {
	return e.mutate(ctx, id, func(m *Match) error {
		return applyNightAction(m, seat, kind, target)
	})
}

// RecordVote stores or replaces voter's ballot for the current vote.
func (e *Engine) RecordVote(ctx context.Context, id string, voter, target int) ([]string, error) {
	return e.mutate(ctx, id, func(m *Match) error {
		return applyVote(m, voter, target)
	})
}

// RecordSpeech records the current speaker's line and lets automated seats
// after it speak.
func (e *Engine) RecordSpeech(ctx context.Context, id string, seat int, text string) ([]string, error) {
	return e.mutate(ctx, id, func(m *Match) error {
		if err := applySpeech(m, seat, strings.TrimSpace(text)); err != nil {
			return err
		}
		e.runSpeeches(m)
		return nil
	})
}

func (e *Engine) mutate(ctx context.Context, id string, fn func(*Match) error) ([]string, error) {
	unlock := e.lock(id)
	defer unlock()

	m, err := e.active(id)
	if err != nil {
		return nil, err
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	return e.flush(ctx, m), nil
}

// Snapshot returns the public view of a match. Retired matches are served
// from the archive.
func (e *Engine) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	unlock := e.lock(id)
	m, ok := e.store.Get(id)
	if ok {
		snap := Project(m)
		unlock()
		return snap, nil
	}
	unlock()

	snap, found, err := e.archive.LoadFinal(ctx, id)
	if err != nil {
		return Snapshot{}, &PersistenceError{Op: "load final", MatchID: id, Err: err}
	}
	if !found {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return snap, nil
}

// Inspections returns the private results learned by the seer at seat.
func (e *Engine) Inspections(ctx context.Context, id string, seat int) ([]Inspection, error) {
	unlock := e.lock(id)
	defer unlock()

	m, err := e.active(id)
	if err != nil {
		return nil, err
	}
	p := m.Seat(seat)
	if p == nil {
		return nil, fmt.Errorf("%w: %d", ErrSeatNotFound, seat)
	}
	if p.Role.Capability() != CapInspect {
		return nil, fmt.Errorf("%w: %s has no inspections", ErrRoleMismatch, p.Role)
	}
	return m.Inspections(seat), nil
}

// flush hands pending events to the sink.
func (e *Engine) flush(ctx context.Context, m *Match) []string {
	var failed error
	for _, ev := range m.takePending() {
		if err := e.sink.AppendEvent(ctx, m.ID, ev); err != nil && failed == nil {
			failed = err
		}
	}
	if failed == nil {
		return nil
	}
	return []string{e.warn(&PersistenceError{Op: "append event", MatchID: m.ID, Err: failed})}
}

// finish runs the end-of-match side effects and retires the match.
func (e *Engine) finish(ctx context.Context, m *Match) []string {
	var warnings []string
	outcomes := make([]Outcome, len(m.Players))
	for i, p := range m.Players {
		outcomes[i] = Outcome{
			PlayerID: p.ID,
			Name:     p.Name,
			Role:     p.Role,
			Team:     p.Team(),
			Won:      p.Team() == m.Winner,
			Survived: p.Alive,
		}
	}
	if err := e.ranker.UpdateRankings(ctx, m.ID, outcomes); err != nil {
		warnings = append(warnings, e.warn(&PersistenceError{Op: "update rankings", MatchID: m.ID, Err: err}))
	}
	if err := e.archive.SaveFinal(ctx, Project(m)); err != nil {
		warnings = append(warnings, e.warn(&PersistenceError{Op: "save final", MatchID: m.ID, Err: err}))
	}
	e.store.Retire(m.ID)
	e.forget(m.ID)
	e.logger.Info().Str("match", m.ID).Str("winner", string(m.Winner)).Int("day", m.Day).Msg("match ended")
	return warnings
}

func (e *Engine) warn(err error) string {
	var perr *PersistenceError
	if errors.As(err, &perr) {
		e.logger.Warn().Err(perr.Err).Str("match", perr.MatchID).Str("op", perr.Op).Msg("persistence failure")
	}
	return err.Error()
}
