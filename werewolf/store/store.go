// Package store persists match transcripts, final snapshots and player
// standings in a Pebble key-value store.
package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/portal-werewolf/werewolf/game"
)

// Key layout:
//
//	ev/<match>/<seq:8 bytes big-endian>  event JSON
//	final/<match>                         terminal snapshot JSON
//	rank/<player>                         Standing JSON
const (
	eventPrefix = "ev/"
	finalPrefix = "final/"
	rankPrefix  = "rank/"
)

// Store implements game.EventSink, game.Ranker and game.Archive.
type Store struct {
	db     *pebble.DB
	logger zerolog.Logger

	// rankMu serializes read-modify-write of standings across matches.
	rankMu sync.Mutex
}

var (
	_ game.EventSink = (*Store)(nil)
	_ game.Ranker    = (*Store)(nil)
	_ game.Archive   = (*Store)(nil)
)

type options struct {
	fs     vfs.FS
	logger zerolog.Logger
}

type Option func(*options)

// WithFS replaces the filesystem; tests pass vfs.NewMem().
func WithFS(fs vfs.FS) Option { return func(o *options) { o.fs = fs } }

func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = l } }

// Open opens or creates the database at dir.
func Open(dir string, opts ...Option) (*Store, error) {
	o := options{logger: log.Logger.With().Str("component", "store").Logger()}
	for _, opt := range opts {
		opt(&o)
	}
	pebbleOpts := &pebble.Options{Logger: pebbleLogger{o.logger}}
	if o.fs != nil {
		pebbleOpts.FS = o.fs
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := pebble.Open(filepath.Clean(dir), pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("open pebble db: %w", err)
	}
	o.logger.Info().Str("path", dir).Msg("store opened")
	return &Store{db: db, logger: o.logger}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func eventKey(matchID string, seq int64) []byte {
	key := make([]byte, 0, len(eventPrefix)+len(matchID)+9)
	key = append(key, eventPrefix...)
	key = append(key, matchID...)
	key = append(key, '/')
	return binary.BigEndian.AppendUint64(key, uint64(seq))
}

// prefixBounds returns the iterator bounds covering every key under prefix.
func prefixBounds(prefix []byte) *pebble.IterOptions {
	upper := append([]byte(nil), prefix...)
	upper[len(upper)-1]++
	return &pebble.IterOptions{LowerBound: prefix, UpperBound: upper}
}

func (s *Store) AppendEvent(ctx context.Context, matchID string, ev game.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.db.Set(eventKey(matchID, ev.Seq), val, pebble.Sync)
}

// EventFilter narrows a transcript read. Zero values match everything.
type EventFilter struct {
	Day  *int
	Kind game.EventKind
}

func (f EventFilter) match(ev game.Event) bool {
	if f.Day != nil && ev.Day != *f.Day {
		return false
	}
	return f.Kind == "" || ev.Kind == f.Kind
}

// Events returns the stored transcript of a match in sequence order.
func (s *Store) Events(ctx context.Context, matchID string, filter EventFilter) ([]game.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	it, err := s.db.NewIter(prefixBounds([]byte(eventPrefix + matchID + "/")))
	if err != nil {
		return nil, fmt.Errorf("open iterator: %w", err)
	}
	defer func() { _ = it.Close() }()

	out := make([]game.Event, 0, 64)
	for it.First(); it.Valid(); it.Next() {
		var ev game.Event
		if err := json.Unmarshal(it.Value(), &ev); err != nil {
			s.logger.Warn().Err(err).Str("match", matchID).Msg("skip corrupt event")
			continue
		}
		if filter.match(ev) {
			out = append(out, ev)
		}
	}
	return out, it.Error()
}

func (s *Store) SaveFinal(ctx context.Context, snap game.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.db.Set([]byte(finalPrefix+snap.ID), val, pebble.Sync)
}

func (s *Store) LoadFinal(ctx context.Context, matchID string) (game.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return game.Snapshot{}, false, err
	}
	data, closer, err := s.db.Get([]byte(finalPrefix + matchID))
	if errors.Is(err, pebble.ErrNotFound) {
		return game.Snapshot{}, false, nil
	}
	if err != nil {
		return game.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	defer closer.Close()

	var snap game.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return game.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

// ListFinal returns archived terminal snapshots, newest first.
// limit <= 0 returns all of them.
func (s *Store) ListFinal(ctx context.Context, limit int) ([]game.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	it, err := s.db.NewIter(prefixBounds([]byte(finalPrefix)))
	if err != nil {
		return nil, fmt.Errorf("open iterator: %w", err)
	}
	defer func() { _ = it.Close() }()

	var out []game.Snapshot
	for it.First(); it.Valid(); it.Next() {
		var snap game.Snapshot
		if err := json.Unmarshal(it.Value(), &snap); err != nil {
			s.logger.Warn().Err(err).Str("key", string(it.Key())).Msg("skip corrupt snapshot")
			continue
		}
		out = append(out, snap)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// pebbleLogger routes Pebble's internal logging through zerolog.
type pebbleLogger struct{ l zerolog.Logger }

func (p pebbleLogger) Infof(format string, args ...interface{}) {
	p.l.Debug().Msgf(format, args...)
}

func (p pebbleLogger) Errorf(format string, args ...interface{}) {
	p.l.Error().Msgf(format, args...)
}

func (p pebbleLogger) Fatalf(format string, args ...interface{}) {
	p.l.Fatal().Msgf(format, args...)
}
