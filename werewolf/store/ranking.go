package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cockroachdb/pebble/v2"

	"github.com/gosuda/portal-werewolf/werewolf/game"
)

// Points awarded per match outcome.
const (
	PointsWinAlive = 2
	PointsWinDead  = 1
	PointsLoss     = -1
)

// Standing is one player's accumulated record. WinRate is a percentage over
// all games. In a role-filtered ranking RoleGames and Deaths cover only the
// games played in that role.
type Standing struct {
	PlayerID  string                   `json:"player_id"`
	Name      string                   `json:"name"`
	Wins      int                      `json:"wins"`
	Losses    int                      `json:"losses"`
	Games     int                      `json:"games"`
	Score     int                      `json:"score"`
	Deaths    int                      `json:"deaths"`
	WinRate   float64                  `json:"win_rate"`
	RoleGames int                      `json:"role_games,omitempty"`
	Roles     map[game.Role]RoleRecord `json:"roles,omitempty"`
}

// RoleRecord tallies the games a player sat in one role.
type RoleRecord struct {
	Games  int `json:"games"`
	Wins   int `json:"wins"`
	Deaths int `json:"deaths"`
}

func (st *Standing) apply(o game.Outcome) {
	st.Name = o.Name
	st.Games++
	if !o.Survived {
		st.Deaths++
	}
	if o.Role != "" {
		if st.Roles == nil {
			st.Roles = make(map[game.Role]RoleRecord)
		}
		rec := st.Roles[o.Role]
		rec.Games++
		if o.Won {
			rec.Wins++
		}
		if !o.Survived {
			rec.Deaths++
		}
		st.Roles[o.Role] = rec
	}
	switch {
	case o.Won && o.Survived:
		st.Wins++
		st.Score += PointsWinAlive
	case o.Won:
		st.Wins++
		st.Score += PointsWinDead
	default:
		st.Losses++
		st.Score += PointsLoss
	}
}

// UpdateRankings folds one match's outcomes into the standings in a single
// batch.
func (s *Store) UpdateRankings(ctx context.Context, matchID string, outcomes []game.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.rankMu.Lock()
	defer s.rankMu.Unlock()

	b := s.db.NewBatch()
	defer func() { _ = b.Close() }()
	for _, o := range outcomes {
		st, err := s.standing(o.PlayerID)
		if err != nil {
			return err
		}
		st.apply(o)
		val, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("marshal standing: %w", err)
		}
		if err := b.Set([]byte(rankPrefix+o.PlayerID), val, nil); err != nil {
			return fmt.Errorf("stage standing: %w", err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit rankings: %w", err)
	}
	s.logger.Debug().Str("match", matchID).Int("players", len(outcomes)).Msg("rankings updated")
	return nil
}

func (s *Store) standing(playerID string) (Standing, error) {
	st := Standing{PlayerID: playerID}
	data, closer, err := s.db.Get([]byte(rankPrefix + playerID))
	if errors.Is(err, pebble.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("load standing: %w", err)
	}
	defer closer.Close()
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("decode standing: %w", err)
	}
	return st, nil
}

func winRate(wins, games int) float64 {
	if games == 0 {
		return 0
	}
	return math.Round(float64(wins)*10000/float64(games)) / 100
}

// Ranking returns standings ordered by score, then wins, then fewer games.
// A non-empty role keeps only players who have sat in that role.
// limit <= 0 returns every standing.
func (s *Store) Ranking(ctx context.Context, limit int, role game.Role) ([]Standing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	it, err := s.db.NewIter(prefixBounds([]byte(rankPrefix)))
	if err != nil {
		return nil, fmt.Errorf("open iterator: %w", err)
	}
	defer func() { _ = it.Close() }()

	var out []Standing
	for it.First(); it.Valid(); it.Next() {
		var st Standing
		if err := json.Unmarshal(it.Value(), &st); err != nil {
			s.logger.Warn().Err(err).Msg("skip corrupt standing")
			continue
		}
		st.WinRate = winRate(st.Wins, st.Games)
		if role != "" {
			rec, ok := st.Roles[role]
			if !ok || rec.Games == 0 {
				continue
			}
			st.RoleGames = rec.Games
			st.Deaths = rec.Deaths
		}
		out = append(out, st)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.Games != b.Games {
			return a.Games < b.Games
		}
		return a.PlayerID < b.PlayerID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
