package memory

import (
	"context"
	"sort"
	"sync"

	"league-games-service/internal/domain"
)

// ScoreStore is an in-memory implementation of game.ScoreStore with the same
// merge semantics as the Redis-backed one.
type ScoreStore struct {
	mu      sync.RWMutex
	records map[string]map[domain.Mode]int
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		records: make(map[string]map[domain.Mode]int),
	}
}

func (s *ScoreStore) Get(_ context.Context, player string) (domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.records[player]
	if !ok {
		return domain.ScoreRecord{}, domain.ErrScoreNotFound
	}
	best := make(map[domain.Mode]int, len(fields))
	for mode, score := range fields {
		best[mode] = score
	}
	return domain.ScoreRecord{Player: player, Best: best}, nil
}

// MergeWrite merges fields into the player's record, creating it if absent.
// Unmentioned modes keep their stored values.
func (s *ScoreStore) MergeWrite(_ context.Context, player string, fields map[domain.Mode]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[player]
	if !ok {
		record = make(map[domain.Mode]int, len(fields))
		s.records[player] = record
	}
	for mode, score := range fields {
		record[mode] = score
	}
	return nil
}

func (s *ScoreStore) TopN(_ context.Context, mode domain.Mode, n int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.LeaderboardEntry, 0, len(s.records))
	for player, fields := range s.records {
		if score, ok := fields[mode]; ok {
			entries = append(entries, domain.LeaderboardEntry{Player: player, Score: score})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Player < entries[j].Player
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}
