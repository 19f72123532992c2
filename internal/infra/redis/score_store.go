package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"league-games-service/internal/domain"
)

// ScoreStore persists best scores in Redis.
// Records are stored as: HSET league:scores:{player} {mode} {score}
// Leaderboards as:       ZADD league:leaderboard:{mode} {score} {player}
//
// HSET gives the merge-write semantics the game needs for free: only the
// supplied fields change, other modes' bests stay put. The sorted set stays
// consistent with the hash because the engine only writes strictly improved
// scores.
type ScoreStore struct {
	client *redis.Client
}

func NewScoreStore(client *redis.Client) *ScoreStore {
	return &ScoreStore{client: client}
}

func (s *ScoreStore) Get(ctx context.Context, player string) (domain.ScoreRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(player)).Result()
	if err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("read score record: %w", err)
	}
	if len(fields) == 0 {
		return domain.ScoreRecord{}, domain.ErrScoreNotFound
	}

	best := make(map[domain.Mode]int, len(fields))
	for mode, raw := range fields {
		score, err := strconv.Atoi(raw)
		if err != nil {
			return domain.ScoreRecord{}, fmt.Errorf("score field %s: %w", mode, err)
		}
		best[domain.Mode(mode)] = score
	}
	return domain.ScoreRecord{Player: player, Best: best}, nil
}

func (s *ScoreStore) MergeWrite(ctx context.Context, player string, fields map[domain.Mode]int) error {
	pipe := s.client.Pipeline()
	for mode, score := range fields {
		pipe.HSet(ctx, s.recordKey(player), string(mode), score)
		pipe.ZAdd(ctx, s.boardKey(mode), redis.Z{Score: float64(score), Member: player})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write score record: %w", err)
	}
	return nil
}

func (s *ScoreStore) TopN(ctx context.Context, mode domain.Mode, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.client.ZRevRangeWithScores(ctx, s.boardKey(mode), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		player, _ := row.Member.(string)
		entries = append(entries, domain.LeaderboardEntry{Player: player, Score: int(row.Score)})
	}
	return entries, nil
}

func (s *ScoreStore) recordKey(player string) string {
	return "league:scores:" + player
}

func (s *ScoreStore) boardKey(mode domain.Mode) string {
	return "league:leaderboard:" + string(mode)
}
