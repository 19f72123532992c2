package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"league-games-service/internal/domain"
)

// RosterLoader fetches roster content from a backing store (e.g., document DB).
type RosterLoader interface {
	LoadRoster(ctx context.Context) (domain.Roster, error)
}

// RosterRepository caches the roster JSON in Redis and falls back to a loader
// on cache miss. Stored as: SET league:roster {json} EX ttl
type RosterRepository struct {
	client *redis.Client
	loader RosterLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewRosterRepository(client *redis.Client, loader RosterLoader, ttl time.Duration) *RosterRepository {
	return &RosterRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const rosterKey = "league:roster"

func (r *RosterRepository) GetRoster(ctx context.Context) (domain.Roster, error) {
	if roster, ok := r.fromCache(ctx); ok {
		return roster, nil
	}

	result, err, _ := r.sf.Do(rosterKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if roster, ok := r.fromCache(ctx); ok {
			return roster, nil
		}

		roster, err := r.loader.LoadRoster(ctx)
		if err != nil {
			return domain.Roster(nil), err
		}

		if data, err := json.Marshal(roster); err == nil {
			// best-effort cache fill
			_ = r.client.Set(ctx, rosterKey, data, r.ttlWithJitter()).Err()
		}
		return roster, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.Roster), nil
}

func (r *RosterRepository) fromCache(ctx context.Context) (domain.Roster, bool) {
	data, err := r.client.Get(ctx, rosterKey).Bytes()
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var roster domain.Roster
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, false
	}
	return roster, len(roster) > 0
}

func (r *RosterRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
