package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"league-games-service/internal/domain"
)

// RosterLoader fetches roster content from a backing store (e.g., document DB).
type RosterLoader interface {
	LoadRoster(ctx context.Context) (domain.Roster, error)
}

// RosterRepository caches the roster with TTL to avoid repeated DB hits.
type RosterRepository struct {
	loader RosterLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    domain.Roster
	expiresAt time.Time
}

func NewRosterRepository(loader RosterLoader, ttl time.Duration) *RosterRepository {
	return &RosterRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *RosterRepository) GetRoster(ctx context.Context) (domain.Roster, error) {
	now := r.clock()

	r.mu.RLock()
	if r.cached != nil && r.expiresAt.After(now) {
		roster := r.cached
		r.mu.RUnlock()
		return roster, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("roster", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.cached != nil && r.expiresAt.After(now) {
			roster := r.cached
			r.mu.RUnlock()
			return roster, nil
		}
		r.mu.RUnlock()

		roster, err := r.loader.LoadRoster(ctx)
		if err != nil {
			return domain.Roster(nil), err
		}

		r.mu.Lock()
		r.cached = roster
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return roster, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.Roster), nil
}

// StaticRosterLoader is a simple loader backed by a fixed roster (useful for
// tests/demos and redis-less deployments).
type StaticRosterLoader struct {
	roster domain.Roster
}

func NewStaticRosterLoader(roster domain.Roster) *StaticRosterLoader {
	return &StaticRosterLoader{roster: roster}
}

func (l *StaticRosterLoader) LoadRoster(_ context.Context) (domain.Roster, error) {
	if len(l.roster) == 0 {
		return nil, domain.ErrRosterNotFound
	}
	return l.roster, nil
}

func (r *RosterRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
