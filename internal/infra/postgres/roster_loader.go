package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"league-games-service/internal/domain"
)

// DefaultRosterID is the row holding the current season's roster.
const DefaultRosterID = "current"

// RosterLoader loads roster JSONB from Postgres.
type RosterLoader struct {
	pool     *pgxpool.Pool
	rosterID string
}

func NewRosterLoader(pool *pgxpool.Pool, rosterID string) *RosterLoader {
	if rosterID == "" {
		rosterID = DefaultRosterID
	}
	return &RosterLoader{pool: pool, rosterID: rosterID}
}

func (l *RosterLoader) LoadRoster(ctx context.Context) (domain.Roster, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM rosters WHERE id=$1`, l.rosterID).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	var roster domain.Roster
	if err := json.Unmarshal(raw, &roster); err != nil {
		return nil, fmt.Errorf("unmarshal roster: %w", err)
	}
	if len(roster) == 0 {
		return nil, domain.ErrRosterNotFound
	}
	return roster, nil
}
