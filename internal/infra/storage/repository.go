// Package storage provides the persistence layer for the arena server.
// This package implements the repository pattern so the engine stays free of SQL.
package storage

import (
	"context"
	"time"
)

// GameEvent mirrors the gameplay event structure for persistence.
// The engine never sees this type; events are converted on the way in.
type GameEvent struct {
	ID        string                 `json:"id" db:"id"`
	MatchID   string                 `json:"match_id" db:"match_id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	TargetID  string                 `json:"target_id" db:"target_id"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
	Tick      int64                  `json:"tick" db:"tick"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event GameEvent) error

	// GetByMatchID retrieves all events for a match, oldest first (for replay).
	GetByMatchID(ctx context.Context, matchID string) ([]GameEvent, error)

	// GetByActorID retrieves all events performed by a client.
	GetByActorID(ctx context.Context, matchID, actorID string) ([]GameEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, matchID string, eventType string) ([]GameEvent, error)

	// GetSinceTick retrieves events recorded at or after tick.
	GetSinceTick(ctx context.Context, matchID string, tick int64) ([]GameEvent, error)
}

// PlayerStats is the per-client aggregate for quick reads.
// It is derived data: the event ledger stays the source of truth.
type PlayerStats struct {
	PlayerID     string    `json:"player_id" db:"player_id"`
	MatchID      string    `json:"match_id" db:"match_id"`
	Joins        int       `json:"joins" db:"joins"`
	Respawns     int       `json:"respawns" db:"respawns"`
	Splits       int       `json:"splits" db:"splits"`
	Ejections    int       `json:"ejections" db:"ejections"`
	VirusPops    int       `json:"virus_pops" db:"virus_pops"`
	CellsEaten   int       `json:"cells_eaten" db:"cells_eaten"`
	MassEaten    float64   `json:"mass_eaten" db:"mass_eaten"`
	TimesEaten   int       `json:"times_eaten" db:"times_eaten"`
	AntiTeamHits int       `json:"anti_team_hits" db:"anti_team_hits"`
	DecayMult    float64   `json:"decay_mult" db:"decay_mult"`
	LastUpdated  time.Time `json:"last_updated" db:"last_updated"`
}

// StatsRepository defines the interface for player stat snapshots.
type StatsRepository interface {
	// Upsert updates or inserts a player's stats.
	Upsert(ctx context.Context, stats PlayerStats) error

	// GetByPlayerID retrieves one player's stats. It returns nil when none are stored.
	GetByPlayerID(ctx context.Context, matchID, playerID string) (*PlayerStats, error)

	// GetByMatchID retrieves all stats for a match.
	GetByMatchID(ctx context.Context, matchID string) ([]PlayerStats, error)
}
