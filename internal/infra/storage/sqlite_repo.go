package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event GameEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, match_id, timestamp, event_type, actor_id, target_id, payload, tick)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.MatchID, event.Timestamp, event.EventType, event.ActorID,
		event.TargetID, string(payloadBytes), event.Tick,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const eventColumns = `id, match_id, timestamp, event_type, actor_id, target_id, payload, tick`

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var payloadStr string
		err := rows.Scan(
			&e.ID, &e.MatchID, &e.Timestamp, &e.EventType, &e.ActorID,
			&e.TargetID, &payloadStr, &e.Tick,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload of %s: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetByMatchID(ctx context.Context, matchID string) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE match_id = ? ORDER BY tick ASC, timestamp ASC`
	return r.getMany(ctx, query, matchID)
}

func (r *SQLiteEventRepository) GetByActorID(ctx context.Context, matchID, actorID string) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE match_id = ? AND actor_id = ? ORDER BY tick ASC, timestamp ASC`
	return r.getMany(ctx, query, matchID, actorID)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, matchID string, eventType string) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE match_id = ? AND event_type = ? ORDER BY tick ASC, timestamp ASC`
	return r.getMany(ctx, query, matchID, eventType)
}

func (r *SQLiteEventRepository) GetSinceTick(ctx context.Context, matchID string, tick int64) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE match_id = ? AND tick >= ? ORDER BY tick ASC, timestamp ASC`
	return r.getMany(ctx, query, matchID, tick)
}

// ---------------------------------------------------------
// SQLiteStatsRepository
// ---------------------------------------------------------

type SQLiteStatsRepository struct {
	db *sql.DB
}

func NewSQLiteStatsRepository(db *sql.DB) *SQLiteStatsRepository {
	return &SQLiteStatsRepository{db: db}
}

func (r *SQLiteStatsRepository) Upsert(ctx context.Context, s PlayerStats) error {
	query := `
		INSERT INTO player_stats (player_id, match_id, joins, respawns, splits, ejections, virus_pops, cells_eaten, mass_eaten, times_eaten, anti_team_hits, decay_mult, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(match_id, player_id) DO UPDATE SET
			joins=excluded.joins,
			respawns=excluded.respawns,
			splits=excluded.splits,
			ejections=excluded.ejections,
			virus_pops=excluded.virus_pops,
			cells_eaten=excluded.cells_eaten,
			mass_eaten=excluded.mass_eaten,
			times_eaten=excluded.times_eaten,
			anti_team_hits=excluded.anti_team_hits,
			decay_mult=excluded.decay_mult,
			last_updated=excluded.last_updated
	`
	updated := s.LastUpdated
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := r.db.ExecContext(ctx, query,
		s.PlayerID, s.MatchID, s.Joins, s.Respawns, s.Splits, s.Ejections, s.VirusPops,
		s.CellsEaten, s.MassEaten, s.TimesEaten, s.AntiTeamHits, s.DecayMult, updated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert stats for %s: %w", s.PlayerID, err)
	}
	return nil
}

const statsColumns = `player_id, match_id, joins, respawns, splits, ejections, virus_pops, cells_eaten, mass_eaten, times_eaten, anti_team_hits, decay_mult, last_updated`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStats(row rowScanner) (PlayerStats, error) {
	var s PlayerStats
	err := row.Scan(
		&s.PlayerID, &s.MatchID, &s.Joins, &s.Respawns, &s.Splits, &s.Ejections, &s.VirusPops,
		&s.CellsEaten, &s.MassEaten, &s.TimesEaten, &s.AntiTeamHits, &s.DecayMult, &s.LastUpdated,
	)
	return s, err
}

func (r *SQLiteStatsRepository) GetByPlayerID(ctx context.Context, matchID, playerID string) (*PlayerStats, error) {
	query := `SELECT ` + statsColumns + ` FROM player_stats WHERE match_id = ? AND player_id = ?`
	s, err := scanStats(r.db.QueryRowContext(ctx, query, matchID, playerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteStatsRepository) GetByMatchID(ctx context.Context, matchID string) ([]PlayerStats, error) {
	query := `SELECT ` + statsColumns + ` FROM player_stats WHERE match_id = ? ORDER BY mass_eaten DESC, player_id ASC`
	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []PlayerStats
	for rows.Next() {
		s, err := scanStats(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, s)
	}
	return all, rows.Err()
}
