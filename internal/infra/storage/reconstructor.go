// Package storage - reconstructor.go
// Rebuilds per-player stats from the event log: stats = f(events).
package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/MRamiBalles/CellArena/internal/events"
)

// Event types as stored by EventLogPersister.
const (
	evPlayerJoined    = string(events.EventTypePlayerJoined)
	evPlayerRespawned = string(events.EventTypePlayerRespawned)
	evPlayerLeft      = string(events.EventTypePlayerLeft)
	evCellSplit       = string(events.EventTypeCellSplit)
	evMassEjected     = string(events.EventTypeMassEjected)
	evVirusPopped     = string(events.EventTypeVirusPopped)
	evCellConsumed    = string(events.EventTypeCellConsumed)
	evAntiTeamApplied = string(events.EventTypeAntiTeamApplied)
)

// Reconstructor rebuilds player stats from the event log.
// This is used for:
// 1. The stats backup loop, which folds the ledger into player_stats
// 2. The leaderboard and recap endpoints after a restart
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new stats reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEvent is a simplified event for a player's match history.
type RecapEvent struct {
	Tick      int64  `json:"tick"`
	EventType string `json:"event_type"`
	Summary   string `json:"summary"` // Human-readable description
	Impact    string `json:"impact"`  // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// RebuildPlayerStats folds every event of the match into per-player stats.
func (r *Reconstructor) RebuildPlayerStats(ctx context.Context, matchID string) (map[string]*PlayerStats, error) {
	ledger, err := r.eventRepo.GetByMatchID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for match: %w", err)
	}
	return FoldStats(matchID, ledger), nil
}

// FoldStats applies events in order. Players are created on first mention.
func FoldStats(matchID string, ledger []GameEvent) map[string]*PlayerStats {
	stats := make(map[string]*PlayerStats)
	get := func(id string) *PlayerStats {
		s, ok := stats[id]
		if !ok {
			s = &PlayerStats{PlayerID: id, MatchID: matchID, DecayMult: 1}
			stats[id] = s
		}
		return s
	}

	for _, e := range ledger {
		if e.ActorID == "" {
			continue
		}
		actor := get(e.ActorID)
		if e.Timestamp.After(actor.LastUpdated) {
			actor.LastUpdated = e.Timestamp
		}

		switch e.EventType {
		case evPlayerJoined:
			actor.Joins++
		case evPlayerRespawned:
			actor.Respawns++
		case evCellSplit:
			actor.Splits += payloadInt(e.Payload, "splits")
		case evMassEjected:
			actor.Ejections += payloadInt(e.Payload, "count")
		case evVirusPopped:
			actor.VirusPops++
		case evCellConsumed:
			actor.CellsEaten++
			actor.MassEaten += payloadFloat(e.Payload, "mass")
			if e.TargetID != "" {
				get(e.TargetID).TimesEaten++
			}
		case evAntiTeamApplied:
			actor.AntiTeamHits++
			if m := payloadFloat(e.Payload, "mass_decay_mult"); m > 0 {
				actor.DecayMult = m
			}
		}
	}
	return stats
}

// Persist rebuilds the match's stats and writes every player's row.
func (r *Reconstructor) Persist(ctx context.Context, repo StatsRepository, matchID string) (int, error) {
	stats, err := r.RebuildPlayerStats(ctx, matchID)
	if err != nil {
		return 0, err
	}
	for _, s := range stats {
		if s.LastUpdated.IsZero() {
			s.LastUpdated = time.Now()
		}
		if err := repo.Upsert(ctx, *s); err != nil {
			return 0, err
		}
	}
	return len(stats), nil
}

// Leaderboard ranks players by mass eaten, heaviest first. n <= 0 returns everyone.
func (r *Reconstructor) Leaderboard(ctx context.Context, matchID string, n int) ([]PlayerStats, error) {
	stats, err := r.RebuildPlayerStats(ctx, matchID)
	if err != nil {
		return nil, err
	}
	board := make([]PlayerStats, 0, len(stats))
	for _, s := range stats {
		board = append(board, *s)
	}
	sort.Slice(board, func(i, j int) bool {
		if board[i].MassEaten != board[j].MassEaten {
			return board[i].MassEaten > board[j].MassEaten
		}
		return board[i].PlayerID < board[j].PlayerID
	})
	if n > 0 && len(board) > n {
		board = board[:n]
	}
	return board, nil
}

// Recap lists the events that involved playerID from sinceTick onwards.
func (r *Reconstructor) Recap(ctx context.Context, matchID, playerID string, sinceTick int64) ([]RecapEvent, error) {
	ledger, err := r.eventRepo.GetSinceTick(ctx, matchID, sinceTick)
	if err != nil {
		return nil, err
	}

	var recap []RecapEvent
	for _, e := range ledger {
		if e.ActorID != playerID && e.TargetID != playerID {
			continue
		}
		recap = append(recap, RecapEvent{
			Tick:      e.Tick,
			EventType: e.EventType,
			Summary:   Summarize(e, playerID),
			Impact:    determineImpact(e, playerID),
		})
	}
	return recap, nil
}

// Summarize describes e from observerID's point of view.
func Summarize(e GameEvent, observerID string) string {
	switch e.EventType {
	case evPlayerJoined:
		return "You joined the arena."
	case evPlayerRespawned:
		return "You respawned."
	case evPlayerLeft:
		return "You left the arena."
	case evCellSplit:
		return fmt.Sprintf("You split %d cells.", payloadInt(e.Payload, "splits"))
	case evMassEjected:
		return fmt.Sprintf("You ejected %d blobs.", payloadInt(e.Payload, "count"))
	case evVirusPopped:
		return "A virus burst one of your cells."
	case evCellConsumed:
		if e.TargetID == observerID {
			return fmt.Sprintf("You lost a cell of %.0f mass.", payloadFloat(e.Payload, "mass"))
		}
		return fmt.Sprintf("You ate a cell of %.0f mass.", payloadFloat(e.Payload, "mass"))
	case evAntiTeamApplied:
		return "Your mass now decays faster: suspected teaming."
	default:
		return "Something happened in the arena."
	}
}

func determineImpact(e GameEvent, observerID string) string {
	switch e.EventType {
	case evVirusPopped, evAntiTeamApplied:
		return "NEGATIVE"
	case evCellConsumed:
		if e.TargetID == observerID {
			return "NEGATIVE"
		}
		return "POSITIVE"
	default:
		return "NEUTRAL"
	}
}

// Payload values decode from JSON, so numbers arrive as float64.
func payloadFloat(p map[string]interface{}, key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func payloadInt(p map[string]interface{}, key string) int {
	return int(payloadFloat(p, key))
}
