package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/CellArena/internal/events"
)

// EventLogPersister adapts an EventRepository to the event log's write-behind hook.
type EventLogPersister struct {
	repo    EventRepository
	matchID string
	timeout time.Duration
}

// NewEventLogPersister stamps every event with matchID. Each write gets its own timeout.
func NewEventLogPersister(repo EventRepository, matchID string, timeout time.Duration) *EventLogPersister {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EventLogPersister{repo: repo, matchID: matchID, timeout: timeout}
}

func (p *EventLogPersister) Append(e events.GameEvent) error {
	row, err := FromEvent(p.matchID, e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.repo.Append(ctx, row)
}

// FromEvent converts an engine event to its stored form. Typed payloads are
// flattened to a JSON object.
func FromEvent(matchID string, e events.GameEvent) (GameEvent, error) {
	payload := map[string]interface{}{}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return GameEvent{}, fmt.Errorf("failed to marshal payload: %w", err)
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return GameEvent{}, fmt.Errorf("payload of %s is not an object: %w", e.Type, err)
		}
	}
	return GameEvent{
		ID:        e.ID,
		MatchID:   matchID,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		Payload:   payload,
		Tick:      int64(e.Tick),
	}, nil
}
