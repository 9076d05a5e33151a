// Package events provides the append-only gameplay log.
// Splits, ejections, virus pops and consumptions are recorded here and
// written through to durable storage in the background.
package events

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypePlayerJoined    EventType = "PLAYER_JOINED"
	EventTypePlayerLeft      EventType = "PLAYER_LEFT"
	EventTypePlayerRespawned EventType = "PLAYER_RESPAWNED"
	EventTypeCellSplit       EventType = "CELL_SPLIT"
	EventTypeMassEjected     EventType = "MASS_EJECTED"
	EventTypeVirusShot       EventType = "VIRUS_SHOT"
	EventTypeVirusPopped     EventType = "VIRUS_POPPED"
	EventTypeAntiTeamApplied EventType = "ANTI_TEAM_APPLIED"
	EventTypeCellConsumed    EventType = "CELL_CONSUMED"
)

// SplitPayload is attached to CELL_SPLIT.
type SplitPayload struct {
	Splits int `json:"splits"`
	Cells  int `json:"cells"`
}

// EjectPayload is attached to MASS_EJECTED.
type EjectPayload struct {
	Count int     `json:"count"`
	Mass  float64 `json:"mass"`
}

// ConsumePayload is attached to CELL_CONSUMED.
type ConsumePayload struct {
	PreyKind string  `json:"prey_kind"`
	Mass     float64 `json:"mass"`
}

// AntiTeamPayload is attached to ANTI_TEAM_APPLIED.
type AntiTeamPayload struct {
	Kind          string  `json:"kind"`
	MassDecayMult float64 `json:"mass_decay_mult"`
}

// GameEvent represents an immutable record of an action in the game.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`  // Who performed the action
	TargetID  string      `json:"target_id"` // Who was affected (optional)
	Payload   interface{} `json:"payload"`   // Event-specific data
	Tick      uint64      `json:"tick"`
}

// NewEvent stamps a fresh event with an id and the current time.
func NewEvent(eventType EventType, tick uint64, actorID, targetID string, payload interface{}) GameEvent {
	return GameEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Type:      eventType,
		ActorID:   actorID,
		TargetID:  targetID,
		Payload:   payload,
		Tick:      tick,
	}
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// ErrPersistBacklog is reported when the write-behind queue is full and an event is not persisted.
var ErrPersistBacklog = errors.New("event persistence backlog full")

const persistBuffer = 1024

// EventLog is the in-memory append-only log of game events.
// Persistence is write-behind on a single goroutine so the tick never waits on disk.
// With a retention window only the newest events stay in memory; offsets
// still count every event ever appended.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	dropped   int // events trimmed from the front of the window
	retention int
	persister EventPersister

	queue   chan GameEvent
	done    chan struct{}
	closed  bool
	onError func(GameEvent, error)
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	el := &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
		onError:   func(GameEvent, error) {},
	}
	if persister != nil {
		el.queue = make(chan GameEvent, persistBuffer)
		el.done = make(chan struct{})
		go el.persistLoop()
	}
	return el
}

// SetErrorHandler installs a callback for failed writes. Call before the first Append.
func (el *EventLog) SetErrorHandler(fn func(GameEvent, error)) {
	if fn != nil {
		el.onError = fn
	}
}

// SetRetention keeps at most n events in memory. Zero keeps everything.
func (el *EventLog) SetRetention(n int) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.retention = max(n, 0)
	el.trim()
}

// Append adds a new event to the log. Events are immutable once appended.
// After Close the event is kept in memory but no longer persisted.
func (el *EventLog) Append(event GameEvent) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.events = append(el.events, event)
	el.trim()

	if el.queue == nil || el.closed {
		return
	}
	select {
	case el.queue <- event:
	default:
		el.onError(event, ErrPersistBacklog)
	}
}

// trim drops the oldest events once the backing slice holds twice the
// window, so copying stays amortised. Callers hold mu.
func (el *EventLog) trim() {
	if el.retention == 0 || len(el.events) < 2*el.retention {
		return
	}
	cut := len(el.events) - el.retention
	kept := make([]GameEvent, el.retention, 2*el.retention)
	copy(kept, el.events[cut:])
	el.events = kept
	el.dropped += cut
}

// window returns the retained events and the absolute offset of the first one.
func (el *EventLog) window() ([]GameEvent, int) {
	if el.retention == 0 || len(el.events) <= el.retention {
		return el.events, el.dropped
	}
	cut := len(el.events) - el.retention
	return el.events[cut:], el.dropped + cut
}

func (el *EventLog) persistLoop() {
	defer close(el.done)
	for e := range el.queue {
		if err := el.persister.Append(e); err != nil {
			el.onError(e, err)
		}
	}
}

// Close flushes pending writes and stops the persistence goroutine.
// It is safe to call more than once.
func (el *EventLog) Close() {
	if el.queue == nil {
		return
	}
	el.mu.Lock()
	if el.closed {
		el.mu.Unlock()
		return
	}
	el.closed = true
	close(el.queue)
	el.mu.Unlock()
	<-el.done
}

// GetByActor returns the retained events performed by a specific actor.
func (el *EventLog) GetByActor(actorID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	events, _ := el.window()
	var result []GameEvent
	for _, e := range events {
		if e.ActorID == actorID {
			result = append(result, e)
		}
	}
	return result
}

// GetByType returns the retained events of one category.
func (el *EventLog) GetByType(eventType EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	events, _ := el.window()
	var result []GameEvent
	for _, e := range events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// Since returns the events appended after the first offset entries.
// Offsets older than the retention window start at the oldest kept event.
func (el *EventLog) Since(offset int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	events, base := el.window()
	offset -= base
	if offset < 0 {
		offset = 0
	}
	if offset >= len(events) {
		return nil
	}
	out := make([]GameEvent, len(events)-offset)
	copy(out, events[offset:])
	return out
}

// Replay returns a copy of the retained history.
func (el *EventLog) Replay() []GameEvent {
	return el.Since(0)
}

// Len is the number of events ever appended, including trimmed ones.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.dropped + len(el.events)
}
