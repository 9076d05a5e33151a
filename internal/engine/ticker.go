package engine

import (
	"context"
	"sync"
	"time"

	"github.com/MRamiBalles/CellArena/internal/platform/logger"
)

// DefaultTickRate is used when no positive interval is configured.
const DefaultTickRate = 2 * time.Millisecond

// Ticker manages the game loop heartbeat.
// It does NOT know about cells or clients - only when the next tick is due.
type Ticker struct {
	interval time.Duration
	onTick   func() TickReport
	logger   *logger.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTicker creates a new game ticker.
func NewTicker(interval time.Duration, onTick func() TickReport, log *logger.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultTickRate
	}
	return &Ticker{
		interval: interval,
		onTick:   onTick,
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Start begins the game loop. Call in a goroutine.
// Cancellation is only observed between ticks; a started tick always completes.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("Engine Ticker started.")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Engine Ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Engine Ticker stopped manually.")
			return
		case <-ticker.C:
			t.onTick()
		}
	}
}

// Stop gracefully stops the ticker. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

func (t *Ticker) Interval() time.Duration {
	return t.interval
}
