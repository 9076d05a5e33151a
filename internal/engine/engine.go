package engine

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/MRamiBalles/CellArena/internal/config"
	"github.com/MRamiBalles/CellArena/internal/platform/logger"
	"github.com/MRamiBalles/CellArena/internal/platform/metrics"
)

// Publisher receives the per-client views after a broadcast tick.
// It is called on the engine goroutine and must not block.
type Publisher interface {
	Publish(views []View)
}

// Engine is the central orchestrator: it owns the simulation on a single
// goroutine, feeds it commands and publishes what each client sees.
type Engine struct {
	sim     *Simulation
	queue   *Queue
	logger  *logger.Logger
	metrics *metrics.Collector
	ticker  *Ticker
	running sync.WaitGroup

	broadcastEvery uint64
	publisher      Publisher

	mu          sync.RWMutex
	leaderboard []LeaderboardEntry
}

// Option customises an Engine.
type Option func(*options)

type options struct {
	deps           Deps
	metrics        *metrics.Collector
	queueSize      int
	broadcastEvery int
	maxClients     int
}

func WithRNG(r *RNG) Option {
	return func(o *options) { o.deps.RNG = r }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.deps.Clock = now }
}

func WithResolver(r Resolver) Option {
	return func(o *options) { o.deps.Resolver = r }
}

func WithGameMode(m GameMode) Option {
	return func(o *options) { o.deps.Mode = m }
}

func WithIDs(ids IDAllocator) Option {
	return func(o *options) { o.deps.IDs = ids }
}

// WithEvents routes gameplay events to sink, usually an *events.EventLog.
func WithEvents(sink EventSink) Option {
	return func(o *options) { o.deps.Events = sink }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

func WithBroadcastEvery(n int) Option {
	return func(o *options) { o.broadcastEvery = n }
}

// WithMaxClients caps concurrent clients. Zero means unlimited.
func WithMaxClients(n int) Option {
	return func(o *options) { o.maxClients = n }
}

// NewEngine initializes the simulation and its dependencies.
func NewEngine(cfg config.Config, log *logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.NewLoggerWithWriter(io.Discard, io.Discard)
	}
	o := options{
		metrics:        metrics.Get(),
		queueSize:      1024,
		broadcastEvery: 1,
	}
	o.deps.Logger = log
	for _, opt := range opts {
		opt(&o)
	}
	if o.broadcastEvery < 1 {
		o.broadcastEvery = 1
	}

	sim := NewSimulation(cfg.Game, o.deps)
	sim.MaxClients = o.maxClients
	queue := NewQueue(o.queueSize)
	sim.SetQueue(queue)

	e := &Engine{
		sim:            sim,
		queue:          queue,
		logger:         log,
		metrics:        o.metrics,
		broadcastEvery: uint64(o.broadcastEvery),
	}
	e.ticker = NewTicker(cfg.Server.TickInterval, e.Step, log)
	return e
}

// SetPublisher installs the view sink. Call before Start.
func (e *Engine) SetPublisher(p Publisher) {
	e.publisher = p
}

// Bootstrap seeds the starting food and viruses. Call before Start.
func (e *Engine) Bootstrap() {
	e.sim.Bootstrap()
	e.logger.Info("Arena seeded with food and viruses.")
}

// Start spawns the tick loop, which runs until ctx is cancelled or Stop is
// called. From then on the world is only touched from that goroutine.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info("Starting arena engine (mode: " + e.sim.Mode().Name() + ")...")
	e.running.Add(1)
	go func() {
		defer e.running.Done()
		e.ticker.Start(ctx)
	}()
}

// Stop halts the tick loop and waits for a tick in progress to finish, so
// event sinks may be closed once it returns.
func (e *Engine) Stop() {
	e.ticker.Stop()
	e.running.Wait()
}

// Submit queues a command for the next tick. It never blocks and returns
// false when the queue is full.
func (e *Engine) Submit(cmd Command) bool {
	ok := e.queue.Push(cmd)
	e.metrics.RecordCommand(ok)
	return ok
}

// Step advances the world by one tick. The ticker calls it; tests may call
// it directly instead of Start.
func (e *Engine) Step() TickReport {
	start := time.Now()
	rep := e.sim.AdvanceTick()
	e.metrics.RecordTick(time.Since(start))

	w := e.sim.World
	e.metrics.RecordPopulation(metrics.Population{
		Clients:     len(w.Clients()),
		PlayerCells: w.PlayerCells.Len(),
		Food:        w.Food.Len(),
		Viruses:     w.Viruses.Len(),
		Ejected:     w.Ejected.Len(),
	})

	if rep.Tick%e.broadcastEvery == 0 {
		board := e.sim.Leaderboard(leaderboardSize)
		e.mu.Lock()
		e.leaderboard = board
		e.mu.Unlock()

		if e.publisher != nil {
			e.publisher.Publish(e.sim.BuildViews())
		}
	}
	return rep
}

// Leaderboard returns the board computed at the last broadcast tick.
// Safe to call from any goroutine.
func (e *Engine) Leaderboard() []LeaderboardEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]LeaderboardEntry, len(e.leaderboard))
	copy(out, e.leaderboard)
	return out
}

// Simulation exposes the world for tests and headless tools.
// It must not be used while the ticker is running.
func (e *Engine) Simulation() *Simulation {
	return e.sim
}
