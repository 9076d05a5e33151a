package engine

import (
	"io"
	"time"

	"github.com/MRamiBalles/CellArena/internal/config"
	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/events"
	"github.com/MRamiBalles/CellArena/internal/platform/logger"
)

const (
	// UpdatePeriod is the countdown every throttled entity is reset to after an update pass.
	UpdatePeriod = 25

	splitImmunityTicks = 12
	immunityStep       = 0.75
	recombineStep      = 0.025

	ejectSpawnGap  = 16
	ejectAimJitter = 0.05
	ejectFlyJitter = 0.3

	virusShotSpeed = 115
	virusSpawnDist = 100

	pelletAttempts = 16
)

// EventSink receives gameplay events. *events.EventLog satisfies it.
type EventSink interface {
	Append(event events.GameEvent)
}

// Deps are the collaborators a Simulation consumes. Zero fields get defaults.
type Deps struct {
	IDs      IDAllocator
	RNG      *RNG
	Clock    func() time.Time
	Resolver Resolver
	Mode     GameMode
	Events   EventSink
	Logger   *logger.Logger
}

// Simulation is the arena state plus the rules that advance it.
// Every method must be called from the goroutine that owns it.
type Simulation struct {
	World  *World
	Config config.Game

	// MaxClients caps joins. Zero means unlimited.
	MaxClients int

	mode     GameMode
	resolver Resolver
	rng      *RNG
	clock    func() time.Time
	events   EventSink
	log      *logger.Logger

	queue *Queue
	tick  uint64
}

// NewSimulation builds an empty arena. Call SpawnFood/SpawnViruses or
// Bootstrap to populate it.
func NewSimulation(cfg config.Game, deps Deps) *Simulation {
	bounds := cell.Bounds{
		Left:   cfg.BorderLeft,
		Top:    cfg.BorderTop,
		Right:  cfg.BorderRight,
		Bottom: cfg.BorderBottom,
	}
	if deps.RNG == nil {
		deps.RNG = NewClockRNG()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Resolver == nil {
		deps.Resolver = NewSoftResolver(bounds)
	}
	if deps.Mode == nil {
		deps.Mode = ModeByName(cfg.Mode, deps.Resolver)
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewLoggerWithWriter(io.Discard, io.Discard)
	}

	return &Simulation{
		World:    NewWorld(bounds, deps.IDs),
		Config:   cfg,
		mode:     deps.Mode,
		resolver: deps.Resolver,
		rng:      deps.RNG,
		clock:    deps.Clock,
		events:   deps.Events,
		log:      deps.Logger,
		queue:    NewQueue(1024),
	}
}

// Bootstrap seeds the starting food and virus populations.
func (s *Simulation) Bootstrap() {
	s.SpawnFood(s.Config.FoodStartAmount)
	s.SpawnViruses(s.Config.VirusMinAmount)
}

// Tick is the number of completed ticks.
func (s *Simulation) Tick() uint64 { return s.tick }

func (s *Simulation) Mode() GameMode { return s.mode }

// Queue is the command queue drained at the start of every tick.
func (s *Simulation) Queue() *Queue { return s.queue }

// SetQueue replaces the command queue. Only valid before the first tick.
func (s *Simulation) SetQueue(q *Queue) { s.queue = q }

func (s *Simulation) emit(t events.EventType, actor, target string, payload interface{}) {
	if s.events == nil {
		return
	}
	s.events.Append(events.NewEvent(t, s.tick, actor, target, payload))
}
