package engine

import (
	"testing"
	"time"

	"github.com/MRamiBalles/CellArena/internal/config"
	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/domain/player"
	"github.com/MRamiBalles/CellArena/internal/events"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

// recordingResolver remembers every pair it was asked to separate.
type recordingResolver struct {
	pairs [][2]*cell.Cell
}

func (r *recordingResolver) PushApart(a, b *cell.Cell) {
	r.pairs = append(r.pairs, [2]*cell.Cell{a, b})
}

func (r *recordingResolver) touched(c *cell.Cell) bool {
	for _, p := range r.pairs {
		if p[0] == c || p[1] == c {
			return true
		}
	}
	return false
}

type eventRecorder struct {
	events []events.GameEvent
}

func (r *eventRecorder) Append(e events.GameEvent) { r.events = append(r.events, e) }

func (r *eventRecorder) count(t events.EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// quietConfig is a small arena with no automatic spawning.
func quietConfig() config.Game {
	cfg := config.Default().Game
	cfg.BorderRight = 2000
	cfg.BorderBottom = 2000
	cfg.FoodStartAmount = 0
	cfg.FoodMaxAmount = 0
	cfg.FoodSpawnAmount = 0
	cfg.VirusMinAmount = 0
	return cfg
}

func newTestSim(t *testing.T, mutate func(*config.Game), deps Deps) *Simulation {
	t.Helper()
	cfg := quietConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	if deps.RNG == nil {
		deps.RNG = NewRNG(42)
	}
	return NewSimulation(cfg, deps)
}

func addClient(s *Simulation, id string) *player.Tracker {
	c := player.NewTracker(id, id, 0)
	s.World.AddClient(c)
	return c
}

// addPlayerCell places a cell and parks the owner's mouse on it so it does not wander.
func addPlayerCell(s *Simulation, owner *player.Tracker, pos cell.Vector, mass float64) *cell.Cell {
	c := cell.NewPlayerCell(s.World.NextID(), owner.ID, pos, mass)
	s.World.AddNode(c)
	owner.Mouse = pos
	return c
}

// runPasses advances exactly n throttled update passes for fresh entities.
func runPasses(s *Simulation, n int) {
	for i := 0; i < n*UpdatePeriod; i++ {
		s.AdvanceTick()
	}
}
