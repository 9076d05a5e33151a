// Package test - soak.go
// Headless soak runs: bots join a seeded arena, steer, split, eject and merge for
// thousands of ticks while world invariants are checked after every tick.
package test

import (
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/MRamiBalles/CellArena/internal/config"
	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/engine"
	"github.com/MRamiBalles/CellArena/internal/events"
	"github.com/MRamiBalles/CellArena/internal/infra/storage"
	"github.com/MRamiBalles/CellArena/internal/platform/logger"
	"github.com/MRamiBalles/CellArena/internal/platform/metrics"
)

// Scenario describes one soak run.
type Scenario struct {
	Name  string
	Mode  string // ffa or teams
	Bots  int
	Ticks int
	Seed  int64
	Churn bool // Bots leave and rejoin during the run
}

// TestResult captures the outcome of a scenario.
type TestResult struct {
	ScenarioName string
	Ticks        int
	Events       int
	Violations   []string
	Passed       bool
}

// DefaultScenarios is the suite run by the test runner.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "FFA brawl", Mode: "ffa", Bots: 24, Ticks: 20000, Seed: 1},
		{Name: "Team brawl", Mode: "teams", Bots: 24, Ticks: 20000, Seed: 2},
		{Name: "Join/leave churn", Mode: "ffa", Bots: 16, Ticks: 10000, Seed: 3, Churn: true},
	}
}

// maxViolations stops a broken run from flooding the report.
const maxViolations = 20

// Run plays a scenario against a fresh engine.
func Run(sc Scenario) TestResult {
	cfg := config.Default()
	cfg.Game.Mode = sc.Mode
	// Smaller arena and cheaper splits so fights actually happen.
	cfg.Game.BorderRight = 2000
	cfg.Game.BorderBottom = 2000
	cfg.Game.PlayerStartMass = 60

	log := logger.NewLoggerWithWriter(io.Discard, io.Discard)
	ledger := events.NewEventLog(nil)
	eng := engine.NewEngine(cfg, log,
		engine.WithRNG(engine.NewRNG(sc.Seed)),
		engine.WithEvents(ledger),
		engine.WithMetrics(metrics.NewCollector()),
		engine.WithQueueSize(4*sc.Bots+16),
	)
	eng.Bootstrap()

	rng := rand.New(rand.NewSource(sc.Seed))
	ids := make([]string, sc.Bots)
	for i := range ids {
		ids[i] = fmt.Sprintf("bot-%03d", i)
		eng.Submit(engine.Command{Kind: engine.CmdJoin, ClientID: ids[i], Name: ids[i]})
	}

	res := TestResult{ScenarioName: sc.Name, Ticks: sc.Ticks}
	sim := eng.Simulation()
	for tick := 0; tick < sc.Ticks; tick++ {
		for _, id := range ids {
			if cmd, ok := botCommand(id, sim, rng, sc.Churn); ok {
				eng.Submit(cmd)
			}
		}
		eng.Step()

		for _, v := range CheckInvariants(sim) {
			if len(res.Violations) < maxViolations {
				res.Violations = append(res.Violations, fmt.Sprintf("tick %d: %s", sim.Tick(), v))
			}
		}
	}

	res.Events = ledger.Len()
	res.Violations = append(res.Violations, checkLedger(ledger.Replay())...)
	res.Passed = len(res.Violations) == 0
	return res
}

// botCommand picks at most one action for a bot this tick.
func botCommand(id string, sim *engine.Simulation, rng *rand.Rand, churn bool) (engine.Command, bool) {
	client := sim.World.Client(id)
	if client == nil {
		if churn && rng.Intn(200) == 0 {
			return engine.Command{Kind: engine.CmdJoin, ClientID: id, Name: id}, true
		}
		return engine.Command{}, false
	}
	if !client.IsAlive() {
		return engine.Command{Kind: engine.CmdRespawn, ClientID: id}, true
	}

	switch r := rng.Intn(1000); {
	case churn && r < 2:
		return engine.Command{Kind: engine.CmdLeave, ClientID: id}, true
	case r < 8:
		return engine.Command{Kind: engine.CmdSplit, ClientID: id}, true
	case r < 20:
		return engine.Command{Kind: engine.CmdEject, ClientID: id}, true
	case r < 24:
		return engine.Command{Kind: engine.CmdMerge, ClientID: id}, true
	case r < 120:
		b := sim.World.Bounds
		target := cell.Vector{X: b.Left + rng.Float64()*b.Width(), Y: b.Top + rng.Float64()*b.Height()}
		return engine.Command{Kind: engine.CmdMouse, ClientID: id, Target: target}, true
	}
	return engine.Command{}, false
}

// CheckInvariants inspects the world between ticks.
func CheckInvariants(sim *engine.Simulation) []string {
	var out []string
	w := sim.World
	cfg := sim.Config

	sum := w.PlayerCells.Len() + w.Food.Len() + w.Viruses.Len() + w.Ejected.Len()
	if sum != w.Nodes.Len() {
		out = append(out, fmt.Sprintf("kind registries hold %d nodes, world holds %d", sum, w.Nodes.Len()))
	}
	if w.Food.Len() > cfg.FoodMaxAmount {
		out = append(out, fmt.Sprintf("%d food above cap %d", w.Food.Len(), cfg.FoodMaxAmount))
	}
	if w.Viruses.Len() > cfg.VirusMaxAmount {
		out = append(out, fmt.Sprintf("%d viruses above cap %d", w.Viruses.Len(), cfg.VirusMaxAmount))
	}

	w.Nodes.Each(func(c *cell.Cell) {
		if !w.Bounds.Contains(c.Position) {
			out = append(out, fmt.Sprintf("node %d outside the border at %+v", c.ID, c.Position))
		}
		if c.Mass <= 0 || math.IsNaN(c.Mass) || math.IsInf(c.Mass, 0) {
			out = append(out, fmt.Sprintf("node %d has mass %v", c.ID, c.Mass))
		}
	})

	owned := 0
	for _, client := range w.Clients() {
		if n := client.CellCount(); n > cfg.PlayerMaxCells {
			out = append(out, fmt.Sprintf("%s controls %d cells, cap %d", client.ID, n, cfg.PlayerMaxCells))
		}
		for _, c := range client.Cells {
			if !w.Alive(c) {
				out = append(out, fmt.Sprintf("%s holds dead cell %d", client.ID, c.ID))
			}
			if c.Owner != client.ID {
				out = append(out, fmt.Sprintf("cell %d owned by %q listed under %s", c.ID, c.Owner, client.ID))
			}
		}
		owned += client.CellCount()
	}
	if owned != w.PlayerCells.Len() {
		out = append(out, fmt.Sprintf("clients list %d cells, registry holds %d", owned, w.PlayerCells.Len()))
	}
	return out
}

// checkLedger folds the event log the way the stats backup does and
// cross-checks the totals against the raw events.
func checkLedger(ledger []events.GameEvent) []string {
	rows := make([]storage.GameEvent, 0, len(ledger))
	consumed := 0
	for _, e := range ledger {
		row, err := storage.FromEvent("soak", e)
		if err != nil {
			return []string{"unstorable event: " + err.Error()}
		}
		rows = append(rows, row)
		if e.Type == events.EventTypeCellConsumed && e.ActorID != "" {
			consumed++
		}
	}

	eaten := 0
	for _, s := range storage.FoldStats("soak", rows) {
		eaten += s.CellsEaten
	}
	if eaten != consumed {
		return []string{fmt.Sprintf("stats count %d cells eaten, ledger has %d", eaten, consumed)}
	}
	return nil
}
