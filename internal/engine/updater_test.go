package engine

import (
	"math"
	"testing"

	"github.com/MRamiBalles/CellArena/internal/config"
	"github.com/MRamiBalles/CellArena/internal/domain/cell"
)

func TestMergeOverrideClearedForSingleCell(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	solo := addClient(s, "P1")
	addPlayerCell(s, solo, cell.Vector{X: 500, Y: 500}, 100)
	solo.MergeOverride = true

	s.AdvanceTick()

	if solo.MergeOverride {
		t.Errorf("Expected merge override cleared for a one-cell client")
	}
}

func TestMergeOverrideClearedBetweenPasses(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	client := addClient(s, "P1")
	a := addPlayerCell(s, client, cell.Vector{X: 200, Y: 200}, 100)
	b := addPlayerCell(s, client, cell.Vector{X: 1500, Y: 1500}, 100)
	client.Mouse = cell.Vector{X: 800, Y: 800}

	s.AdvanceTick() // throttled pass runs here
	client.MergeOverride = true
	a.RecombineTicks = 5

	// Act: lose a cell on a tick with no pass for this client
	s.Remove(b)
	s.AdvanceTick()

	if client.MergeOverride {
		t.Errorf("Expected merge override cleared once the client is down to one cell")
	}
	if a.RecombineTicks != 0 {
		t.Errorf("Expected recombine ticks reset to 0, got %f", a.RecombineTicks)
	}
}

func TestRecombineTicksGrowWhileSplit(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	client := addClient(s, "P1")
	a := addPlayerCell(s, client, cell.Vector{X: 200, Y: 200}, 100)
	b := addPlayerCell(s, client, cell.Vector{X: 1500, Y: 1500}, 100)
	client.Mouse = cell.Vector{X: 850, Y: 850}

	prev := 0.0
	for pass := 1; pass <= 4; pass++ {
		runPasses(s, 1)
		if a.RecombineTicks < prev {
			t.Fatalf("Pass %d: recombine ticks went backwards (%f < %f)", pass, a.RecombineTicks, prev)
		}
		prev = a.RecombineTicks
	}
	if math.Abs(prev-4*recombineStep) > 1e-9 {
		t.Errorf("Expected %f after 4 passes, got %f", 4*recombineStep, prev)
	}

	// Act: drop to one cell
	s.Remove(b)
	s.AdvanceTick()

	if a.RecombineTicks != 0 {
		t.Errorf("Expected reset to exactly 0, got %f", a.RecombineTicks)
	}
}

func TestCollisionRestoreTicksCountDown(t *testing.T) {
	rec := &recordingResolver{}
	s := newTestSim(t, nil, Deps{Resolver: rec})
	client := addClient(s, "P1")
	immune := addPlayerCell(s, client, cell.Vector{X: 500, Y: 500}, 100)
	other := addPlayerCell(s, client, cell.Vector{X: 520, Y: 500}, 100)
	client.Mouse = cell.Vector{X: 510, Y: 500}
	immune.CollisionRestoreTicks = 12

	// Act: one pass
	runPasses(s, 1)

	// Assert
	if immune.CollisionRestoreTicks != 12-immunityStep {
		t.Errorf("Expected %f after one pass, got %f", 12-immunityStep, immune.CollisionRestoreTicks)
	}
	if rec.touched(immune) {
		t.Errorf("Expected immune cell excluded from pairwise resolution")
	}
	if other.CollisionRestoreTicks != 0 {
		t.Errorf("Expected the other cell to stay at 0, got %f", other.CollisionRestoreTicks)
	}

	// Act: run well past the window
	runPasses(s, 20)

	if immune.CollisionRestoreTicks != 0 {
		t.Errorf("Expected window to end at exactly 0, got %f", immune.CollisionRestoreTicks)
	}
	if !rec.touched(immune) {
		t.Errorf("Expected cell to rejoin resolution after the window")
	}
}

func TestCollisionRestoreTicksNeverNegative(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	client := addClient(s, "P1")
	c := addPlayerCell(s, client, cell.Vector{X: 500, Y: 500}, 100)
	c.CollisionRestoreTicks = 1 // Not a multiple of the step

	runPasses(s, 3)

	if c.CollisionRestoreTicks != 0 {
		t.Errorf("Expected floor at 0, got %f", c.CollisionRestoreTicks)
	}
}

func TestDecayHonoursFloor(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	client := addClient(s, "P1")
	light := addPlayerCell(s, client, cell.Vector{X: 200, Y: 200}, 8) // Below PlayerMinMassDecay
	heavy := addPlayerCell(s, client, cell.Vector{X: 1500, Y: 1500}, 100)
	client.Mouse = cell.Vector{X: 850, Y: 850}

	runPasses(s, 1)

	if light.Mass != 8 {
		t.Errorf("Expected cell under the floor to keep its mass, got %f", light.Mass)
	}
	if heavy.Mass >= 100 {
		t.Errorf("Expected cell over the floor to decay, got %f", heavy.Mass)
	}
}

func TestDecayScalesWithTeamingMultiplier(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	honest := addClient(s, "honest")
	teamer := addClient(s, "teamer")
	h := addPlayerCell(s, honest, cell.Vector{X: 200, Y: 200}, 100)
	m := addPlayerCell(s, teamer, cell.Vector{X: 1500, Y: 1500}, 100)
	teamer.MassDecayMult = 50

	runPasses(s, 1)

	if m.Mass >= h.Mass {
		t.Errorf("Expected higher multiplier to lose more mass: honest=%f teamer=%f", h.Mass, m.Mass)
	}
}

func TestDecayIgnoresMultiplierWhenAntiTeamingOff(t *testing.T) {
	s := newTestSim(t, func(g *config.Game) { g.AntiTeaming = false }, Deps{})
	honest := addClient(s, "honest")
	teamer := addClient(s, "teamer")
	h := addPlayerCell(s, honest, cell.Vector{X: 200, Y: 200}, 100)
	m := addPlayerCell(s, teamer, cell.Vector{X: 1500, Y: 1500}, 100)
	teamer.MassDecayMult = 50

	runPasses(s, 1)

	if h.Mass != m.Mass {
		t.Errorf("Expected equal decay with anti-teaming off: %f vs %f", h.Mass, m.Mass)
	}
}

func TestFoodSpawnClosesGapUpToBatch(t *testing.T) {
	s := newTestSim(t, func(g *config.Game) {
		g.FoodMaxAmount = 100
		g.FoodSpawnAmount = 10
	}, Deps{})
	s.SpawnFood(97)

	rep := s.AdvanceTick()

	if rep.FoodSpawned != 3 || s.World.Food.Len() != 100 {
		t.Errorf("Expected exactly 3 pellets to reach 100, spawned %d (total %d)", rep.FoodSpawned, s.World.Food.Len())
	}

	rep = s.AdvanceTick()
	if rep.FoodSpawned != 0 {
		t.Errorf("Expected no spawn at the cap, got %d", rep.FoodSpawned)
	}
}

func TestFoodSpawnLimitedByBatch(t *testing.T) {
	s := newTestSim(t, func(g *config.Game) {
		g.FoodMaxAmount = 100
		g.FoodSpawnAmount = 10
	}, Deps{})

	rep := s.AdvanceTick()

	if rep.FoodSpawned != 10 {
		t.Errorf("Expected batch cap of 10, got %d", rep.FoodSpawned)
	}
}

func TestVirusSpawnClosesGapExactly(t *testing.T) {
	s := newTestSim(t, func(g *config.Game) { g.VirusMinAmount = 10 }, Deps{})
	s.SpawnViruses(7)

	rep := s.AdvanceTick()

	if rep.VirusesSpawned != 3 || s.World.Viruses.Len() != 10 {
		t.Errorf("Expected exactly 3 viruses to reach 10, spawned %d (total %d)", rep.VirusesSpawned, s.World.Viruses.Len())
	}
}

func TestIndependentNodesThrottled(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	v := cell.NewVirus(s.World.NextID(), cell.Vector{X: 1000, Y: 1000}, 100)
	v.MoveEngine = cell.Vector{X: 10}
	s.World.AddNode(v)

	s.AdvanceTick()
	afterFirst := v.Position.X
	if afterFirst != 1010 {
		t.Fatalf("Expected the first pass to move the virus to 1010, got %f", afterFirst)
	}

	for i := 0; i < UpdatePeriod-1; i++ {
		s.AdvanceTick()
	}
	if v.Position.X != afterFirst {
		t.Errorf("Expected no movement between passes, got %f", v.Position.X)
	}

	s.AdvanceTick()
	if v.Position.X == afterFirst {
		t.Errorf("Expected the next pass to move the virus again")
	}
}

func TestCompactAfterTick(t *testing.T) {
	s := newTestSim(t, func(g *config.Game) {
		g.FoodMaxAmount = 5
		g.FoodSpawnAmount = 5
	}, Deps{})
	s.AdvanceTick()
	s.Remove(s.World.Food.At(0))

	if s.World.Food.Slots() != 5 {
		t.Fatalf("Expected vacated slot to remain until the tick ends")
	}

	s.AdvanceTick() // Refills one pellet and compacts

	if s.World.Food.Slots() != s.World.Food.Len() {
		t.Errorf("Expected no vacated slots after the tick, %d slots for %d pellets", s.World.Food.Slots(), s.World.Food.Len())
	}
}

func TestMergeablePairIsNotPushedApart(t *testing.T) {
	// Setup: both cells past their recombine time, too far apart to merge
	rec := &recordingResolver{}
	s := newTestSim(t, nil, Deps{Resolver: rec})
	client := addClient(s, "P1")
	a := addPlayerCell(s, client, cell.Vector{X: 400, Y: 1000}, 100)
	b := addPlayerCell(s, client, cell.Vector{X: 1600, Y: 1000}, 100)
	client.Mouse = cell.Vector{X: 1000, Y: 1000}
	for _, c := range []*cell.Cell{a, b} {
		c.RecombineTicks = 100
		c.ShouldRecombine = true
	}

	// Act
	runPasses(s, 1)

	// Assert
	if len(rec.pairs) != 0 {
		t.Errorf("Expected no separation between two mergeable cells, got %d pairs", len(rec.pairs))
	}
	if !a.ShouldRecombine || !b.ShouldRecombine {
		t.Errorf("Expected both cells to stay mergeable")
	}
}

func TestPairWithOneMergeableCellIsPushedApart(t *testing.T) {
	rec := &recordingResolver{}
	s := newTestSim(t, nil, Deps{Resolver: rec})
	client := addClient(s, "P1")
	a := addPlayerCell(s, client, cell.Vector{X: 400, Y: 1000}, 100)
	b := addPlayerCell(s, client, cell.Vector{X: 1600, Y: 1000}, 100)
	client.Mouse = cell.Vector{X: 1000, Y: 1000}
	a.RecombineTicks = 100
	a.ShouldRecombine = true

	runPasses(s, 1)

	if !rec.touched(a) || !rec.touched(b) {
		t.Errorf("Expected the pair separated while only one cell may merge, got %d pairs", len(rec.pairs))
	}
	if b.ShouldRecombine {
		t.Errorf("Expected the fresh cell to stay unmergeable")
	}
}
