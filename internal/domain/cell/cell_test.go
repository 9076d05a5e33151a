package cell

import (
	"math"
	"testing"
)

func TestEjectedSizeFixedAtCreation(t *testing.T) {
	e := NewEjectedMass(1, "owner", Vector{}, 12)
	want := math.Ceil(math.Sqrt(100 * 12))

	if e.Size() != want {
		t.Fatalf("Expected ejected size %f, got %f", want, e.Size())
	}
	if e.SquareSize() != 1200 {
		t.Errorf("Expected square size 1200, got %f", e.SquareSize())
	}

	// Act: grow the mass after creation
	e.AddMass(500)
	e.Mass = 1

	if e.Size() != want {
		t.Errorf("Expected ejected size to stay %f after mass change, got %f", want, e.Size())
	}
}

func TestPlayerCellSizeFollowsMass(t *testing.T) {
	c := NewPlayerCell(1, "owner", Vector{}, 100)
	if c.Size() != 100 {
		t.Fatalf("Expected size 100 for mass 100, got %f", c.Size())
	}
	c.Mass = 400
	if c.Size() != 200 {
		t.Errorf("Expected size 200 for mass 400, got %f", c.Size())
	}
}

func TestAngleToRoundTrip(t *testing.T) {
	from := Vector{X: 10, Y: 10}
	to := Vector{X: 40, Y: -30}

	angle := from.AngleTo(to)
	reached := from.Add(Direction(angle).Scale(from.DistanceTo(to)))

	if math.Abs(reached.X-to.X) > 1e-9 || math.Abs(reached.Y-to.Y) > 1e-9 {
		t.Errorf("Expected to reach %v, got %v", to, reached)
	}
}

func TestCalcMergeTime(t *testing.T) {
	c := NewPlayerCell(1, "owner", Vector{}, 100)

	c.RecombineTicks = 2
	c.CalcMergeTime(1, false) // threshold floor(1 + 2) = 3
	if c.ShouldRecombine {
		t.Errorf("Expected no recombine below threshold")
	}

	c.RecombineTicks = 3.5
	c.CalcMergeTime(1, false)
	if !c.ShouldRecombine {
		t.Errorf("Expected recombine above threshold")
	}

	c.RecombineTicks = 0
	c.CalcMergeTime(1, true)
	if !c.ShouldRecombine {
		t.Errorf("Expected merge override to force recombine")
	}
}

func TestMoveEngineTickDecaysAndStops(t *testing.T) {
	b := Bounds{Left: 0, Top: 0, Right: 1000, Bottom: 1000}
	c := NewFood(1, Vector{X: 500, Y: 500}, 1)
	c.MoveEngine = Vector{X: 10}

	c.MoveEngineTick(b)
	if c.Position.X != 510 {
		t.Fatalf("Expected x=510 after one step, got %f", c.Position.X)
	}
	if math.Abs(c.MoveEngine.X-10*MoveEngineDecay) > 1e-9 {
		t.Errorf("Expected impulse to decay to %f, got %f", 10*MoveEngineDecay, c.MoveEngine.X)
	}

	for i := 0; i < 100; i++ {
		c.MoveEngineTick(b)
	}
	if c.MoveEngine != (Vector{}) {
		t.Errorf("Expected impulse to come to rest, got %v", c.MoveEngine)
	}
}

func TestMoveEngineTickStaysInBounds(t *testing.T) {
	b := Bounds{Left: 0, Top: 0, Right: 100, Bottom: 100}
	c := NewVirus(1, Vector{X: 95, Y: 50}, 100)
	c.MoveEngine = Vector{X: 50}

	c.MoveEngineTick(b)

	if !b.Contains(c.Position) {
		t.Fatalf("Expected position inside bounds, got %v", c.Position)
	}
	if c.MoveEngine.X >= 0 {
		t.Errorf("Expected impulse to bounce off the right border, got %f", c.MoveEngine.X)
	}
}

func TestCanReach(t *testing.T) {
	big := NewPlayerCell(1, "a", Vector{}, 100) // size 100
	food := NewFood(2, Vector{X: 90}, 1)        // size 10

	if !big.CanReach(food) {
		t.Errorf("Expected food at distance 90 to be reachable")
	}

	food.Position = Vector{X: 99}
	if big.CanReach(food) {
		t.Errorf("Expected food near the edge to be out of reach")
	}
}
