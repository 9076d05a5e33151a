// Package cell defines the arena entities: food, viruses, player cells and ejected mass.
// This package is PURE and must NOT import any infrastructure packages.
package cell

import "math"

// Kind tags the variant a Cell represents.
type Kind uint8

const (
	KindPlayer Kind = iota
	KindFood
	KindVirus
	KindEjected

	KindCount = 4
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindFood:
		return "food"
	case KindVirus:
		return "virus"
	case KindEjected:
		return "ejected"
	}
	return "unknown"
}

const (
	// MoveEngineDecay is the fraction of the move engine impulse kept after each integration step.
	MoveEngineDecay = 0.85
	// moveEngineRest is the impulse length below which the engine stops.
	moveEngineRest = 0.5
)

// Color is an RGB entity colour.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Cell is the shared representation of every mass-bearing entity.
// Variant specific fields are documented with the kind that uses them.
type Cell struct {
	ID    uint32
	Kind  Kind
	Owner string // Session ID of the owning client. Empty for food and viruses.
	Color Color

	Position   Vector
	Mass       float64
	MoveEngine Vector // Velocity impulse, decays every integration step

	CollisionRestoreTicks float64
	RecombineTicks        float64
	ShouldRecombine       bool

	// TicksLeft throttles independent (non-player) updates.
	TicksLeft int

	// Food
	InRange bool

	// Virus
	ShootAngle float64
	Fed        int

	// Ejected mass
	Heading       float64 // Travel angle at creation
	AddedAntiTeam bool

	// KilledBy is set by the consumer just before removal.
	KilledBy *Cell

	size       float64
	squareSize float64
}

// SizeOf is the radius of a cell of the given mass.
func SizeOf(mass float64) float64 {
	if mass <= 0 {
		return 0
	}
	return math.Ceil(math.Sqrt(100 * mass))
}

// New creates a cell of any kind. Prefer the kind specific constructors.
func New(id uint32, kind Kind, owner string, pos Vector, mass float64) *Cell {
	return &Cell{
		ID:       id,
		Kind:     kind,
		Owner:    owner,
		Position: pos,
		Mass:     mass,
	}
}

func NewFood(id uint32, pos Vector, mass float64) *Cell {
	return New(id, KindFood, "", pos, mass)
}

func NewVirus(id uint32, pos Vector, mass float64) *Cell {
	return New(id, KindVirus, "", pos, mass)
}

func NewPlayerCell(id uint32, owner string, pos Vector, mass float64) *Cell {
	return New(id, KindPlayer, owner, pos, mass)
}

// NewEjectedMass creates ejected mass. Its size is fixed here and never
// follows later mass changes.
func NewEjectedMass(id uint32, owner string, pos Vector, mass float64) *Cell {
	c := New(id, KindEjected, owner, pos, mass)
	c.size = SizeOf(mass)
	c.squareSize = math.Floor(100 * mass)
	return c
}

// Size returns the radius.
func (c *Cell) Size() float64 {
	if c.Kind == KindEjected {
		return c.size
	}
	return SizeOf(c.Mass)
}

// SquareSize returns 100*mass truncated, the squared radius.
func (c *Cell) SquareSize() float64 {
	if c.Kind == KindEjected {
		return c.squareSize
	}
	return math.Floor(100 * c.Mass)
}

func (c *Cell) AddMass(amount float64) {
	c.Mass += amount
}

// AlwaysVisible reports whether the cell is included in every view regardless of distance.
// Ejected mass collides with other ejected mass, so clients need all of it.
func (c *Cell) AlwaysVisible() bool {
	return c.Kind == KindEjected
}

// Speed is the mouse-follow speed of a player cell. Heavier cells are slower.
func (c *Cell) Speed() float64 {
	if c.Mass <= 0 {
		return 0
	}
	return 30 * math.Pow(c.Mass, -1.0/4.5) * 50 / 40
}

// SplittingSpeed is the boost given to a freshly split cell.
func (c *Cell) SplittingSpeed() float64 {
	return 6 * c.Speed()
}

// CalcMergeTime recomputes ShouldRecombine from the accumulated recombine ticks.
func (c *Cell) CalcMergeTime(base float64, override bool) {
	if base == 0 || override {
		c.ShouldRecombine = true
		return
	}
	threshold := math.Floor(base + 0.02*c.Mass)
	c.ShouldRecombine = c.RecombineTicks > threshold
}

// MoveEngineTick integrates the velocity impulse and decays it.
func (c *Cell) MoveEngineTick(b Bounds) {
	if c.MoveEngine.X == 0 && c.MoveEngine.Y == 0 {
		return
	}
	next := c.Position.Add(c.MoveEngine)

	// Bounce off the border.
	if next.X < b.Left || next.X > b.Right {
		c.MoveEngine.X = -c.MoveEngine.X
	}
	if next.Y < b.Top || next.Y > b.Bottom {
		c.MoveEngine.Y = -c.MoveEngine.Y
	}
	c.Position = b.Clamp(next)

	c.MoveEngine = c.MoveEngine.Scale(MoveEngineDecay)
	if c.MoveEngine.Length() < moveEngineRest {
		c.MoveEngine = Vector{}
	}
}

// StepTowards moves the cell at most speed units towards target.
func (c *Cell) StepTowards(target Vector, speed float64, b Bounds) {
	dist := c.Position.DistanceTo(target)
	if dist < 1 || speed <= 0 {
		return
	}
	step := math.Min(dist, speed)
	c.Position = b.Clamp(c.Position.Add(Direction(c.Position.AngleTo(target)).Scale(step)))
}

// CanReach reports whether prey lies deep enough inside c to be eaten.
func (c *Cell) CanReach(prey *Cell) bool {
	return c.Position.DistanceTo(prey.Position) <= c.Size()-prey.Size()/math.Pi
}
