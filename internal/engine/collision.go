package engine

import "github.com/MRamiBalles/CellArena/internal/domain/cell"

// Resolver separates two overlapping cells.
// Implementations must be symmetric up to floating error, strictly reduce
// overlap and barely move cells that only just touch.
type Resolver interface {
	PushApart(a, b *cell.Cell)
}

// SoftResolver moves both cells apart along the line between their centres by
// a fraction of the overlap. The lighter cell takes the larger share.
type SoftResolver struct {
	Bounds   cell.Bounds
	Strength float64 // Fraction of the overlap removed per call, in (0, 1]
}

func NewSoftResolver(bounds cell.Bounds) *SoftResolver {
	return &SoftResolver{Bounds: bounds, Strength: 0.5}
}

func (r *SoftResolver) PushApart(a, b *cell.Cell) {
	if a == nil || b == nil || a == b {
		return
	}
	delta := b.Position.Sub(a.Position)
	dist := delta.Length()
	overlap := a.Size() + b.Size() - dist
	if overlap <= 0 {
		return
	}

	dir := cell.Vector{X: 1}
	if dist > 0 {
		dir = delta.Scale(1 / dist)
	}

	shareA, shareB := 0.5, 0.5
	if total := a.Mass + b.Mass; total > 0 {
		shareA = b.Mass / total
		shareB = a.Mass / total
	}

	push := overlap * r.Strength
	a.Position = r.Bounds.Clamp(a.Position.Sub(dir.Scale(push * shareA)))
	b.Position = r.Bounds.Clamp(b.Position.Add(dir.Scale(push * shareB)))
}
