package cell

import "math"

// Vector is a 2D point or displacement in game units.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Direction returns the unit vector for an angle. Angles follow the
// (sin, cos) convention used by AngleTo.
func Direction(angle float64) Vector {
	return Vector{X: math.Sin(angle), Y: math.Cos(angle)}
}

func (v Vector) Clone() Vector { return v }

func (v Vector) Add(o Vector) Vector { return Vector{X: v.X + o.X, Y: v.Y + o.Y} }

func (v Vector) Sub(o Vector) Vector { return Vector{X: v.X - o.X, Y: v.Y - o.Y} }

func (v Vector) Scale(f float64) Vector { return Vector{X: v.X * f, Y: v.Y * f} }

func (v Vector) Length() float64 { return math.Hypot(v.X, v.Y) }

func (v Vector) DistanceTo(o Vector) float64 { return math.Hypot(o.X-v.X, o.Y-v.Y) }

// AngleTo returns the heading from v towards p such that
// v + Direction(angle)*|p-v| == p.
func (v Vector) AngleTo(p Vector) float64 {
	return math.Atan2(p.X-v.X, p.Y-v.Y)
}

// Bounds is the rectangular arena border.
type Bounds struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func (b Bounds) Width() float64  { return b.Right - b.Left }
func (b Bounds) Height() float64 { return b.Bottom - b.Top }

func (b Bounds) Contains(v Vector) bool {
	return v.X >= b.Left && v.X <= b.Right && v.Y >= b.Top && v.Y <= b.Bottom
}

// Clamp pulls v back inside the border.
func (b Bounds) Clamp(v Vector) Vector {
	return Vector{
		X: math.Min(math.Max(v.X, b.Left), b.Right),
		Y: math.Min(math.Max(v.Y, b.Top), b.Bottom),
	}
}
