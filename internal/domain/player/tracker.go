// Package player defines the per-client state the simulation keeps for each connected player.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package player

import (
	"sort"
	"time"

	"github.com/MRamiBalles/CellArena/internal/domain/cell"
)

// TeamingKind identifies which action fed the anti-teaming multiplier.
type TeamingKind int

const (
	TeamingEject TeamingKind = iota // Ejected mass eaten by someone else
	TeamingVirus                    // Virus burst
	TeamingSplit                    // Split
)

// Tracker represents one client: its cells, intent and anti-teaming state.
type Tracker struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Team  int        `json:"team"`
	Color cell.Color `json:"color"`

	// Cells is the ordered set of player cells this client controls.
	Cells []*cell.Cell `json:"-"`

	Mouse cell.Vector `json:"mouse"`

	// CellUpdate counts down to the next throttled update pass.
	CellUpdate    int  `json:"-"`
	MergeOverride bool `json:"merge_override"`

	// Anti-teaming
	MassDecayMult float64 `json:"mass_decay_mult"`
	Wmult         float64 `json:"wmult"`
	VirusMult     float64 `json:"virus_mult"`
	SplitMult     float64 `json:"split_mult"`
	CheckForWMult bool    `json:"-"` // One-shot: next eaten ejection may feed Wmult

	LastEject time.Time `json:"-"`
}

// NewTracker creates a client with no cells and neutral anti-teaming state.
func NewTracker(id, name string, team int) *Tracker {
	return &Tracker{
		ID:            id,
		Name:          name,
		Team:          team,
		Cells:         make([]*cell.Cell, 0, 4),
		MassDecayMult: 1,
	}
}

func (t *Tracker) CellCount() int { return len(t.Cells) }

func (t *Tracker) IsAlive() bool { return len(t.Cells) > 0 }

// AddCell appends c unless it is already owned.
func (t *Tracker) AddCell(c *cell.Cell) bool {
	if t.HasCell(c) {
		return false
	}
	t.Cells = append(t.Cells, c)
	return true
}

// RemoveCell drops c from the set, keeping the order of the rest.
// It returns false when c was not owned.
func (t *Tracker) RemoveCell(c *cell.Cell) bool {
	for i, owned := range t.Cells {
		if owned == c {
			copy(t.Cells[i:], t.Cells[i+1:])
			t.Cells[len(t.Cells)-1] = nil
			t.Cells = t.Cells[:len(t.Cells)-1]
			return true
		}
	}
	return false
}

func (t *Tracker) HasCell(c *cell.Cell) bool {
	for _, owned := range t.Cells {
		if owned == c {
			return true
		}
	}
	return false
}

// SortedCells returns a copy of the cell set ordered by mass, heaviest first.
// Equal masses keep their set order.
func (t *Tracker) SortedCells() []*cell.Cell {
	sorted := make([]*cell.Cell, len(t.Cells))
	copy(sorted, t.Cells)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Mass > sorted[j].Mass
	})
	return sorted
}

func (t *Tracker) TotalMass() float64 {
	total := 0.0
	for _, c := range t.Cells {
		total += c.Mass
	}
	return total
}

// Center is the mass-weighted centre of the client's cells.
func (t *Tracker) Center() cell.Vector {
	total := t.TotalMass()
	if total <= 0 {
		return t.Mouse
	}
	var x, y float64
	for _, c := range t.Cells {
		x += c.Position.X * c.Mass
		y += c.Position.Y * c.Mass
	}
	return cell.Vector{X: x / total, Y: y / total}
}

// ApplyTeaming feeds one anti-teaming accounting event and refreshes MassDecayMult.
func (t *Tracker) ApplyTeaming(amount float64, kind TeamingKind) {
	switch kind {
	case TeamingEject:
		t.Wmult += amount
	case TeamingVirus:
		t.VirusMult += amount
	case TeamingSplit:
		t.SplitMult += amount
	}
	t.MassDecayMult = 1 + t.Wmult + t.VirusMult + t.SplitMult
}
