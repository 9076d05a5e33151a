package engine

import "github.com/MRamiBalles/CellArena/internal/domain/cell"

// Registry is a slot map of cells. Removal vacates a slot instead of
// shifting the rest, so an iteration in progress keeps stable indices.
// Vacated slots are dropped by Compact between ticks.
type Registry struct {
	slots []*cell.Cell
	index map[uint32]int
	live  int
}

func NewRegistry() *Registry {
	return &Registry{
		slots: make([]*cell.Cell, 0, 64),
		index: make(map[uint32]int),
	}
}

// Add registers c. It returns false when c is already present.
func (r *Registry) Add(c *cell.Cell) bool {
	if r.Contains(c) {
		return false
	}
	r.index[c.ID] = len(r.slots)
	r.slots = append(r.slots, c)
	r.live++
	return true
}

// Remove vacates the slot holding c. Removing an absent cell is a no-op.
func (r *Registry) Remove(c *cell.Cell) bool {
	i, ok := r.index[c.ID]
	if !ok || r.slots[i] != c {
		return false
	}
	r.slots[i] = nil
	delete(r.index, c.ID)
	r.live--
	return true
}

func (r *Registry) Contains(c *cell.Cell) bool {
	if c == nil {
		return false
	}
	i, ok := r.index[c.ID]
	return ok && r.slots[i] == c
}

// Get looks a cell up by id.
func (r *Registry) Get(id uint32) *cell.Cell {
	if i, ok := r.index[id]; ok {
		return r.slots[i]
	}
	return nil
}

// Len is the number of live cells.
func (r *Registry) Len() int { return r.live }

// Slots is the number of slots, vacated ones included.
func (r *Registry) Slots() int { return len(r.slots) }

// At returns the cell in slot i, or nil for a vacated or out of range slot.
func (r *Registry) At(i int) *cell.Cell {
	if i < 0 || i >= len(r.slots) {
		return nil
	}
	return r.slots[i]
}

// Each visits the slots present when the call starts, skipping vacated ones.
// Cells added during the walk are not visited.
func (r *Registry) Each(fn func(*cell.Cell)) {
	n := len(r.slots)
	for i := 0; i < n; i++ {
		if c := r.slots[i]; c != nil {
			fn(c)
		}
	}
}

// Live returns a copy of the live cells in slot order.
func (r *Registry) Live() []*cell.Cell {
	out := make([]*cell.Cell, 0, r.live)
	r.Each(func(c *cell.Cell) { out = append(out, c) })
	return out
}

// Compact drops vacated slots and rebuilds the index.
func (r *Registry) Compact() {
	if r.live == len(r.slots) {
		return
	}
	kept := r.slots[:0]
	for _, c := range r.slots {
		if c != nil {
			r.index[c.ID] = len(kept)
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(r.slots); i++ {
		r.slots[i] = nil
	}
	r.slots = kept
}
