package engine

import (
	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/domain/player"
)

// World holds every registry the simulation mutates.
// It is owned by a single goroutine and is not safe for concurrent use.
type World struct {
	Bounds cell.Bounds

	Nodes       *Registry // Every live node
	PlayerCells *Registry
	Food        *Registry
	Viruses     *Registry
	Ejected     *Registry
	Independent *Registry // Nodes that move and eat on their own: viruses and ejected mass

	clients []*player.Tracker
	byID    map[string]*player.Tracker
	ids     IDAllocator
}

func NewWorld(bounds cell.Bounds, ids IDAllocator) *World {
	if ids == nil {
		ids = &SequentialIDs{}
	}
	return &World{
		Bounds:      bounds,
		Nodes:       NewRegistry(),
		PlayerCells: NewRegistry(),
		Food:        NewRegistry(),
		Viruses:     NewRegistry(),
		Ejected:     NewRegistry(),
		Independent: NewRegistry(),
		byID:        make(map[string]*player.Tracker),
		ids:         ids,
	}
}

// NextID returns an id not held by any live node.
func (w *World) NextID() uint32 {
	for {
		id := w.ids.Next()
		if w.Nodes.Get(id) == nil {
			return id
		}
	}
}

// AddNode registers c in the node registry and the registry for its kind.
// Player cells also join their owner's cell set.
func (w *World) AddNode(c *cell.Cell) bool {
	if !w.Nodes.Add(c) {
		return false
	}
	switch c.Kind {
	case cell.KindPlayer:
		w.PlayerCells.Add(c)
		if owner := w.byID[c.Owner]; owner != nil {
			owner.AddCell(c)
		}
	case cell.KindFood:
		w.Food.Add(c)
	case cell.KindVirus:
		w.Viruses.Add(c)
		w.Independent.Add(c)
	case cell.KindEjected:
		w.Ejected.Add(c)
		w.Independent.Add(c)
	}
	return true
}

// RemoveNode unregisters c everywhere. It returns false when c was already gone.
func (w *World) RemoveNode(c *cell.Cell) bool {
	if !w.Nodes.Remove(c) {
		return false
	}
	switch c.Kind {
	case cell.KindPlayer:
		w.PlayerCells.Remove(c)
		if owner := w.byID[c.Owner]; owner != nil {
			owner.RemoveCell(c)
		}
	case cell.KindFood:
		w.Food.Remove(c)
	case cell.KindVirus:
		w.Viruses.Remove(c)
		w.Independent.Remove(c)
	case cell.KindEjected:
		w.Ejected.Remove(c)
		w.Independent.Remove(c)
	}
	return true
}

// Alive reports whether c is still registered.
func (w *World) Alive(c *cell.Cell) bool {
	return w.Nodes.Contains(c)
}

// AddClient appends a client to the update order.
func (w *World) AddClient(t *player.Tracker) bool {
	if _, ok := w.byID[t.ID]; ok {
		return false
	}
	w.clients = append(w.clients, t)
	w.byID[t.ID] = t
	return true
}

// RemoveClient drops the client and every cell it owns.
func (w *World) RemoveClient(id string) *player.Tracker {
	t, ok := w.byID[id]
	if !ok {
		return nil
	}
	for _, c := range append([]*cell.Cell(nil), t.Cells...) {
		w.RemoveNode(c)
	}
	delete(w.byID, id)
	for i, other := range w.clients {
		if other == t {
			w.clients = append(w.clients[:i], w.clients[i+1:]...)
			break
		}
	}
	return t
}

func (w *World) Client(id string) *player.Tracker {
	return w.byID[id]
}

// Clients returns the clients in update order. The slice must not be modified.
func (w *World) Clients() []*player.Tracker {
	return w.clients
}

// Compact drops vacated slots from every registry.
func (w *World) Compact() {
	w.Nodes.Compact()
	w.PlayerCells.Compact()
	w.Food.Compact()
	w.Viruses.Compact()
	w.Ejected.Compact()
	w.Independent.Compact()
}
