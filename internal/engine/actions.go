package engine

import (
	"math"

	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/domain/player"
	"github.com/MRamiBalles/CellArena/internal/events"
)

// SplitAll splits every cell the client held when the call started, each
// towards the mouse with half its mass. It returns the number of splits.
func (s *Simulation) SplitAll(client *player.Tracker) int {
	cells := append([]*cell.Cell(nil), client.Cells...)

	splits := 0
	for _, c := range cells {
		if !s.World.Alive(c) {
			continue
		}
		if s.TrySplit(client, c, splitAngle(c.Position, client.Mouse), c.Mass/2) {
			splits++
		}
	}
	if splits > 0 {
		client.ApplyTeaming(float64(splits), player.TeamingSplit)
		s.emit(events.EventTypeCellSplit, client.ID, "", events.SplitPayload{Splits: splits, Cells: client.CellCount()})
	}
	return splits
}

// splitAngle aims at target, falling back to a fixed heading when there is no direction.
func splitAngle(from, target cell.Vector) float64 {
	if from.DistanceTo(target) == 0 {
		return math.Pi / 2
	}
	angle := from.AngleTo(target)
	if math.IsNaN(angle) {
		return math.Pi / 2
	}
	return angle
}

// TrySplit moves mass from parent into a new cell launched along angle.
// It fails without side effects when the client is at the cell cap or the
// parent is too light to split.
func (s *Simulation) TrySplit(client *player.Tracker, parent *cell.Cell, angle, mass float64) bool {
	if client.CellCount() >= s.Config.PlayerMaxCells {
		return false
	}
	if parent.Mass < s.Config.PlayerMinMassSplit {
		return false
	}

	child := cell.NewPlayerCell(s.World.NextID(), client.ID, parent.Position.Clone(), mass)
	child.Color = parent.Color
	child.MoveEngine = cell.Direction(angle).Scale(child.SplittingSpeed())

	// Freshly split cells pass through each other for a while.
	child.CollisionRestoreTicks = splitImmunityTicks
	parent.CollisionRestoreTicks = splitImmunityTicks

	parent.Mass -= mass

	s.World.AddNode(child)
	client.AddCell(child)
	return true
}

// EjectMass throws a blob of mass from every cell heavy enough to afford it.
// It returns the number of blobs ejected.
func (s *Simulation) EjectMass(client *player.Tracker) int {
	if s.Config.EjectCooldownEnabled && !s.CanEject(client) {
		return 0
	}

	ejected := 0
	for _, c := range append([]*cell.Cell(nil), client.Cells...) {
		if c.Mass < s.Config.PlayerMinMassEject || c.Mass < s.Config.EjectMass {
			continue
		}

		// Spawn point and travel direction get separate jitter.
		angle := c.Position.AngleTo(client.Mouse) + s.rng.Range(-ejectAimJitter, ejectAimJitter)
		start := s.World.Bounds.Clamp(c.Position.Add(cell.Direction(angle).Scale(c.Size() + ejectSpawnGap)))

		c.Mass -= s.Config.EjectMassLoss

		angle += s.rng.Range(-ejectFlyJitter, ejectFlyJitter)

		blob := cell.NewEjectedMass(s.World.NextID(), client.ID, start, s.Config.EjectMass)
		blob.Heading = angle
		blob.MoveEngine = cell.Direction(angle).Scale(s.Config.EjectSpeed)
		blob.Color = c.Color

		s.World.AddNode(blob)
		ejected++
	}

	if ejected > 0 {
		client.CheckForWMult = true
		s.emit(events.EventTypeMassEjected, client.ID, "", events.EjectPayload{
			Count: ejected,
			Mass:  float64(ejected) * s.Config.EjectMass,
		})
	}
	return ejected
}

// CanEject reports whether the eject cooldown has elapsed and, if so, restarts it.
func (s *Simulation) CanEject(client *player.Tracker) bool {
	now := s.clock()
	if client.LastEject.IsZero() || now.Sub(client.LastEject) >= s.Config.EjectMassCooldown {
		client.LastEject = now
		return true
	}
	return false
}

// ShootVirus fires a fresh virus from source along its shoot angle.
func (s *Simulation) ShootVirus(source *cell.Cell) *cell.Cell {
	v := cell.NewVirus(s.World.NextID(), source.Position.Clone(), s.Config.VirusStartMass)
	v.Color = source.Color
	v.MoveEngine = cell.Direction(source.ShootAngle).Scale(virusShotSpeed)

	s.World.AddNode(v)
	s.emit(events.EventTypeVirusShot, "", "", nil)
	return v
}

// Respawn gives a dead client a start cell. Living clients are left alone.
func (s *Simulation) Respawn(client *player.Tracker) bool {
	if client.IsAlive() {
		return false
	}
	c := cell.NewPlayerCell(s.World.NextID(), client.ID, s.RandomSpawn(), s.Config.PlayerStartMass)
	c.Color = client.Color
	s.World.AddNode(c)
	client.AddCell(c)

	client.MergeOverride = false
	client.Mouse = c.Position
	s.emit(events.EventTypePlayerRespawned, client.ID, "", nil)
	return true
}
