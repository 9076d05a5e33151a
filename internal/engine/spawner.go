package engine

import (
	"math"

	"github.com/MRamiBalles/CellArena/internal/domain/cell"
)

// SpawnFood adds n pellets at random integer positions. n <= 0 is a no-op.
func (s *Simulation) SpawnFood(n int) int {
	for i := 0; i < n; i++ {
		f := cell.NewFood(s.World.NextID(), s.RandomPosition(), s.Config.FoodMass)
		f.Color = randomColor(s.rng)
		s.World.AddNode(f)
	}
	return max(n, 0)
}

// SpawnViruses adds n viruses near random unseen pellets. n <= 0 is a no-op.
func (s *Simulation) SpawnViruses(n int) int {
	for i := 0; i < n; i++ {
		v := cell.NewVirus(s.World.NextID(), s.RandomSpawn(), s.Config.VirusStartMass)
		v.Color = cell.Color{R: 51, G: 255, B: 51}
		s.World.AddNode(v)
	}
	return max(n, 0)
}

// RandomPosition is a uniform integer point inside the arena.
func (s *Simulation) RandomPosition() cell.Vector {
	b := s.World.Bounds
	return cell.Vector{
		X: math.Floor(s.rng.Float64()*b.Width() + b.Left),
		Y: math.Floor(s.rng.Float64()*b.Height() + b.Top),
	}
}

// RandomSpawn is a point within virusSpawnDist of a pellet no player is looking at.
// Without such a pellet it falls back to RandomPosition.
func (s *Simulation) RandomSpawn() cell.Vector {
	pellet := s.pickPellet()
	if pellet == nil {
		return s.RandomPosition()
	}
	angle := s.rng.Angle()
	dist := s.rng.Range(0, virusSpawnDist)
	return s.World.Bounds.Clamp(pellet.Position.Add(cell.Direction(angle).Scale(dist)))
}

// pickPellet samples food slots in range; vacated or watched slots are retried
// a bounded number of times.
func (s *Simulation) pickPellet() *cell.Cell {
	slots := s.World.Food.Slots()
	if slots == 0 {
		return nil
	}
	for i := 0; i < pelletAttempts; i++ {
		f := s.World.Food.At(s.rng.IntN(slots))
		if f == nil || f.InRange {
			continue
		}
		return f
	}
	return nil
}
