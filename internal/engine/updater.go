package engine

import (
	"math"

	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/domain/player"
	"github.com/MRamiBalles/CellArena/internal/domain/rules"
)

// TickReport summarises one AdvanceTick call.
type TickReport struct {
	Tick               uint64
	Commands           int
	ClientsUpdated     int
	IndependentUpdated int
	FoodSpawned        int
	VirusesSpawned     int
}

// AdvanceTick runs one full tick: queued commands, throttled client and
// independent node passes, then population top-up. It always runs to
// completion.
func (s *Simulation) AdvanceTick() TickReport {
	s.tick++
	rep := TickReport{Tick: s.tick}

	rep.Commands = s.queue.Drain(s.apply)

	global := rules.MassDecayFactor(s.Config.PlayerMassDecayRate, s.mode.DecayMod())

	// Leave commands may shrink the list, so walk a copy.
	for _, client := range append([]*player.Tracker(nil), s.World.Clients()...) {
		client.CellUpdate--
		if client.CellUpdate > 0 {
			continue
		}
		client.CellUpdate = UpdatePeriod
		rep.ClientsUpdated++
		s.updateClient(client, global)
	}

	s.World.Independent.Each(func(n *cell.Cell) {
		n.TicksLeft--
		if n.TicksLeft > 0 {
			return
		}
		n.TicksLeft = UpdatePeriod
		rep.IndependentUpdated++

		b := behaviors[n.Kind]
		if b.move != nil {
			b.move(s, n)
		}
		if b.eat != nil && s.World.Alive(n) {
			b.eat(s, n)
		}
	})

	s.settleClients()

	rep.FoodSpawned = s.SpawnFood(rules.FoodSpawnCount(s.Config.FoodMaxAmount, s.World.Food.Len(), s.Config.FoodSpawnAmount))
	rep.VirusesSpawned = s.SpawnViruses(rules.VirusSpawnCount(s.Config.VirusMinAmount, s.World.Viruses.Len()))

	s.World.Compact()
	return rep
}

func (s *Simulation) updateClient(client *player.Tracker, global float64) {
	if client.CellCount() <= 1 {
		client.MergeOverride = false
	}

	sorted := client.SortedCells()

	decay := global
	if s.Config.AntiTeaming {
		decay = rules.TeamDecayFactor(global, client.MassDecayMult)
	}

	move := behaviors[cell.KindPlayer].move
	eat := behaviors[cell.KindPlayer].eat

	for _, c := range sorted {
		if !s.World.Alive(c) {
			continue
		}

		move(s, c)
		s.mode.OnCellMove(c, s.World)

		if c.CollisionRestoreTicks <= 0 {
			for _, other := range sorted {
				if other == c || !s.World.Alive(other) {
					continue
				}
				if other.CollisionRestoreTicks > 0 || (other.ShouldRecombine && c.ShouldRecombine) {
					continue
				}
				s.resolver.PushApart(c, other)
			}
		} else {
			c.CollisionRestoreTicks = math.Max(0, c.CollisionRestoreTicks-immunityStep)
		}

		eat(s, c)
		if !s.World.Alive(c) {
			continue
		}

		if client.CellCount() > 1 {
			c.RecombineTicks += recombineStep
		} else {
			c.RecombineTicks = 0
		}
		c.CalcMergeTime(s.Config.PlayerRecombineTime, client.MergeOverride)

		if c.Mass >= s.Config.PlayerMinMassDecay {
			c.Mass *= decay
		}
	}
}

// settleClients clears merge state for clients left with at most one cell,
// including those that lost cells to other clients after their own pass.
func (s *Simulation) settleClients() {
	for _, client := range s.World.Clients() {
		if client.CellCount() > 1 {
			continue
		}
		client.MergeOverride = false
		for _, c := range client.Cells {
			c.RecombineTicks = 0
		}
	}
}
