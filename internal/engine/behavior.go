package engine

import (
	"math"

	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/domain/player"
	"github.com/MRamiBalles/CellArena/internal/events"
)

// behavior is the capability table for one cell kind. Nil entries are no-ops.
type behavior struct {
	move      func(s *Simulation, c *cell.Cell)
	eat       func(s *Simulation, c *cell.Cell)
	onConsume func(s *Simulation, prey, consumer *cell.Cell)
	onRemove  func(s *Simulation, c *cell.Cell)
}

var behaviors [cell.KindCount]behavior

// Assigned in init because the player and virus entries reach back into
// Simulation methods that consult the table.
func init() {
	behaviors = [cell.KindCount]behavior{
		cell.KindPlayer: {
			move:      movePlayerCell,
			eat:       playerEat,
			onConsume: transferMass,
		},
		cell.KindFood: {
			onConsume: transferMass,
		},
		cell.KindVirus: {
			move:      moveVirus,
			eat:       virusEat,
			onConsume: virusConsumed,
		},
		cell.KindEjected: {
			move:      moveEjected,
			onConsume: transferMass,
			onRemove:  ejectedRemoved,
		},
	}
}

const (
	eatRatio   = 1.25 // Player cells eat other players' cells this much lighter
	virusRatio = 1.33 // and viruses this much lighter
)

func movePlayerCell(s *Simulation, c *cell.Cell) {
	c.MoveEngineTick(s.World.Bounds)
	if owner := s.World.Client(c.Owner); owner != nil {
		c.StepTowards(owner.Mouse, c.Speed(), s.World.Bounds)
	}
}

func moveVirus(s *Simulation, c *cell.Cell) {
	c.MoveEngineTick(s.World.Bounds)
}

// moveEjected integrates the throw and separates the blob from every other ejected mass.
func moveEjected(s *Simulation, c *cell.Cell) {
	c.MoveEngineTick(s.World.Bounds)
	s.World.Ejected.Each(func(other *cell.Cell) {
		if other != c {
			s.resolver.PushApart(c, other)
		}
	})
}

func playerEat(s *Simulation, c *cell.Cell) {
	s.World.Nodes.Each(func(prey *cell.Cell) {
		if prey == c || !s.World.Alive(c) || !s.World.Alive(prey) {
			return
		}
		if !s.canEat(c, prey) || !c.CanReach(prey) {
			return
		}
		s.Consume(c, prey)
	})
	s.capMass(c)
}

// canEat applies the size and ownership rules for a player cell eating prey.
func (s *Simulation) canEat(eater, prey *cell.Cell) bool {
	switch prey.Kind {
	case cell.KindFood, cell.KindEjected:
		return true
	case cell.KindVirus:
		return eater.Mass >= prey.Mass*virusRatio
	case cell.KindPlayer:
		if prey.Owner == eater.Owner {
			return eater.ShouldRecombine && prey.ShouldRecombine &&
				prey.CollisionRestoreTicks <= 0 && eater.Mass >= prey.Mass
		}
		if SameTeam(s.mode, s.World.Client(eater.Owner), s.World.Client(prey.Owner)) {
			return false
		}
		return eater.Mass >= prey.Mass*eatRatio
	}
	return false
}

// capMass keeps a player cell under the mass ceiling, splitting the excess
// off towards the mouse when the client has room for another cell.
func (s *Simulation) capMass(c *cell.Cell) {
	if s.Config.PlayerMaxMass <= 0 || c.Mass <= s.Config.PlayerMaxMass || !s.World.Alive(c) {
		return
	}
	if owner := s.World.Client(c.Owner); owner != nil {
		if s.TrySplit(owner, c, splitAngle(c.Position, owner.Mouse), c.Mass/2) {
			return
		}
	}
	c.Mass = s.Config.PlayerMaxMass
}

// virusEat swallows ejected mass. Every VirusFeedAmount feeds the virus
// resets and fires a new virus along the last feed's heading.
func virusEat(s *Simulation, v *cell.Cell) {
	s.World.Ejected.Each(func(e *cell.Cell) {
		if !s.World.Alive(v) || !s.World.Alive(e) || !v.CanReach(e) {
			return
		}
		s.Consume(v, e)
		v.ShootAngle = e.Heading
		v.Fed++

		if s.Config.VirusFeedAmount <= 0 || v.Fed < s.Config.VirusFeedAmount {
			return
		}
		v.Fed = 0
		v.Mass = s.Config.VirusStartMass
		if s.World.Viruses.Len() < s.Config.VirusMaxAmount {
			s.ShootVirus(v)
		}
	})
}

func transferMass(_ *Simulation, prey, consumer *cell.Cell) {
	consumer.AddMass(prey.Mass)
}

// virusConsumed bursts the player cell that ate the virus.
func virusConsumed(s *Simulation, virus, consumer *cell.Cell) {
	consumer.AddMass(virus.Mass)
	if consumer.Kind != cell.KindPlayer {
		return
	}
	owner := s.World.Client(consumer.Owner)
	if owner == nil {
		return
	}
	pieces := s.popCell(owner, consumer)
	owner.ApplyTeaming(1, player.TeamingVirus)
	s.emit(events.EventTypeVirusPopped, owner.ID, "", events.SplitPayload{Splits: pieces, Cells: owner.CellCount()})
}

// popCell splits c into as many evenly spread pieces as the cell cap allows.
func (s *Simulation) popCell(owner *player.Tracker, c *cell.Cell) int {
	pieces := s.Config.PlayerMaxCells - owner.CellCount()
	if pieces <= 0 {
		return 0
	}
	pieceMass := c.Mass / float64(pieces+1)
	base := s.rng.Angle()
	step := 2 * math.Pi / float64(pieces)

	made := 0
	for i := 0; i < pieces; i++ {
		if s.TrySplit(owner, c, base+step*float64(i), pieceMass) {
			made++
		}
	}
	return made
}

func ejectedRemoved(s *Simulation, e *cell.Cell) {
	if res := s.ResolveAntiTeam(e); res == AntiTeamApplied {
		owner := s.World.Client(e.Owner)
		s.emit(events.EventTypeAntiTeamApplied, e.Owner, killerOwner(e), events.AntiTeamPayload{
			Kind:          "eject",
			MassDecayMult: owner.MassDecayMult,
		})
	}
}

func killerOwner(c *cell.Cell) string {
	if c.KilledBy == nil {
		return ""
	}
	return c.KilledBy.Owner
}

// Consume lets consumer eat prey: the prey's consume hook runs, then prey is removed.
func (s *Simulation) Consume(consumer, prey *cell.Cell) {
	if !s.World.Alive(prey) {
		return
	}
	prey.KilledBy = consumer
	if fn := behaviors[prey.Kind].onConsume; fn != nil {
		fn(s, prey, consumer)
	}
	if prey.Kind == cell.KindPlayer && prey.Owner != consumer.Owner {
		s.emit(events.EventTypeCellConsumed, consumer.Owner, prey.Owner, events.ConsumePayload{
			PreyKind: prey.Kind.String(),
			Mass:     prey.Mass,
		})
	}
	s.Remove(prey)
}

// Remove runs the removal hook and unregisters c. Removing a node twice is a no-op.
func (s *Simulation) Remove(c *cell.Cell) bool {
	if !s.World.Alive(c) {
		return false
	}
	if fn := behaviors[c.Kind].onRemove; fn != nil {
		fn(s, c)
	}
	return s.World.RemoveNode(c)
}

// AntiTeamResult is the outcome of anti-teaming bookkeeping on ejected mass removal.
type AntiTeamResult int

const (
	AntiTeamApplied AntiTeamResult = iota
	AntiTeamAlreadyApplied
	AntiTeamNotFlagged
	AntiTeamDisabled
	AntiTeamExempt
	AntiTeamSkippedNoOwner
	AntiTeamSkippedNoConsumer
)

func (r AntiTeamResult) String() string {
	switch r {
	case AntiTeamApplied:
		return "applied"
	case AntiTeamAlreadyApplied:
		return "already_applied"
	case AntiTeamNotFlagged:
		return "not_flagged"
	case AntiTeamDisabled:
		return "disabled"
	case AntiTeamExempt:
		return "exempt"
	case AntiTeamSkippedNoOwner:
		return "skipped_no_owner"
	case AntiTeamSkippedNoConsumer:
		return "skipped_no_consumer"
	}
	return "unknown"
}

const ejectTeamingAmount = 0.02

// ResolveAntiTeam feeds the ejecting client's Wmult at most once per ejected
// mass. It never fails: every unresolvable case maps to a skip result.
func (s *Simulation) ResolveAntiTeam(e *cell.Cell) AntiTeamResult {
	if e.AddedAntiTeam {
		return AntiTeamAlreadyApplied
	}
	if !s.Config.AntiTeaming {
		return AntiTeamDisabled
	}
	owner := s.World.Client(e.Owner)
	if owner == nil {
		return AntiTeamSkippedNoOwner
	}
	if !owner.CheckForWMult {
		return AntiTeamNotFlagged
	}

	if s.mode.TeamAmount() > 0 {
		if e.KilledBy == nil {
			return AntiTeamSkippedNoConsumer
		}
		consumer := s.World.Client(e.KilledBy.Owner)
		if consumer == nil {
			return AntiTeamSkippedNoConsumer
		}
		// Mass handed to a teammate is not teaming.
		if s.Config.SameTeamExempt && consumer != owner && consumer.Team == owner.Team {
			return AntiTeamExempt
		}
	}

	owner.ApplyTeaming(ejectTeamingAmount, player.TeamingEject)
	owner.CheckForWMult = false
	e.AddedAntiTeam = true
	return AntiTeamApplied
}
