package engine

import (
	"strings"

	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/domain/player"
)

// GameMode supplies the per-mode rules the updater consults.
type GameMode interface {
	Name() string
	// DecayMod scales the configured mass decay rate.
	DecayMod() float64
	// TeamAmount is 0 when the mode has no teams.
	TeamAmount() int
	// AssignTeam picks a team and colour for a joining client.
	AssignTeam(t *player.Tracker, rng *RNG)
	// OnCellMove runs after a player cell has moved.
	OnCellMove(c *cell.Cell, w *World)
}

// FFA is free-for-all: no teams, every client for themselves.
type FFA struct{}

func (FFA) Name() string { return "ffa" }
func (FFA) DecayMod() float64 { return 1 }
func (FFA) TeamAmount() int { return 0 }
func (FFA) OnCellMove(*cell.Cell, *World) {}

func (FFA) AssignTeam(t *player.Tracker, rng *RNG) {
	t.Team = 0
	t.Color = randomColor(rng)
}

var teamColors = []cell.Color{
	{R: 223, G: 0, B: 0},
	{R: 0, G: 223, B: 0},
	{R: 0, G: 0, B: 223},
}

// Teams splits clients into three coloured teams. Teammates' cells do not
// overlap and cannot eat each other.
type Teams struct {
	resolver Resolver
	next     int
}

func NewTeams(resolver Resolver) *Teams {
	return &Teams{resolver: resolver}
}

func (*Teams) Name() string { return "teams" }
func (*Teams) DecayMod() float64 { return 1 }
func (*Teams) TeamAmount() int { return len(teamColors) }

// AssignTeam deals teams round-robin so they stay balanced.
func (m *Teams) AssignTeam(t *player.Tracker, rng *RNG) {
	t.Team = m.next % len(teamColors)
	m.next++
	t.Color = teamShade(teamColors[t.Team], rng)
}

func (m *Teams) OnCellMove(c *cell.Cell, w *World) {
	owner := w.Client(c.Owner)
	if owner == nil || m.resolver == nil {
		return
	}
	w.PlayerCells.Each(func(other *cell.Cell) {
		if other == c || other.Owner == c.Owner {
			return
		}
		mate := w.Client(other.Owner)
		if mate == nil || mate.Team != owner.Team {
			return
		}
		m.resolver.PushApart(c, other)
	})
}

// SameTeam reports whether two clients share a team under mode.
func SameTeam(mode GameMode, a, b *player.Tracker) bool {
	return mode.TeamAmount() > 0 && a != nil && b != nil && a.Team == b.Team
}

// ModeByName resolves a configured mode name.
func ModeByName(name string, resolver Resolver) GameMode {
	if strings.EqualFold(name, "teams") {
		return NewTeams(resolver)
	}
	return FFA{}
}

func teamShade(base cell.Color, rng *RNG) cell.Color {
	jitter := func(v uint8) uint8 {
		n := int(v) + rng.IntN(33) - 16
		return uint8(max(0, min(255, n)))
	}
	return cell.Color{R: jitter(base.R), G: jitter(base.G), B: jitter(base.B)}
}

// randomColor returns a saturated colour: one channel full, one empty, one random.
func randomColor(rng *RNG) cell.Color {
	v := rng.Uint8()
	switch rng.IntN(6) {
	case 0:
		return cell.Color{R: 255, G: 7, B: v}
	case 1:
		return cell.Color{R: 255, G: v, B: 7}
	case 2:
		return cell.Color{R: 7, G: 255, B: v}
	case 3:
		return cell.Color{R: v, G: 255, B: 7}
	case 4:
		return cell.Color{R: 7, G: v, B: 255}
	default:
		return cell.Color{R: v, G: 7, B: 255}
	}
}
