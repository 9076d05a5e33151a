package engine

import (
	"math"
	"testing"

	"github.com/MRamiBalles/CellArena/internal/config"
	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/domain/player"
	"github.com/MRamiBalles/CellArena/internal/events"
)

// ejectFrom registers a blob owned by owner and arms its Wmult check the way EjectMass does.
func ejectFrom(s *Simulation, owner *player.Tracker, pos cell.Vector) *cell.Cell {
	blob := cell.NewEjectedMass(s.World.NextID(), owner.ID, pos, s.Config.EjectMass)
	s.World.AddNode(blob)
	owner.CheckForWMult = true
	return blob
}

func TestAntiTeamAppliedOnce(t *testing.T) {
	rec := &eventRecorder{}
	s := newTestSim(t, nil, Deps{Events: rec})
	thrower := addClient(s, "thrower")
	catcher := addClient(s, "catcher")
	eater := addPlayerCell(s, catcher, cell.Vector{X: 500, Y: 500}, 100)
	blob := ejectFrom(s, thrower, cell.Vector{X: 505, Y: 500})

	// Act
	s.Consume(eater, blob)

	// Assert
	if math.Abs(thrower.Wmult-ejectTeamingAmount) > 1e-12 {
		t.Errorf("Expected Wmult %f, got %f", ejectTeamingAmount, thrower.Wmult)
	}
	if thrower.CheckForWMult {
		t.Errorf("Expected the one-shot flag cleared")
	}
	if !blob.AddedAntiTeam {
		t.Errorf("Expected blob marked as accounted")
	}
	if rec.count(events.EventTypeAntiTeamApplied) != 1 {
		t.Errorf("Expected one anti-team event")
	}

	// Act: a second resolution of the same blob
	thrower.CheckForWMult = true
	res := s.ResolveAntiTeam(blob)

	if res != AntiTeamAlreadyApplied {
		t.Errorf("Expected %v, got %v", AntiTeamAlreadyApplied, res)
	}
	if math.Abs(thrower.Wmult-ejectTeamingAmount) > 1e-12 {
		t.Errorf("Expected Wmult unchanged, got %f", thrower.Wmult)
	}
}

func TestRemoveEjectedTwice(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	thrower := addClient(s, "thrower")
	blob := ejectFrom(s, thrower, cell.Vector{X: 505, Y: 500})

	if !s.Remove(blob) {
		t.Fatalf("Expected first removal to succeed")
	}
	thrower.CheckForWMult = true
	if s.Remove(blob) {
		t.Errorf("Expected second removal to be a no-op")
	}
	if thrower.Wmult != ejectTeamingAmount {
		t.Errorf("Expected Wmult applied exactly once, got %f", thrower.Wmult)
	}
}

func TestConsumeTransfersFullMass(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	thrower := addClient(s, "thrower")
	catcher := addClient(s, "catcher")
	eater := addPlayerCell(s, catcher, cell.Vector{X: 500, Y: 500}, 100)
	blob := ejectFrom(s, thrower, cell.Vector{X: 505, Y: 500})

	s.Consume(eater, blob)

	if eater.Mass != 100+s.Config.EjectMass {
		t.Errorf("Expected full mass transfer, got %f", eater.Mass)
	}
	if blob.KilledBy != eater {
		t.Errorf("Expected KilledBy set to the consumer")
	}
}

func TestAntiTeamSkipsUnknownOwner(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	thrower := addClient(s, "thrower")
	blob := ejectFrom(s, thrower, cell.Vector{X: 505, Y: 500})
	s.World.RemoveClient(thrower.ID)

	res := s.ResolveAntiTeam(blob)
	removed := s.Remove(blob)

	if res != AntiTeamSkippedNoOwner {
		t.Errorf("Expected %v, got %v", AntiTeamSkippedNoOwner, res)
	}
	if !removed || s.World.Alive(blob) {
		t.Errorf("Expected blob removed regardless")
	}
}

func TestAntiTeamResults(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Game)
		armed  bool
		want   AntiTeamResult
	}{
		{"Disabled", func(g *config.Game) { g.AntiTeaming = false }, true, AntiTeamDisabled},
		{"Not flagged", nil, false, AntiTeamNotFlagged},
		{"Applied", nil, true, AntiTeamApplied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSim(t, tt.mutate, Deps{})
			thrower := addClient(s, "thrower")
			blob := ejectFrom(s, thrower, cell.Vector{X: 505, Y: 500})
			thrower.CheckForWMult = tt.armed

			if got := s.ResolveAntiTeam(blob); got != tt.want {
				t.Errorf("ResolveAntiTeam() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAntiTeamInTeamMode(t *testing.T) {
	tests := []struct {
		name         string
		exempt       bool
		consumerTeam int
		byVirus      bool
		want         AntiTeamResult
	}{
		{"Teammate catch is exempt", true, 1, false, AntiTeamExempt},
		{"Teammate catch counts without exemption", false, 1, false, AntiTeamApplied},
		{"Enemy catch", true, 2, false, AntiTeamApplied},
		{"Virus catch has no consumer", true, 1, true, AntiTeamSkippedNoConsumer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSim(t, func(g *config.Game) {
				g.Mode = "teams"
				g.SameTeamExempt = tt.exempt
			}, Deps{})
			thrower := addClient(s, "thrower")
			catcher := addClient(s, "catcher")
			thrower.Team = 1
			catcher.Team = tt.consumerTeam
			blob := ejectFrom(s, thrower, cell.Vector{X: 505, Y: 500})

			blob.KilledBy = cell.NewPlayerCell(999, catcher.ID, cell.Vector{}, 100)
			if tt.byVirus {
				blob.KilledBy = cell.NewVirus(999, cell.Vector{}, 100)
			}

			got := s.ResolveAntiTeam(blob)

			if got != tt.want {
				t.Errorf("ResolveAntiTeam() = %v, want %v", got, tt.want)
			}
			if applied := thrower.Wmult > 0; applied != (tt.want == AntiTeamApplied) {
				t.Errorf("Expected Wmult applied=%v, got %f", tt.want == AntiTeamApplied, thrower.Wmult)
			}
		})
	}
}

func TestAntiTeamNoConsumerInTeamMode(t *testing.T) {
	s := newTestSim(t, func(g *config.Game) { g.Mode = "teams" }, Deps{})
	thrower := addClient(s, "thrower")
	blob := ejectFrom(s, thrower, cell.Vector{X: 505, Y: 500})

	if got := s.ResolveAntiTeam(blob); got != AntiTeamSkippedNoConsumer {
		t.Errorf("Expected %v for a blob nobody ate, got %v", AntiTeamSkippedNoConsumer, got)
	}
}

func TestTeamingMultiplierSums(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	client := addClient(s, "P1")

	client.ApplyTeaming(0.5, player.TeamingEject)
	client.ApplyTeaming(2, player.TeamingVirus)
	client.ApplyTeaming(3, player.TeamingSplit)

	if client.MassDecayMult != 6.5 {
		t.Errorf("Expected 1 + 0.5 + 2 + 3, got %f", client.MassDecayMult)
	}
}
