package engine

import (
	"errors"
	"testing"

	"github.com/MRamiBalles/CellArena/internal/config"
	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/events"
	"github.com/MRamiBalles/CellArena/internal/platform/metrics"
)

func TestCommandsApplyInArrivalOrder(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	target := cell.Vector{X: 42, Y: 42}

	// Mouse before the client exists is dropped; the second one lands.
	s.Queue().Push(Command{Kind: CmdMouse, ClientID: "P1", Target: cell.Vector{X: 1, Y: 1}})
	s.Queue().Push(Command{Kind: CmdJoin, ClientID: "P1", Name: "first"})
	s.Queue().Push(Command{Kind: CmdMouse, ClientID: "P1", Target: target})

	rep := s.AdvanceTick()

	client := s.World.Client("P1")
	if client == nil {
		t.Fatalf("Expected client joined")
	}
	if rep.Commands != 3 {
		t.Errorf("Expected 3 commands applied, got %d", rep.Commands)
	}
	if client.Mouse != target {
		t.Errorf("Expected last mouse target to win, got %+v", client.Mouse)
	}
}

func TestQueueDrainStopsAtSnapshot(t *testing.T) {
	q := NewQueue(8)
	q.Push(Command{Kind: CmdSplit, ClientID: "a"})
	q.Push(Command{Kind: CmdSplit, ClientID: "b"})

	var seen []string
	n := q.Drain(func(cmd Command) {
		seen = append(seen, cmd.ClientID)
		if cmd.ClientID == "a" {
			q.Push(Command{Kind: CmdSplit, ClientID: "late"})
		}
	})

	if n != 2 || len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Errorf("Expected [a b] in this drain, got %v", seen)
	}
	if q.Len() != 1 {
		t.Errorf("Expected late command left for the next drain, %d queued", q.Len())
	}
}

func TestQueueFullDropsCommand(t *testing.T) {
	collector := metrics.NewCollector()
	cfg := config.Default()
	cfg.Game = quietConfig()
	e := NewEngine(cfg, nil, WithQueueSize(2), WithMetrics(collector), WithRNG(NewRNG(1)))

	ok1 := e.Submit(Command{Kind: CmdSplit, ClientID: "P1"})
	ok2 := e.Submit(Command{Kind: CmdSplit, ClientID: "P1"})
	ok3 := e.Submit(Command{Kind: CmdSplit, ClientID: "P1"})

	if !ok1 || !ok2 {
		t.Fatalf("Expected first two commands accepted")
	}
	if ok3 {
		t.Errorf("Expected third command rejected by a full queue")
	}
	cmds := collector.Snapshot()["commands"].(map[string]interface{})
	if cmds["dropped"].(int64) != 1 || cmds["accepted"].(int64) != 2 {
		t.Errorf("Expected 2 accepted and 1 dropped, got %v", cmds)
	}
}

func TestJoinReplies(t *testing.T) {
	rec := &eventRecorder{}
	s := newTestSim(t, nil, Deps{Events: rec})
	reply := make(chan JoinResult, 1)

	s.Queue().Push(Command{Kind: CmdJoin, Name: "anon", Reply: reply})
	s.AdvanceTick()

	res := <-reply
	if res.Err != nil || res.ClientID == "" {
		t.Fatalf("Expected a generated session id, got %+v", res)
	}
	client := s.World.Client(res.ClientID)
	if client == nil || !client.IsAlive() {
		t.Fatalf("Expected joined client spawned")
	}
	if rec.count(events.EventTypePlayerJoined) != 1 || rec.count(events.EventTypePlayerRespawned) != 1 {
		t.Errorf("Expected join and respawn events")
	}
}

func TestJoinTwiceKeepsOneClient(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	reply := make(chan JoinResult, 2)

	s.Queue().Push(Command{Kind: CmdJoin, ClientID: "P1", Reply: reply})
	s.Queue().Push(Command{Kind: CmdJoin, ClientID: "P1", Reply: reply})
	s.AdvanceTick()

	if len(s.World.Clients()) != 1 || s.World.Client("P1").CellCount() != 1 {
		t.Errorf("Expected a single client with a single cell")
	}
	if len(reply) != 2 {
		t.Errorf("Expected both joins answered, got %d replies", len(reply))
	}
}

func TestJoinPastCapacity(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	s.MaxClients = 1
	reply := make(chan JoinResult, 2)

	s.Queue().Push(Command{Kind: CmdJoin, ClientID: "P1", Reply: reply})
	s.Queue().Push(Command{Kind: CmdJoin, ClientID: "P2", Reply: reply})
	s.AdvanceTick()

	<-reply
	res := <-reply
	if !errors.Is(res.Err, ErrArenaFull) {
		t.Errorf("Expected ErrArenaFull, got %v", res.Err)
	}
	if s.World.Client("P2") != nil {
		t.Errorf("Expected rejected client not registered")
	}
}

func TestLeaveRemovesClient(t *testing.T) {
	rec := &eventRecorder{}
	s := newTestSim(t, nil, Deps{Events: rec})
	s.Queue().Push(Command{Kind: CmdJoin, ClientID: "P1"})
	s.AdvanceTick()

	s.Queue().Push(Command{Kind: CmdLeave, ClientID: "P1"})
	s.AdvanceTick()

	if s.World.Client("P1") != nil || s.World.PlayerCells.Len() != 0 {
		t.Errorf("Expected client and cells gone")
	}
	if rec.count(events.EventTypePlayerLeft) != 1 {
		t.Errorf("Expected one leave event")
	}
}

func TestRespawnCommandAfterDeath(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	s.Queue().Push(Command{Kind: CmdJoin, ClientID: "P1"})
	s.AdvanceTick()
	client := s.World.Client("P1")
	s.Remove(client.Cells[0])

	s.Queue().Push(Command{Kind: CmdRespawn, ClientID: "P1"})
	s.AdvanceTick()

	if !client.IsAlive() {
		t.Errorf("Expected client respawned")
	}
}

func TestShootVirusCommand(t *testing.T) {
	s := newTestSim(t, nil, Deps{})
	s.Queue().Push(Command{Kind: CmdJoin, ClientID: "P1"})
	v := cell.NewVirus(s.World.NextID(), cell.Vector{X: 1000, Y: 1000}, 100)
	s.World.AddNode(v)

	s.Queue().Push(Command{Kind: CmdShootVirus, ClientID: "P1", NodeID: v.ID})
	s.Queue().Push(Command{Kind: CmdShootVirus, ClientID: "P1", NodeID: 9999})
	s.AdvanceTick()

	if s.World.Viruses.Len() != 2 {
		t.Errorf("Expected one shot from the known virus, have %d viruses", s.World.Viruses.Len())
	}
}

func TestMergeCommandLetsSplitCellsRecombine(t *testing.T) {
	// Setup
	s := newTestSim(t, func(g *config.Game) { g.PlayerRecombineTime = 30 }, Deps{})
	client := addClient(s, "P1")
	a := addPlayerCell(s, client, cell.Vector{X: 400, Y: 1000}, 100)
	b := addPlayerCell(s, client, cell.Vector{X: 1600, Y: 1000}, 100)
	client.Mouse = cell.Vector{X: 1000, Y: 1000}
	solo := addClient(s, "P2")
	addPlayerCell(s, solo, cell.Vector{X: 1000, Y: 1800}, 100)

	// Act
	s.Queue().Push(Command{Kind: CmdMerge, ClientID: "P1"})
	s.Queue().Push(Command{Kind: CmdMerge, ClientID: "P2"})
	runPasses(s, 1)

	// Assert
	if !client.MergeOverride {
		t.Fatalf("Expected merge override set for a split client")
	}
	if !a.ShouldRecombine || !b.ShouldRecombine {
		t.Errorf("Expected both cells mergeable before their recombine time")
	}
	if solo.MergeOverride {
		t.Errorf("Expected merge ignored for a one-cell client")
	}
}
