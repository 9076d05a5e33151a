package engine

import (
	"errors"

	"github.com/google/uuid"

	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/domain/player"
	"github.com/MRamiBalles/CellArena/internal/events"
)

// CommandKind names a player action routed through the command queue.
type CommandKind int

const (
	CmdJoin CommandKind = iota
	CmdLeave
	CmdMouse
	CmdSplit
	CmdEject
	CmdRespawn
	CmdShootVirus
	CmdMerge
)

func (k CommandKind) String() string {
	switch k {
	case CmdJoin:
		return "join"
	case CmdLeave:
		return "leave"
	case CmdMouse:
		return "mouse"
	case CmdSplit:
		return "split"
	case CmdEject:
		return "eject"
	case CmdRespawn:
		return "respawn"
	case CmdShootVirus:
		return "shoot_virus"
	case CmdMerge:
		return "merge"
	}
	return "unknown"
}

// Command is one queued mutation. Fields beyond Kind are used as the kind requires.
type Command struct {
	Kind     CommandKind
	ClientID string
	Name     string           // Join
	Target   cell.Vector      // Mouse
	NodeID   uint32           // ShootVirus
	Reply    chan<- JoinResult // Join, optional. Must be buffered.
}

// JoinResult answers a join command.
type JoinResult struct {
	ClientID string
	Team     int
	Color    cell.Color
	Err      error
}

// ErrArenaFull is returned to joins past the client cap.
var ErrArenaFull = errors.New("arena is full")

// Queue is a bounded FIFO of commands. Push never blocks.
type Queue struct {
	ch chan Command
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan Command, size)}
}

// Push enqueues cmd. It returns false when the queue is full and cmd was dropped.
func (q *Queue) Push(cmd Command) bool {
	select {
	case q.ch <- cmd:
		return true
	default:
		return false
	}
}

// Drain applies the commands queued when the call starts, in arrival order.
// Commands pushed while draining wait for the next call.
func (q *Queue) Drain(fn func(Command)) int {
	n := len(q.ch)
	for i := 0; i < n; i++ {
		fn(<-q.ch)
	}
	return n
}

func (q *Queue) Len() int { return len(q.ch) }

// apply runs one command against the world.
func (s *Simulation) apply(cmd Command) {
	if cmd.Kind == CmdJoin {
		s.join(cmd)
		return
	}

	client := s.World.Client(cmd.ClientID)
	if client == nil {
		return
	}

	switch cmd.Kind {
	case CmdLeave:
		s.World.RemoveClient(client.ID)
		s.emit(events.EventTypePlayerLeft, client.ID, "", nil)
		s.log.Event(string(events.EventTypePlayerLeft), client.ID, client.Name)
	case CmdMouse:
		client.Mouse = cmd.Target
	case CmdSplit:
		s.SplitAll(client)
	case CmdEject:
		s.EjectMass(client)
	case CmdRespawn:
		s.Respawn(client)
	case CmdShootVirus:
		if v := s.World.Viruses.Get(cmd.NodeID); v != nil {
			s.ShootVirus(v)
		}
	case CmdMerge:
		// Lets split cells recombine now; cleared again once one cell is left.
		client.MergeOverride = client.CellCount() > 1
	}
}

func (s *Simulation) join(cmd Command) {
	reply := func(r JoinResult) {
		if cmd.Reply == nil {
			return
		}
		select {
		case cmd.Reply <- r:
		default:
		}
	}

	id := cmd.ClientID
	if id == "" {
		id = uuid.NewString()
	}
	if existing := s.World.Client(id); existing != nil {
		reply(JoinResult{ClientID: id, Team: existing.Team, Color: existing.Color})
		return
	}
	if s.MaxClients > 0 && len(s.World.Clients()) >= s.MaxClients {
		reply(JoinResult{ClientID: id, Err: ErrArenaFull})
		return
	}

	client := player.NewTracker(id, cmd.Name, 0)
	s.mode.AssignTeam(client, s.rng)
	s.World.AddClient(client)
	s.Respawn(client)

	s.emit(events.EventTypePlayerJoined, client.ID, "", nil)
	s.log.Event(string(events.EventTypePlayerJoined), client.ID, client.Name)
	reply(JoinResult{ClientID: id, Team: client.Team, Color: client.Color})
}
