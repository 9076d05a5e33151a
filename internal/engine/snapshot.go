package engine

import (
	"math"
	"sort"

	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/domain/player"
)

// NodeView is one node as a client sees it.
type NodeView struct {
	ID    uint32
	Kind  cell.Kind
	X     float64
	Y     float64
	Size  float64
	Color cell.Color
	Owner string
}

// LeaderboardEntry ranks a client by total mass.
type LeaderboardEntry struct {
	ClientID string
	Name     string
	Mass     float64
}

// View is the per-client slice of the world published after a tick.
type View struct {
	ClientID    string
	Tick        uint64
	Center      cell.Vector
	Box         cell.Bounds
	Mass        float64
	Alive       bool
	Nodes       []NodeView
	Leaderboard []LeaderboardEntry
}

const leaderboardSize = 10

// BuildViews culls the world for every client. Food inside any view is
// flagged InRange so viruses do not spawn next to it; ejected mass is sent
// to every client regardless of distance.
func (s *Simulation) BuildViews() []View {
	s.World.Food.Each(func(f *cell.Cell) { f.InRange = false })

	board := s.Leaderboard(leaderboardSize)
	views := make([]View, 0, len(s.World.Clients()))

	for _, client := range s.World.Clients() {
		box := s.viewBox(client)
		v := View{
			ClientID:    client.ID,
			Tick:        s.tick,
			Center:      client.Center(),
			Box:         box,
			Mass:        client.TotalMass(),
			Alive:       client.IsAlive(),
			Leaderboard: board,
		}
		s.World.Nodes.Each(func(n *cell.Cell) {
			if !n.AlwaysVisible() && !overlaps(box, n) {
				return
			}
			if n.Kind == cell.KindFood {
				n.InRange = true
			}
			v.Nodes = append(v.Nodes, NodeView{
				ID:    n.ID,
				Kind:  n.Kind,
				X:     n.Position.X,
				Y:     n.Position.Y,
				Size:  n.Size(),
				Color: n.Color,
				Owner: n.Owner,
			})
		})
		views = append(views, v)
	}
	return views
}

// viewBox grows with the client's total cell size.
func (s *Simulation) viewBox(client *player.Tracker) cell.Bounds {
	totalSize := 1.0
	for _, c := range client.Cells {
		totalSize += c.Size()
	}
	scale := math.Pow(math.Min(64/totalSize, 1), 0.4)

	center := client.Center()
	halfW := s.Config.ViewBaseX / scale / 2
	halfH := s.Config.ViewBaseY / scale / 2
	return cell.Bounds{
		Left:   center.X - halfW,
		Top:    center.Y - halfH,
		Right:  center.X + halfW,
		Bottom: center.Y + halfH,
	}
}

func overlaps(box cell.Bounds, c *cell.Cell) bool {
	r := c.Size()
	return c.Position.X+r >= box.Left && c.Position.X-r <= box.Right &&
		c.Position.Y+r >= box.Top && c.Position.Y-r <= box.Bottom
}

// Leaderboard returns the n heaviest living clients.
func (s *Simulation) Leaderboard(n int) []LeaderboardEntry {
	board := make([]LeaderboardEntry, 0, len(s.World.Clients()))
	for _, client := range s.World.Clients() {
		if !client.IsAlive() {
			continue
		}
		board = append(board, LeaderboardEntry{ClientID: client.ID, Name: client.Name, Mass: client.TotalMass()})
	}
	sort.SliceStable(board, func(i, j int) bool { return board[i].Mass > board[j].Mass })
	if len(board) > n {
		board = board[:n]
	}
	return board
}
