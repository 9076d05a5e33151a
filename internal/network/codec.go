package network

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/MRamiBalles/CellArena/internal/engine"
)

// NodeFrame is one visible node on the wire. Short keys keep frames small.
type NodeFrame struct {
	ID    uint32   `msgpack:"i"`
	Kind  uint8    `msgpack:"k"`
	X     float32  `msgpack:"x"`
	Y     float32  `msgpack:"y"`
	Size  float32  `msgpack:"s"`
	Color [3]uint8 `msgpack:"c"`
	Owner string   `msgpack:"o,omitempty"`
}

// BoardFrame is one leaderboard row.
type BoardFrame struct {
	ID   string  `msgpack:"i"`
	Name string  `msgpack:"n"`
	Mass float32 `msgpack:"m"`
}

// Frame is the binary per-client view sent after a broadcast tick.
type Frame struct {
	Tick        uint64       `msgpack:"t"`
	CenterX     float32      `msgpack:"cx"`
	CenterY     float32      `msgpack:"cy"`
	Mass        float32      `msgpack:"m"`
	Alive       bool         `msgpack:"a"`
	Nodes       []NodeFrame  `msgpack:"n"`
	Leaderboard []BoardFrame `msgpack:"l"`
}

// FrameFromView converts an engine view to its wire form.
func FrameFromView(v engine.View) Frame {
	f := Frame{
		Tick:        v.Tick,
		CenterX:     float32(v.Center.X),
		CenterY:     float32(v.Center.Y),
		Mass:        float32(v.Mass),
		Alive:       v.Alive,
		Nodes:       make([]NodeFrame, 0, len(v.Nodes)),
		Leaderboard: make([]BoardFrame, 0, len(v.Leaderboard)),
	}
	for _, n := range v.Nodes {
		f.Nodes = append(f.Nodes, NodeFrame{
			ID:    n.ID,
			Kind:  uint8(n.Kind),
			X:     float32(n.X),
			Y:     float32(n.Y),
			Size:  float32(n.Size),
			Color: [3]uint8{n.Color.R, n.Color.G, n.Color.B},
			Owner: n.Owner,
		})
	}
	for _, e := range v.Leaderboard {
		f.Leaderboard = append(f.Leaderboard, BoardFrame{ID: e.ClientID, Name: e.Name, Mass: float32(e.Mass)})
	}
	return f
}

// EncodeView serialises a view as a msgpack frame.
func EncodeView(v engine.View) ([]byte, error) {
	f := FrameFromView(v)
	data, err := msgpack.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame for %s: %w", v.ClientID, err)
	}
	return data, nil
}

// DecodeFrame parses a msgpack frame. Bots and tests use it.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	return f, nil
}

// Control messages travel as JSON text frames.
const (
	MsgWelcome = "WELCOME"
	MsgError   = "ERROR"
)

// ControlMessage is a server-to-client JSON message outside the frame stream.
type ControlMessage struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id,omitempty"`
	Team     int    `json:"team,omitempty"`
	Color    string `json:"color,omitempty"`
	Error    string `json:"error,omitempty"`
}

func encodeControl(m ControlMessage) []byte {
	data, _ := json.Marshal(m)
	return data
}
