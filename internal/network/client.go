package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// PlayerAction represents an incoming command from the browser.
type PlayerAction struct {
	Type string  `json:"type"` // "MOUSE", "SPLIT", "EJECT", "RESPAWN", "MERGE"
	X    float64 `json:"x"`    // MOUSE only
	Y    float64 `json:"y"`
}

// ErrUnknownAction is returned by ParseAction for unsupported action types.
var ErrUnknownAction = errors.New("unknown action type")

// ParseAction decodes a JSON action into a command for clientID.
func ParseAction(raw []byte, clientID string) (engine.Command, error) {
	var action PlayerAction
	if err := json.Unmarshal(raw, &action); err != nil {
		return engine.Command{}, fmt.Errorf("failed to parse action: %w", err)
	}

	cmd := engine.Command{ClientID: clientID}
	switch strings.ToUpper(action.Type) {
	case "MOUSE":
		cmd.Kind = engine.CmdMouse
		cmd.Target = cell.Vector{X: action.X, Y: action.Y}
	case "SPLIT":
		cmd.Kind = engine.CmdSplit
	case "EJECT":
		cmd.Kind = engine.CmdEject
	case "RESPAWN":
		cmd.Kind = engine.CmdRespawn
	case "MERGE":
		cmd.Kind = engine.CmdMerge
	default:
		return engine.Command{}, fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}
	return cmd, nil
}

type outbound struct {
	binary bool
	data   []byte
}

// Client is one WebSocket session. Its id is the simulation client id.
type Client struct {
	hub     *Hub
	id      string
	conn    *websocket.Conn
	limiter *rate.Limiter

	mu     sync.Mutex
	send   chan outbound
	closed bool
}

// NewClient creates a session with a per-client action rate limit.
func NewClient(hub *Hub, conn *websocket.Conn, id string) *Client {
	limit := rate.Inf
	burst := 1
	if n := hub.opts.MaxMessagesPerSecond; n > 0 {
		limit = rate.Limit(n)
		burst = n
	}
	return &Client{
		hub:     hub,
		id:      id,
		conn:    conn,
		limiter: rate.NewLimiter(limit, burst),
		send:    make(chan outbound, hub.opts.ClientSendBuffer),
	}
}

func (c *Client) ID() string { return c.id }

// enqueue hands a message to the write pump without blocking.
// It returns false when the buffer is full or the session is closed.
func (c *Client) enqueue(m outbound) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- m:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// join asks the simulation for a seat and reports the outcome to the browser.
// submitJoin queues the join. It runs before ReadPump starts, so the join is
// always ahead of the leave a dropped socket produces.
func (c *Client) submitJoin(name string) (<-chan engine.JoinResult, bool) {
	reply := make(chan engine.JoinResult, 1)
	if !c.hub.engine.Submit(engine.Command{Kind: engine.CmdJoin, ClientID: c.id, Name: name, Reply: reply}) {
		c.reject("server busy")
		return nil, false
	}
	return reply, true
}

// awaitJoin greets the browser once the simulation has placed it.
func (c *Client) awaitJoin(name string, reply <-chan engine.JoinResult) {
	select {
	case res := <-reply:
		if res.Err != nil {
			c.reject(res.Err.Error())
			return
		}
		c.enqueue(outbound{data: encodeControl(ControlMessage{
			Type:     MsgWelcome,
			ClientID: res.ClientID,
			Team:     res.Team,
			Color:    fmt.Sprintf("#%02x%02x%02x", res.Color.R, res.Color.G, res.Color.B),
		})})
		c.hub.logger.Event("PLAYER_SESSION", c.id, "Joined as "+name)
	case <-time.After(joinTimeout):
		c.reject("join timed out")
	}
}

// reject tells the browser why it cannot play and ends the session.
func (c *Client) reject(reason string) {
	c.hub.logger.Warn("Rejected session " + c.id + ": " + reason)
	c.enqueue(outbound{data: encodeControl(ControlMessage{Type: MsgError, Error: reason})})
	c.hub.leave(c)
}

// ReadPump pumps actions from the websocket connection to the engine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read error from " + c.id + ": " + err.Error())
				c.hub.metrics.RecordWSError()
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		if !c.limiter.Allow() {
			c.hub.metrics.RecordCommand(false)
			continue
		}

		cmd, err := ParseAction(message, c.id)
		if err != nil {
			c.hub.logger.Warn("Bad action from " + c.id + ": " + err.Error())
			continue
		}
		c.hub.engine.Submit(cmd)
	}
}

// WritePump pumps frames and control messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			kind := websocket.TextMessage
			if message.binary {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, message.data); err != nil {
				c.hub.metrics.RecordWSError()
				return
			}
			c.hub.metrics.RecordWSMessage(false)
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
