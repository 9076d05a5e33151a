package network

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/CellArena/internal/engine"
	"github.com/MRamiBalles/CellArena/internal/platform/logger"
	"github.com/MRamiBalles/CellArena/internal/platform/metrics"
	"github.com/MRamiBalles/CellArena/internal/platform/optimization"
)

const (
	joinTimeout   = 5 * time.Second
	maxNameLength = 16
)

// Submitter queues commands for the simulation. *engine.Engine satisfies it.
type Submitter interface {
	Submit(cmd engine.Command) bool
}

// Hub maintains the set of active sessions, turns connects and disconnects
// into join and leave commands, and fans view frames out to their sessions.
type Hub struct {
	clients    map[string]*Client
	broadcast  chan []engine.View
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex

	engine   Submitter
	opts     *optimization.Config
	logger   *logger.Logger
	metrics  *metrics.Collector
	upgrader websocket.Upgrader
}

// NewHub initializes a new WebSocket Hub.
func NewHub(sub Submitter, opts *optimization.Config, log *logger.Logger) *Hub {
	if opts == nil {
		opts = optimization.DefaultConfig()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan []engine.View, opts.BroadcastChannelBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		engine:     sub,
		opts:       opts,
		logger:     log,
		metrics:    metrics.Get(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// SetMetrics replaces the global collector. Call before Run.
func (h *Hub) SetMetrics(c *metrics.Collector) {
	h.metrics = c
}

// Run starts the Hub's main loop to handle client connections and frame fan-out.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected: " + client.id)
		case client := <-h.unregister:
			h.drop(client)
		case views := <-h.broadcast:
			h.fanOut(views)
		}
	}
}

// leave hands a finished session to the hub loop unless the hub has stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// drop removes a session and tells the simulation it left.
func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.id]
	if ok && current == client {
		delete(h.clients, client.id)
	}
	h.mu.Unlock()
	if !ok || current != client {
		return
	}

	client.close()
	h.metrics.RecordWSConnection(-1)
	h.engine.Submit(engine.Command{Kind: engine.CmdLeave, ClientID: client.id})
	h.logger.Info("WebSocket client disconnected: " + client.id)
}

func (h *Hub) fanOut(views []engine.View) {
	for _, v := range views {
		h.mu.Lock()
		client := h.clients[v.ClientID]
		h.mu.Unlock()
		if client == nil {
			continue
		}

		data, err := EncodeView(v)
		if err != nil {
			h.logger.Error(err.Error())
			continue
		}
		if !client.enqueue(outbound{binary: true, data: data}) {
			// Slow consumer: drop the session.
			h.metrics.RecordWSError()
			h.drop(client)
		}
	}
}

// Publish hands a tick's views to the hub. It is called on the engine
// goroutine and never blocks; a backlog drops the frame set.
func (h *Hub) Publish(views []engine.View) {
	select {
	case h.broadcast <- views:
	default:
		h.metrics.RecordWSError()
	}
}

// Count is the number of registered sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and starts a session.
// GET /ws?name=NAME
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.opts.MaxClientsPerGame > 0 && h.Count() >= h.opts.MaxClientsPerGame {
		http.Error(w, "arena is full", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed: " + err.Error())
		h.metrics.RecordWSError()
		return
	}

	client := NewClient(h, conn, uuid.NewString())
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.WritePump()
	name := cleanName(r.URL.Query().Get("name"))
	reply, ok := client.submitJoin(name)
	if !ok {
		return
	}
	go client.awaitJoin(name, reply)
	go client.ReadPump()
}

// cleanName trims and truncates a display name.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if !utf8.ValidString(name) {
		return ""
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	return name
}
