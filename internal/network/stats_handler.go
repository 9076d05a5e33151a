package network

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/CellArena/internal/engine"
	"github.com/MRamiBalles/CellArena/internal/events"
	"github.com/MRamiBalles/CellArena/internal/infra/storage"
	"github.com/MRamiBalles/CellArena/internal/platform/logger"
)

// BoardSource serves the live leaderboard. *engine.Engine satisfies it.
type BoardSource interface {
	Leaderboard() []engine.LeaderboardEntry
}

// StatsHandler exposes the match history over HTTP: the in-memory event log,
// the live leaderboard and per-player stats folded from the stored ledger.
type StatsHandler struct {
	matchID  string
	eventLog *events.EventLog
	board    BoardSource
	rec      *storage.Reconstructor
	logger   *logger.Logger
}

// NewStatsHandler creates the handler. rec may be nil when no database is configured.
func NewStatsHandler(matchID string, el *events.EventLog, board BoardSource, rec *storage.Reconstructor, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		matchID:  matchID,
		eventLog: el,
		board:    board,
		rec:      rec,
		logger:   log,
	}
}

// EventEntry is one event as served by /api/events.
type EventEntry struct {
	ID        string                 `json:"id"`
	Tick      int64                  `json:"tick"`
	Timestamp string                 `json:"timestamp"`
	Type      string                 `json:"type"`
	ActorID   string                 `json:"actor_id,omitempty"`
	TargetID  string                 `json:"target_id,omitempty"`
	Summary   string                 `json:"summary"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// EventsResponse is the body of /api/events.
type EventsResponse struct {
	MatchID     string       `json:"match_id"`
	TotalEvents int          `json:"total_events"`
	GeneratedAt string       `json:"generated_at"`
	Events      []EventEntry `json:"events"`
}

// HandleEvents lists logged events.
// GET /api/events?type=CELL_SPLIT&actor=ID&since=OFFSET
func (sh *StatsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	ledger := sh.eventLog.Replay()
	if s := q.Get("since"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			sh.jsonError(w, "Invalid since offset", http.StatusBadRequest)
			return
		}
		ledger = sh.eventLog.Since(offset)
	}
	eventType := q.Get("type")
	actor := q.Get("actor")

	entries := make([]EventEntry, 0, len(ledger))
	for _, e := range ledger {
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		if actor != "" && e.ActorID != actor {
			continue
		}
		row, err := storage.FromEvent(sh.matchID, e)
		if err != nil {
			sh.logger.Warn("Skipping event " + e.ID + ": " + err.Error())
			continue
		}
		entries = append(entries, EventEntry{
			ID:        row.ID,
			Tick:      row.Tick,
			Timestamp: row.Timestamp.Format(time.RFC3339),
			Type:      row.EventType,
			ActorID:   row.ActorID,
			TargetID:  row.TargetID,
			Summary:   storage.Summarize(row, actor),
			Details:   row.Payload,
		})
	}

	sh.writeJSON(w, EventsResponse{
		MatchID:     sh.matchID,
		TotalEvents: len(entries),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      entries,
	})
}

// HandleLeaderboard returns the live board as of the last broadcast tick.
// GET /api/leaderboard
func (sh *StatsHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	type row struct {
		Rank     int     `json:"rank"`
		ClientID string  `json:"client_id"`
		Name     string  `json:"name"`
		Mass     float64 `json:"mass"`
	}
	board := sh.board.Leaderboard()
	rows := make([]row, len(board))
	for i, e := range board {
		rows[i] = row{Rank: i + 1, ClientID: e.ClientID, Name: e.Name, Mass: e.Mass}
	}
	sh.writeJSON(w, map[string]interface{}{
		"match_id":    sh.matchID,
		"leaderboard": rows,
	})
}

// HandleStats returns stats folded from the stored ledger.
// GET /api/stats?player=ID&since=TICK
// Without player it returns the top ten of the match.
func (sh *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if sh.rec == nil {
		sh.jsonError(w, "Stats are not available", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		board, err := sh.rec.Leaderboard(ctx, sh.matchID, 10)
		if err != nil {
			sh.logger.Error("Failed to build stats leaderboard: " + err.Error())
			sh.jsonError(w, "Failed to load stats", http.StatusInternalServerError)
			return
		}
		sh.writeJSON(w, map[string]interface{}{"match_id": sh.matchID, "players": board})
		return
	}

	var since int64
	if s := r.URL.Query().Get("since"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			sh.jsonError(w, "Invalid since tick", http.StatusBadRequest)
			return
		}
		since = v
	}

	all, err := sh.rec.RebuildPlayerStats(ctx, sh.matchID)
	if err != nil {
		sh.logger.Error("Failed to rebuild stats: " + err.Error())
		sh.jsonError(w, "Failed to load stats", http.StatusInternalServerError)
		return
	}
	stats, ok := all[playerID]
	if !ok {
		sh.jsonError(w, "Player not found", http.StatusNotFound)
		return
	}
	recap, err := sh.rec.Recap(ctx, sh.matchID, playerID, since)
	if err != nil {
		sh.logger.Error("Failed to build recap: " + err.Error())
		sh.jsonError(w, "Failed to load stats", http.StatusInternalServerError)
		return
	}

	sh.logger.Event("STATS_QUERY", playerID, "Recap events:"+strconv.Itoa(len(recap)))
	sh.writeJSON(w, map[string]interface{}{
		"match_id": sh.matchID,
		"stats":    stats,
		"recap":    recap,
	})
}

// RegisterRoutes sets up the stats API routes.
func (sh *StatsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/events", sh.HandleEvents)
	mux.HandleFunc("/api/leaderboard", sh.HandleLeaderboard)
	mux.HandleFunc("/api/stats", sh.HandleStats)
}

func (sh *StatsHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		sh.logger.Warn("Failed to write response: " + err.Error())
	}
}

// jsonError sends an error response.
func (sh *StatsHandler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
