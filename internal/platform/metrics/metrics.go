// Package metrics provides observability for the arena server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// World population, refreshed every tick
	Clients     int64
	PlayerCells int64
	Food        int64
	Viruses     int64
	Ejected     int64

	// Command queue
	CommandsAccepted int64
	CommandsDropped  int64

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Population is a point-in-time count of world entities.
type Population struct {
	Clients     int
	PlayerCells int
	Food        int
	Viruses     int
	Ejected     int
}

// Global collector instance
var collector = NewCollector()

// NewCollector returns an empty collector. Tests use their own instance.
func NewCollector() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordPopulation stores the latest world gauges.
func (c *Collector) RecordPopulation(p Population) {
	atomic.StoreInt64(&c.Clients, int64(p.Clients))
	atomic.StoreInt64(&c.PlayerCells, int64(p.PlayerCells))
	atomic.StoreInt64(&c.Food, int64(p.Food))
	atomic.StoreInt64(&c.Viruses, int64(p.Viruses))
	atomic.StoreInt64(&c.Ejected, int64(p.Ejected))
}

// RecordCommand records a submitted player command.
func (c *Collector) RecordCommand(accepted bool) {
	if accepted {
		atomic.AddInt64(&c.CommandsAccepted, 1)
	} else {
		atomic.AddInt64(&c.CommandsDropped, 1)
	}
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var tickAvg, eventAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	lastTick := ""
	if !c.LastTickTime.IsZero() {
		lastTick = c.LastTickTime.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick,
		},

		"world": map[string]interface{}{
			"clients":      atomic.LoadInt64(&c.Clients),
			"player_cells": atomic.LoadInt64(&c.PlayerCells),
			"food":         atomic.LoadInt64(&c.Food),
			"viruses":      atomic.LoadInt64(&c.Viruses),
			"ejected":      atomic.LoadInt64(&c.Ejected),
		},

		"commands": map[string]interface{}{
			"accepted": atomic.LoadInt64(&c.CommandsAccepted),
			"dropped":  atomic.LoadInt64(&c.CommandsDropped),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		// Tick metrics
		fmt.Fprintf(w, "# HELP arena_tick_count Total tick cycles\n")
		fmt.Fprintf(w, "# TYPE arena_tick_count counter\n")
		fmt.Fprintf(w, "arena_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP arena_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE arena_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "arena_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		// World gauges
		fmt.Fprintf(w, "# HELP arena_entities Live entities by kind\n")
		fmt.Fprintf(w, "# TYPE arena_entities gauge\n")
		fmt.Fprintf(w, "arena_entities{kind=\"player\"} %d\n", atomic.LoadInt64(&c.PlayerCells))
		fmt.Fprintf(w, "arena_entities{kind=\"food\"} %d\n", atomic.LoadInt64(&c.Food))
		fmt.Fprintf(w, "arena_entities{kind=\"virus\"} %d\n", atomic.LoadInt64(&c.Viruses))
		fmt.Fprintf(w, "arena_entities{kind=\"ejected\"} %d\n\n", atomic.LoadInt64(&c.Ejected))

		fmt.Fprintf(w, "# HELP arena_clients Connected clients\n")
		fmt.Fprintf(w, "# TYPE arena_clients gauge\n")
		fmt.Fprintf(w, "arena_clients %d\n\n", atomic.LoadInt64(&c.Clients))

		fmt.Fprintf(w, "# HELP arena_commands_total Player commands by outcome\n")
		fmt.Fprintf(w, "# TYPE arena_commands_total counter\n")
		fmt.Fprintf(w, "arena_commands_total{outcome=\"accepted\"} %d\n", atomic.LoadInt64(&c.CommandsAccepted))
		fmt.Fprintf(w, "arena_commands_total{outcome=\"dropped\"} %d\n\n", atomic.LoadInt64(&c.CommandsDropped))

		// Event metrics
		fmt.Fprintf(w, "# HELP arena_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE arena_events_written counter\n")
		fmt.Fprintf(w, "arena_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP arena_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE arena_event_write_errors counter\n")
		fmt.Fprintf(w, "arena_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP arena_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE arena_ws_connections gauge\n")
		fmt.Fprintf(w, "arena_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP arena_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE arena_ws_messages_total counter\n")
		fmt.Fprintf(w, "arena_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "arena_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
