// Package optimization provides concurrency tuning for high load.
// Profiles size the command queue, broadcast channels and client rate limits.
package optimization

import (
	"runtime"
	"strings"
)

// Config holds tuned parameters for high-load scenarios.
type Config struct {
	// Channel buffer sizes
	CommandQueueBuffer     int // Engine command queue
	BroadcastChannelBuffer int // Hub fan-out
	ClientSendBuffer       int // Per WebSocket

	// Connection pools
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Publish a view frame every N ticks. Cells only move every 25th tick.
	BroadcastEvery int

	// Rate limiting
	MaxMessagesPerSecond int
	MaxClientsPerGame    int
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		CommandQueueBuffer:     1024, // Handle input bursts
		BroadcastChannelBuffer: 256,
		ClientSendBuffer:       64,

		DBMaxOpenConns: numCPU * 2,
		DBMaxIdleConns: numCPU,

		BroadcastEvery: 25,

		MaxMessagesPerSecond: 60, // Mouse updates at display rate
		MaxClientsPerGame:    200,
	}
}

// StressTestConfig returns aggressive settings for stress testing.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		CommandQueueBuffer:     8192,
		BroadcastChannelBuffer: 512,
		ClientSendBuffer:       128,

		DBMaxOpenConns: numCPU * 4,
		DBMaxIdleConns: numCPU * 2,

		BroadcastEvery: 50,

		MaxMessagesPerSecond: 200,
		MaxClientsPerGame:    500,
	}
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	return &Config{
		CommandQueueBuffer:     64,
		BroadcastChannelBuffer: 16,
		ClientSendBuffer:       8,

		DBMaxOpenConns: 2,
		DBMaxIdleConns: 1,

		BroadcastEvery: 50,

		MaxMessagesPerSecond: 30,
		MaxClientsPerGame:    20,
	}
}

// ByName resolves a profile name. Unknown names fall back to the default profile.
func ByName(name string) *Config {
	switch strings.ToLower(name) {
	case "stress":
		return StressTestConfig()
	case "low", "dev":
		return LowResourceConfig()
	default:
		return DefaultConfig()
	}
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseCommandBuffer   bool
	IncreaseBroadcastBuffer bool
	IncreaseDBConnections   bool
	ThrottleBroadcast       bool
	Notes                   []string
}

// Any reports whether at least one change is recommended.
func (r *Recommendations) Any() bool {
	return r.IncreaseCommandBuffer || r.IncreaseBroadcastBuffer || r.IncreaseDBConnections || r.ThrottleBroadcast
}

// Analyze examines current metrics and returns optimization recommendations.
// tickBudgetMs is the configured tick interval; ticks slower than that fall behind.
func Analyze(metrics map[string]interface{}, tickBudgetMs float64) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	if tick, ok := metrics["tick"].(map[string]interface{}); ok {
		if avgLat, ok := tick["avg_latency_ms"].(float64); ok && tickBudgetMs > 0 && avgLat > tickBudgetMs/2 {
			rec.ThrottleBroadcast = true
			rec.Notes = append(rec.Notes, "Average tick latency above half the tick budget - broadcast less often")
		}
	}

	if cmds, ok := metrics["commands"].(map[string]interface{}); ok {
		if dropped, ok := cmds["dropped"].(int64); ok && dropped > 0 {
			rec.IncreaseCommandBuffer = true
			rec.Notes = append(rec.Notes, "Player commands dropped - increase command queue buffer")
		}
	}

	// Check event write latency
	if events, ok := metrics["events"].(map[string]interface{}); ok {
		if maxLat, ok := events["max_write_lat_ms"].(float64); ok && maxLat > 50 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write latency exceeds 50ms - increase DB connections")
		}
		if errors, ok := events["errors"].(int64); ok && errors > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write errors detected - check DB connection pool")
		}
	}

	// Check WebSocket backpressure
	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}

// ApplyRecommendations modifies config based on recommendations.
// Buffer sizes only take effect for channels created afterwards.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.IncreaseCommandBuffer {
		config.CommandQueueBuffer *= 2
	}
	if rec.IncreaseBroadcastBuffer {
		config.BroadcastChannelBuffer *= 2
		config.ClientSendBuffer *= 2
	}
	if rec.IncreaseDBConnections {
		config.DBMaxOpenConns = int(float64(config.DBMaxOpenConns) * 1.5)
		config.DBMaxIdleConns = int(float64(config.DBMaxIdleConns) * 1.5)
	}
	if rec.ThrottleBroadcast && config.BroadcastEvery < 200 {
		config.BroadcastEvery *= 2
	}
	return config
}
