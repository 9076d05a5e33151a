// Package main - agitator
// Load generator for stress testing: a swarm of bots that steer, split and
// eject over WebSocket while decoding every frame the arena sends back.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/CellArena/internal/domain/cell"
	"github.com/MRamiBalles/CellArena/internal/network"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent   int64
	FramesReceived int64
	DecodeErrors   int64
	Respawns       int64
	Errors         int64
	Latencies      []time.Duration
	mu             sync.Mutex
}

// botState is what a bot knows from the last frame it decoded.
type botState struct {
	mu     sync.Mutex
	alive  bool
	center cell.Vector
	food   []cell.Vector
}

func (b *botState) update(f network.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alive = f.Alive
	b.center = cell.Vector{X: float64(f.CenterX), Y: float64(f.CenterY)}
	b.food = b.food[:0]
	for _, n := range f.Nodes {
		if cell.Kind(n.Kind) == cell.KindFood {
			b.food = append(b.food, cell.Vector{X: float64(n.X), Y: float64(n.Y)})
		}
	}
}

func main() {
	// Parse flags
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 50, "Number of concurrent bots")
	interval := flag.Duration("interval", 100*time.Millisecond, "Action interval per bot")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
	}

	fmt.Println("=========================================")
	fmt.Println("🔥 AGITATOR - Arena Stress Test Tool")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Bots: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	// Setup graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\n⚠️ Interrupt received, stopping...")
		cancel()
	}()

	stats := runStressTest(ctx, config)
	printResults(stats, config)
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\n🚀 Starting bots...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(botID int) {
			defer wg.Done()
			runBot(ctx, botID, config, stats)
		}(i)

		// Stagger joins to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("✅ All %d bots started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sent := atomic.LoadInt64(&stats.MessagesSent)
				frames := atomic.LoadInt64(&stats.FramesReceived)
				errs := atomic.LoadInt64(&stats.Errors)
				fmt.Printf("📊 Progress: Sent=%d Frames=%d Errors=%d\n", sent, frames, errs)
			}
		}
	}()

	wg.Wait()
	return stats
}

func runBot(ctx context.Context, botID int, config Config, stats *Stats) {
	u, err := url.Parse(config.ServerURL)
	if err != nil {
		log.Printf("Bot %d: URL parse error: %v", botID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	q := u.Query()
	q.Set("name", fmt.Sprintf("bot-%03d", botID))
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		log.Printf("Bot %d: Connection failed: %v", botID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	state := &botState{}
	go readLoop(conn, botID, state, stats)

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(botID)))
	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			action := nextAction(state, rng)
			if action.Type == "RESPAWN" {
				atomic.AddInt64(&stats.Respawns, 1)
			}
			start := time.Now()

			if err := conn.WriteJSON(action); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}

			latency := time.Since(start)
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, latency)
			stats.mu.Unlock()
		}
	}
}

func readLoop(conn *websocket.Conn, botID int, state *botState, stats *Stats) {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind == websocket.TextMessage {
			var msg network.ControlMessage
			if json.Unmarshal(data, &msg) == nil && msg.Type == network.MsgError {
				log.Printf("Bot %d: rejected: %s", botID, msg.Error)
				atomic.AddInt64(&stats.Errors, 1)
			}
			continue
		}

		f, err := network.DecodeFrame(data)
		if err != nil {
			atomic.AddInt64(&stats.DecodeErrors, 1)
			continue
		}
		atomic.AddInt64(&stats.FramesReceived, 1)
		state.update(f)
	}
}

// nextAction chases the nearest visible pellet and now and then splits, ejects or merges.
func nextAction(state *botState, rng *rand.Rand) network.PlayerAction {
	state.mu.Lock()
	defer state.mu.Unlock()

	if !state.alive {
		return network.PlayerAction{Type: "RESPAWN"}
	}
	switch r := rng.Intn(100); {
	case r < 3:
		return network.PlayerAction{Type: "SPLIT"}
	case r < 6:
		return network.PlayerAction{Type: "EJECT"}
	case r < 7:
		return network.PlayerAction{Type: "MERGE"}
	}

	target := cell.Vector{
		X: state.center.X + rng.Float64()*800 - 400,
		Y: state.center.Y + rng.Float64()*800 - 400,
	}
	best := math.Inf(1)
	for _, f := range state.food {
		if d := f.Sub(state.center).Length(); d < best {
			best = d
			target = f
		}
	}
	return network.PlayerAction{Type: "MOUSE", X: target.X, Y: target.Y}
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("📊 STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	frames := atomic.LoadInt64(&stats.FramesReceived)
	decodeErrs := atomic.LoadInt64(&stats.DecodeErrors)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Actions Sent:      %d\n", sent)
	fmt.Printf("Frames Received:   %d\n", frames)
	fmt.Printf("Decode Errors:     %d\n", decodeErrs)
	fmt.Printf("Respawns:          %d\n", atomic.LoadInt64(&stats.Respawns))
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	if len(stats.Latencies) > 0 {
		var total time.Duration
		lo, hi := stats.Latencies[0], stats.Latencies[0]

		for _, l := range stats.Latencies {
			total += l
			lo = min(lo, l)
			hi = max(hi, l)
		}

		avg := total / time.Duration(len(stats.Latencies))

		fmt.Printf("\nWrite latency:\n")
		fmt.Printf("  Min: %v\n", lo)
		fmt.Printf("  Avg: %v\n", avg)
		fmt.Printf("  Max: %v\n", hi)
	}

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0 && decodeErrs == 0 && frames > 0:
		fmt.Println("✅ TEST PASSED: System handled the load")
	case float64(errs)/float64(sent+1) < 0.05:
		fmt.Println("⚠️ TEST WARNING: Some errors detected")
	default:
		fmt.Println("❌ TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"actions_sent":       sent,
		"frames_received":    frames,
		"decode_errors":      decodeErrs,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile("stress_test_results.json", jsonData, 0644); err != nil {
		log.Printf("Failed to save results: %v", err)
		return
	}
	fmt.Println("\n📁 Results saved to stress_test_results.json")
}
