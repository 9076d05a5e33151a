package optimization

import "testing"

func TestByNameFallsBackToDefault(t *testing.T) {
	if got := ByName("stress").CommandQueueBuffer; got != 8192 {
		t.Errorf("Expected stress profile, got command buffer %d", got)
	}
	if got := ByName("nonsense").CommandQueueBuffer; got != DefaultConfig().CommandQueueBuffer {
		t.Errorf("Expected default profile for unknown name, got %d", got)
	}
}

func TestAnalyzeDroppedCommands(t *testing.T) {
	snapshot := map[string]interface{}{
		"tick":     map[string]interface{}{"avg_latency_ms": 1.5},
		"commands": map[string]interface{}{"dropped": int64(4)},
	}

	rec := Analyze(snapshot, 2)

	if !rec.IncreaseCommandBuffer {
		t.Errorf("Expected dropped commands to recommend a bigger queue")
	}
	if !rec.ThrottleBroadcast {
		t.Errorf("Expected slow ticks to recommend throttling broadcasts")
	}

	cfg := LowResourceConfig()
	ApplyRecommendations(cfg, rec)
	if cfg.CommandQueueBuffer != 128 {
		t.Errorf("Expected command buffer doubled to 128, got %d", cfg.CommandQueueBuffer)
	}
	if cfg.BroadcastEvery != 100 {
		t.Errorf("Expected broadcast cadence 100, got %d", cfg.BroadcastEvery)
	}
}

func TestAnalyzeQuietServer(t *testing.T) {
	snapshot := map[string]interface{}{
		"tick":      map[string]interface{}{"avg_latency_ms": 0.2},
		"commands":  map[string]interface{}{"dropped": int64(0)},
		"events":    map[string]interface{}{"max_write_lat_ms": 1.0, "errors": int64(0)},
		"websocket": map[string]interface{}{"errors": int64(0)},
	}

	if rec := Analyze(snapshot, 2); rec.Any() {
		t.Errorf("Expected no recommendations, got %v", rec.Notes)
	}
}
