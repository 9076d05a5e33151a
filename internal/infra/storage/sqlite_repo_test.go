package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/MRamiBalles/CellArena/internal/events"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "nested", "arena.db"))
	if err != nil {
		t.Fatalf("InitSQLite failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := EnsureMatch(context.Background(), db, "m1", "ffa"); err != nil {
		t.Fatalf("EnsureMatch failed: %v", err)
	}
	return db
}

func TestEnsureMatchIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := EnsureMatch(context.Background(), db, "m1", "ffa"); err != nil {
		t.Errorf("Expected second registration to be a no-op, got %v", err)
	}
}

func TestEventRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteEventRepository(openTestDB(t))
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// Setup
	rows := []GameEvent{
		{ID: "e1", MatchID: "m1", Timestamp: base, EventType: "PLAYER_JOINED", ActorID: "A", Tick: 1},
		{ID: "e2", MatchID: "m1", Timestamp: base.Add(time.Second), EventType: "CELL_SPLIT", ActorID: "A",
			Payload: map[string]interface{}{"splits": 2}, Tick: 30},
		{ID: "e3", MatchID: "m1", Timestamp: base.Add(2 * time.Second), EventType: "PLAYER_JOINED", ActorID: "B", Tick: 40},
	}
	for _, r := range rows {
		if err := repo.Append(ctx, r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// Act
	all, err := repo.GetByMatchID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByMatchID failed: %v", err)
	}
	byA, _ := repo.GetByActorID(ctx, "m1", "A")
	joins, _ := repo.GetByEventType(ctx, "m1", "PLAYER_JOINED")
	late, _ := repo.GetSinceTick(ctx, "m1", 30)

	// Assert
	if len(all) != 3 || all[0].ID != "e1" || all[2].ID != "e3" {
		t.Errorf("Expected events in tick order, got %+v", all)
	}
	if got := all[1].Payload["splits"]; got != float64(2) {
		t.Errorf("Expected payload to survive the round trip, got %v", got)
	}
	if len(byA) != 2 || len(joins) != 2 || len(late) != 2 {
		t.Errorf("Unexpected filter sizes: actor=%d type=%d since=%d", len(byA), len(joins), len(late))
	}
}

func TestAppendDuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteEventRepository(openTestDB(t))
	e := GameEvent{ID: "dup", MatchID: "m1", Timestamp: time.Now(), EventType: "PLAYER_JOINED", ActorID: "A"}

	if err := repo.Append(ctx, e); err != nil {
		t.Fatalf("First append failed: %v", err)
	}
	if err := repo.Append(ctx, e); err == nil {
		t.Errorf("Expected the ledger to reject a duplicate id")
	}
}

func TestStatsRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteStatsRepository(openTestDB(t))

	if got, err := repo.GetByPlayerID(ctx, "m1", "A"); err != nil || got != nil {
		t.Fatalf("Expected no stats yet, got %+v (%v)", got, err)
	}

	_ = repo.Upsert(ctx, PlayerStats{PlayerID: "A", MatchID: "m1", Splits: 1, DecayMult: 1})
	_ = repo.Upsert(ctx, PlayerStats{PlayerID: "A", MatchID: "m1", Splits: 4, MassEaten: 50, DecayMult: 1.02})
	_ = repo.Upsert(ctx, PlayerStats{PlayerID: "B", MatchID: "m1", MassEaten: 90, DecayMult: 1})

	a, err := repo.GetByPlayerID(ctx, "m1", "A")
	if err != nil || a == nil {
		t.Fatalf("Expected stats for A, got %v", err)
	}
	if a.Splits != 4 || a.DecayMult != 1.02 {
		t.Errorf("Expected the second upsert to win, got %+v", a)
	}

	all, err := repo.GetByMatchID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByMatchID failed: %v", err)
	}
	if len(all) != 2 || all[0].PlayerID != "B" {
		t.Errorf("Expected two rows ordered by mass eaten, got %+v", all)
	}
}

func TestReconstructorFoldsLedger(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	eventRepo := NewSQLiteEventRepository(db)
	persister := NewEventLogPersister(eventRepo, "m1", time.Second)

	// Setup: write through the same path the server uses
	ledger := []events.GameEvent{
		events.NewEvent(events.EventTypePlayerJoined, 1, "A", "", nil),
		events.NewEvent(events.EventTypePlayerJoined, 1, "B", "", nil),
		events.NewEvent(events.EventTypeCellSplit, 5, "A", "", events.SplitPayload{Splits: 2, Cells: 3}),
		events.NewEvent(events.EventTypeMassEjected, 6, "A", "", events.EjectPayload{Count: 3, Mass: 36}),
		events.NewEvent(events.EventTypeCellConsumed, 9, "A", "B", events.ConsumePayload{PreyKind: "player", Mass: 40}),
		events.NewEvent(events.EventTypeAntiTeamApplied, 12, "B", "A", events.AntiTeamPayload{Kind: "eject", MassDecayMult: 1.02}),
		events.NewEvent(events.EventTypeVirusShot, 13, "", "", nil),
	}
	for _, e := range ledger {
		if err := persister.Append(e); err != nil {
			t.Fatalf("Persist failed: %v", err)
		}
	}
	rec := NewReconstructor(eventRepo)

	// Act
	stats, err := rec.RebuildPlayerStats(ctx, "m1")
	if err != nil {
		t.Fatalf("RebuildPlayerStats failed: %v", err)
	}

	// Assert
	a, b := stats["A"], stats["B"]
	if a == nil || b == nil || len(stats) != 2 {
		t.Fatalf("Expected stats for exactly A and B, got %d", len(stats))
	}
	if a.Splits != 2 || a.Ejections != 3 || a.CellsEaten != 1 || a.MassEaten != 40 {
		t.Errorf("Unexpected stats for A: %+v", a)
	}
	if b.TimesEaten != 1 || b.AntiTeamHits != 1 || b.DecayMult != 1.02 {
		t.Errorf("Unexpected stats for B: %+v", b)
	}

	board, _ := rec.Leaderboard(ctx, "m1", 1)
	if len(board) != 1 || board[0].PlayerID != "A" {
		t.Errorf("Expected A on top, got %+v", board)
	}

	n, err := rec.Persist(ctx, NewSQLiteStatsRepository(db), "m1")
	if err != nil || n != 2 {
		t.Errorf("Expected 2 rows persisted, got %d (%v)", n, err)
	}

	recap, _ := rec.Recap(ctx, "m1", "B", 9)
	if len(recap) != 2 || recap[0].Impact != "NEGATIVE" {
		t.Errorf("Expected B's loss and penalty in the recap, got %+v", recap)
	}
}
