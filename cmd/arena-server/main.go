// Package main is the entry point for the cell arena server.
// It only handles dependency injection and server initialization.
// NO game rules belong here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/CellArena/internal/config"
	"github.com/MRamiBalles/CellArena/internal/engine"
	"github.com/MRamiBalles/CellArena/internal/events"
	"github.com/MRamiBalles/CellArena/internal/infra/storage"
	"github.com/MRamiBalles/CellArena/internal/network"
	"github.com/MRamiBalles/CellArena/internal/platform/logger"
	"github.com/MRamiBalles/CellArena/internal/platform/metrics"
	"github.com/MRamiBalles/CellArena/internal/platform/optimization"
)

const (
	statsBackupInterval = 10 * time.Second
	analyzeInterval     = 30 * time.Second
)

// timedPersister records write latency for every event the log persists.
type timedPersister struct {
	next    events.EventPersister
	metrics *metrics.Collector
}

func (p timedPersister) Append(e events.GameEvent) error {
	start := time.Now()
	err := p.next.Append(e)
	p.metrics.RecordEventWrite(time.Since(start), err)
	return err
}

func main() {
	log.Println("[ARENA-SERVER] Initializing authoritative cell arena server...")

	appLogger := logger.NewLogger()
	if err := run(appLogger); err != nil {
		appLogger.Error(err.Error())
		os.Exit(1)
	}
}

func run(appLogger *logger.Logger) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	opts := optimization.ByName(cfg.Server.Profile)
	matchID := cfg.Server.MatchID
	if matchID == "" {
		matchID = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLogger.Info("Initializing SQLite database '" + cfg.Server.DBPath + "'...")
	db, err := storage.InitSQLite(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize SQLite: %w", err)
	}
	defer db.Close()
	storage.ConfigurePool(db, opts.DBMaxOpenConns, opts.DBMaxIdleConns)
	if err := storage.EnsureMatch(ctx, db, matchID, cfg.Game.Mode); err != nil {
		return err
	}
	appLogger.Info("Match " + matchID + " registered.")

	eventRepo := storage.NewSQLiteEventRepository(db)
	collector := metrics.Get()

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(timedPersister{
		next:    storage.NewEventLogPersister(eventRepo, matchID, 5*time.Second),
		metrics: collector,
	})
	eventLog.SetErrorHandler(func(e events.GameEvent, err error) {
		appLogger.Warn("Failed to persist event " + e.ID + " (" + string(e.Type) + "): " + err.Error())
	})
	eventLog.SetRetention(cfg.Server.EventRetention)
	defer eventLog.Close()

	appLogger.Info("Bootstrapping Engine Subsystems...")
	gameEngine := engine.NewEngine(cfg, appLogger,
		engine.WithEvents(eventLog),
		engine.WithMetrics(collector),
		engine.WithQueueSize(opts.CommandQueueBuffer),
		engine.WithBroadcastEvery(opts.BroadcastEvery),
		engine.WithMaxClients(opts.MaxClientsPerGame),
	)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(gameEngine, opts, appLogger)
	hub.SetMetrics(collector)
	gameEngine.SetPublisher(hub)
	go hub.Run(ctx)

	gameEngine.Bootstrap()
	gameEngine.Start(ctx)
	defer gameEngine.Stop()

	rec := storage.NewReconstructor(eventRepo)
	go statsBackup(ctx, rec, storage.NewSQLiteStatsRepository(db), matchID, appLogger)
	go analyzeLoop(ctx, *opts, cfg.Server.TickInterval, appLogger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())
	network.NewStatsHandler(matchID, eventLog, gameEngine, rec, appLogger).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP API & WS Server listening on " + cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	log.Println("[ARENA-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Println("[ARENA-SERVER] Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("HTTP shutdown: " + err.Error())
	}
	cancel()
	gameEngine.Stop() // waits for the last tick, so the log can close behind it
	eventLog.Close()

	if n, err := rec.Persist(shutdownCtx, storage.NewSQLiteStatsRepository(db), matchID); err == nil {
		appLogger.Info(fmt.Sprintf("Final stats backup: %d players.", n))
	}
	return nil
}

// statsBackup periodically folds the event ledger into player_stats.
func statsBackup(ctx context.Context, rec *storage.Reconstructor, repo storage.StatsRepository, matchID string, appLogger *logger.Logger) {
	t := time.NewTicker(statsBackupInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := rec.Persist(ctx, repo, matchID); err != nil && !errors.Is(err, context.Canceled) {
				appLogger.Warn("Stats backup failed: " + err.Error())
			}
		}
	}
}

// analyzeLoop logs tuning advice from the live metrics. Buffers are sized at
// startup, so the suggested profile applies on the next restart.
func analyzeLoop(ctx context.Context, current optimization.Config, tickInterval time.Duration, appLogger *logger.Logger) {
	budgetMs := float64(tickInterval) / float64(time.Millisecond)
	t := time.NewTicker(analyzeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rec := optimization.Analyze(metrics.Get().Snapshot(), budgetMs)
			if rec.Any() {
				appLogger.Warn("Tuning advice: " + strings.Join(rec.Notes, "; "))
				current = *optimization.ApplyRecommendations(&current, rec)
				appLogger.Info(fmt.Sprintf("Suggested profile: queue=%d broadcast=%d send=%d db=%d/%d every=%d",
					current.CommandQueueBuffer, current.BroadcastChannelBuffer, current.ClientSendBuffer,
					current.DBMaxOpenConns, current.DBMaxIdleConns, current.BroadcastEvery))
			}
		}
	}
}
