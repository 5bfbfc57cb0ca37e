// Package main runs the embedded data-layer server for the desktop shell.
// The shell talks REST/WebSocket on localhost; all data lives in a local
// SQLite store and committed mutations drain to the remote backend through
// the sync queue.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/facturo/backend/cmd/desktop/handlers"
	"github.com/facturo/backend/internal/config"
	"github.com/facturo/backend/internal/db"
	"github.com/facturo/backend/internal/logger"
	syncpkg "github.com/facturo/backend/internal/sync"
	"github.com/facturo/backend/internal/sync/queue"
	"github.com/facturo/backend/internal/sync/scheduler"
)

func main() {
	configPath := os.Getenv("FACTURO_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Log.Info("starting facturo backend")

	firstRun, err := db.Bootstrap(cfg.Data.Dir, cfg.Data.TemplatePath)
	if err != nil {
		logger.Log.Fatal("failed to bootstrap local store", zap.Error(err))
	}
	if firstRun {
		logger.Log.Info("first run detected", zap.String("template", cfg.Data.TemplatePath))
	}

	database, err := db.Open(cfg.Data.Dir)
	if err != nil {
		logger.Log.Fatal("failed to open local store", zap.Error(err))
	}
	defer database.Close()

	if initialized, err := database.SchemaInitialized(); err != nil {
		logger.Log.Warn("schema probe failed", zap.Error(err))
	} else if !initialized {
		logger.Log.Warn("business schema not initialized; gateway calls will fail until it is")
	}

	gateway := db.NewGateway(database)
	syncQueue := queue.New(database)

	hub := NewWSHub()
	engine := syncpkg.NewEngine(syncQueue, cfg.Sync.BatchSize, hub)

	sched := scheduler.New(engine, cfg.Sync.Schedule, cfg.Sync.Enabled)
	sched.Start()
	defer sched.Stop()

	router := handlers.Routes(
		handlers.NewSyncHandler(engine),
		handlers.NewDataHandler(gateway, syncQueue),
	)
	router.Get("/ws", hub.ServeWS)

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	go func() {
		logger.Log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.Error("server shutdown failed", zap.Error(err))
	}
}
