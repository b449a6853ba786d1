// arised is the daemon: it owns the engine, persists its state under the
// data directory and serves the HTTP API for collaborators and the CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/junhyuk-oh/arise/internal/api"
	"github.com/junhyuk-oh/arise/internal/config"
	"github.com/junhyuk-oh/arise/internal/engine"
	"github.com/junhyuk-oh/arise/internal/journal"
	"github.com/junhyuk-oh/arise/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "arised: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "arise.yaml", "path to the YAML config")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	_ = godotenv.Load(".env")

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := storage.Open(filepath.Join(cfg.DataDir, "arise.db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	kv, err := storage.OpenState(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer kv.Close()

	jnl, err := journal.Open(filepath.Join(cfg.DataDir, "journal"), nil)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	eng, err := engine.New(cfg, db, kv, jnl, nil, nil)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	eng.Start()

	srv := api.New(eng, cfg)
	srv.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("http shutdown failed", "error", err)
	}
	eng.Stop()
	return nil
}
