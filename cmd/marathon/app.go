package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"marathon/internal/agent"
	"marathon/internal/checkpoint"
	"marathon/internal/config"
	"marathon/internal/executor"
	"marathon/internal/marathon"
	"marathon/internal/notify"
	"marathon/internal/reasoning"
	"marathon/internal/snapshot"
	"marathon/internal/store"
	"marathon/internal/verify"
)

// app wires the service and its collaborators for one CLI invocation.
type app struct {
	cfg        *config.Config
	db         *store.Store
	dispatcher *notify.Dispatcher
	service    *marathon.Service
}

// openStore opens just the database, for read-only commands that never
// touch the reasoning provider or the agent.
func openStore() (*config.Config, *store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := store.New(filepath.Join(cfg.Paths.DataDir, "marathon.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, db, nil
}

// buildApp assembles the full execution stack.
func buildApp(ctx context.Context) (*app, error) {
	cfg, db, err := openStore()
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database not reachable: %w", err)
	}

	snaps, err := snapshot.New(filepath.Join(cfg.Paths.DataDir, "snapshots"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	cps := checkpoint.New(db, snaps)

	apiKey := os.Getenv(cfg.Reasoning.APIKeyEnv)
	if apiKey == "" {
		db.Close()
		return nil, fmt.Errorf("environment variable %s is not set", cfg.Reasoning.APIKeyEnv)
	}
	provider, err := reasoning.NewGemini(ctx, apiKey, cfg.Reasoning.Model)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create reasoning provider: %w", err)
	}

	ag := agent.NewSubprocess(cfg.Agent.Binary, cfg.Agent.WorkDir)
	verifier := verify.NewShellRunner(cfg.Agent.WorkDir, time.Duration(cfg.Executor.VerifyTimeoutSeconds)*time.Second)

	dispatcher := notify.NewDispatcher(db)
	svc := marathon.NewService(db, cps, provider, ag, verifier, dispatcher, executor.Config{
		MaxIdenticalActions: cfg.Executor.MaxIdenticalActions,
		HistoryWindow:       cfg.Executor.HistoryWindow,
	})

	return &app{cfg: cfg, db: db, dispatcher: dispatcher, service: svc}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close store: %v\n", err)
	}
}
