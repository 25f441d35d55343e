/*
main.go - Auto-generation worker

PURPOSE:
  Periodically materializes due occurrences for rules flagged
  auto_generate, so salaries and subscriptions land in the ledger
  without manual confirmation. Runs alongside the API server against
  the same database.

ENVIRONMENT:
  DB_PATH             SQLite database path (default: cashflow.db)
  GENERATOR_INTERVAL  How often to look for due rules (default: 1h)
*/
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/cashflow-engine/config"
	"github.com/warp/cashflow-engine/generator"
	"github.com/warp/cashflow-engine/recur"
	"github.com/warp/cashflow-engine/store/sqlite"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer store.Close()

	processor := generator.NewProcessor(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Generator configured", "interval", cfg.GeneratorInterval, "db", cfg.DBPath)

	// Run once on startup, then on every tick.
	if count, err := processor.ProcessDue(ctx, recur.Today()); err != nil {
		logger.Error("Initial generation pass failed", "error", err)
	} else {
		logger.Info("Initial generation pass complete", "transactions_created", count)
	}

	ticker := time.NewTicker(cfg.GeneratorInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				count, err := processor.ProcessDue(ctx, recur.DayOf(now))
				if err != nil {
					logger.Error("Generation pass failed", "error", err)
				} else if count > 0 {
					logger.Info("Generation pass complete", "transactions_created", count)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())
	cancel()
}
