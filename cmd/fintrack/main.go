package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/samhvw8/finance-tracking/internal/accounts"
	"github.com/samhvw8/finance-tracking/internal/categories"
	"github.com/samhvw8/finance-tracking/internal/config"
	"github.com/samhvw8/finance-tracking/internal/core"
	apphttp "github.com/samhvw8/finance-tracking/internal/http"
	applog "github.com/samhvw8/finance-tracking/internal/log"
	"github.com/samhvw8/finance-tracking/internal/queue"
	"github.com/samhvw8/finance-tracking/internal/sheetdb"
	"github.com/samhvw8/finance-tracking/internal/store"
	"github.com/samhvw8/finance-tracking/internal/submit"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A broken local database degrades to memory-only queues instead of
	// refusing to start; entries just will not survive a restart.
	var db *store.Store
	if s, err := store.Open(cfg.SQLiteDBPath); err != nil {
		logger.Error("Failed to open local store, running memory-only",
			"error", err, "path", cfg.SQLiteDBPath)
	} else {
		db = s
		defer db.Close()
		logger.Info("Local store ready", "path", cfg.SQLiteDBPath)
	}

	var tokens sheetdb.TokenSource = sheetdb.SettingsTokenSource{Fallback: cfg.APIToken}
	if db != nil {
		tokens = sheetdb.SettingsTokenSource{Settings: db, Fallback: cfg.APIToken}
	}
	client := sheetdb.New(cfg.APIBaseURL, tokens,
		&http.Client{Timeout: cfg.HTTPTimeout},
		logger.WithComponent("sheetdb"))

	var txPersist queue.Persister[core.Transaction]
	var invPersist queue.Persister[core.InvestmentTransaction]
	if db != nil {
		txPersist = queue.TransactionPersister{Store: db}
		invPersist = queue.InvestmentPersister{Store: db}
	}

	txQueue := queue.New[core.Transaction](txPersist, logger.WithComponent("queue"))
	invQueue := queue.New[core.InvestmentTransaction](invPersist, logger.WithComponent("queue"))
	if n, err := txQueue.Load(ctx); err == nil && n > 0 {
		logger.Info("Restored pending transactions", "count", n)
	}
	if n, err := invQueue.Load(ctx); err == nil && n > 0 {
		logger.Info("Restored pending investment transactions", "count", n)
	}

	cats := categories.NewManager(db, client, cfg.SetupSheet, logger.WithComponent("categories"))
	cats.Initialize(ctx)
	accs := accounts.NewManager(db, client, cfg.AccountSheet, logger.WithComponent("accounts"))
	accs.Initialize(ctx)

	// Keep the account list fresh while the server runs.
	go func() {
		ticker := time.NewTicker(cfg.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := accs.Refresh(ctx); err != nil {
					logger.Warn("Background account refresh failed", "error", err)
				}
			}
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:        db,
		TxQueue:      txQueue,
		InvQueue:     invQueue,
		Submitter:    submit.NewSubmitter(txQueue, client, cfg.LedgerSheet, logger.WithComponent("submit")),
		InvSubmitter: submit.NewInvestmentSubmitter(invQueue, client, cfg.InvestmentSheet, cfg.LedgerSheet, logger.WithComponent("submit")),
		Categories:   cats,
		Accounts:     accs,
		Logger:       logger.WithComponent("http"),
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting fintrack server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
