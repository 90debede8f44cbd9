package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kopilka/internal/amqp"
	"kopilka/internal/config"
	apphttp "kopilka/internal/http"
	applog "kopilka/internal/log"
	"kopilka/internal/services"
	"kopilka/internal/storage"
)

func main() {
	// Load .env for local development; in containers the environment is set.
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentApp})
	applog.SetDefault(logger)

	logger.Info("Starting kopilka")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is best-effort: without it operations are still recorded and
	// the export worker's sweep picks them up.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without event publishing", "error", err)
		} else {
			defer amqpClient.Close()
		}
	}

	categorizer, err := services.NewKeywordCategorizer(context.Background(), repo.Queries())
	if err != nil {
		logger.Error("Failed to build categorizer", "error", err)
		os.Exit(1)
	}

	ledger := services.NewLedgerService(repo, amqpClient, categorizer)
	reversals := services.NewReversalEngine(repo, amqpClient)
	obligations := services.NewObligationService(repo, ledger)
	debts := services.NewDebtService(repo)
	reports := services.NewReportService(repo, obligations)

	server := apphttp.NewServer(":"+cfg.Port, cfg.DefaultUserID,
		ledger, reversals, obligations, debts, reports)

	go func() {
		logger.Info("HTTP server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	logger.Info("Shutdown complete")
}
