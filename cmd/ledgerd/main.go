package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/account-ledger-engine/internal/auditpublish"
	"github.com/account-ledger-engine/internal/config"
	"github.com/account-ledger-engine/internal/data/mongo"
	"github.com/account-ledger-engine/internal/data/postgres"
	"github.com/account-ledger-engine/internal/data/rediscache"
	"github.com/account-ledger-engine/internal/engine"
	"github.com/account-ledger-engine/internal/logger"
	"github.com/account-ledger-engine/internal/platform/messaging/producers"
	"github.com/account-ledger-engine/internal/platform/persistence"
	"github.com/account-ledger-engine/internal/server"
	"github.com/account-ledger-engine/internal/server/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledgerd")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting ledger service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Optional account snapshot cache
	var (
		snapshotCache service.SnapshotCache
		invalidator   engine.SnapshotInvalidator
		accountCache  *rediscache.AccountCache
	)
	if cfg.Redis.Enabled {
		accountCache, err = rediscache.NewAccountCache(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis account cache", "error", err)
			os.Exit(1)
		}
		snapshotCache = accountCache
		invalidator = accountCache
	}

	// Initialize Kafka producer for audit events
	auditProducer, err := producers.NewAuditEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize audit event producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	outboxRepo := postgres.NewAuditOutboxRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize the transfer engine behind a worker pool
	ledgerEngine := engine.NewLedgerEngine(
		postgresDB,
		accountRepo,
		outboxRepo,
		cfg.Engine.LockTimeout,
		invalidator,
		log,
	)
	pooledEngine, err := engine.NewPooledEngine(ledgerEngine, engine.PoolConfig{Size: cfg.Engine.WorkerPoolSize}, log)
	if err != nil {
		log.Error("Failed to initialize engine worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize services
	accountService := service.NewAccountService(log, accountRepo, snapshotCache)
	auditService := service.NewAuditService(log, auditRepo)

	// Initialize outbox poller publishing audit records to the query store
	recordPublisher := auditpublish.NewRecordPublisher(outboxRepo, auditRepo, auditProducer, log)
	poller := auditpublish.NewPoller(&cfg.Outbox, outboxRepo, recordPublisher, log)

	// Initialize REST server
	srv := server.NewServer(log, cfg, accountService, auditService, pooledEngine)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := srv.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context, stopping the poller
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server so no new operations arrive
	if err = srv.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Drain in-flight engine operations
	log.Info("Shutting down engine worker pool", "running_workers", pooledEngine.Running())
	pooledEngine.Shutdown()

	// Wait for the poller to finish its current batch
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("Outbox poller stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if err = auditProducer.Close(); err != nil {
		log.Error("Error closing audit event producer", "error", err)
	}

	if accountCache != nil {
		accountCache.Close()
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Ledger service shutdown completed with errors")
	} else {
		log.Info("Ledger service shutdown completed successfully")
	}
}
