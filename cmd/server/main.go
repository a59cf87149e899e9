/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Solventa lending engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Set up structured logging
  3. Initialize SQLite store and optional Redis schedule cache
  4. Create loan service, API handler, and router
  5. Start the accrual scheduler and HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port            HTTP server port (default: 8080)
  -db              SQLite database path (default: lending.db)
                   Use ":memory:" for in-memory database
  -redis           Redis address for the schedule cache (empty disables it)
  -sweep-interval  How often the background accrual sweep runs (default: 1h)
  -no-scheduler    Disable the background accrual sweep entirely

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Stop the accrual scheduler and wait for an in-flight sweep
  3. Wait for active requests to complete (30s timeout)
  4. Close database and cache connections
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/lending.db"

  # Run with Redis-backed schedule cache
  ./server -redis="localhost:6379"

  # Run without the hourly sweep (drive accrual via the admin endpoint)
  ./server -no-scheduler

ENVIRONMENT:
  LOG_LEVEL  debug|info|warn|error (default: info)

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Background accrual sweep
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solventa/lending-engine/api"
	"github.com/solventa/lending-engine/loan"
	"github.com/solventa/lending-engine/pkg/logging"
	"github.com/solventa/lending-engine/store/cache"
	"github.com/solventa/lending-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "lending.db", "SQLite database path")
	redisAddr := flag.String("redis", "", "Redis address for the schedule cache (empty disables it)")
	sweepInterval := flag.Duration("sweep-interval", time.Hour, "Accrual sweep interval")
	noScheduler := flag.Bool("no-scheduler", false, "Disable the background accrual sweep")
	flag.Parse()

	logger := logging.Setup()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Schedule cache: Redis when configured, otherwise a no-op
	var scheduleCache loan.Cache = cache.Noop{}
	if *redisAddr != "" {
		redisCache := cache.NewRedisCache(*redisAddr, logger)
		defer redisCache.Close()
		scheduleCache = redisCache
		logger.Info("schedule cache enabled", "redis", *redisAddr)
	}

	svc := loan.NewService(store, scheduleCache, logger)
	handler := api.NewHandler(svc, store)
	router := api.NewRouter(handler)

	// Background accrual sweep
	scheduler := api.NewAccrualScheduler(svc, logger)
	scheduler.CheckInterval = *sweepInterval
	scheduler.Enabled = !*noScheduler
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "addr", fmt.Sprintf("http://localhost:%d", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
