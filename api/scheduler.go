/*
scheduler.go - Automated accrual scheduler

PURPOSE:
  Periodically runs the portfolio-wide accrual sweep so interest stays
  current even when no client triggers a read or a payment. The sweep is
  idempotent: a loan whose checkpoint is already in the current period
  accrues nothing, so the interval only bounds staleness, never correctness.

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAccrualScheduler(svc, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Recalculate endpoint (manual sweep)
  - loan/service.go: RecalculateAll
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/solventa/lending-engine/engine"
	"github.com/solventa/lending-engine/loan"
)

// AccrualScheduler runs the accrual sweep on a fixed interval.
type AccrualScheduler struct {
	Service       *loan.Service
	CheckInterval time.Duration
	Enabled       bool

	logger *slog.Logger
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAccrualScheduler creates a scheduler with the default hourly interval.
func NewAccrualScheduler(svc *loan.Service, logger *slog.Logger) *AccrualScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccrualScheduler{
		Service:       svc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		logger:        logger,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (as *AccrualScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		as.logger.Info("accrual scheduler disabled, not starting")
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.wg.Add(1)

	go as.run()

	as.logger.Info("accrual scheduler started", "interval", as.CheckInterval.String())
}

// Stop stops the scheduler.
func (as *AccrualScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		as.logger.Info("accrual scheduler stopped")
	}
}

func (as *AccrualScheduler) run() {
	defer as.wg.Done()

	// Run immediately on start
	as.sweep()

	for {
		select {
		case <-as.ticker.C:
			as.sweep()
		case <-as.stop:
			return
		}
	}
}

func (as *AccrualScheduler) sweep() {
	res, err := as.Service.RecalculateAll(context.Background(), engine.Today())
	if err != nil {
		as.logger.Error("scheduled sweep failed", "error", err)
		return
	}
	if res.Accrued > 0 || res.Failed > 0 {
		as.logger.Info("scheduled sweep",
			"scanned", res.Scanned,
			"accrued", res.Accrued,
			"failed", res.Failed,
			"interest", res.Interest.String())
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (as *AccrualScheduler) RunNow() {
	as.sweep()
}
