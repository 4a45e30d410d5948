// Package scheduler drives periodic sync and retry sweeps on a single
// goroutine. Sweeps run to completion on the loop, so a sync sweep and a
// retry sweep can never overlap.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"outpost/internal/config"
	"outpost/internal/logging"
	"outpost/internal/notifications"
	"outpost/internal/syncer"
)

// Engine is the sweep surface the scheduler drives.
type Engine interface {
	SyncAll(ctx context.Context) (syncer.Summary, error)
	RetrySweep(ctx context.Context) (int64, syncer.Summary, error)
}

type requestKind int

const (
	requestSync requestKind = iota
	requestRetry
)

// SweepReport is the last completed sweep, for status surfaces.
type SweepReport struct {
	FinishedAt time.Time
	Summary    syncer.Summary
}

// Scheduler owns the sweep loop.
type Scheduler struct {
	engine        Engine
	notifier      notifications.Service
	logger        *slog.Logger
	tick          time.Duration
	syncInterval  time.Duration
	retryInterval time.Duration

	requests chan requestKind
	cancel   context.CancelFunc
	done     chan struct{}

	mu   sync.Mutex
	last *SweepReport
}

// New builds a scheduler from the sync timing config.
func New(cfg *config.Config, engine Engine, notifier notifications.Service, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Scheduler{
		engine:        engine,
		notifier:      notifier,
		logger:        logging.WithComponent(logger, "scheduler"),
		tick:          cfg.SchedulerTick(),
		syncInterval:  cfg.SyncInterval(),
		retryInterval: cfg.RetryInterval(),
		requests:      make(chan requestKind, 4),
		done:          make(chan struct{}),
	}
}

// Start launches the loop. The initial sync sweep runs before the periodic
// timers arm, so a restart never waits a full interval to drain backlog.
func (s *Scheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.loop(runCtx)
}

// Stop cancels the loop and waits for it to exit. An in-flight record upload
// finishes; remaining records wait for the next daemon start.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

// TriggerSync requests an immediate sync sweep on the loop goroutine.
func (s *Scheduler) TriggerSync() {
	select {
	case s.requests <- requestSync:
	default:
	}
}

// TriggerRetry requests a failed-entry reset plus sweep.
func (s *Scheduler) TriggerRetry() {
	select {
	case s.requests <- requestRetry:
	default:
	}
}

// LastSweep returns the most recent completed sweep, or nil before the first.
func (s *Scheduler) LastSweep() *SweepReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	report := *s.last
	return &report
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.runSync(ctx)

	syncDue := time.Now().Add(s.syncInterval)
	retryDue := time.Now().Add(s.retryInterval)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case kind := <-s.requests:
			switch kind {
			case requestSync:
				s.runSync(ctx)
				syncDue = time.Now().Add(s.syncInterval)
			case requestRetry:
				s.runRetry(ctx)
				retryDue = time.Now().Add(s.retryInterval)
			}
		case now := <-ticker.C:
			if !now.Before(retryDue) {
				s.runRetry(ctx)
				retryDue = time.Now().Add(s.retryInterval)
			}
			if !now.Before(syncDue) {
				s.runSync(ctx)
				syncDue = time.Now().Add(s.syncInterval)
			}
		}
	}
}

func (s *Scheduler) runSync(ctx context.Context) {
	summary, err := s.engine.SyncAll(ctx)
	if err != nil {
		s.reportFailure(ctx, "sync sweep", err)
		return
	}
	s.record(summary)
}

func (s *Scheduler) runRetry(ctx context.Context) {
	resurrected, summary, err := s.engine.RetrySweep(ctx)
	if err != nil {
		s.reportFailure(ctx, "retry sweep", err)
		return
	}
	if resurrected > 0 {
		s.record(summary)
	}
}

// reportFailure surfaces an infrastructure fault; record-level failures stay
// in the ledger and never reach here. Shutdown cancellation is not a fault.
func (s *Scheduler) reportFailure(ctx context.Context, sweep string, err error) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Error(sweep+" failed", logging.Error(err))
	if nerr := s.notifier.NotifyError(ctx, err, sweep); nerr != nil {
		s.logger.Warn("failure notification not sent", logging.Error(nerr))
	}
}

func (s *Scheduler) record(summary syncer.Summary) {
	s.mu.Lock()
	s.last = &SweepReport{FinishedAt: time.Now(), Summary: summary}
	s.mu.Unlock()
}
