package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"outpost/internal/bus"
	"outpost/internal/capture"
	"outpost/internal/config"
	"outpost/internal/logging"
	"outpost/internal/notifications"
	"outpost/internal/producer"
	"outpost/internal/scheduler"
	"outpost/internal/store"
	"outpost/internal/syncer"
)

// Daemon coordinates the background services and enforces single-instance
// execution through a lock file under the log directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	producer *producer.Producer
	listener *bus.Listener
	sched    *scheduler.Scheduler
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status is the daemon runtime snapshot served over the ops API.
type Status struct {
	Running        bool             `json:"running"`
	DeviceID       string           `json:"device_id"`
	DatabasePath   string           `json:"database_path"`
	LockFilePath   string           `json:"lock_file_path"`
	QueueDepth     int              `json:"queue_depth"`
	UnsyncedEvents int64            `json:"unsynced_events"`
	UnsyncedMedia  int64            `json:"unsynced_media"`
	SyncStats      []store.SyncStat `json:"sync_stats,omitempty"`
	LastSweepAt    *time.Time       `json:"last_sweep_at,omitempty"`
	LastSweep      *syncer.Summary  `json:"last_sweep,omitempty"`
}

// New constructs a daemon with all services wired but not started.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	notifier := notifications.NewService(cfg)
	chain := capture.ChainFromConfig(cfg, logger)
	prod := producer.New(cfg, st, chain, notifier, logger)
	engine := syncer.NewEngine(cfg, st, notifier, logger)
	sched := scheduler.New(cfg, engine, notifier, logger)

	var listener *bus.Listener
	if cfg.MQTT.Broker != "" {
		listener = bus.NewListener(cfg, prod, logger)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "outpostd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    st,
		producer: prod,
		listener: listener,
		sched:    sched,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock and launches every service. The scheduler
// runs its initial sweep immediately after start.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another outpost daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.producer.Start(runCtx)

	if d.listener != nil {
		if err := d.listener.Start(runCtx); err != nil {
			cancel()
			d.producer.Wait()
			_ = d.lock.Unlock()
			return fmt.Errorf("start listener: %w", err)
		}
	} else {
		d.logger.Warn("no broker configured, sensor intake disabled")
	}

	d.sched.Start(runCtx)

	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.sched.Stop()
			if d.listener != nil {
				d.listener.Stop()
			}
			cancel()
			d.producer.Wait()
			_ = d.lock.Unlock()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("outpost daemon started",
		logging.String("device", d.cfg.Device.ID),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the services down in dependency order and releases the lock.
// In-flight uploads and the notification being processed finish first.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.api != nil {
		d.api.stop()
	}
	if d.listener != nil {
		d.listener.Stop()
	}
	d.sched.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.producer.Wait()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("outpost daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// TriggerSync requests an immediate sync sweep.
func (d *Daemon) TriggerSync() { d.sched.TriggerSync() }

// TriggerRetry requests a failed-entry reset plus sweep.
func (d *Daemon) TriggerRetry() { d.sched.TriggerRetry() }

// Status returns the current runtime snapshot.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		DeviceID:     d.cfg.Device.ID,
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		QueueDepth:   d.producer.QueueDepth(),
	}

	if events, media, err := d.store.UnsyncedCounts(ctx); err == nil {
		status.UnsyncedEvents = events
		status.UnsyncedMedia = media
	}
	if stats, err := d.store.SyncStats(ctx); err == nil {
		status.SyncStats = stats
	}
	if report := d.sched.LastSweep(); report != nil {
		status.LastSweepAt = &report.FinishedAt
		summary := report.Summary
		status.LastSweep = &summary
	}
	return status
}
