package syncer

import (
	"context"
	"log/slog"
	"time"

	"outpost/internal/config"
	"outpost/internal/logging"
	"outpost/internal/notifications"
	"outpost/internal/store"
)

// TableSummary counts one table's outcomes for a single sweep.
type TableSummary struct {
	Synced int
	Failed int
}

// Summary is the per-sweep report.
type Summary struct {
	Events TableSummary
	Media  TableSummary
}

// Total returns synced and failed counts across both tables.
func (s Summary) Total() (synced, failed int) {
	return s.Events.Synced + s.Media.Synced, s.Events.Failed + s.Media.Failed
}

// Engine drains the unsynced backlog through the uploader.
type Engine struct {
	store      *store.Store
	uploader   *Uploader
	notifier   notifications.Service
	logger     *slog.Logger
	eventDelay time.Duration
	mediaDelay time.Duration
}

// NewEngine wires a sync engine from its parts.
func NewEngine(cfg *config.Config, st *store.Store, notifier notifications.Service, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Engine{
		store:      st,
		uploader:   NewUploader(cfg),
		notifier:   notifier,
		logger:     logging.WithComponent(logger, "syncer"),
		eventDelay: cfg.EventDelay(),
		mediaDelay: cfg.MediaDelay(),
	}
}

// SyncAll drains unsynced events oldest-first, then unsynced media. Every
// record gets a ledger outcome; a short fixed pause between records keeps the
// backend from being hammered. Cancelling ctx stops between records, never
// mid-upload.
func (e *Engine) SyncAll(ctx context.Context) (Summary, error) {
	started := time.Now()
	var summary Summary

	events, err := e.store.UnsyncedEvents(ctx)
	if err != nil {
		return summary, err
	}
	for i, record := range events {
		if ctx.Err() != nil {
			e.logger.Info("sweep interrupted", logging.Int("events_remaining", len(events)-i))
			return summary, ctx.Err()
		}
		outcome := e.uploader.UploadEvent(context.WithoutCancel(ctx), record)
		e.recordOutcome(ctx, store.TableEvents, record.Event.ID, outcome, &summary.Events)
		e.pause(ctx, e.eventDelay)
	}

	media, err := e.store.UnsyncedMedia(ctx)
	if err != nil {
		return summary, err
	}
	for i, record := range media {
		if ctx.Err() != nil {
			e.logger.Info("sweep interrupted", logging.Int("media_remaining", len(media)-i))
			return summary, ctx.Err()
		}
		outcome := e.uploader.UploadMedia(context.WithoutCancel(ctx), record)
		e.recordOutcome(ctx, store.TableMedia, record.Media.ID, outcome, &summary.Media)
		e.pause(ctx, e.mediaDelay)
	}

	synced, failed := summary.Total()
	e.logger.Info("sync sweep finished",
		logging.Int("events_synced", summary.Events.Synced),
		logging.Int("events_failed", summary.Events.Failed),
		logging.Int("media_synced", summary.Media.Synced),
		logging.Int("media_failed", summary.Media.Failed),
		logging.Duration("elapsed", time.Since(started)))

	if synced > 0 || failed > 0 {
		if err := e.notifier.NotifySyncCompleted(ctx, synced, failed); err != nil {
			e.logger.Warn("sweep notification not sent", logging.Error(err))
		}
	}
	return summary, nil
}

// RetrySweep resurrects failed ledger entries to pending and, when anything
// was resurrected, runs a full sweep immediately.
func (e *Engine) RetrySweep(ctx context.Context) (int64, Summary, error) {
	resurrected, err := e.store.ResetFailed(ctx)
	if err != nil {
		return 0, Summary{}, err
	}
	if resurrected == 0 {
		e.logger.Debug("no failed entries to retry")
		return 0, Summary{}, nil
	}

	e.logger.Info("retrying failed uploads", logging.Int64("resurrected", resurrected))
	summary, err := e.SyncAll(ctx)
	return resurrected, summary, err
}

func (e *Engine) recordOutcome(ctx context.Context, table string, localID int64, outcome Outcome, tally *TableSummary) {
	// Ledger writes survive shutdown so a finished upload is never repeated.
	err := e.store.RecordOutcome(context.WithoutCancel(ctx), table, localID, outcome.RemoteID, outcome.Status, outcome.ErrorDetail)
	if err != nil {
		e.logger.Error("ledger write failed",
			logging.String("table", table),
			logging.Int64("local_id", localID),
			logging.Error(err))
		tally.Failed++
		return
	}
	if outcome.Status == store.StatusSuccess {
		tally.Synced++
		return
	}
	tally.Failed++
	e.logger.Warn("record not synchronized",
		logging.String("table", table),
		logging.Int64("local_id", localID),
		logging.String("reason", outcome.ErrorDetail))
}

func (e *Engine) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
