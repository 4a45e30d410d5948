package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"outpost/internal/capture"
	"outpost/internal/config"
	"outpost/internal/logging"
	"outpost/internal/notifications"
	"outpost/internal/store"
)

// Notification is one sensor trigger handed to the producer.
type Notification struct {
	ExternalID string
	Kind       string
	State      int
	DeviceID   string
	OccurredAt time.Time
	Payload    json.RawMessage
}

// Recorder is the capture surface the producer drives for motion events.
type Recorder interface {
	Capture(ctx context.Context, tag string) ([]byte, error)
	Params() capture.Params
}

// Producer owns the intake queue and its single consumer goroutine.
type Producer struct {
	store    *store.Store
	recorder Recorder
	notifier notifications.Service
	cfg      *config.Config
	logger   *slog.Logger

	queue chan Notification
	wg    sync.WaitGroup

	mu        sync.Mutex
	processed int64
	dropped   int64
}

// New builds a producer; Start must be called before Enqueue is useful.
func New(cfg *config.Config, st *store.Store, recorder Recorder, notifier notifications.Service, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	size := cfg.MQTT.QueueSize
	if size <= 0 {
		size = 64
	}
	return &Producer{
		store:    st,
		recorder: recorder,
		notifier: notifier,
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "producer"),
		queue:    make(chan Notification, size),
	}
}

// Start launches the consumer goroutine. It drains until ctx is cancelled,
// then finishes the notification already in hand before returning.
func (p *Producer) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case notification := <-p.queue:
				p.Process(context.WithoutCancel(ctx), notification)
			}
		}
	}()
}

// Wait blocks until the consumer goroutine has exited.
func (p *Producer) Wait() {
	p.wg.Wait()
}

// Enqueue hands a notification to the consumer. A full queue drops the
// notification with a warning rather than blocking the caller.
func (p *Producer) Enqueue(notification Notification) bool {
	select {
	case p.queue <- notification:
		return true
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		p.logger.Warn("intake queue full, notification dropped",
			logging.String("kind", notification.Kind),
			logging.String("external_id", notification.ExternalID))
		return false
	}
}

// QueueDepth reports how many notifications await processing.
func (p *Producer) QueueDepth() int {
	return len(p.queue)
}

// Counters returns processed and dropped totals since start.
func (p *Producer) Counters() (processed, dropped int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.dropped
}

// Process records one notification synchronously. The consumer goroutine is
// the only caller in the daemon; the CLI and tests call it directly.
func (p *Producer) Process(ctx context.Context, notification Notification) {
	event, err := p.recordEvent(ctx, notification)
	if err != nil {
		p.logger.Error("event not recorded",
			logging.String("kind", notification.Kind),
			logging.Error(err))
		return
	}

	p.mu.Lock()
	p.processed++
	p.mu.Unlock()

	p.logger.Info("event recorded",
		logging.String("kind", notification.Kind),
		logging.String("external_id", event.ExternalID),
		logging.Int64("event_id", event.ID))

	if notification.Kind == store.SensorMotion {
		p.recordClip(ctx, event)
	}
}

func (p *Producer) recordEvent(ctx context.Context, notification Notification) (*store.Event, error) {
	sensor, err := p.store.SensorByKind(ctx, notification.Kind)
	if err != nil {
		return nil, err
	}
	if sensor == nil {
		return nil, fmt.Errorf("no sensor registered for kind %q", notification.Kind)
	}

	externalID := notification.ExternalID
	if externalID == "" {
		externalID = uuid.NewString()
	}
	occurred := notification.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	event := &store.Event{
		ExternalID:   externalID,
		OccurredAt:   occurred,
		State:        notification.State,
		SensorID:     sensor.ID,
		MetadataJSON: string(notification.Payload),
	}
	if err := p.store.InsertEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// recordClip runs the capture chain and stores the clip linked to the event.
// Capture exhaustion degrades to a media-less event; the event row stays.
func (p *Producer) recordClip(ctx context.Context, event *store.Event) {
	data, err := p.recorder.Capture(ctx, event.ExternalID)
	if err != nil {
		var failure *capture.Failure
		if errors.As(err, &failure) {
			p.logger.Warn("capture chain exhausted, keeping event without media",
				logging.String("external_id", event.ExternalID),
				logging.Error(err))
			if nerr := p.notifier.NotifyCaptureFailed(ctx, event.ExternalID, err); nerr != nil {
				p.logger.Warn("capture failure notification not sent", logging.Error(nerr))
			}
			return
		}
		p.logger.Error("capture aborted",
			logging.String("external_id", event.ExternalID),
			logging.Error(err))
		return
	}

	camera, err := p.store.SensorByKind(ctx, store.SensorCamera)
	if err != nil || camera == nil {
		p.logger.Error("camera sensor unavailable", logging.Error(err))
		return
	}

	params := p.recorder.Params()
	media := &store.Media{
		EventID:         &event.ID,
		SensorID:        camera.ID,
		Data:            data,
		DurationSeconds: int(params.Duration / time.Second),
		CapturedAt:      time.Now().UTC(),
		CameraIndex:     p.cfg.Capture.CameraIndex,
		Resolution:      fmt.Sprintf("%dx%d", params.Width, params.Height),
		Codec:           "h264",
	}
	if err := p.store.InsertMedia(ctx, media); err != nil {
		p.logger.Error("media not recorded",
			logging.Int64("event_id", event.ID),
			logging.Error(err))
		return
	}
	p.logger.Info("media recorded",
		logging.Int64("event_id", event.ID),
		logging.Int64("media_id", media.ID),
		logging.Int("size_bytes", len(data)))
}
