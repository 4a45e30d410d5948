package syncer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"outpost/internal/config"
	"outpost/internal/store"
)

const (
	sourceLabel = "sync_service"
	maxBodyEcho = 512
	maxBodyRead = 64 * 1024
)

// Outcome is the result of one upload attempt, ready for the ledger.
type Outcome struct {
	Status      store.SyncStatus
	RemoteID    *int64
	ErrorDetail string
}

// Uploader posts records to the backend REST API.
type Uploader struct {
	baseURL     string
	deviceID    string
	eventClient *http.Client
	mediaClient *http.Client
}

// NewUploader builds an uploader with separate clients for events and media;
// media posts carry whole clips and get a materially longer timeout.
func NewUploader(cfg *config.Config) *Uploader {
	return &Uploader{
		baseURL:     cfg.Backend.URL,
		deviceID:    cfg.Device.ID,
		eventClient: &http.Client{Timeout: cfg.EventTimeout()},
		mediaClient: &http.Client{Timeout: cfg.MediaTimeout()},
	}
}

type sensorPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
}

type eventPayload struct {
	OccurredAt string        `json:"occurred_at"`
	State      int           `json:"state"`
	ExternalID string        `json:"external_id"`
	Sensor     sensorPayload `json:"sensor"`
	DeviceID   string        `json:"device_id"`
	Source     string        `json:"source"`
}

type mediaPayload struct {
	CapturedAt      string        `json:"captured_at"`
	CameraIndex     int           `json:"camera_index"`
	VideoData       string        `json:"video_data"`
	DurationSeconds int           `json:"duration_seconds,omitempty"`
	EventExternalID string        `json:"event_external_id,omitempty"`
	Sensor          sensorPayload `json:"sensor"`
	DeviceID        string        `json:"device_id"`
	Source          string        `json:"source"`
}

// UploadEvent posts one event; the returned outcome is always usable.
func (u *Uploader) UploadEvent(ctx context.Context, record *store.EventRecord) Outcome {
	payload := eventPayload{
		OccurredAt: record.Event.OccurredAt.UTC().Format(time.RFC3339Nano),
		State:      record.Event.State,
		ExternalID: record.Event.ExternalID,
		Sensor: sensorPayload{
			ID:   record.Event.SensorID,
			Name: record.SensorName,
			Kind: record.SensorKind,
		},
		DeviceID: u.deviceID,
		Source:   sourceLabel,
	}
	return u.post(ctx, u.eventClient, u.baseURL+"/api/events", payload)
}

// UploadMedia posts one clip with its video bytes base64-encoded.
func (u *Uploader) UploadMedia(ctx context.Context, record *store.MediaRecord) Outcome {
	payload := mediaPayload{
		CapturedAt:      record.Media.CapturedAt.UTC().Format(time.RFC3339Nano),
		CameraIndex:     record.Media.CameraIndex,
		VideoData:       base64.StdEncoding.EncodeToString(record.Media.Data),
		DurationSeconds: record.Media.DurationSeconds,
		EventExternalID: record.EventExternalID,
		Sensor: sensorPayload{
			ID:   record.Media.SensorID,
			Name: record.SensorName,
		},
		DeviceID: u.deviceID,
		Source:   sourceLabel,
	}
	return u.post(ctx, u.mediaClient, u.baseURL+"/api/media", payload)
}

func (u *Uploader) post(ctx context.Context, client *http.Client, endpoint string, payload any) Outcome {
	body, err := json.Marshal(payload)
	if err != nil {
		return failed(fmt.Sprintf("encode payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return failed(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return failed(classify(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
	if err != nil {
		return failed(fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failed(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(respBody), maxBodyEcho)))
	}

	var remote struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(respBody, &remote); err != nil {
		return failed(fmt.Sprintf("malformed response body: %v", err))
	}
	// A success ledger row must carry the backend id; a 2xx without one is
	// diagnosable, not terminal.
	if remote.ID == nil {
		return failed("response missing id")
	}
	return Outcome{Status: store.StatusSuccess, RemoteID: remote.ID}
}

// classify maps transport errors to the stable ledger strings. Timeouts are
// checked before the generic transport case because both arrive as url.Error.
func classify(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "backend unreachable"
	}
	return err.Error()
}

func failed(detail string) Outcome {
	return Outcome{Status: store.StatusFailed, ErrorDetail: detail}
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
