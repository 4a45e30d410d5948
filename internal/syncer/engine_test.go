package syncer_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"outpost/internal/store"
	"outpost/internal/syncer"
	"outpost/internal/testsupport"
)

type countingBackend struct {
	server   *httptest.Server
	requests atomic.Int64
	paths    []string
}

func newCountingBackend(t *testing.T) *countingBackend {
	t.Helper()
	backend := &countingBackend{}
	var nextID atomic.Int64
	backend.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backend.requests.Add(1)
		backend.paths = append(backend.paths, r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id": %d}`, nextID.Add(1))
	}))
	t.Cleanup(backend.server.Close)
	return backend
}

func seedMedia(t *testing.T, st *store.Store, eventID *int64) *store.Media {
	t.Helper()
	ctx := context.Background()
	camera, _ := st.SensorByKind(ctx, store.SensorCamera)
	media := &store.Media{EventID: eventID, SensorID: camera.ID, Data: []byte("clip"), CameraIndex: 1}
	if err := st.InsertMedia(ctx, media); err != nil {
		t.Fatalf("InsertMedia failed: %v", err)
	}
	return media
}

func TestSyncAllDrainsEventsThenMedia(t *testing.T) {
	backend := newCountingBackend(t)
	cfg := testsupport.NewConfig(t)
	cfg.Backend.URL = backend.server.URL
	st := testsupport.MustOpenStore(t, cfg)

	first := seedEvent(t, st, "evt-1")
	seedEvent(t, st, "evt-2")
	seedMedia(t, st, &first.Event.ID)

	engine := syncer.NewEngine(cfg, st, nil, nil)
	summary, err := engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll returned error: %v", err)
	}
	if summary.Events.Synced != 2 || summary.Events.Failed != 0 {
		t.Fatalf("unexpected event summary: %#v", summary.Events)
	}
	if summary.Media.Synced != 1 || summary.Media.Failed != 0 {
		t.Fatalf("unexpected media summary: %#v", summary.Media)
	}

	// Events drain before any media upload starts.
	if len(backend.paths) != 3 {
		t.Fatalf("expected 3 uploads, got %v", backend.paths)
	}
	if backend.paths[0] != "/api/events" || backend.paths[1] != "/api/events" || backend.paths[2] != "/api/media" {
		t.Fatalf("upload order wrong: %v", backend.paths)
	}

	stats, err := st.SyncStats(context.Background())
	if err != nil {
		t.Fatalf("SyncStats failed: %v", err)
	}
	for _, stat := range stats {
		if stat.Status != store.StatusSuccess {
			t.Fatalf("non-success ledger rows after clean sweep: %#v", stats)
		}
	}
}

func TestSyncAllIdempotent(t *testing.T) {
	backend := newCountingBackend(t)
	cfg := testsupport.NewConfig(t)
	cfg.Backend.URL = backend.server.URL
	st := testsupport.MustOpenStore(t, cfg)

	seedEvent(t, st, "evt-1")
	engine := syncer.NewEngine(cfg, st, nil, nil)

	if _, err := engine.SyncAll(context.Background()); err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	afterFirst := backend.requests.Load()

	summary, err := engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if synced, failed := summary.Total(); synced != 0 || failed != 0 {
		t.Fatalf("second sweep should be empty: %#v", summary)
	}
	if backend.requests.Load() != afterFirst {
		t.Fatalf("second sweep issued HTTP calls: %d -> %d", afterFirst, backend.requests.Load())
	}
}

func TestRetrySweepRecoversAfterOutage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	event := seedEvent(t, st, "evt-1")
	seedMedia(t, st, &event.Event.ID)

	// Backend down: everything fails with a stable reason.
	engine := syncer.NewEngine(cfg, st, nil, nil)
	summary, err := engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll returned error: %v", err)
	}
	if synced, failed := summary.Total(); synced != 0 || failed != 2 {
		t.Fatalf("expected 2 failures during outage: %#v", summary)
	}
	entry, err := st.OutcomeFor(context.Background(), store.TableEvents, event.Event.ID)
	if err != nil || entry == nil {
		t.Fatalf("ledger entry missing: %v", err)
	}
	if entry.Status != store.StatusFailed || entry.ErrorDetail != "backend unreachable" {
		t.Fatalf("unexpected ledger entry: %#v", entry)
	}

	// Backend back: the retry sweep resurrects and drains the backlog.
	backend := newCountingBackend(t)
	cfg.Backend.URL = backend.server.URL
	recovered := syncer.NewEngine(cfg, st, nil, nil)

	resurrected, summary, err := recovered.RetrySweep(context.Background())
	if err != nil {
		t.Fatalf("RetrySweep returned error: %v", err)
	}
	if resurrected != 2 {
		t.Fatalf("expected 2 resurrected entries, got %d", resurrected)
	}
	if synced, failed := summary.Total(); synced != 2 || failed != 0 {
		t.Fatalf("recovery sweep incomplete: %#v", summary)
	}

	evCount, mdCount, err := st.UnsyncedCounts(context.Background())
	if err != nil {
		t.Fatalf("UnsyncedCounts failed: %v", err)
	}
	if evCount != 0 || mdCount != 0 {
		t.Fatalf("backlog not drained: events=%d media=%d", evCount, mdCount)
	}
}

func TestRetrySweepSkipsWhenNothingFailed(t *testing.T) {
	backend := newCountingBackend(t)
	cfg := testsupport.NewConfig(t)
	cfg.Backend.URL = backend.server.URL
	st := testsupport.MustOpenStore(t, cfg)

	seedEvent(t, st, "evt-1")

	engine := syncer.NewEngine(cfg, st, nil, nil)
	resurrected, summary, err := engine.RetrySweep(context.Background())
	if err != nil {
		t.Fatalf("RetrySweep returned error: %v", err)
	}
	if resurrected != 0 {
		t.Fatalf("expected nothing resurrected, got %d", resurrected)
	}
	if synced, failed := summary.Total(); synced != 0 || failed != 0 {
		t.Fatalf("skipped sweep should report empty summary: %#v", summary)
	}
	if backend.requests.Load() != 0 {
		t.Fatalf("skipped sweep issued HTTP calls: %d", backend.requests.Load())
	}
}

func TestSyncAllContinuesPastFailures(t *testing.T) {
	var served atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := served.Add(1)
		if n == 1 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id": %d}`, n)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Backend.URL = server.URL
	st := testsupport.MustOpenStore(t, cfg)

	seedEvent(t, st, "evt-1")
	seedEvent(t, st, "evt-2")

	engine := syncer.NewEngine(cfg, st, nil, nil)
	summary, err := engine.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll returned error: %v", err)
	}
	if summary.Events.Synced != 1 || summary.Events.Failed != 1 {
		t.Fatalf("queue did not continue past failure: %#v", summary.Events)
	}
}
