package capture_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"outpost/internal/capture"
)

type stubBackend struct {
	name    string
	payload []byte
	err     error
	calls   int
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Capture(ctx context.Context, params capture.Params, outputPath string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(outputPath, s.payload, 0o644)
}

func testParams() capture.Params {
	return capture.Params{Duration: time.Second, Width: 640, Height: 480, FPS: 10}
}

func TestChainUsesFirstWorkingBackend(t *testing.T) {
	first := &stubBackend{name: "first", payload: []byte("clip-data")}
	second := &stubBackend{name: "second", payload: []byte("unused")}
	chain := capture.NewChain([]capture.Backend{first, second}, t.TempDir(), testParams(), time.Second, nil)

	data, err := chain.Capture(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if string(data) != "clip-data" {
		t.Fatalf("unexpected payload: %q", data)
	}
	if second.calls != 0 {
		t.Fatalf("fallback backend ran despite earlier success: %d calls", second.calls)
	}
}

func TestChainFallsThroughFailures(t *testing.T) {
	broken := &stubBackend{name: "broken", err: errors.New("not installed")}
	empty := &stubBackend{name: "empty", payload: nil}
	working := &stubBackend{name: "working", payload: []byte("ok")}
	chain := capture.NewChain([]capture.Backend{broken, empty, working}, t.TempDir(), testParams(), time.Second, nil)

	data, err := chain.Capture(context.Background(), "evt-2")
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if string(data) != "ok" {
		t.Fatalf("unexpected payload: %q", data)
	}
	if broken.calls != 1 || empty.calls != 1 || working.calls != 1 {
		t.Fatalf("unexpected call counts: %d %d %d", broken.calls, empty.calls, working.calls)
	}
}

func TestChainReportsAllAttempts(t *testing.T) {
	a := &stubBackend{name: "a", err: errors.New("boom-a")}
	b := &stubBackend{name: "b", err: errors.New("boom-b")}
	chain := capture.NewChain([]capture.Backend{a, b}, t.TempDir(), testParams(), time.Second, nil)

	_, err := chain.Capture(context.Background(), "evt-3")
	var failure *capture.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected Failure, got %v", err)
	}
	if len(failure.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(failure.Attempts))
	}
	if failure.Attempts[0].Backend != "a" || failure.Attempts[1].Backend != "b" {
		t.Fatalf("attempt order wrong: %#v", failure.Attempts)
	}
}

func TestChainRemovesTempFiles(t *testing.T) {
	tempDir := t.TempDir()
	working := &stubBackend{name: "working", payload: []byte("data")}
	chain := capture.NewChain([]capture.Backend{working}, tempDir, testParams(), time.Second, nil)

	if _, err := chain.Capture(context.Background(), "evt-4"); err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, filepath.Base(e.Name()))
		}
		t.Fatalf("temp files left behind: %v", names)
	}
}

func TestChainRemovesTempFilesOnEmptyArtifact(t *testing.T) {
	tempDir := t.TempDir()
	empty := &stubBackend{name: "empty", payload: nil}
	chain := capture.NewChain([]capture.Backend{empty}, tempDir, testParams(), time.Second, nil)

	if _, err := chain.Capture(context.Background(), "evt-5"); err == nil {
		t.Fatal("expected failure for empty artifact")
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp files left behind after failure: %d", len(entries))
	}
}

func TestChainWithoutBackends(t *testing.T) {
	chain := capture.NewChain(nil, t.TempDir(), testParams(), time.Second, nil)
	if _, err := chain.Capture(context.Background(), "evt-6"); err == nil {
		t.Fatal("expected error with no backends configured")
	}
}
