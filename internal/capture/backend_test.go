package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"outpost/internal/config"
)

func captureArgs(t *testing.T, mode string) *[]string {
	t.Helper()
	var captured []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string{name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("CAPTURE_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
	return &captured
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("CAPTURE_HELPER_MODE") {
	case "failure":
		fmt.Fprintln(os.Stderr, "camera busy")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}

func TestLibcameraVidArgs(t *testing.T) {
	captured := captureArgs(t, "success")

	params := Params{Duration: 10 * time.Second, Width: 1280, Height: 720, FPS: 30}
	if err := NewLibcameraVid().Capture(context.Background(), params, "/tmp/out.h264"); err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}

	want := []string{
		"libcamera-vid",
		"-t", "10000",
		"--width", "1280",
		"--height", "720",
		"--framerate", "30",
		"--codec", "h264",
		"-o", "/tmp/out.h264",
		"--nopreview",
	}
	assertArgs(t, *captured, want)
}

func TestFFmpegArgs(t *testing.T) {
	captured := captureArgs(t, "success")

	params := Params{Duration: 10 * time.Second, Width: 640, Height: 480, FPS: 25}
	if err := NewFFmpeg("/dev/video2").Capture(context.Background(), params, "/tmp/out.h264"); err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}

	want := []string{
		"ffmpeg",
		"-f", "v4l2",
		"-framerate", "25",
		"-video_size", "640x480",
		"-i", "/dev/video2",
		"-t", "10",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-y",
		"/tmp/out.h264",
	}
	assertArgs(t, *captured, want)
}

func TestRaspividArgs(t *testing.T) {
	captured := captureArgs(t, "success")

	params := Params{Duration: 5 * time.Second, Width: 1280, Height: 720, FPS: 30}
	if err := NewRaspivid().Capture(context.Background(), params, "/tmp/out.h264"); err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}

	want := []string{
		"raspivid",
		"-t", "5000",
		"-w", "1280",
		"-h", "720",
		"-fps", "30",
		"-o", "/tmp/out.h264",
		"-n",
	}
	assertArgs(t, *captured, want)
}

func TestRunToolReportsFailure(t *testing.T) {
	captureArgs(t, "failure")

	params := Params{Duration: time.Second, Width: 640, Height: 480, FPS: 10}
	err := NewRaspivid().Capture(context.Background(), params, "/tmp/out.h264")
	if err == nil {
		t.Fatal("expected error from failing tool")
	}
}

func TestFromConfigPreservesOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Capture.Backends = []string{config.BackendFFmpeg, config.BackendRaspivid}
	cfg.Capture.VideoDevice = "/dev/video1"

	backends := FromConfig(&cfg)
	if len(backends) != 2 {
		t.Fatalf("expected 2 backends, got %d", len(backends))
	}
	if backends[0].Name() != config.BackendFFmpeg || backends[1].Name() != config.BackendRaspivid {
		t.Fatalf("backend order not preserved: %s, %s", backends[0].Name(), backends[1].Name())
	}
}

func assertArgs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("argument count mismatch:\n got %v\nwant %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("argument %d mismatch: got %q want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}
