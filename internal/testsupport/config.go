// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"outpost/internal/config"
)

// NewConfig returns a validated config rooted in per-test temp directories,
// with pacing delays zeroed so sweeps run instantly.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Device.ID = "test-device"
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.TempDir = filepath.Join(base, "tmp")
	cfg.Backend.URL = "http://127.0.0.1:9"
	cfg.Sync.EventDelayMillis = 0
	cfg.Sync.MediaDelayMillis = 0
	cfg.MQTT.Broker = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}
