package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"outpost/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}
	if exists {
		t.Fatal("expected no config file to be found")
	}
	if cfg.Device.ID == "" {
		t.Fatal("expected default device id")
	}
	if got := cfg.Capture.Backends; len(got) != 3 || got[0] != config.BackendLibcameraVid {
		t.Fatalf("unexpected default capture backends: %v", got)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[device]
id = " pi-42 "

[backend]
url = "http://backend.local:8000/"

[capture]
backends = ["FFmpeg", "ffmpeg", "raspivid"]

[sync]
interval = 60
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatal("expected config file to be resolved")
	}
	if cfg.Device.ID != "pi-42" {
		t.Fatalf("device id not trimmed: %q", cfg.Device.ID)
	}
	if cfg.Backend.URL != "http://backend.local:8000" {
		t.Fatalf("backend url not normalized: %q", cfg.Backend.URL)
	}
	if got := cfg.Capture.Backends; len(got) != 2 || got[0] != "ffmpeg" || got[1] != "raspivid" {
		t.Fatalf("capture backends not deduplicated: %v", got)
	}
	if cfg.Sync.IntervalSeconds != 60 {
		t.Fatalf("sync interval not applied: %d", cfg.Sync.IntervalSeconds)
	}
	if cfg.MQTT.ClientID != "outpost-pi-42" {
		t.Fatalf("mqtt client id not derived: %q", cfg.MQTT.ClientID)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty device", func(c *config.Config) { c.Device.ID = "" }, "device.id"},
		{"bad backend url", func(c *config.Config) { c.Backend.URL = "not a url" }, "backend.url"},
		{"zero interval", func(c *config.Config) { c.Sync.IntervalSeconds = 0 }, "sync.interval"},
		{"unknown backend", func(c *config.Config) { c.Capture.Backends = []string{"gstreamer"} }, "capture.backends"},
		{"bad qos", func(c *config.Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("sample config not found after write")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config invalid: %v", err)
	}
}
