package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Device identifies this edge installation to the backend.
type Device struct {
	ID string `toml:"id"`
}

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	TempDir string `toml:"temp_dir"`
	APIBind string `toml:"api_bind"`
}

// Backend contains the central ingestion API settings.
type Backend struct {
	URL                 string `toml:"url"`
	EventTimeoutSeconds int    `toml:"event_timeout"`
	MediaTimeoutSeconds int    `toml:"media_timeout"`
}

// Sync contains sweep timing and pacing configuration.
type Sync struct {
	IntervalSeconds      int `toml:"interval"`
	RetryIntervalSeconds int `toml:"retry_interval"`
	TickSeconds          int `toml:"tick"`
	EventDelayMillis     int `toml:"event_delay_ms"`
	MediaDelayMillis     int `toml:"media_delay_ms"`
}

// Capture contains video capture settings and backend ordering.
type Capture struct {
	Backends        []string `toml:"backends"`
	DurationSeconds int      `toml:"duration"`
	Width           int      `toml:"width"`
	Height          int      `toml:"height"`
	FPS             int      `toml:"fps"`
	MarginSeconds   int      `toml:"margin"`
	VideoDevice     string   `toml:"video_device"`
	CameraIndex     int      `toml:"camera_index"`
}

// MQTT contains the sensor notification intake settings.
type MQTT struct {
	Broker              string `toml:"broker"`
	ClientID            string `toml:"client_id"`
	MotionTopic         string `toml:"motion_topic"`
	ButtonTopic         string `toml:"button_topic"`
	PressureTopic       string `toml:"pressure_topic"`
	QoS                 int    `toml:"qos"`
	QueueSize           int    `toml:"queue_size"`
	ConnectAttempts     int    `toml:"connect_attempts"`
	ConnectDelaySeconds int    `toml:"connect_delay"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Sync           bool   `toml:"sync"`
	Capture        bool   `toml:"capture"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for outpost. It is constructed
// once at startup and passed to every component constructor.
//
// Configuration sections by subsystem:
//   - Device: edge device identity reported to the backend
//   - Paths: data/log/temp directories and API bind address
//   - Backend: central ingestion API URL and per-endpoint timeouts
//   - Sync: sweep interval, retry interval, and inter-record pacing
//   - Capture: capture tool ordering and recording parameters
//   - MQTT: broker, topics, and intake queue sizing
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Device        Device        `toml:"device"`
	Paths         Paths         `toml:"paths"`
	Backend       Backend       `toml:"backend"`
	Sync          Sync          `toml:"sync"`
	Capture       Capture       `toml:"capture"`
	MQTT          MQTT          `toml:"mqtt"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/outpost/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// config file was found; when it was not, repository defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("outpost.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the embedded store file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "outpost.db")
}

// SyncInterval returns the periodic sweep interval.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalSeconds) * time.Second
}

// RetryInterval returns the interval between retry sweeps.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Sync.RetryIntervalSeconds) * time.Second
}

// SchedulerTick returns the coarse polling tick of the scheduler loop.
func (c *Config) SchedulerTick() time.Duration {
	return time.Duration(c.Sync.TickSeconds) * time.Second
}

// EventDelay returns the pause inserted between individual event uploads.
func (c *Config) EventDelay() time.Duration {
	return time.Duration(c.Sync.EventDelayMillis) * time.Millisecond
}

// MediaDelay returns the pause inserted between individual media uploads.
func (c *Config) MediaDelay() time.Duration {
	return time.Duration(c.Sync.MediaDelayMillis) * time.Millisecond
}

// EventTimeout returns the client timeout for event uploads.
func (c *Config) EventTimeout() time.Duration {
	return time.Duration(c.Backend.EventTimeoutSeconds) * time.Second
}

// MediaTimeout returns the client timeout for media uploads. Media payloads can
// be orders of magnitude larger than events, so this is materially longer.
func (c *Config) MediaTimeout() time.Duration {
	return time.Duration(c.Backend.MediaTimeoutSeconds) * time.Second
}

// CaptureDuration returns the recording length for a single capture.
func (c *Config) CaptureDuration() time.Duration {
	return time.Duration(c.Capture.DurationSeconds) * time.Second
}

// CaptureMargin returns the grace period added to a capture attempt's timeout.
func (c *Config) CaptureMargin() time.Duration {
	return time.Duration(c.Capture.MarginSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
