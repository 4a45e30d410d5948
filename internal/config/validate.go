package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var knownCaptureBackends = map[string]struct{}{
	BackendLibcameraVid: {},
	BackendFFmpeg:       {},
	BackendRaspivid:     {},
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	var problems []string

	if c.Device.ID == "" {
		problems = append(problems, "device.id must not be empty")
	}

	if c.Backend.URL == "" {
		problems = append(problems, "backend.url must not be empty")
	} else if parsed, err := url.Parse(c.Backend.URL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		problems = append(problems, fmt.Sprintf("backend.url %q is not a valid URL", c.Backend.URL))
	}

	if c.Sync.IntervalSeconds <= 0 {
		problems = append(problems, "sync.interval must be positive")
	}
	if c.Sync.RetryIntervalSeconds <= 0 {
		problems = append(problems, "sync.retry_interval must be positive")
	}
	if c.Sync.TickSeconds <= 0 {
		problems = append(problems, "sync.tick must be positive")
	}
	if c.Sync.EventDelayMillis < 0 {
		problems = append(problems, "sync.event_delay_ms must not be negative")
	}
	if c.Sync.MediaDelayMillis < 0 {
		problems = append(problems, "sync.media_delay_ms must not be negative")
	}

	if c.Capture.DurationSeconds <= 0 {
		problems = append(problems, "capture.duration must be positive")
	}
	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		problems = append(problems, "capture.width and capture.height must be positive")
	}
	if c.Capture.FPS <= 0 {
		problems = append(problems, "capture.fps must be positive")
	}
	for _, name := range c.Capture.Backends {
		if _, ok := knownCaptureBackends[name]; !ok {
			problems = append(problems, fmt.Sprintf("capture.backends contains unknown backend %q", name))
		}
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		problems = append(problems, "mqtt.qos must be 0, 1, or 2")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
