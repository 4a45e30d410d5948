package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDevice()
	c.normalizeBackend()
	c.normalizeCapture()
	c.normalizeMQTT()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeDevice() {
	c.Device.ID = strings.TrimSpace(c.Device.ID)
}

func (c *Config) normalizeBackend() {
	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	if c.Backend.EventTimeoutSeconds <= 0 {
		c.Backend.EventTimeoutSeconds = defaultEventTimeoutSeconds
	}
	if c.Backend.MediaTimeoutSeconds <= 0 {
		c.Backend.MediaTimeoutSeconds = defaultMediaTimeoutSeconds
	}
}

func (c *Config) normalizeCapture() {
	backends := make([]string, 0, len(c.Capture.Backends))
	seen := make(map[string]struct{}, len(c.Capture.Backends))
	for _, name := range c.Capture.Backends {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		backends = append(backends, normalized)
	}
	if len(backends) == 0 {
		backends = []string{BackendLibcameraVid, BackendFFmpeg, BackendRaspivid}
	}
	c.Capture.Backends = backends

	c.Capture.VideoDevice = strings.TrimSpace(c.Capture.VideoDevice)
	if c.Capture.VideoDevice == "" {
		c.Capture.VideoDevice = defaultVideoDevice
	}
	if c.Capture.CameraIndex <= 0 {
		c.Capture.CameraIndex = defaultCameraIndex
	}
	if c.Capture.MarginSeconds <= 0 {
		c.Capture.MarginSeconds = defaultCaptureMarginSeconds
	}
}

func (c *Config) normalizeMQTT() {
	c.MQTT.Broker = strings.TrimSpace(c.MQTT.Broker)
	c.MQTT.ClientID = strings.TrimSpace(c.MQTT.ClientID)
	if c.MQTT.ClientID == "" && c.Device.ID != "" {
		c.MQTT.ClientID = "outpost-" + c.Device.ID
	}
	if c.MQTT.QueueSize <= 0 {
		c.MQTT.QueueSize = defaultMQTTQueueSize
	}
	if c.MQTT.ConnectAttempts <= 0 {
		c.MQTT.ConnectAttempts = defaultConnectAttempts
	}
	if c.MQTT.ConnectDelaySeconds <= 0 {
		c.MQTT.ConnectDelaySeconds = defaultConnectDelay
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
