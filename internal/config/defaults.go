package config

// Capture backend names accepted in [capture].backends.
const (
	BackendLibcameraVid = "libcamera-vid"
	BackendFFmpeg       = "ffmpeg"
	BackendRaspivid     = "raspivid"
)

const (
	defaultDeviceID = "raspberry-1"

	defaultDataDir = "~/.local/share/outpost/data"
	defaultLogDir  = "~/.local/share/outpost/logs"
	defaultTempDir = "/tmp/outpost"
	defaultAPIBind = "127.0.0.1:7610"

	defaultEventTimeoutSeconds = 10
	defaultMediaTimeoutSeconds = 30

	defaultSyncIntervalSeconds  = 300
	defaultRetryIntervalSeconds = 3600
	defaultTickSeconds          = 1
	defaultEventDelayMillis     = 100
	defaultMediaDelayMillis     = 500

	defaultCaptureDurationSeconds = 10
	defaultCaptureWidth           = 1280
	defaultCaptureHeight          = 720
	defaultCaptureFPS             = 30
	defaultCaptureMarginSeconds   = 5
	defaultVideoDevice            = "/dev/video0"
	defaultCameraIndex            = 1

	defaultMQTTMotionTopic   = "sensor/motion"
	defaultMQTTButtonTopic   = "sensor/button"
	defaultMQTTPressureTopic = "sensor/pressure"
	defaultMQTTQoS           = 1
	defaultMQTTQueueSize     = 32
	defaultConnectAttempts   = 10
	defaultConnectDelay      = 5

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "text"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Device: Device{
			ID: defaultDeviceID,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			TempDir: defaultTempDir,
			APIBind: defaultAPIBind,
		},
		Backend: Backend{
			URL:                 "http://backend:8000",
			EventTimeoutSeconds: defaultEventTimeoutSeconds,
			MediaTimeoutSeconds: defaultMediaTimeoutSeconds,
		},
		Sync: Sync{
			IntervalSeconds:      defaultSyncIntervalSeconds,
			RetryIntervalSeconds: defaultRetryIntervalSeconds,
			TickSeconds:          defaultTickSeconds,
			EventDelayMillis:     defaultEventDelayMillis,
			MediaDelayMillis:     defaultMediaDelayMillis,
		},
		Capture: Capture{
			Backends:        []string{BackendLibcameraVid, BackendFFmpeg, BackendRaspivid},
			DurationSeconds: defaultCaptureDurationSeconds,
			Width:           defaultCaptureWidth,
			Height:          defaultCaptureHeight,
			FPS:             defaultCaptureFPS,
			MarginSeconds:   defaultCaptureMarginSeconds,
			VideoDevice:     defaultVideoDevice,
			CameraIndex:     defaultCameraIndex,
		},
		MQTT: MQTT{
			Broker:              "tcp://mqtt-broker:1883",
			MotionTopic:         defaultMQTTMotionTopic,
			ButtonTopic:         defaultMQTTButtonTopic,
			PressureTopic:       defaultMQTTPressureTopic,
			QoS:                 defaultMQTTQoS,
			QueueSize:           defaultMQTTQueueSize,
			ConnectAttempts:     defaultConnectAttempts,
			ConnectDelaySeconds: defaultConnectDelay,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Sync:           true,
			Capture:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
