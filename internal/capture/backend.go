package capture

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"outpost/internal/config"
)

var commandContext = exec.CommandContext

// Params describes a single recording request.
type Params struct {
	Duration time.Duration
	Width    int
	Height   int
	FPS      int
}

// Backend runs one camera tool and writes the clip to outputPath.
type Backend interface {
	Name() string
	Capture(ctx context.Context, params Params, outputPath string) error
}

// LibcameraVid records through the modern Raspberry Pi camera stack.
type LibcameraVid struct{}

func NewLibcameraVid() *LibcameraVid { return &LibcameraVid{} }

func (b *LibcameraVid) Name() string { return config.BackendLibcameraVid }

func (b *LibcameraVid) Capture(ctx context.Context, params Params, outputPath string) error {
	args := []string{
		"-t", strconv.FormatInt(params.Duration.Milliseconds(), 10),
		"--width", strconv.Itoa(params.Width),
		"--height", strconv.Itoa(params.Height),
		"--framerate", strconv.Itoa(params.FPS),
		"--codec", "h264",
		"-o", outputPath,
		"--nopreview",
	}
	return runTool(ctx, "libcamera-vid", args)
}

// FFmpeg records from a v4l2 device; the most portable fallback.
type FFmpeg struct {
	device string
}

func NewFFmpeg(device string) *FFmpeg {
	if device == "" {
		device = "/dev/video0"
	}
	return &FFmpeg{device: device}
}

func (b *FFmpeg) Name() string { return config.BackendFFmpeg }

func (b *FFmpeg) Capture(ctx context.Context, params Params, outputPath string) error {
	args := []string{
		"-f", "v4l2",
		"-framerate", strconv.Itoa(params.FPS),
		"-video_size", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"-i", b.device,
		"-t", strconv.FormatInt(int64(params.Duration/time.Second), 10),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-y",
		outputPath,
	}
	return runTool(ctx, "ffmpeg", args)
}

// Raspivid covers legacy Raspberry Pi OS installs.
type Raspivid struct{}

func NewRaspivid() *Raspivid { return &Raspivid{} }

func (b *Raspivid) Name() string { return config.BackendRaspivid }

func (b *Raspivid) Capture(ctx context.Context, params Params, outputPath string) error {
	args := []string{
		"-t", strconv.FormatInt(params.Duration.Milliseconds(), 10),
		"-w", strconv.Itoa(params.Width),
		"-h", strconv.Itoa(params.Height),
		"-fps", strconv.Itoa(params.FPS),
		"-o", outputPath,
		"-n",
	}
	return runTool(ctx, "raspivid", args)
}

func runTool(ctx context.Context, binary string, args []string) error {
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s timed out: %w", binary, ctx.Err())
		}
		return fmt.Errorf("%s failed: %w (%s)", binary, err, firstLine(output))
	}
	return nil
}

func firstLine(output []byte) string {
	for i, b := range output {
		if b == '\n' {
			return string(output[:i])
		}
	}
	return string(output)
}

// FromConfig builds the ordered backend list from config names. Unknown names
// are rejected by config validation before this runs.
func FromConfig(cfg *config.Config) []Backend {
	backends := make([]Backend, 0, len(cfg.Capture.Backends))
	for _, name := range cfg.Capture.Backends {
		switch name {
		case config.BackendLibcameraVid:
			backends = append(backends, NewLibcameraVid())
		case config.BackendFFmpeg:
			backends = append(backends, NewFFmpeg(cfg.Capture.VideoDevice))
		case config.BackendRaspivid:
			backends = append(backends, NewRaspivid())
		}
	}
	return backends
}
