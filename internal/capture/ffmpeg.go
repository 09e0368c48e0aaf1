package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FFmpegRecorder captures mic audio via ffmpeg into a webm/opus clip.
type FFmpegRecorder struct {
	device string
	log    zerolog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	path string
}

// NewFFmpegRecorder creates a recorder reading from the given ALSA device
// (typically "default").
func NewFFmpegRecorder(device string, log zerolog.Logger) *FFmpegRecorder {
	return &FFmpegRecorder{device: device, log: log}
}

func (r *FFmpegRecorder) Supported() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Start launches the capture subprocess. ctx gates the launch only:
// the recording must outlive the caller (an HTTP start request returns
// while capture continues), so the process is not bound to ctx and
// ends only via Stop.
func (r *FFmpegRecorder) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.Supported() {
		return ErrUnsupported
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return ErrAlreadyRecording
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("echodo-%d.webm", time.Now().UnixNano()))
	cmd := exec.Command("ffmpeg",
		"-f", "alsa", "-i", r.device,
		"-ac", "1",
		"-c:a", "libopus",
		"-f", "webm",
		"-y", path,
	)

	if err := cmd.Start(); err != nil {
		os.Remove(path)
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	r.cmd = cmd
	r.path = path
	r.log.Debug().Str("path", path).Str("device", r.device).Msg("capture started")
	return nil
}

func (r *FFmpegRecorder) Stop() ([]byte, error) {
	r.mu.Lock()
	cmd, path := r.cmd, r.path
	r.cmd, r.path = nil, ""
	r.mu.Unlock()

	if cmd == nil {
		return nil, ErrNotRecording
	}
	defer os.Remove(path)

	// SIGINT lets ffmpeg finalize the webm container instead of truncating it.
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}
	// ffmpeg exits non-zero when interrupted; the clip is still valid
	// as long as the file was written.
	_ = cmd.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read captured clip: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("captured clip is empty")
	}

	r.log.Debug().Int("bytes", len(data)).Msg("capture stopped")
	return data, nil
}
