package capture

import (
	"context"
	"errors"
)

var (
	// ErrUnsupported means no audio-capture capability is available on this host.
	ErrUnsupported = errors.New("audio capture is not supported on this system")
	// ErrNotRecording means Stop was called without an active recording.
	ErrNotRecording = errors.New("no active recording")
	// ErrAlreadyRecording means Start was called while a recording is in progress.
	ErrAlreadyRecording = errors.New("recording already in progress")
)

// Recorder captures a single audio clip per start/stop cycle.
// Implementations own the underlying input device exclusively and must
// release it on every exit path, including failed starts.
type Recorder interface {
	// Supported reports whether audio capture is available at all.
	Supported() bool
	// Start begins capturing from the default input device.
	Start(ctx context.Context) error
	// Stop ends the capture and returns the finished clip bytes.
	Stop() ([]byte, error)
}
