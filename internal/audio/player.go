// Package audio provides the platform render backends that turn a synthesized
// waveform file into sound, plus the transient on-disk artifact they play.
package audio

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"
)

// ErrUnsupportedPlatform is returned at startup when no render backend exists
// for the host OS. It is fatal: per-request playback never sees it.
var ErrUnsupportedPlatform = errors.New("unsupported platform for audio playback")

// Player renders one audio file at a time.
//
// Play blocks until the render finishes or ctx is cancelled; on cancellation
// it terminates the underlying render (graceful first, forceful after a
// bounded grace period) and returns ctx.Err(). Stop requests a best-effort
// immediate halt of whatever is currently rendering.
type Player interface {
	Play(ctx context.Context, path string) error
	Stop() error
}

// NewPlayer selects the render backend for the host OS once at startup.
func NewPlayer(stopGrace time.Duration) (Player, error) {
	switch runtime.GOOS {
	case "darwin":
		return NewCommandPlayer("afplay", stopGrace), nil
	case "linux":
		return NewCommandPlayer("aplay", stopGrace), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, runtime.GOOS)
	}
}
