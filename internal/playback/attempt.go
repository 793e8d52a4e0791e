package playback

import (
	"context"
	"sync"
)

// Attempt lifecycle. Transitions are only ever forward:
// starting -> running -> stopping -> stopped.
type attemptState int

const (
	stateStarting attemptState = iota
	stateRunning
	stateStopping
	stateStopped
)

func (s attemptState) String() string {
	switch s {
	case stateStarting:
		return "starting"
	case stateRunning:
		return "running"
	case stateStopping:
		return "stopping"
	case stateStopped:
		return "stopped"
	}
	return "unknown"
}

// attempt is one playback in flight: the cancellable unit of work wrapping
// the render backend, its generation number, and its lifecycle state.
type attempt struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	state attemptState
}

func newAttempt(gen uint64, cancel context.CancelFunc) *attempt {
	return &attempt{
		gen:    gen,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  stateStarting,
	}
}

// transition advances the state machine. Backward or repeated transitions are
// ignored, so racing completers and stoppers cannot rewind an attempt.
func (a *attempt) transition(to attemptState) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if to <= a.state {
		return false
	}
	metricStateTransitions.WithLabelValues(a.state.String(), to.String()).Inc()
	a.state = to
	return true
}

func (a *attempt) currentState() attemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}
