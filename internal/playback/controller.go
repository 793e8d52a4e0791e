// Package playback enforces the process-wide single-flight playback
// invariant: at most one render is current at any instant, and starting a new
// one supersedes whatever was playing.
package playback

import (
	"context"
	"errors"
	"log"
	"sync"

	"luna/backend/internal/audio"
)

// Controller owns the single "current playback" slot. All sessions share one
// controller because only one audio output device is driven.
type Controller struct {
	player audio.Player

	mu      sync.Mutex
	current *attempt
	gen     uint64
}

func New(player audio.Player) *Controller {
	return &Controller{player: player}
}

// Play renders the file at path, superseding any playback already in flight.
// It blocks until the render completes or is cancelled; cancellation (by a
// later Play, by Stop, or by ctx) returns context.Canceled.
func (c *Controller) Play(ctx context.Context, path string) error {
	playCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	// Re-check after every wait: a racing Play may have claimed the slot
	// while we were letting the previous attempt wind down.
	for c.current != nil {
		prev := c.current
		prev.transition(stateStopping)
		prev.cancel()
		if err := c.player.Stop(); err != nil {
			log.Printf("[playback] stop superseded render: %v", err)
		}
		metricSupersedes.Inc()
		c.mu.Unlock()
		// Let the superseded attempt release the backend before starting.
		<-prev.done
		c.mu.Lock()
	}
	c.gen++
	a := newAttempt(c.gen, cancel)
	c.current = a
	c.mu.Unlock()

	metricStarts.Inc()
	a.transition(stateRunning)

	err := c.player.Play(playCtx, path)

	a.transition(stateStopping)
	a.transition(stateStopped)
	close(a.done)

	// Clear the slot only if it is still ours: a superseding Play may have
	// replaced it already, and we must not tear down the newcomer's handle.
	c.mu.Lock()
	if c.current == a {
		c.current = nil
	}
	c.mu.Unlock()

	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	return err
}

// Stop halts the current playback, if any. It is idempotent and always
// succeeds from the caller's point of view: termination errors are logged and
// swallowed, because all the client cares about is that nothing is audibly
// playing afterward.
func (c *Controller) Stop() error {
	c.mu.Lock()
	a := c.current
	c.current = nil
	c.mu.Unlock()

	if a == nil {
		return nil
	}

	metricStops.Inc()
	a.transition(stateStopping)
	if err := c.player.Stop(); err != nil {
		log.Printf("[playback] stop render: %v", err)
	}
	a.cancel()
	return nil
}

// Active reports whether a playback is currently in flight.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}
