package audio

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// CommandPlayer renders audio by spawning an external player process
// (afplay on macOS, aplay on Linux) and waiting for it to exit. The command
// string may carry extra flags; the file path is appended as the last
// argument.
type CommandPlayer struct {
	name      string
	args      []string
	stopGrace time.Duration

	mu  sync.Mutex
	cmd *exec.Cmd
}

func NewCommandPlayer(command string, stopGrace time.Duration) *CommandPlayer {
	if stopGrace <= 0 {
		stopGrace = 200 * time.Millisecond
	}
	parts := strings.Fields(command)
	return &CommandPlayer{name: parts[0], args: parts[1:], stopGrace: stopGrace}
}

// Play spawns the player process and blocks until it exits or ctx is
// cancelled. On cancellation it sends SIGTERM, waits stopGrace, then SIGKILLs.
func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("audio file %s does not exist: %w", path, err)
	}

	cmd := exec.Command(p.name, append(append([]string{}, p.args...), path)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.name, err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	defer func() {
		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
		}
		p.mu.Unlock()
	}()

	select {
	case err := <-waitCh:
		if ctx.Err() != nil {
			// Stop() or supersession killed the process while we were
			// waiting; report cancellation, not the exit status.
			return ctx.Err()
		}
		if err != nil {
			return fmt.Errorf("%s exited: %w", p.name, err)
		}
		return nil
	case <-ctx.Done():
		p.terminate(cmd, waitCh)
		return ctx.Err()
	}
}

// Stop kills whatever process is currently rendering. No-op when idle.
func (p *CommandPlayer) Stop() error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && err != os.ErrProcessDone {
		return fmt.Errorf("kill %s: %w", p.name, err)
	}
	return nil
}

// terminate escalates SIGTERM -> SIGKILL with a bounded grace period, then
// reaps the process so Play never leaves a zombie behind.
func (p *CommandPlayer) terminate(cmd *exec.Cmd, waitCh <-chan error) {
	if cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && err != os.ErrProcessDone {
		log.Printf("[audio] terminate %s: %v", p.name, err)
	}
	select {
	case <-waitCh:
		return
	case <-time.After(p.stopGrace):
	}
	if err := cmd.Process.Kill(); err != nil && err != os.ErrProcessDone {
		log.Printf("[audio] kill %s: %v", p.name, err)
	}
	<-waitCh
}
