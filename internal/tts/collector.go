package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Collector accumulates all audio deltas of one session and lets a single
// caller block until the session reaches a terminal event. Constructed fresh
// per session.
type Collector struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	err      error
	usage    int
	terminal bool

	done chan struct{}
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		done: make(chan struct{}),
	}
}

// OnEvent implements Sink. Only the first terminal event is acted upon;
// anything after it is a no-op, since the transport may report a close
// after completion.
func (c *Collector) OnEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminal {
		return
	}

	switch ev.Kind {
	case EventAudioDelta:
		if ev.Delta == "" {
			return
		}
		pcm, err := base64.StdEncoding.DecodeString(ev.Delta)
		if err != nil {
			// A malformed payload must still unblock the waiter.
			c.err = fmt.Errorf("failed to decode audio delta: %w", err)
			c.finishLocked()
			return
		}
		c.buf.Write(pcm)

	case EventFinished:
		c.usage = ev.UsageCharacters
		c.finishLocked()

	case EventError:
		c.err = errors.New(ev.Message)
		c.finishLocked()

	case EventClosed:
		// A close without a prior terminal event counts as completion so
		// already-delivered audio is not masked.
		c.finishLocked()
	}
}

func (c *Collector) finishLocked() {
	c.terminal = true
	close(c.done)
}

// AwaitCompletion blocks until a terminal event is recorded, the timeout
// elapses or ctx is cancelled. It returns true only when the session
// reached a terminal event in time.
func (c *Collector) AwaitCompletion(ctx context.Context, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return true
	case <-timer.C:
	case <-ctx.Done():
	}

	// The select chooses randomly among ready cases; a terminal recorded
	// at the same instant must still count as completion.
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Audio returns the accumulated raw PCM. Call only after AwaitCompletion
// returned true.
func (c *Collector) Audio() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Bytes()
}

// Err returns the recorded error, if any. Only the earliest error is kept.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// UsageCharacters returns the billed character count reported on completion.
func (c *Collector) UsageCharacters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}
