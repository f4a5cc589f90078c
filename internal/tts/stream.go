package tts

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/dashvoice/dashvoice/internal/queue"
)

// ItemKind discriminates outbound stream items.
type ItemKind int

// Outbound item kinds. Every session produces exactly one ItemEnd and it is
// always the last item.
const (
	// ItemAudio carries one still-encoded audio delta for forwarding.
	ItemAudio ItemKind = iota
	// ItemError carries an error to report in-stream.
	ItemError
	// ItemEnd is the end-of-stream sentinel.
	ItemEnd
)

// Item is one outbound unit handed from the transport goroutine to the
// stream consumer.
type Item struct {
	Kind ItemKind

	// Audio is the base64-encoded delta for ItemAudio. The consumer forwards
	// it as received so clients decode the same bytes the service sent.
	Audio string

	// Err is the error description for ItemError.
	Err string

	// UsageCharacters is the billed character count, set on ItemEnd.
	UsageCharacters int
}

// Relay forwards session events onto an ordered hand-off queue consumed by
// the streaming response loop, and separately accumulates decoded audio for
// later persistence. Constructed fresh per session.
type Relay struct {
	q *queue.Queue[Item]

	mu       sync.Mutex
	buf      []byte
	usage    int
	terminal bool
}

// NewRelay creates an empty relay.
func NewRelay() *Relay {
	return &Relay{
		q: queue.New[Item](),
	}
}

// OnEvent implements Sink. Only the first terminal event is acted upon.
func (r *Relay) OnEvent(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.terminal {
		return
	}

	switch ev.Kind {
	case EventAudioDelta:
		if ev.Delta == "" {
			return
		}
		pcm, err := base64.StdEncoding.DecodeString(ev.Delta)
		if err != nil {
			r.failLocked(fmt.Sprintf("failed to decode audio delta: %v", err))
			return
		}
		r.buf = append(r.buf, pcm...)
		_ = r.q.Push(Item{Kind: ItemAudio, Audio: ev.Delta})

	case EventFinished:
		r.usage = ev.UsageCharacters
		r.endLocked()

	case EventError:
		r.failLocked(ev.Message)

	case EventClosed:
		r.endLocked()
	}
}

// failLocked pushes an error item followed by the sentinel.
func (r *Relay) failLocked(message string) {
	_ = r.q.Push(Item{Kind: ItemError, Err: message})
	r.endLocked()
}

// endLocked pushes the sentinel and closes the queue.
func (r *Relay) endLocked() {
	r.terminal = true
	_ = r.q.Push(Item{Kind: ItemEnd, UsageCharacters: r.usage})
	r.q.Close()
}

// Next returns the next outbound item, waiting up to timeout. It returns
// queue.ErrTimeout when the session stops emitting and queue.ErrClosed
// after the sentinel has been consumed.
func (r *Relay) Next(timeout time.Duration) (Item, error) {
	return r.q.Pop(timeout)
}

// PCM returns the decoded audio accumulated for persistence. Call only
// after the sentinel has been consumed.
func (r *Relay) PCM() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf
}

// UsageCharacters returns the billed character count reported on completion.
func (r *Relay) UsageCharacters() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usage
}
