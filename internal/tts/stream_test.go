package tts

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/dashvoice/dashvoice/internal/queue"
)

func TestRelay_ForwardsItemsInOrder(t *testing.T) {
	r := NewRelay()

	chunks := [][]byte{
		{0x01, 0x02},
		{0x03, 0x04},
	}
	for _, chunk := range chunks {
		r.OnEvent(Event{Kind: EventAudioDelta, Delta: b64(chunk)})
	}
	r.OnEvent(Event{Kind: EventFinished, UsageCharacters: 11})

	for i, chunk := range chunks {
		item, err := r.Next(testTimeout)
		if err != nil {
			t.Fatalf("Next() error at item %d: %v", i, err)
		}
		if item.Kind != ItemAudio {
			t.Fatalf("item %d kind = %v, want ItemAudio", i, item.Kind)
		}
		if item.Audio != b64(chunk) {
			t.Errorf("item %d audio = %q, want %q (original encoded form)", i, item.Audio, b64(chunk))
		}
	}

	item, err := r.Next(testTimeout)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if item.Kind != ItemEnd {
		t.Fatalf("final item kind = %v, want ItemEnd", item.Kind)
	}
	if item.UsageCharacters != 11 {
		t.Errorf("UsageCharacters = %d, want 11", item.UsageCharacters)
	}

	// The sentinel is the last item.
	if _, err := r.Next(10 * time.Millisecond); !errors.Is(err, queue.ErrClosed) {
		t.Errorf("Next() after sentinel = %v, want ErrClosed", err)
	}

	want := []byte{0x01, 0x02, 0x03, 0x04}
	if !bytes.Equal(r.PCM(), want) {
		t.Errorf("PCM() = %v, want %v", r.PCM(), want)
	}
}

func TestRelay_ErrorThenSentinel(t *testing.T) {
	r := NewRelay()

	r.OnEvent(Event{Kind: EventError, Message: "quota exceeded"})

	item, err := r.Next(testTimeout)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if item.Kind != ItemError || item.Err != "quota exceeded" {
		t.Fatalf("got %+v, want error item with message", item)
	}

	item, err = r.Next(testTimeout)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if item.Kind != ItemEnd {
		t.Errorf("kind = %v, want ItemEnd after error", item.Kind)
	}
}

func TestRelay_MalformedDeltaEmitsError(t *testing.T) {
	r := NewRelay()

	r.OnEvent(Event{Kind: EventAudioDelta, Delta: "!!!"})

	item, err := r.Next(testTimeout)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if item.Kind != ItemError {
		t.Fatalf("kind = %v, want ItemError", item.Kind)
	}

	item, err = r.Next(testTimeout)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if item.Kind != ItemEnd {
		t.Errorf("kind = %v, want ItemEnd", item.Kind)
	}
}

func TestRelay_SkipsEmptyDelta(t *testing.T) {
	r := NewRelay()

	r.OnEvent(Event{Kind: EventAudioDelta, Delta: ""})
	r.OnEvent(Event{Kind: EventAudioDelta, Delta: b64([]byte{0x01})})
	r.OnEvent(Event{Kind: EventFinished})

	item, err := r.Next(testTimeout)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if item.Kind != ItemAudio || item.Audio != b64([]byte{0x01}) {
		t.Fatalf("got %+v, want the non-empty audio item first", item)
	}

	item, err = r.Next(testTimeout)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if item.Kind != ItemEnd {
		t.Errorf("kind = %v, want ItemEnd (empty delta produces no item)", item.Kind)
	}
}

func TestRelay_EventsAfterTerminalIgnored(t *testing.T) {
	r := NewRelay()

	r.OnEvent(Event{Kind: EventFinished, UsageCharacters: 7})
	r.OnEvent(Event{Kind: EventAudioDelta, Delta: b64([]byte{0x01})})
	r.OnEvent(Event{Kind: EventError, Message: "late error"})
	r.OnEvent(Event{Kind: EventClosed})

	item, err := r.Next(testTimeout)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if item.Kind != ItemEnd {
		t.Fatalf("kind = %v, want ItemEnd", item.Kind)
	}

	if _, err := r.Next(10 * time.Millisecond); !errors.Is(err, queue.ErrClosed) {
		t.Errorf("Next() = %v, want ErrClosed (exactly one sentinel)", err)
	}
	if len(r.PCM()) != 0 {
		t.Errorf("PCM() = %v, want empty", r.PCM())
	}
}

func TestRelay_NextTimesOutWhenSessionStalls(t *testing.T) {
	r := NewRelay()

	r.OnEvent(Event{Kind: EventAudioDelta, Delta: b64([]byte{0x01})})

	if _, err := r.Next(testTimeout); err != nil {
		t.Fatalf("Next() error: %v", err)
	}

	// No terminal event ever arrives; the consumer must not block forever.
	_, err := r.Next(50 * time.Millisecond)
	if !errors.Is(err, queue.ErrTimeout) {
		t.Errorf("Next() = %v, want ErrTimeout", err)
	}
}

func TestRelay_CloseCarriesRecordedUsage(t *testing.T) {
	r := NewRelay()

	r.OnEvent(Event{Kind: EventAudioDelta, Delta: b64([]byte{0x01})})
	r.OnEvent(Event{Kind: EventClosed})

	if _, err := r.Next(testTimeout); err != nil {
		t.Fatalf("Next() error: %v", err)
	}

	item, err := r.Next(testTimeout)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if item.Kind != ItemEnd {
		t.Fatalf("kind = %v, want ItemEnd on transport close", item.Kind)
	}
}
