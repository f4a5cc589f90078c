package tts

import "encoding/json"

// Wire message types exchanged with the realtime endpoint.
const (
	typeSessionUpdate  = "session.update"
	typeTextAppend     = "input_text_buffer.append"
	typeTextCommit     = "input_text_buffer.commit"
	typeSessionCreated = "session.created"
	typeSessionUpdated = "session.updated"
	typeAudioDelta     = "response.audio.delta"
	typeFinished       = "session.finished"
	typeError          = "error"
)

// SessionParams are the synthesis parameters applied to a session. The audio
// format is fixed to raw PCM, mono, 16-bit, 24 kHz for the session lifetime.
type SessionParams struct {
	Voice        string  `json:"voice"`
	Format       string  `json:"format"`
	SampleRate   int     `json:"sample_rate"`
	Mode         string  `json:"mode"`
	LanguageType string  `json:"language_type,omitempty"`
	SpeechRate   float64 `json:"speech_rate,omitempty"`
	Volume       float64 `json:"volume,omitempty"`
	PitchRate    float64 `json:"pitch_rate,omitempty"`
}

type sessionUpdateMessage struct {
	Type    string        `json:"type"`
	Session SessionParams `json:"session"`
}

type textAppendMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type textCommitMessage struct {
	Type string `json:"type"`
}

// serverMessage is the superset of fields the endpoint sends. Messages are
// narrowed into Events before leaving the session.
type serverMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Session   struct {
		ID string `json:"id"`
	} `json:"session"`
	Delta   string `json:"delta"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Usage   struct {
		Characters int `json:"characters"`
	} `json:"usage"`
}

func parseServerMessage(data []byte) (serverMessage, error) {
	var msg serverMessage
	err := json.Unmarshal(data, &msg)
	return msg, err
}

// EventKind discriminates session events.
type EventKind int

// Session event kinds. Exactly one terminal event (finished, error or
// closed) is acted upon per session.
const (
	// EventAudioDelta carries one base64-encoded chunk of synthesized audio.
	EventAudioDelta EventKind = iota
	// EventFinished signals normal completion.
	EventFinished
	// EventError signals a remote synthesis error.
	EventError
	// EventClosed signals that the transport closed.
	EventClosed
)

// Event is a session event delivered to a Sink in transport arrival order.
type Event struct {
	Kind EventKind

	// Delta is the base64-encoded audio chunk for EventAudioDelta.
	Delta string

	// Message is the error description for EventError.
	Message string

	// UsageCharacters is the billed character count, set on EventFinished.
	UsageCharacters int
}

// Sink receives session events pushed from the transport read loop.
// Implementations must not block and must tolerate events arriving after
// the first terminal event.
type Sink interface {
	OnEvent(Event)
}
