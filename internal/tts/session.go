// Package tts bridges a realtime speech-synthesis session, whose events
// arrive asynchronously on a transport-owned goroutine, to blocking and
// streaming consumers.
package tts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// SessionConfig holds the connection settings for one synthesis session.
type SessionConfig struct {
	// URL is the websocket endpoint of the realtime service.
	URL string
	// APIKey authenticates the connection.
	APIKey string
	// Model is the synthesis model requested for this session.
	Model string
}

// Session is one isolated synthesis session. It is created per request and
// never reused. Events are delivered to the sink in arrival order by a read
// loop that runs until the transport closes.
type Session struct {
	cfg    SessionConfig
	sink   Sink
	logger *slog.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn

	closeOnce sync.Once

	mu              sync.Mutex
	sessionID       string
	inputSentAt     time.Time
	firstAudioDelay time.Duration
}

// NewSession creates a session that will deliver its events to sink.
func NewSession(cfg SessionConfig, sink Sink, logger *slog.Logger) *Session {
	return &Session{
		cfg:    cfg,
		sink:   sink,
		logger: logger.With("component", "tts-session"),
	}
}

// Dial establishes the websocket transport and starts the read loop.
// A failure here is fatal to the request; no partial session remains.
func (s *Session) Dial(ctx context.Context) error {
	endpoint, err := url.Parse(s.cfg.URL)
	if err != nil {
		return fmt.Errorf("invalid endpoint url: %w", err)
	}
	query := endpoint.Query()
	query.Set("model", s.cfg.Model)
	endpoint.RawQuery = query.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to connect: %w", err)
	}

	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()

	go s.readLoop(conn)

	s.logger.Debug("session connected", "endpoint", endpoint.Host, "model", s.cfg.Model)
	return nil
}

// UpdateSession applies voice and format parameters to the session.
func (s *Session) UpdateSession(params SessionParams) error {
	return s.writeJSON(sessionUpdateMessage{Type: typeSessionUpdate, Session: params})
}

// AppendText appends input text to the session buffer.
func (s *Session) AppendText(text string) error {
	s.mu.Lock()
	if s.inputSentAt.IsZero() {
		s.inputSentAt = time.Now()
	}
	s.mu.Unlock()

	return s.writeJSON(textAppendMessage{Type: typeTextAppend, Text: text})
}

// Finish signals end of input. Audio deltas may keep arriving until the
// service reports completion.
func (s *Session) Finish() error {
	return s.writeJSON(textCommitMessage{Type: typeTextCommit})
}

// Close releases the transport. It is safe to call on every exit path and
// more than once; the read loop observes the closed connection and delivers
// the transport-close event to the sink.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		conn := s.conn
		s.writeMu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
	})
}

// SessionID returns the identifier assigned by the remote side, or "" if
// none was observed.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// FirstAudioDelayMillis returns the latency between sending input and the
// first audio delta, in milliseconds. Zero if no audio arrived.
func (s *Session) FirstAudioDelayMillis() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstAudioDelay.Milliseconds()
}

func (s *Session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("session not connected")
	}
	return s.conn.WriteJSON(v)
}

// readLoop parses server messages into tagged events and pushes them to the
// sink. It owns event delivery; nothing else calls the sink. It exits when
// the transport closes, always delivering EventClosed last.
func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("transport closed", "error", err)
			s.sink.OnEvent(Event{Kind: EventClosed})
			return
		}

		msg, err := parseServerMessage(data)
		if err != nil {
			s.logger.Warn("failed to parse server message", "error", err)
			continue
		}

		switch msg.Type {
		case typeSessionCreated, typeSessionUpdated:
			id := msg.SessionID
			if id == "" {
				id = msg.Session.ID
			}
			s.mu.Lock()
			if s.sessionID == "" {
				s.sessionID = id
			}
			s.mu.Unlock()

		case typeAudioDelta:
			s.mu.Lock()
			if s.firstAudioDelay == 0 && !s.inputSentAt.IsZero() {
				s.firstAudioDelay = time.Since(s.inputSentAt)
			}
			s.mu.Unlock()
			s.sink.OnEvent(Event{Kind: EventAudioDelta, Delta: msg.Delta})

		case typeFinished:
			s.sink.OnEvent(Event{Kind: EventFinished, UsageCharacters: msg.Usage.Characters})

		case typeError:
			message := msg.Message
			if message == "" {
				message = "unknown error"
			}
			s.sink.OnEvent(Event{Kind: EventError, Message: message})

		default:
			// Lifecycle notifications we don't act on.
			s.logger.Debug("ignoring server message", "type", msg.Type)
		}
	}
}
