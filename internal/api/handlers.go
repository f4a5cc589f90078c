package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dashvoice/dashvoice/internal/queue"
	"github.com/dashvoice/dashvoice/internal/storage"
	"github.com/dashvoice/dashvoice/internal/tts"
	"github.com/dashvoice/dashvoice/internal/wav"
)

// TTSRequest represents the request body for /tts and /tts_stream.
type TTSRequest struct {
	Text         string  `json:"text"`
	Model        string  `json:"model"`
	Voice        string  `json:"voice,omitempty"`
	LanguageType string  `json:"language_type,omitempty"`
	SampleRate   int     `json:"sample_rate,omitempty"`
	SpeechRate   float64 `json:"speech_rate,omitempty"`
	Volume       float64 `json:"volume,omitempty"`
	PitchRate    float64 `json:"pitch_rate,omitempty"`
	ReturnURL    bool    `json:"return_url,omitempty"`
}

// URLResponse is the response body for /tts when return_url is set.
type URLResponse struct {
	URL string `json:"url"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the response body for /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// decodeRequest parses and validates the request body shared by both
// synthesis endpoints. A nil return means an error response was written.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) *TTSRequest {
	var req TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("failed to decode tts request", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return nil
	}

	if req.Text == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return nil
	}
	if len(req.Text) > s.cfg.Server.MaxTextLength {
		s.logger.Warn("text exceeds max length", "length", len(req.Text), "max", s.cfg.Server.MaxTextLength)
		writeJSONError(w, http.StatusBadRequest, "text exceeds maximum length")
		return nil
	}
	if req.Model == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return nil
	}

	if req.Voice == "" {
		req.Voice = s.cfg.DashScope.DefaultVoice
	}
	return &req
}

// sessionParams maps a request onto session parameters. The audio format is
// fixed: raw PCM, mono, 16-bit, 24 kHz.
func sessionParams(req *TTSRequest) tts.SessionParams {
	params := tts.SessionParams{
		Voice:        req.Voice,
		Format:       "pcm",
		SampleRate:   wav.SampleRate,
		Mode:         "server_commit",
		LanguageType: req.LanguageType,
		SpeechRate:   req.SpeechRate,
		Volume:       req.Volume,
		PitchRate:    req.PitchRate,
	}
	if params.LanguageType == "" {
		params.LanguageType = "Auto"
	}
	return params
}

// driveSession runs the session lifecycle calls up to end-of-input.
func driveSession(sess Session, req *TTSRequest) error {
	if err := sess.UpdateSession(sessionParams(req)); err != nil {
		return err
	}
	if err := sess.AppendText(req.Text); err != nil {
		return err
	}
	return sess.Finish()
}

// handleTTS handles POST /tts requests: one blocking call that returns the
// complete audio artifact.
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	req := s.decodeRequest(w, r)
	if req == nil {
		return
	}

	s.logger.Info("received tts request", "voice", req.Voice, "model", req.Model, "text_length", len(req.Text))

	if req.ReturnURL && !s.cfg.Storage.EnableSave {
		s.logger.Warn("return_url requested while saving is disabled")
		writeJSONError(w, http.StatusBadRequest, "saving is disabled, cannot return URL")
		return
	}

	collector := tts.NewCollector()
	sess := s.sessions(req.Model, collector)
	defer sess.Close()

	ctx := r.Context()

	if err := sess.Dial(ctx); err != nil {
		s.logger.Error("failed to establish session", "error", err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := driveSession(sess, req); err != nil {
		s.logger.Error("failed to drive session", "error", err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !collector.AwaitCompletion(ctx, s.cfg.DashScope.SynthesisTimeout()) {
		if ctx.Err() != nil {
			// Client went away; the deferred Close tears the session down.
			s.logger.Info("client disconnected during synthesis")
			return
		}
		s.logger.Error("synthesis timed out", "timeout", s.cfg.DashScope.SynthesisTimeout())
		writeJSONError(w, http.StatusGatewayTimeout, "TTS synthesis timed out")
		return
	}

	if err := collector.Err(); err != nil {
		s.logger.Error("synthesis failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "TTS synthesis error: "+err.Error())
		return
	}

	audio := collector.Audio()
	if len(audio) == 0 {
		s.logger.Error("no audio data generated")
		writeJSONError(w, http.StatusInternalServerError, "no audio data generated")
		return
	}

	s.logger.Info("synthesis completed",
		"session_id", sess.SessionID(),
		"first_audio_delay_ms", sess.FirstAudioDelayMillis(),
		"audio_bytes", len(audio),
		"usage_characters", collector.UsageCharacters(),
	)

	wavData := wav.Wrap(audio)

	var fileURL string
	if s.cfg.Storage.EnableSave {
		url, err := s.store.Save(ctx, storage.ArtifactName(), wavData)
		if err != nil {
			s.logger.Error("failed to save artifact", "error", err)
			if req.ReturnURL {
				writeJSONError(w, http.StatusInternalServerError, "failed to save audio: "+err.Error())
				return
			}
		} else {
			fileURL = url
		}
	}

	w.Header().Set("X-Session-Id", sess.SessionID())
	w.Header().Set("X-First-Audio-Delay", strconv.FormatInt(sess.FirstAudioDelayMillis(), 10))
	w.Header().Set("X-Usage-Characters", strconv.Itoa(collector.UsageCharacters()))

	if req.ReturnURL {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(URLResponse{URL: fileURL})
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Write(wavData)
}

type streamAudioFrame struct {
	Audio string `json:"audio"`
	IsEnd bool   `json:"is_end"`
}

type streamErrorFrame struct {
	Error string `json:"error"`
}

type streamEndFrame struct {
	IsEnd           bool   `json:"is_end"`
	URL             string `json:"url,omitempty"`
	UsageCharacters string `json:"usage_characters"`
}

// handleTTSStream handles POST /tts_stream requests: one SSE frame per
// audio delta, closed by a terminal frame.
func (s *Server) handleTTSStream(w http.ResponseWriter, r *http.Request) {
	req := s.decodeRequest(w, r)
	if req == nil {
		return
	}

	s.logger.Info("received tts stream request", "voice", req.Voice, "model", req.Model, "text_length", len(req.Text))

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	relay := tts.NewRelay()
	sess := s.sessions(req.Model, relay)
	defer sess.Close()

	ctx := r.Context()

	// The response has begun transmitting, so from here on every failure
	// must surface as an in-stream error frame.
	if err := sess.Dial(ctx); err != nil {
		s.logger.Error("failed to establish session", "error", err)
		s.writeFrame(w, flusher, streamErrorFrame{Error: err.Error()})
		return
	}
	if err := driveSession(sess, req); err != nil {
		s.logger.Error("failed to drive session", "error", err)
		s.writeFrame(w, flusher, streamErrorFrame{Error: err.Error()})
		return
	}

	for {
		item, err := relay.Next(s.cfg.DashScope.StreamItemTimeout())
		if err != nil {
			if errors.Is(err, queue.ErrTimeout) {
				s.logger.Error("stream synthesis timed out waiting for audio")
				s.writeFrame(w, flusher, streamErrorFrame{Error: "Timeout waiting for audio"})
			}
			return
		}

		switch item.Kind {
		case tts.ItemAudio:
			if !s.writeFrame(w, flusher, streamAudioFrame{Audio: item.Audio, IsEnd: false}) {
				return
			}

		case tts.ItemError:
			if !s.writeFrame(w, flusher, streamErrorFrame{Error: item.Err}) {
				return
			}

		case tts.ItemEnd:
			frame := streamEndFrame{
				IsEnd:           true,
				UsageCharacters: strconv.Itoa(relay.UsageCharacters()),
			}
			if pcm := relay.PCM(); len(pcm) > 0 && s.cfg.Storage.EnableSave {
				url, err := s.store.Save(ctx, storage.ArtifactName(), wav.Wrap(pcm))
				if err != nil {
					s.logger.Error("failed to save stream artifact", "error", err)
				} else {
					frame.URL = url
					s.logger.Info("stream artifact saved", "url", url)
				}
			}
			s.writeFrame(w, flusher, frame)
			return
		}

		if ctx.Err() != nil {
			s.logger.Info("client disconnected during stream")
			return
		}
	}
}

// writeFrame emits one SSE data frame and reports whether the stream is
// still writable.
func (s *Server) writeFrame(w http.ResponseWriter, flusher http.Flusher, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal stream frame", "error", err)
		return false
	}
	if _, err := w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
		return false
	}
	flusher.Flush()
	return true
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
