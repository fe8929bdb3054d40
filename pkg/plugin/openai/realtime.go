// Package openai provides the OpenAI Realtime API as a realtime.Model: a
// websocket session that takes PCM16 microphone audio and streams back
// synthesized speech.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/realtime"
)

const (
	DefaultModel       = "gpt-4o-realtime-preview"
	DefaultVoice       = "alloy"
	DefaultRealtimeURL = "wss://api.openai.com/v1/realtime"
	DefaultTemperature = 0.8

	// SampleRate is fixed by the pcm16 format.
	SampleRate = 24000

	writeTimeout = 10 * time.Second
)

// RealtimeConfig configures a RealtimeModel.
type RealtimeConfig struct {
	APIKey      string
	Model       string
	Voice       string
	Temperature float64

	// URL is the websocket endpoint, without the model query parameter.
	URL string

	Retry  ai.RetryConfig
	Logger *slog.Logger
}

// RealtimeModel dials one websocket per session.
type RealtimeModel struct {
	cfg    RealtimeConfig
	logger *slog.Logger
}

func NewRealtimeModel(cfg RealtimeConfig) (*RealtimeModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required: %w", ai.ErrFatal)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.URL == "" {
		cfg.URL = DefaultRealtimeURL
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialDelay == 0 {
		cfg.Retry = ai.DefaultRetryConfig
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RealtimeModel{
		cfg:    cfg,
		logger: logger.With(slog.String("provider", "openai_realtime"), slog.String("model", cfg.Model)),
	}, nil
}

func (m *RealtimeModel) Capabilities() realtime.Capabilities {
	return realtime.Capabilities{SampleRate: SampleRate, NumChannels: 1, Voice: m.cfg.Voice}
}

// Connect dials the API, retrying recoverable failures, and applies cfg with
// session.update.
func (m *RealtimeModel) Connect(ctx context.Context, cfg realtime.SessionConfig) (realtime.Session, error) {
	conn, err := ai.Retry(ctx, m.cfg.Retry, m.logger, "realtime dial", m.dial)
	if err != nil {
		return nil, err
	}

	s := &realtimeSession{
		conn:   conn,
		logger: m.logger,
		events: make(chan realtime.Event, 256),
		done:   make(chan struct{}),
	}

	update := sessionUpdate{
		Type:    "session.update",
		EventID: newEventID(),
		Session: sessionParams{
			Modalities:        []string{"audio", "text"},
			Instructions:      cfg.Instructions,
			Voice:             m.cfg.Voice,
			InputAudioFormat:  "pcm16",
			OutputAudioFormat: "pcm16",
			Temperature:       m.cfg.Temperature,
		},
	}
	if cfg.TurnDetection == realtime.TurnDetectionServer {
		update.Session.TurnDetection = &turnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMs:   300,
			SilenceDurationMs: 500,
		}
	}
	if err := s.send(update); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("configure realtime session: %w", err)
	}

	go s.readLoop()

	m.logger.Info("Realtime session connected", slog.String("voice", m.cfg.Voice))
	return s, nil
}

func (m *RealtimeModel) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(m.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime URL: %w", ai.ErrFatal)
	}
	q := u.Query()
	q.Set("model", m.cfg.Model)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, ai.NewFatalError(err, fmt.Sprintf("realtime handshake rejected: HTTP %d", resp.StatusCode))
		}
		return nil, ai.NewRecoverableError(err, "realtime dial failed: "+err.Error())
	}
	return conn, nil
}

// RealtimeURL derives the websocket endpoint from an HTTP API base URL such
// as https://api.openai.com/v1.
func RealtimeURL(baseURL string) string {
	if baseURL == "" {
		return DefaultRealtimeURL
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return DefaultRealtimeURL
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path += "/realtime"
	return u.String()
}

type realtimeSession struct {
	conn   *websocket.Conn
	logger *slog.Logger
	events chan realtime.Event

	writeMu sync.Mutex

	mu         sync.Mutex
	responding bool

	closeOnce sync.Once
	done      chan struct{}
}

func (s *realtimeSession) PushAudio(pcm []byte) error {
	return s.send(clientEvent{
		Type:    "input_audio_buffer.append",
		EventID: newEventID(),
		Audio:   base64.StdEncoding.EncodeToString(pcm),
	})
}

func (s *realtimeSession) CommitAudio() error {
	return s.send(clientEvent{Type: "input_audio_buffer.commit", EventID: newEventID()})
}

func (s *realtimeSession) ClearAudio() error {
	return s.send(clientEvent{Type: "input_audio_buffer.clear", EventID: newEventID()})
}

func (s *realtimeSession) CreateResponse(ctx context.Context, instructions string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev := clientEvent{Type: "response.create", EventID: newEventID()}
	if instructions != "" {
		ev.Response = &responseParams{Instructions: instructions}
	}
	return s.send(ev)
}

// CancelResponse is a no-op when no response is in flight; the API rejects
// cancels without one.
func (s *realtimeSession) CancelResponse() error {
	s.mu.Lock()
	active := s.responding
	s.mu.Unlock()
	if !active {
		return nil
	}
	return s.send(clientEvent{Type: "response.cancel", EventID: newEventID()})
}

func (s *realtimeSession) Events() <-chan realtime.Event {
	return s.events
}

func (s *realtimeSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *realtimeSession) send(v any) error {
	select {
	case <-s.done:
		return errors.New("realtime session closed")
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(v); err != nil {
		return ai.NewRecoverableError(err, "realtime write failed: "+err.Error())
	}
	return nil
}

func (s *realtimeSession) readLoop() {
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Warn("Realtime connection lost", slog.String("error", err.Error()))
				s.emit(realtime.Event{Type: realtime.EventError, Err: ai.NewRecoverableError(err, "realtime connection lost")})
			}
			return
		}

		var ev serverEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Debug("Ignoring malformed realtime event", slog.String("error", err.Error()))
			continue
		}
		if out, ok := s.translate(ev); ok {
			if !s.emit(out) {
				return
			}
		}
	}
}

func (s *realtimeSession) translate(ev serverEvent) (realtime.Event, bool) {
	switch ev.Type {
	case "session.created", "session.updated":
		return realtime.Event{Type: realtime.EventSessionReady}, true

	case "response.created":
		s.setResponding(true)
		return realtime.Event{}, false

	case "response.audio.delta":
		s.setResponding(true)
		pcm, err := base64.StdEncoding.DecodeString(ev.Delta)
		if err != nil {
			s.logger.Debug("Dropping undecodable audio delta", slog.String("error", err.Error()))
			return realtime.Event{}, false
		}
		return realtime.Event{Type: realtime.EventAudioDelta, ResponseID: ev.ResponseID, Audio: pcm}, true

	case "response.audio_transcript.delta":
		return realtime.Event{Type: realtime.EventTranscriptDelta, ResponseID: ev.ResponseID, Text: ev.Delta}, true

	case "response.done":
		s.setResponding(false)
		id := ev.ResponseID
		if ev.Response != nil {
			id = ev.Response.ID
		}
		return realtime.Event{Type: realtime.EventResponseDone, ResponseID: id}, true

	case "input_audio_buffer.speech_started":
		return realtime.Event{Type: realtime.EventSpeechStarted}, true

	case "input_audio_buffer.speech_stopped":
		return realtime.Event{Type: realtime.EventSpeechStopped}, true

	case "error":
		msg := "unknown realtime error"
		if ev.Error != nil && ev.Error.Message != "" {
			msg = ev.Error.Message
		}
		return realtime.Event{Type: realtime.EventError, Err: errors.New(msg)}, true
	}
	return realtime.Event{}, false
}

func (s *realtimeSession) setResponding(v bool) {
	s.mu.Lock()
	s.responding = v
	s.mu.Unlock()
}

func (s *realtimeSession) emit(ev realtime.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func newEventID() string {
	return "event_" + uuid.NewString()
}

type sessionUpdate struct {
	Type    string        `json:"type"`
	EventID string        `json:"event_id"`
	Session sessionParams `json:"session"`
}

type sessionParams struct {
	Modalities        []string `json:"modalities"`
	Instructions      string   `json:"instructions"`
	Voice             string   `json:"voice"`
	InputAudioFormat  string   `json:"input_audio_format"`
	OutputAudioFormat string   `json:"output_audio_format"`
	Temperature       float64  `json:"temperature"`
	// A nil TurnDetection is sent as null, which disables server VAD.
	TurnDetection *turnDetection `json:"turn_detection"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

type clientEvent struct {
	Type     string          `json:"type"`
	EventID  string          `json:"event_id"`
	Audio    string          `json:"audio,omitempty"`
	Response *responseParams `json:"response,omitempty"`
}

type responseParams struct {
	Instructions string `json:"instructions,omitempty"`
}

type serverEvent struct {
	Type       string `json:"type"`
	EventID    string `json:"event_id"`
	ResponseID string `json:"response_id"`
	Delta      string `json:"delta"`
	Response   *struct {
		ID string `json:"id"`
	} `json:"response"`
	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
