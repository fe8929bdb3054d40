// Package realtime defines speech-to-speech models that take microphone audio
// and stream back synthesized replies over a single session.
package realtime

import (
	"context"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai"
)

// Re-exported so providers only need this package.
var (
	ErrRecoverable = ai.ErrRecoverable
	ErrFatal       = ai.ErrFatal
)

// EventType identifies a server-side session event.
type EventType string

const (
	EventSessionReady    EventType = "session_ready"
	EventAudioDelta      EventType = "audio_delta"
	EventTranscriptDelta EventType = "transcript_delta"
	EventResponseDone    EventType = "response_done"
	EventSpeechStarted   EventType = "speech_started"
	EventSpeechStopped   EventType = "speech_stopped"
	EventError           EventType = "error"
)

// Event is emitted by a Session. Audio carries 16-bit mono PCM at the
// model's sample rate.
type Event struct {
	Type       EventType
	ResponseID string
	Audio      []byte
	Text       string
	Err        error
}

// TurnDetection selects who decides that the user finished speaking.
type TurnDetection int

const (
	// TurnDetectionServer lets the model segment turns and answer on its own.
	TurnDetectionServer TurnDetection = iota
	// TurnDetectionManual disables model-side turn detection; the caller
	// commits audio and requests responses.
	TurnDetectionManual
)

// SessionConfig is applied when a session is opened.
type SessionConfig struct {
	Instructions  string
	TurnDetection TurnDetection
}

// Capabilities describes a model's audio format.
type Capabilities struct {
	SampleRate  int
	NumChannels int
	Voice       string
}

// Model opens realtime sessions.
type Model interface {
	Connect(ctx context.Context, cfg SessionConfig) (Session, error)
	Capabilities() Capabilities
}

// Session is one live conversation with a model.
type Session interface {
	// PushAudio appends microphone PCM to the model's input buffer.
	PushAudio(pcm []byte) error
	// CommitAudio closes the current user turn.
	CommitAudio() error
	// ClearAudio drops uncommitted input audio.
	ClearAudio() error
	// CreateResponse asks the model to speak. Non-empty instructions apply
	// to this response only.
	CreateResponse(ctx context.Context, instructions string) error
	// CancelResponse interrupts the response in progress, if any.
	CancelResponse() error
	// Events is closed when the session ends.
	Events() <-chan Event
	Close() error
}
