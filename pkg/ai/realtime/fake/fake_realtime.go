// Package fake provides an in-memory realtime model that answers every
// response request with a short tone.
package fake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/realtime"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

const (
	SampleRate = 24000
	// ReplyFrames is the length of each scripted reply in 10 ms frames.
	ReplyFrames = 20
)

var errClosed = errors.New("fake realtime session closed")

// Model is a fake realtime.Model. Sessions it opens are kept for inspection.
type Model struct {
	Voice string

	mu       sync.Mutex
	sessions []*Session
}

func NewModel(voice string) *Model {
	return &Model{Voice: voice}
}

func (m *Model) Connect(ctx context.Context, cfg realtime.SessionConfig) (realtime.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &Session{
		Config: cfg,
		events: make(chan realtime.Event, 256),
	}
	s.emit(realtime.Event{Type: realtime.EventSessionReady})

	m.mu.Lock()
	m.sessions = append(m.sessions, s)
	m.mu.Unlock()
	return s, nil
}

func (m *Model) Capabilities() realtime.Capabilities {
	return realtime.Capabilities{SampleRate: SampleRate, NumChannels: 1, Voice: m.Voice}
}

// Sessions returns every session opened so far.
func (m *Model) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Session(nil), m.sessions...)
}

// Session records calls and emits a tone reply per CreateResponse.
type Session struct {
	Config realtime.SessionConfig

	mu           sync.Mutex
	closed       bool
	pushedBytes  int
	commits      int
	clears       int
	cancels      int
	instructions []string
	responses    int
	events       chan realtime.Event
}

func (s *Session) PushAudio(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	s.pushedBytes += len(pcm)
	return nil
}

func (s *Session) CommitAudio() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	s.commits++
	return nil
}

func (s *Session) ClearAudio() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	return nil
}

func (s *Session) CreateResponse(ctx context.Context, instructions string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errClosed
	}
	s.responses++
	id := fmt.Sprintf("resp_%d", s.responses)
	s.instructions = append(s.instructions, instructions)
	s.mu.Unlock()

	tone := make([]int16, SampleRate/100)
	for i := range tone {
		if i%20 < 10 {
			tone[i] = 3000
		} else {
			tone[i] = -3000
		}
	}
	chunk := rtc.SamplesToBytes(tone)
	for i := 0; i < ReplyFrames; i++ {
		s.emit(realtime.Event{Type: realtime.EventAudioDelta, ResponseID: id, Audio: chunk})
	}
	s.emit(realtime.Event{Type: realtime.EventTranscriptDelta, ResponseID: id, Text: instructions})
	s.emit(realtime.Event{Type: realtime.EventResponseDone, ResponseID: id})
	return nil
}

func (s *Session) CancelResponse() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
	return nil
}

func (s *Session) Events() <-chan realtime.Event {
	return s.events
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}

// SimulateSpeech emits a server-side speech start event.
func (s *Session) SimulateSpeech() {
	s.emit(realtime.Event{Type: realtime.EventSpeechStarted})
}

func (s *Session) emit(ev realtime.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

// Stats is a snapshot of the calls a Session received.
type Stats struct {
	PushedBytes  int
	Commits      int
	Clears       int
	Cancels      int
	Responses    int
	Instructions []string
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		PushedBytes:  s.pushedBytes,
		Commits:      s.commits,
		Clears:       s.clears,
		Cancels:      s.cancels,
		Responses:    s.responses,
		Instructions: append([]string(nil), s.instructions...),
	}
}
