// Package voice runs a conversational agent over a realtime speech model:
// microphone audio in, synthesized speech out to a pluggable AudioOutput.
package voice

import (
	"context"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

// Agent is the persona a Session runs.
type Agent struct {
	// Instructions is the system prompt given to the model.
	Instructions string
}

// NewAgent returns an Agent with the given instructions.
func NewAgent(instructions string) *Agent {
	return &Agent{Instructions: instructions}
}

// Room is the part of a joined room a Session needs.
type Room interface {
	Name() string
	LocalIdentity() string
	// AudioFrames yields remote microphone audio. It may be nil.
	AudioFrames() <-chan rtc.AudioFrame
}

// AudioOutput receives the agent's synthesized speech.
type AudioOutput interface {
	// CaptureFrame queues one frame for playback.
	CaptureFrame(ctx context.Context, frame rtc.AudioFrame) error
	// Flush marks the end of the current utterance.
	Flush()
	// ClearBuffer drops queued audio after an interruption.
	ClearBuffer()
}

// discardOutput is used until an output is attached.
type discardOutput struct{}

func (discardOutput) CaptureFrame(context.Context, rtc.AudioFrame) error { return nil }
func (discardOutput) Flush()                                             {}
func (discardOutput) ClearBuffer()                                       {}
