// Package vad defines local voice activity detection used to decide when the
// user has finished speaking.
package vad

import (
	"context"
	"time"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

// VADEventType represents the type of VAD event.
type VADEventType int

const (
	VADEventSpeechStart VADEventType = iota
	VADEventSpeechEnd
	VADEventError
)

func (t VADEventType) String() string {
	switch t {
	case VADEventSpeechStart:
		return "speech_start"
	case VADEventSpeechEnd:
		return "speech_end"
	case VADEventError:
		return "error"
	default:
		return "unknown"
	}
}

// VADEvent represents a voice activity detection event.
type VADEvent struct {
	Type      VADEventType
	Timestamp time.Time

	// Probability is the speech probability of the frame that triggered the
	// event, when the detector computes one.
	Probability float32
	Error       error
}

// VADCapabilities describes the capabilities of a VAD provider.
type VADCapabilities struct {
	// SampleRates lists accepted input rates, preferred first.
	SampleRates        []int
	MinSpeechDuration  time.Duration
	MinSilenceDuration time.Duration
	Sensitivity        float32 // 0.0 to 1.0
}

// VAD is the main interface for voice activity detection providers.
type VAD interface {
	// Detect processes audio frames and returns VAD events.
	// The returned channel will be closed when the input channel is closed or context is cancelled.
	Detect(ctx context.Context, frames <-chan rtc.AudioFrame) (<-chan VADEvent, error)

	// Capabilities returns the provider's capabilities.
	Capabilities() VADCapabilities
}

// PreferredSampleRate returns the first rate the provider accepts, or 16 kHz.
func PreferredSampleRate(v VAD) int {
	if rates := v.Capabilities().SampleRates; len(rates) > 0 {
		return rates[0]
	}
	return 16000
}
