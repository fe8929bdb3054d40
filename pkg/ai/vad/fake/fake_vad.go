// Package fake provides a deterministic VAD for tests and dev mode.
package fake

import (
	"context"
	"time"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/vad"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

const (
	// DefaultStartFrames is how many consecutive loud frames open a speech segment.
	DefaultStartFrames = 3
	// DefaultEndFrames is how many consecutive quiet frames close it.
	DefaultEndFrames = 10
	// DefaultAmplitude is the peak sample magnitude treated as speech.
	DefaultAmplitude = 500
)

// FakeVAD reports speech whenever a frame's peak amplitude crosses a fixed
// level. Silence (all-zero frames) never triggers it.
type FakeVAD struct {
	amplitude   int16
	startFrames int
	endFrames   int
}

// NewFakeVAD returns a FakeVAD with default hysteresis.
func NewFakeVAD() *FakeVAD {
	return &FakeVAD{
		amplitude:   DefaultAmplitude,
		startFrames: DefaultStartFrames,
		endFrames:   DefaultEndFrames,
	}
}

// WithHysteresis overrides the frame counts needed to open and close speech.
func (f *FakeVAD) WithHysteresis(start, end int) *FakeVAD {
	if start > 0 {
		f.startFrames = start
	}
	if end > 0 {
		f.endFrames = end
	}
	return f
}

func (f *FakeVAD) Detect(ctx context.Context, frames <-chan rtc.AudioFrame) (<-chan vad.VADEvent, error) {
	out := make(chan vad.VADEvent, 10)

	go func() {
		defer close(out)

		send := func(t vad.VADEventType) bool {
			select {
			case out <- vad.VADEvent{Type: t, Timestamp: time.Now()}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		speaking := false
		loud, quiet := 0, 0
		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-frames:
				if !ok {
					if speaking {
						send(vad.VADEventSpeechEnd)
					}
					return
				}

				if peak(frame.Data) >= f.amplitude {
					loud++
					quiet = 0
				} else {
					quiet++
					loud = 0
				}

				switch {
				case !speaking && loud >= f.startFrames:
					speaking = true
					if !send(vad.VADEventSpeechStart) {
						return
					}
				case speaking && quiet >= f.endFrames:
					speaking = false
					if !send(vad.VADEventSpeechEnd) {
						return
					}
				}
			}
		}
	}()

	return out, nil
}

func (f *FakeVAD) Capabilities() vad.VADCapabilities {
	return vad.VADCapabilities{
		SampleRates:        []int{16000, 24000, 48000},
		MinSpeechDuration:  time.Duration(f.startFrames) * 10 * time.Millisecond,
		MinSilenceDuration: time.Duration(f.endFrames) * 10 * time.Millisecond,
		Sensitivity:        0.5,
	}
}

func peak(data []byte) int16 {
	var p int16
	for _, s := range rtc.BytesToSamples(data) {
		if s < 0 {
			s = -s
		}
		if s > p {
			p = s
		}
	}
	return p
}
