package silero

import (
	"context"
	"math"
	"time"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/vad"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

// windowSamples is the Silero v5 window at 16 kHz (32 ms).
const windowSamples = 512

// scorer scores one window of normalized samples.
type scorer interface {
	Probability(window []float32) (float32, error)
	Close()
}

// energyScorer maps RMS level to a pseudo-probability. It stands in for the
// model when onnxruntime is unavailable.
type energyScorer struct{}

func (energyScorer) Probability(window []float32) (float32, error) {
	if len(window) == 0 {
		return 0, nil
	}
	var sum float64
	for _, s := range window {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(window)))
	// -40 dBFS maps to 0.5.
	p := rms / 0.02 * 0.5
	if p > 1 {
		p = 1
	}
	return float32(p), nil
}

func (energyScorer) Close() {}

// detectLoop windows frames at 16 kHz, scores each window and emits
// segmenter transitions until frames closes or ctx ends.
func detectLoop(ctx context.Context, frames <-chan rtc.AudioFrame, events chan<- vad.VADEvent, p scorer, seg *segmenter) {
	defer p.Close()

	window := make([]float32, 0, windowSamples)
	windowDur := time.Duration(windowSamples) * time.Second / DefaultSampleRate

	send := func(ev vad.VADEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				if seg.finish() {
					send(vad.VADEvent{Type: vad.VADEventSpeechEnd, Timestamp: time.Now()})
				}
				return
			}

			frame = rtc.ResampleFrame(frame, DefaultSampleRate)
			for _, s := range monoSamples(frame) {
				window = append(window, float32(s)/32768)
				if len(window) < windowSamples {
					continue
				}

				prob, err := p.Probability(window)
				window = window[:0]
				if err != nil {
					if !send(vad.VADEvent{Type: vad.VADEventError, Timestamp: time.Now(), Error: err}) {
						return
					}
					continue
				}
				if t, ok := seg.push(prob, windowDur); ok {
					if !send(vad.VADEvent{Type: t, Timestamp: time.Now(), Probability: prob}) {
						return
					}
				}
			}
		}
	}
}

// monoSamples keeps the first channel of interleaved audio.
func monoSamples(f rtc.AudioFrame) []int16 {
	samples := f.Samples()
	if f.NumChannels <= 1 {
		return samples
	}
	out := make([]int16, 0, len(samples)/f.NumChannels)
	for i := 0; i < len(samples); i += f.NumChannels {
		out = append(out, samples[i])
	}
	return out
}
