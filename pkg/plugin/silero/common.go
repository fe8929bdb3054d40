// Package silero provides voice activity detection with the Silero ONNX
// model. Inference needs the silero build tag and a local onnxruntime; the
// model downloader works in every build.
package silero

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/vad"
)

const (
	ModelFileName = "silero_vad.onnx"
	ModelURL      = "https://github.com/snakers4/silero-vad/raw/master/src/silero_vad/data/silero_vad.onnx"

	DefaultThreshold          = 0.5
	DefaultSampleRate         = 16000
	DefaultMinSpeechDuration  = 100 * time.Millisecond
	DefaultMinSilenceDuration = 500 * time.Millisecond
)

// DefaultModelDir is $LK_MODEL_PATH, else ~/.livekit/models.
func DefaultModelDir() string {
	if dir := os.Getenv("LK_MODEL_PATH"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".livekit", "models")
}

// DefaultModelPath is the model file inside DefaultModelDir.
func DefaultModelPath() string {
	return filepath.Join(DefaultModelDir(), ModelFileName)
}

// segmenter turns per-window speech probabilities into start/end events.
// Speech opens after minSpeech of consecutive windows above threshold and
// closes after minSilence of consecutive windows below threshold-0.15.
type segmenter struct {
	threshold  float32
	minSpeech  time.Duration
	minSilence time.Duration

	speaking bool
	above    time.Duration
	below    time.Duration
}

func newSegmenter(threshold float32, minSpeech, minSilence time.Duration) *segmenter {
	return &segmenter{threshold: threshold, minSpeech: minSpeech, minSilence: minSilence}
}

// push records one window and reports an event when the state flips.
func (s *segmenter) push(prob float32, window time.Duration) (vad.VADEventType, bool) {
	negative := s.threshold - 0.15
	switch {
	case prob >= s.threshold:
		s.above += window
		s.below = 0
	case prob < negative:
		s.below += window
		s.above = 0
	default:
		// Hysteresis band: neither counter advances.
	}

	if !s.speaking && s.above >= s.minSpeech {
		s.speaking = true
		s.below = 0
		return vad.VADEventSpeechStart, true
	}
	if s.speaking && s.below >= s.minSilence {
		s.speaking = false
		s.above = 0
		return vad.VADEventSpeechEnd, true
	}
	return 0, false
}

// finish reports a closing end event when input stops mid-speech.
func (s *segmenter) finish() bool {
	was := s.speaking
	s.speaking = false
	return was
}
