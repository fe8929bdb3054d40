package silero

import (
	"context"
	"fmt"
	"time"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/vad"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/plugin"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

// Config configures a SileroVAD.
type Config struct {
	Threshold          float32
	MinSpeechDuration  time.Duration
	MinSilenceDuration time.Duration
	ModelPath          string
}

// SileroVAD runs the Silero v5 model per stream. When the model file, the
// runtime or the silero build tag is missing it falls back to an energy
// detector with the same segmentation.
type SileroVAD struct {
	cfg     Config
	useONNX bool
}

func NewSileroVAD(cfg Config) (*SileroVAD, error) {
	if cfg.Threshold <= 0 || cfg.Threshold >= 1 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.MinSpeechDuration <= 0 {
		cfg.MinSpeechDuration = DefaultMinSpeechDuration
	}
	if cfg.MinSilenceDuration <= 0 {
		cfg.MinSilenceDuration = DefaultMinSilenceDuration
	}
	if cfg.ModelPath == "" {
		cfg.ModelPath = DefaultModelPath()
	}
	return &SileroVAD{cfg: cfg, useONNX: onnxReady(cfg.ModelPath)}, nil
}

// UsesModel reports whether detection runs the ONNX model rather than the
// energy fallback.
func (s *SileroVAD) UsesModel() bool {
	return s.useONNX
}

func (s *SileroVAD) Detect(ctx context.Context, frames <-chan rtc.AudioFrame) (<-chan vad.VADEvent, error) {
	var p scorer = energyScorer{}
	if s.useONNX {
		op, err := newOnnxScorer(s.cfg.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("silero session: %w", err)
		}
		p = op
	}

	events := make(chan vad.VADEvent, 10)
	seg := newSegmenter(s.cfg.Threshold, s.cfg.MinSpeechDuration, s.cfg.MinSilenceDuration)
	go func() {
		defer close(events)
		detectLoop(ctx, frames, events, p, seg)
	}()
	return events, nil
}

func (s *SileroVAD) Capabilities() vad.VADCapabilities {
	return vad.VADCapabilities{
		SampleRates:        []int{DefaultSampleRate},
		MinSpeechDuration:  s.cfg.MinSpeechDuration,
		MinSilenceDuration: s.cfg.MinSilenceDuration,
		Sensitivity:        s.cfg.Threshold,
	}
}

func newSileroVAD(cfg map[string]any) (any, error) {
	return NewSileroVAD(Config{
		Threshold:          float32(plugin.Float(cfg, "threshold", DefaultThreshold)),
		MinSpeechDuration:  plugin.Duration(cfg, "min_speech_duration", DefaultMinSpeechDuration),
		MinSilenceDuration: plugin.Duration(cfg, "min_silence_duration", DefaultMinSilenceDuration),
		ModelPath:          plugin.String(cfg, "model_path", ""),
	})
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindVAD,
		Name:        "silero",
		Factory:     newSileroVAD,
		Description: "Silero VAD (ONNX) with energy-based fallback",
		Version:     "1.0.0",
		Config: map[string]any{
			"threshold":            DefaultThreshold,
			"min_speech_duration":  DefaultMinSpeechDuration.String(),
			"min_silence_duration": DefaultMinSilenceDuration.String(),
			"model_path":           "",
		},
		Downloader: NewDownloader(),
	})
}
