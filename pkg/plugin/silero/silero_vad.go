//go:build silero

package silero

import (
	"fmt"
	"log/slog"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	// contextSamples of the previous window are prepended to each input.
	contextSamples = 64
	stateSize      = 2 * 1 * 128
)

// onnxReady reports whether the model at path can be run. It logs why not.
func onnxReady(path string) bool {
	if _, err := os.Stat(path); err != nil {
		slog.Warn("Silero model not found, using energy-based VAD (run download-files)",
			slog.String("model_path", path))
		return false
	}
	if err := ensureOrtEnv(); err != nil {
		slog.Warn("onnxruntime unavailable, using energy-based VAD", slog.String("error", err.Error()))
		return false
	}
	slog.Info("Loaded Silero VAD model", slog.String("model_path", path))
	return true
}

// onnxScorer owns one session and its bound tensors. The recurrent state is
// carried between windows.
type onnxScorer struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	state   *ort.Tensor[float32]
	sr      *ort.Scalar[int64]
	output  *ort.Tensor[float32]
	stateN  *ort.Tensor[float32]
	context []float32
}

func newOnnxScorer(modelPath string) (scorer, error) {
	p := &onnxScorer{context: make([]float32, contextSamples)}

	var err error
	if p.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, contextSamples+windowSamples)); err != nil {
		return nil, err
	}
	if p.state, err = ort.NewEmptyTensor[float32](ort.NewShape(2, 1, 128)); err != nil {
		p.Close()
		return nil, err
	}
	if p.sr, err = ort.NewScalar(int64(DefaultSampleRate)); err != nil {
		p.Close()
		return nil, err
	}
	if p.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1)); err != nil {
		p.Close()
		return nil, err
	}
	if p.stateN, err = ort.NewEmptyTensor[float32](ort.NewShape(2, 1, 128)); err != nil {
		p.Close()
		return nil, err
	}

	p.session, err = ort.NewAdvancedSession(modelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{p.input, p.state, p.sr},
		[]ort.Value{p.output, p.stateN},
		nil)
	if err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *onnxScorer) Probability(window []float32) (float32, error) {
	in := p.input.GetData()
	copy(in, p.context)
	copy(in[contextSamples:], window)

	if err := p.session.Run(); err != nil {
		return 0, fmt.Errorf("silero inference: %w", err)
	}

	copy(p.state.GetData(), p.stateN.GetData()[:stateSize])
	copy(p.context, window[len(window)-contextSamples:])
	return p.output.GetData()[0], nil
}

func (p *onnxScorer) Close() {
	if p.session != nil {
		p.session.Destroy()
	}
	for _, t := range []*ort.Tensor[float32]{p.input, p.state, p.output, p.stateN} {
		if t != nil {
			t.Destroy()
		}
	}
	if p.sr != nil {
		p.sr.Destroy()
	}
}
