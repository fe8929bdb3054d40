//go:build !silero

package silero

import (
	"errors"
	"log/slog"
)

// ErrUnavailable is returned when model inference is requested from a build
// without the silero tag.
var ErrUnavailable = errors.New("silero inference not available (build with -tags=silero)")

func onnxReady(path string) bool {
	slog.Warn("Silero inference not compiled in, using energy-based VAD (build with -tags=silero)",
		slog.String("model_path", path))
	return false
}

func newOnnxScorer(string) (scorer, error) {
	return nil, ErrUnavailable
}
