//go:build !opus

package rtc

import "errors"

// ErrOpusUnavailable is returned when the binary was built without libopus.
var ErrOpusUnavailable = errors.New("opus decoding not available (build with -tags=opus)")

// NewOpusDecoder reports ErrOpusUnavailable in builds without the opus tag.
func NewOpusDecoder(sampleRate, numChannels int) (Decoder, error) {
	return nil, ErrOpusUnavailable
}
