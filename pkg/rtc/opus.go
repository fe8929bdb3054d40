//go:build opus

package rtc

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"
)

// maxOpusFrameSamples is 120 ms at 48 kHz, the longest opus packet.
const maxOpusFrameSamples = 5760

type opusDecoder struct {
	dec         *opus.Decoder
	numChannels int
	pcm         []int16
}

// NewOpusDecoder returns a decoder producing 16-bit PCM at sampleRate.
func NewOpusDecoder(sampleRate, numChannels int) (Decoder, error) {
	dec, err := opus.NewDecoder(sampleRate, numChannels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}
	return &opusDecoder{
		dec:         dec,
		numChannels: numChannels,
		pcm:         make([]int16, maxOpusFrameSamples*numChannels),
	}, nil
}

func (d *opusDecoder) Decode(payload []byte) ([]byte, error) {
	n, err := d.dec.Decode(payload, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("decode opus: %w", err)
	}
	return SamplesToBytes(d.pcm[:n*d.numChannels]), nil
}
