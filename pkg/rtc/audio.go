package rtc

import (
	"fmt"
	"time"
)

// AudioFrame is 10 ms of interleaved 16-bit PCM.
// len(Data) == SamplesPerChannel * NumChannels * 2. Timestamp is the offset
// from the start of the stream, zero for live audio.
type AudioFrame struct {
	Data              []byte        // 16-bit PCM, little-endian
	SampleRate        int           // 48 000 from rooms, 24 000 for realtime models
	SamplesPerChannel int           // SampleRate / 100
	NumChannels       int           // 1 or 2
	Timestamp         time.Duration // optional
}

// FrameBytes returns the size in bytes of 10 ms of 16-bit PCM.
func FrameBytes(sampleRate, numChannels int) int {
	return sampleRate / 100 * numChannels * 2
}

// NewAudioFrame creates a new AudioFrame, validating that data holds exactly
// 10 ms of audio for the given format.
func NewAudioFrame(data []byte, sampleRate, numChannels int, timestamp time.Duration) (*AudioFrame, error) {
	if sampleRate <= 0 || numChannels <= 0 {
		return nil, fmt.Errorf("invalid audio format: %dHz %d-channel", sampleRate, numChannels)
	}
	samplesPerChannel := sampleRate / 100
	expectedLen := FrameBytes(sampleRate, numChannels)

	if len(data) != expectedLen {
		return nil, fmt.Errorf("audio frame length mismatch: got %d bytes, expected %d bytes for %dHz %d-channel 10ms audio",
			len(data), expectedLen, sampleRate, numChannels)
	}

	return &AudioFrame{
		Data:              data,
		SampleRate:        sampleRate,
		SamplesPerChannel: samplesPerChannel,
		NumChannels:       numChannels,
		Timestamp:         timestamp,
	}, nil
}

// Duration is the span of audio the frame holds, derived from its format.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.SamplesPerChannel) * time.Second / time.Duration(f.SampleRate)
}

// Samples decodes the frame into interleaved int16 samples.
func (f AudioFrame) Samples() []int16 {
	return BytesToSamples(f.Data)
}
