package rtc

import (
	"encoding/binary"
	"time"
)

// BytesToSamples decodes little-endian 16-bit PCM. A trailing odd byte is ignored.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// SamplesToBytes encodes samples as little-endian 16-bit PCM.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}

// Resample converts mono or interleaved PCM between sample rates by linear
// interpolation. Equal rates return the input unchanged.
func Resample(samples []int16, fromRate, toRate, numChannels int) []int16 {
	if fromRate == toRate || len(samples) == 0 || fromRate <= 0 || toRate <= 0 {
		return samples
	}
	if numChannels <= 0 {
		numChannels = 1
	}

	inFrames := len(samples) / numChannels
	outFrames := int(int64(inFrames) * int64(toRate) / int64(fromRate))
	out := make([]int16, outFrames*numChannels)

	step := float64(fromRate) / float64(toRate)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		idx := int(pos)
		frac := pos - float64(idx)
		next := idx + 1
		if next >= inFrames {
			next = inFrames - 1
		}
		for ch := 0; ch < numChannels; ch++ {
			a := float64(samples[idx*numChannels+ch])
			b := float64(samples[next*numChannels+ch])
			out[i*numChannels+ch] = int16(a + (b-a)*frac)
		}
	}
	return out
}

// ResampleFrame returns f converted to toRate. The result is still 10 ms.
func ResampleFrame(f AudioFrame, toRate int) AudioFrame {
	if f.SampleRate == toRate {
		return f
	}
	out := Resample(f.Samples(), f.SampleRate, toRate, f.NumChannels)
	return AudioFrame{
		Data:              SamplesToBytes(out),
		SampleRate:        toRate,
		SamplesPerChannel: len(out) / f.NumChannels,
		NumChannels:       f.NumChannels,
		Timestamp:         f.Timestamp,
	}
}

// ByteStream slices an arbitrary PCM byte stream into 10 ms frames.
// It is not safe for concurrent use.
type ByteStream struct {
	sampleRate  int
	numChannels int
	frameSize   int
	buf         []byte
	elapsed     time.Duration
}

// NewByteStream returns a ByteStream for the given format.
func NewByteStream(sampleRate, numChannels int) *ByteStream {
	frameSize := FrameBytes(sampleRate, numChannels)
	return &ByteStream{
		sampleRate:  sampleRate,
		numChannels: numChannels,
		frameSize:   frameSize,
		buf:         make([]byte, 0, frameSize*4),
	}
}

// Write appends data and returns every complete frame now available.
func (s *ByteStream) Write(data []byte) []AudioFrame {
	s.buf = append(s.buf, data...)

	var frames []AudioFrame
	for len(s.buf) >= s.frameSize {
		chunk := make([]byte, s.frameSize)
		copy(chunk, s.buf[:s.frameSize])
		s.buf = s.buf[s.frameSize:]
		frames = append(frames, s.frame(chunk))
	}
	return frames
}

// Flush returns the buffered remainder padded with silence to a full frame,
// or false when nothing is buffered.
func (s *ByteStream) Flush() (AudioFrame, bool) {
	if len(s.buf) == 0 {
		return AudioFrame{}, false
	}
	chunk := make([]byte, s.frameSize)
	copy(chunk, s.buf)
	s.buf = s.buf[:0]
	return s.frame(chunk), true
}

// Reset discards buffered bytes.
func (s *ByteStream) Reset() {
	s.buf = s.buf[:0]
}

func (s *ByteStream) frame(data []byte) AudioFrame {
	f := AudioFrame{
		Data:              data,
		SampleRate:        s.sampleRate,
		SamplesPerChannel: s.sampleRate / 100,
		NumChannels:       s.numChannels,
		Timestamp:         s.elapsed,
	}
	s.elapsed += 10 * time.Millisecond
	return f
}
