package rtc

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestSamplesRoundTrip(t *testing.T) {
	is := is.New(t)

	in := []int16{0, 1, -1, 32767, -32768, 1234}
	out := BytesToSamples(SamplesToBytes(in))
	is.Equal(out, in)
}

func TestResample(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		in       int
		want     int
	}{
		{"48k to 24k", 48000, 24000, 480, 240},
		{"24k to 48k", 24000, 48000, 240, 480},
		{"48k to 16k", 48000, 16000, 480, 160},
		{"same rate", 24000, 24000, 240, 240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resample(make([]int16, tt.in), tt.from, tt.to, 1)
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestResample_PreservesConstantSignal(t *testing.T) {
	is := is.New(t)

	in := make([]int16, 480)
	for i := range in {
		in[i] = 1000
	}
	for _, s := range Resample(in, 48000, 24000, 1) {
		is.Equal(s, int16(1000))
	}
}

func TestResampleFrame(t *testing.T) {
	is := is.New(t)

	f, err := NewAudioFrame(make([]byte, FrameBytes(48000, 1)), 48000, 1, 20*time.Millisecond)
	is.NoErr(err)

	out := ResampleFrame(*f, 24000)
	is.Equal(out.SampleRate, 24000)
	is.Equal(out.SamplesPerChannel, 240)
	is.Equal(len(out.Data), FrameBytes(24000, 1))
	is.Equal(out.Timestamp, 20*time.Millisecond)
}

func TestByteStream(t *testing.T) {
	is := is.New(t)

	bs := NewByteStream(24000, 1)
	frameSize := FrameBytes(24000, 1) // 480 bytes

	frames := bs.Write(make([]byte, frameSize/2))
	is.Equal(len(frames), 0) // half a frame buffered

	frames = bs.Write(make([]byte, frameSize*2))
	is.Equal(len(frames), 2) // 2.5 frames available
	is.Equal(frames[0].Timestamp, time.Duration(0))
	is.Equal(frames[1].Timestamp, 10*time.Millisecond)
	for _, f := range frames {
		is.Equal(len(f.Data), frameSize)
		is.Equal(f.SamplesPerChannel, 240)
	}

	last, ok := bs.Flush()
	is.True(ok)
	is.Equal(len(last.Data), frameSize) // padded to a full frame

	_, ok = bs.Flush()
	is.True(!ok) // nothing left
}

func TestByteStream_Reset(t *testing.T) {
	is := is.New(t)

	bs := NewByteStream(16000, 1)
	bs.Write([]byte{1, 2, 3})
	bs.Reset()
	_, ok := bs.Flush()
	is.True(!ok)
}
