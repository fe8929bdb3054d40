package rtc

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestFrameBytes(t *testing.T) {
	tests := []struct {
		rate, channels, want int
	}{
		{48000, 1, 960},
		{24000, 1, 480},
		{16000, 1, 320},
		{48000, 2, 1920},
	}
	for _, tt := range tests {
		if got := FrameBytes(tt.rate, tt.channels); got != tt.want {
			t.Errorf("FrameBytes(%d, %d) = %d, want %d", tt.rate, tt.channels, got, tt.want)
		}
	}
}

func TestNewAudioFrame(t *testing.T) {
	tests := []struct {
		name     string
		rate     int
		channels int
		dataLen  int
		wantErr  bool
	}{
		{"room audio", 48000, 1, 960, false},
		{"realtime model audio", 24000, 1, 480, false},
		{"stereo", 48000, 2, 1920, false},
		{"short buffer", 24000, 1, 479, true},
		{"zero rate", 0, 1, 0, true},
		{"zero channels", 24000, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			f, err := NewAudioFrame(make([]byte, tt.dataLen), tt.rate, tt.channels, 30*time.Millisecond)
			if tt.wantErr {
				is.True(err != nil)
				return
			}
			is.NoErr(err)
			is.Equal(f.SamplesPerChannel, tt.rate/100)
			is.Equal(f.Timestamp, 30*time.Millisecond)
			is.Equal(f.Duration(), 10*time.Millisecond)
		})
	}
}

func TestAudioFrame_Duration(t *testing.T) {
	is := is.New(t)

	// Resampled and chunked frames both carry 10 ms.
	f := ResampleFrame(AudioFrame{Data: make([]byte, 960), SampleRate: 48000, SamplesPerChannel: 480, NumChannels: 1}, 24000)
	is.Equal(f.Duration(), 10*time.Millisecond)

	frames := NewByteStream(24000, 1).Write(make([]byte, 3*480))
	is.Equal(len(frames), 3)
	is.Equal(frames[2].Duration(), 10*time.Millisecond)

	is.Equal(AudioFrame{}.Duration(), time.Duration(0))
}

func TestAudioFrame_Samples(t *testing.T) {
	is := is.New(t)
	f := AudioFrame{Data: []byte{0x01, 0x00, 0xff, 0xff}, SampleRate: 100, SamplesPerChannel: 1, NumChannels: 2}
	is.Equal(f.Samples(), []int16{1, -1})
}
