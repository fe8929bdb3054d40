package fake

import (
	"context"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/vad"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

func frame(amplitude int16) rtc.AudioFrame {
	samples := make([]int16, 160)
	for i := range samples {
		samples[i] = amplitude
	}
	return rtc.AudioFrame{
		Data:              rtc.SamplesToBytes(samples),
		SampleRate:        16000,
		SamplesPerChannel: 160,
		NumChannels:       1,
	}
}

func collect(t *testing.T, v vad.VAD, in []rtc.AudioFrame) []vad.VADEventType {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	frames := make(chan rtc.AudioFrame, len(in))
	for _, f := range in {
		frames <- f
	}
	close(frames)

	events, err := v.Detect(ctx, frames)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	var got []vad.VADEventType
	for ev := range events {
		got = append(got, ev.Type)
	}
	return got
}

func TestFakeVAD_SpeechSegment(t *testing.T) {
	is := is.New(t)

	var in []rtc.AudioFrame
	for i := 0; i < 5; i++ {
		in = append(in, frame(0))
	}
	for i := 0; i < 5; i++ {
		in = append(in, frame(4000))
	}
	for i := 0; i < 12; i++ {
		in = append(in, frame(0))
	}

	got := collect(t, NewFakeVAD(), in)
	is.Equal(got, []vad.VADEventType{vad.VADEventSpeechStart, vad.VADEventSpeechEnd})
}

func TestFakeVAD_SilenceOnly(t *testing.T) {
	is := is.New(t)

	in := make([]rtc.AudioFrame, 50)
	for i := range in {
		in[i] = frame(0)
	}
	is.Equal(len(collect(t, NewFakeVAD(), in)), 0) // silence never triggers
}

func TestFakeVAD_ClosesOpenSegmentOnEOF(t *testing.T) {
	is := is.New(t)

	in := []rtc.AudioFrame{frame(-3000), frame(-3000)}
	got := collect(t, NewFakeVAD().WithHysteresis(1, 5), in)
	is.Equal(got, []vad.VADEventType{vad.VADEventSpeechStart, vad.VADEventSpeechEnd})
}

func TestFakeVAD_Capabilities(t *testing.T) {
	is := is.New(t)

	v := NewFakeVAD()
	caps := v.Capabilities()
	is.True(len(caps.SampleRates) > 0)
	is.Equal(caps.MinSpeechDuration, 30*time.Millisecond)
	is.Equal(caps.MinSilenceDuration, 100*time.Millisecond)
	is.Equal(vad.PreferredSampleRate(v), 16000)
}
