package silero

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/vad"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

func TestSegmenter(t *testing.T) {
	is := is.New(t)
	seg := newSegmenter(0.5, 64*time.Millisecond, 96*time.Millisecond)
	w := 32 * time.Millisecond

	_, ok := seg.push(0.9, w)
	is.True(!ok) // one window is not enough

	typ, ok := seg.push(0.9, w)
	is.True(ok)
	is.Equal(typ, vad.VADEventSpeechStart)

	_, ok = seg.push(0.4, w) // inside the hysteresis band
	is.True(!ok)

	for i := 0; i < 2; i++ {
		_, ok = seg.push(0.1, w)
		is.True(!ok)
	}
	typ, ok = seg.push(0.1, w)
	is.True(ok)
	is.Equal(typ, vad.VADEventSpeechEnd)

	is.True(!seg.finish()) // already closed
}

func TestSegmenter_FinishMidSpeech(t *testing.T) {
	is := is.New(t)
	seg := newSegmenter(0.5, 32*time.Millisecond, time.Second)
	_, ok := seg.push(1, 32*time.Millisecond)
	is.True(ok)
	is.True(seg.finish())
}

func TestEnergyScorer(t *testing.T) {
	is := is.New(t)
	var p energyScorer

	silent, err := p.Probability(make([]float32, windowSamples))
	is.NoErr(err)
	is.Equal(silent, float32(0))

	loud := make([]float32, windowSamples)
	for i := range loud {
		loud[i] = 0.5
	}
	prob, err := p.Probability(loud)
	is.NoErr(err)
	is.Equal(prob, float32(1))
}

func tone(amplitude int16, rate, ms int) []rtc.AudioFrame {
	var frames []rtc.AudioFrame
	per := rate / 100
	for i := 0; i < ms/10; i++ {
		samples := make([]int16, per)
		for j := range samples {
			if j%2 == 0 {
				samples[j] = amplitude
			} else {
				samples[j] = -amplitude
			}
		}
		frames = append(frames, rtc.AudioFrame{
			Data:              rtc.SamplesToBytes(samples),
			SampleRate:        rate,
			SamplesPerChannel: per,
			NumChannels:       1,
		})
	}
	return frames
}

func TestDetectLoop_EnergyFallback(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	in := make(chan rtc.AudioFrame, 500)
	events := make(chan vad.VADEvent, 10)
	seg := newSegmenter(DefaultThreshold, 64*time.Millisecond, 128*time.Millisecond)

	for _, f := range tone(8000, DefaultSampleRate, 300) {
		in <- f
	}
	for _, f := range tone(0, DefaultSampleRate, 300) {
		in <- f
	}
	close(in)

	detectLoop(ctx, in, events, energyScorer{}, seg)
	close(events)

	var got []vad.VADEventType
	for ev := range events {
		got = append(got, ev.Type)
	}
	is.Equal(got, []vad.VADEventType{vad.VADEventSpeechStart, vad.VADEventSpeechEnd})
}

func TestDetectLoop_ClosesOpenSpeech(t *testing.T) {
	is := is.New(t)

	in := make(chan rtc.AudioFrame, 100)
	events := make(chan vad.VADEvent, 10)
	for _, f := range tone(8000, 48000, 200) { // resampled to 16 kHz
		in <- f
	}
	close(in)

	detectLoop(context.Background(), in, events, energyScorer{},
		newSegmenter(DefaultThreshold, 32*time.Millisecond, time.Second))
	close(events)

	var got []vad.VADEventType
	for ev := range events {
		got = append(got, ev.Type)
	}
	is.Equal(got, []vad.VADEventType{vad.VADEventSpeechStart, vad.VADEventSpeechEnd})
}

func TestDownloader(t *testing.T) {
	is := is.New(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("onnx-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := &Downloader{Dir: filepath.Join(dir, "models"), URL: srv.URL, Client: srv.Client()}

	is.NoErr(d.Download())
	data, err := os.ReadFile(d.Path())
	is.NoErr(err)
	is.Equal(string(data), "onnx-bytes")

	is.NoErr(d.Download()) // existing file is kept
	is.Equal(hits.Load(), int32(1))

	leftovers, _ := filepath.Glob(filepath.Join(d.Dir, "*.part"))
	is.Equal(len(leftovers), 0)
}

func TestDownloader_HTTPError(t *testing.T) {
	is := is.New(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d := &Downloader{Dir: t.TempDir(), URL: srv.URL, Client: srv.Client()}
	err := d.Download()
	is.True(err != nil)

	_, statErr := os.Stat(d.Path())
	is.True(os.IsNotExist(statErr)) // nothing installed
}

func TestDefaultModelDir(t *testing.T) {
	is := is.New(t)
	t.Setenv("LK_MODEL_PATH", "/tmp/models")
	is.Equal(DefaultModelDir(), "/tmp/models")
	is.Equal(DefaultModelPath(), filepath.Join("/tmp/models", ModelFileName))
}

func TestSileroVAD_EnergyFallbackWithoutModel(t *testing.T) {
	is := is.New(t)

	v, err := NewSileroVAD(Config{
		MinSpeechDuration:  64 * time.Millisecond,
		MinSilenceDuration: 128 * time.Millisecond,
		ModelPath:          filepath.Join(t.TempDir(), ModelFileName),
	})
	is.NoErr(err)
	is.True(!v.UsesModel())
	is.Equal(v.Capabilities().SampleRates, []int{DefaultSampleRate})

	in := make(chan rtc.AudioFrame, 500)
	for _, f := range tone(8000, DefaultSampleRate, 300) {
		in <- f
	}
	for _, f := range tone(0, DefaultSampleRate, 300) {
		in <- f
	}
	close(in)

	events, err := v.Detect(context.Background(), in)
	is.NoErr(err)

	var got []vad.VADEventType
	for ev := range events {
		got = append(got, ev.Type)
	}
	is.Equal(got, []vad.VADEventType{vad.VADEventSpeechStart, vad.VADEventSpeechEnd})
}
