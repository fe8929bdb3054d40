package fake

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/matryer/is"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/audio/wav"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/avatar"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/voice"
)

type stubRoom struct {
	mu           sync.Mutex
	destinations []string
}

func (r *stubRoom) Name() string                       { return "room" }
func (r *stubRoom) LocalIdentity() string              { return "agent" }
func (r *stubRoom) AudioFrames() <-chan rtc.AudioFrame { return nil }

func (r *stubRoom) PublishData(_ context.Context, _ []byte, _ string, destinations []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destinations = append(r.destinations, destinations...)
	return nil
}

type stubTarget struct {
	out voice.AudioOutput
}

func (t *stubTarget) SetAudioOutput(out voice.AudioOutput) { t.out = out }

func TestStart(t *testing.T) {
	is := is.New(t)
	a := NewAvatar("")
	room := &stubRoom{}
	target := &stubTarget{}

	is.NoErr(a.Start(context.Background(), target, room))
	is.Equal(a.Starts(), 1)
	_, ok := target.out.(*avatar.DataStreamOutput)
	is.True(ok)

	target.out.ClearBuffer()
	is.Equal(room.destinations, []string{DefaultIdentity})
}

func TestStart_Errors(t *testing.T) {
	is := is.New(t)
	a := NewAvatar("x")

	is.True(a.Start(context.Background(), nil, &stubRoom{}) != nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	is.True(a.Start(ctx, &stubTarget{}, &stubRoom{}) != nil)
	is.Equal(a.Starts(), 0)
}

func TestStart_Record(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "speech.wav")
	a := NewAvatar("")
	a.Record = path
	target := &stubTarget{}

	ctx, cancel := context.WithCancel(context.Background())
	is.NoErr(a.Start(ctx, target, &stubRoom{}))

	frame := rtc.AudioFrame{Data: make([]byte, 480), SampleRate: 24000, SamplesPerChannel: 240, NumChannels: 1}
	for i := 0; i < 5; i++ {
		is.NoErr(target.out.CaptureFrame(ctx, frame))
	}
	target.out.Flush()

	// Flush leaves a readable file before the job ends.
	format, frames, err := wav.ReadFile(path)
	is.NoErr(err)
	is.Equal(format.SampleRate, 24000)
	is.Equal(len(frames), 5)

	cancel()
}
