package avatar

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/voice"
)

type packet struct {
	payload      []byte
	topic        string
	destinations []string
}

type fakePublisher struct {
	mu      sync.Mutex
	packets []packet
	err     error
}

func (p *fakePublisher) PublishData(_ context.Context, payload []byte, topic string, destinations []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.packets = append(p.packets, packet{payload: payload, topic: topic, destinations: destinations})
	return nil
}

func (p *fakePublisher) control(t *testing.T) []ControlMessage {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ControlMessage
	for _, pkt := range p.packets {
		if pkt.topic != ControlTopic {
			continue
		}
		var msg ControlMessage
		if err := json.Unmarshal(pkt.payload, &msg); err != nil {
			t.Fatalf("bad control payload %q: %v", pkt.payload, err)
		}
		out = append(out, msg)
	}
	return out
}

func (p *fakePublisher) audioBytes() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []int
	for _, pkt := range p.packets {
		if pkt.topic == AudioStreamTopic {
			out = append(out, len(pkt.payload))
		}
	}
	return out
}

func frame24k() rtc.AudioFrame {
	return rtc.AudioFrame{
		Data:              make([]byte, rtc.FrameBytes(24000, 1)),
		SampleRate:        24000,
		SamplesPerChannel: 240,
		NumChannels:       1,
	}
}

var _ voice.AudioOutput = (*DataStreamOutput)(nil)

func TestDataStreamOutput_Batches(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	pub := &fakePublisher{}
	out := NewDataStreamOutput(pub, "bey-avatar-agent", nil)

	for i := 0; i < 25; i++ {
		is.NoErr(out.CaptureFrame(ctx, frame24k()))
	}

	frameBytes := rtc.FrameBytes(24000, 1)
	is.Equal(pub.audioBytes(), []int{10 * frameBytes, 10 * frameBytes}) // two full 100ms batches

	out.Flush()
	is.Equal(pub.audioBytes(), []int{10 * frameBytes, 10 * frameBytes, 5 * frameBytes})

	ctrl := pub.control(t)
	is.Equal(len(ctrl), 2)
	is.Equal(ctrl[0], ControlMessage{Type: ControlStart, SampleRate: 24000, NumChannels: 1})
	is.Equal(ctrl[1].Type, ControlFlush)

	for _, pkt := range pub.packets {
		is.Equal(pkt.destinations, []string{"bey-avatar-agent"})
	}
}

func TestDataStreamOutput_FlushWithoutAudio(t *testing.T) {
	is := is.New(t)
	pub := &fakePublisher{}
	out := NewDataStreamOutput(pub, "avatar", nil)

	out.Flush()
	is.Equal(len(pub.packets), 0) // nothing started, nothing sent
}

func TestDataStreamOutput_ClearDropsBuffered(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	pub := &fakePublisher{}
	out := NewDataStreamOutput(pub, "avatar", nil)

	for i := 0; i < 5; i++ {
		is.NoErr(out.CaptureFrame(ctx, frame24k()))
	}
	out.ClearBuffer()
	out.Flush()

	is.Equal(len(pub.audioBytes()), 0)
	ctrl := pub.control(t)
	is.Equal(len(ctrl), 2)
	is.Equal(ctrl[1].Type, ControlClear)

	// The next utterance announces its format again.
	is.NoErr(out.CaptureFrame(ctx, frame24k()))
	ctrl = pub.control(t)
	is.Equal(ctrl[len(ctrl)-1].Type, ControlStart)
}

func TestDataStreamOutput_CustomBatch(t *testing.T) {
	is := is.New(t)
	pub := &fakePublisher{}
	out := NewDataStreamOutput(pub, "avatar", nil).WithBatch(20 * time.Millisecond)

	for i := 0; i < 4; i++ {
		is.NoErr(out.CaptureFrame(context.Background(), frame24k()))
	}
	is.Equal(len(pub.audioBytes()), 2)
}

func TestDataStreamOutput_PublishError(t *testing.T) {
	is := is.New(t)
	boom := errors.New("boom")
	out := NewDataStreamOutput(&fakePublisher{err: boom}, "avatar", nil)

	err := out.CaptureFrame(context.Background(), frame24k())
	is.True(errors.Is(err, boom))
}
