package avatar

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

// DefaultBatchDuration is how much audio is sent per data packet.
const DefaultBatchDuration = 100 * time.Millisecond

// Control message types sent on ControlTopic.
const (
	ControlStart = "start"
	ControlFlush = "flush"
	ControlClear = "clear"
)

// ControlMessage announces stream boundaries. Start carries the PCM format
// of the audio that follows.
type ControlMessage struct {
	Type        string `json:"type"`
	SampleRate  int    `json:"sample_rate,omitempty"`
	NumChannels int    `json:"num_channels,omitempty"`
}

// DataStreamOutput is a voice.AudioOutput that forwards speech to the avatar
// participant as data packets.
type DataStreamOutput struct {
	pub         Publisher
	destination []string
	batch       time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	buf      []byte
	buffered time.Duration
	started  bool
}

// NewDataStreamOutput sends to the participant with identity destination.
func NewDataStreamOutput(pub Publisher, destination string, logger *slog.Logger) *DataStreamOutput {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataStreamOutput{
		pub:         pub,
		destination: []string{destination},
		batch:       DefaultBatchDuration,
		logger:      logger.With(slog.String("avatar", destination)),
	}
}

// WithBatch sets how much audio accumulates before a packet is sent.
func (o *DataStreamOutput) WithBatch(d time.Duration) *DataStreamOutput {
	if d > 0 {
		o.batch = d
	}
	return o
}

func (o *DataStreamOutput) CaptureFrame(ctx context.Context, frame rtc.AudioFrame) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started {
		err := o.sendControl(ctx, ControlMessage{
			Type:        ControlStart,
			SampleRate:  frame.SampleRate,
			NumChannels: frame.NumChannels,
		})
		if err != nil {
			return err
		}
		o.started = true
	}

	o.buf = append(o.buf, frame.Data...)
	o.buffered += frame.Duration()
	if o.buffered < o.batch {
		return nil
	}
	return o.sendAudio(ctx)
}

// Flush sends buffered audio and marks the end of the utterance.
func (o *DataStreamOutput) Flush() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started {
		return
	}
	ctx := context.Background()
	if err := o.sendAudio(ctx); err != nil {
		o.logger.Warn("Failed to send avatar audio", slog.String("error", err.Error()))
	}
	if err := o.sendControl(ctx, ControlMessage{Type: ControlFlush}); err != nil {
		o.logger.Warn("Failed to flush avatar audio", slog.String("error", err.Error()))
	}
	o.started = false
}

// ClearBuffer drops unsent audio and tells the avatar to stop playback.
func (o *DataStreamOutput) ClearBuffer() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.buf = o.buf[:0]
	o.buffered = 0
	o.started = false
	if err := o.sendControl(context.Background(), ControlMessage{Type: ControlClear}); err != nil {
		o.logger.Warn("Failed to clear avatar audio", slog.String("error", err.Error()))
	}
}

func (o *DataStreamOutput) sendAudio(ctx context.Context) error {
	if len(o.buf) == 0 {
		return nil
	}
	payload := make([]byte, len(o.buf))
	copy(payload, o.buf)
	o.buf = o.buf[:0]
	o.buffered = 0
	return o.pub.PublishData(ctx, payload, AudioStreamTopic, o.destination)
}

func (o *DataStreamOutput) sendControl(ctx context.Context, msg ControlMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return o.pub.PublishData(ctx, payload, ControlTopic, o.destination)
}
