// Package fake provides an avatar that needs no provider: it routes speech
// to a fixed participant identity over the room's data channel.
package fake

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/audio/wav"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/avatar"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/voice"
)

const DefaultIdentity = "fake-avatar"

type Avatar struct {
	Identity string
	// Record, when set, is a WAV path that also receives the speech. The
	// file is finalized when the Start context ends.
	Record string

	started atomic.Int32
}

func NewAvatar(identity string) *Avatar {
	if identity == "" {
		identity = DefaultIdentity
	}
	return &Avatar{Identity: identity}
}

func (a *Avatar) Start(ctx context.Context, target avatar.Target, room avatar.Room) error {
	if target == nil || room == nil {
		return errors.New("fake avatar requires a target and a room")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var out voice.AudioOutput = avatar.NewDataStreamOutput(room, a.Identity, slog.Default())
	if a.Record != "" {
		rec := wav.NewWriter(a.Record)
		context.AfterFunc(ctx, func() {
			if err := rec.Close(); err != nil {
				slog.Warn("Recording close failed", slog.String("path", a.Record), slog.String("error", err.Error()))
			}
		})
		out = &recordingOutput{AudioOutput: out, rec: rec}
	}

	target.SetAudioOutput(out)
	a.started.Add(1)
	return nil
}

// Starts reports how many times Start succeeded.
func (a *Avatar) Starts() int {
	return int(a.started.Load())
}

// recordingOutput tees captured frames into a WAV file.
type recordingOutput struct {
	voice.AudioOutput
	rec *wav.Writer
}

func (o *recordingOutput) CaptureFrame(ctx context.Context, frame rtc.AudioFrame) error {
	if err := o.rec.WriteFrame(frame); err != nil {
		slog.Warn("Recording frame dropped", slog.String("error", err.Error()))
	}
	return o.AudioOutput.CaptureFrame(ctx, frame)
}

func (o *recordingOutput) Flush() {
	_ = o.rec.Sync()
	o.AudioOutput.Flush()
}
