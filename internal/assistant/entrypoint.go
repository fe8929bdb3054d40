package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/avatar"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/job"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/voice"
)

// JobContext is the part of a job the entrypoint drives.
type JobContext interface {
	Connect(ctx context.Context, mode job.AutoSubscribe) error
	// Room is nil until Connect succeeds.
	Room() avatar.Room
	OnShutdown(hook func(reason string))
}

// VoiceSession is the conversation the avatar renders.
type VoiceSession interface {
	Start(ctx context.Context, agent *voice.Agent, room voice.Room) error
	GenerateReply(ctx context.Context, instructions string) error
	SetAudioOutput(out voice.AudioOutput)
	Close() error
}

// Components builds the per-job pieces.
type Components interface {
	NewSession(p Profile) (VoiceSession, error)
	NewAgent(p Profile) *voice.Agent
	NewAvatar(p Profile) (avatar.Session, error)
}

// Entrypoint runs one assistant job. Any failure aborts the job and is
// returned unchanged in kind; nothing is retried here.
func Entrypoint(ctx context.Context, jc JobContext, c Components, p Profile) error {
	if err := jc.Connect(ctx, job.AudioOnly); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	room := jc.Room()

	session, err := c.NewSession(p)
	if err != nil {
		return fmt.Errorf("create voice session: %w", err)
	}
	jc.OnShutdown(func(string) {
		if err := session.Close(); err != nil {
			slog.Warn("Voice session close failed", slog.String("error", err.Error()))
		}
	})

	agent := c.NewAgent(p)

	av, err := c.NewAvatar(p)
	if err != nil {
		return fmt.Errorf("create avatar: %w", err)
	}

	if err := session.Start(ctx, agent, room); err != nil {
		return fmt.Errorf("start voice session: %w", err)
	}
	if err := av.Start(ctx, session, room); err != nil {
		return fmt.Errorf("start avatar: %w", err)
	}
	if err := session.GenerateReply(ctx, p.Greeting); err != nil {
		return fmt.Errorf("greet: %w", err)
	}

	slog.Info("Assistant running", slog.String("room_name", room.Name()))
	return nil
}

// jobContext adapts *job.JobContext.
type jobContext struct {
	*job.JobContext
}

// FromJob wraps a job's context for Entrypoint.
func FromJob(jc *job.JobContext) JobContext {
	return jobContext{jc}
}

func (j jobContext) Room() avatar.Room {
	if r := j.JobContext.Room(); r != nil {
		return r
	}
	return nil
}
