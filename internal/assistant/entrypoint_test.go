package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/avatar"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/job"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/voice"
)

// recorder keeps the order of calls across fakes.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeRoom struct {
	mu      sync.Mutex
	packets map[string]int
}

func (r *fakeRoom) Name() string                       { return "test-room" }
func (r *fakeRoom) LocalIdentity() string              { return "agent-1" }
func (r *fakeRoom) AudioFrames() <-chan rtc.AudioFrame { return nil }

func (r *fakeRoom) PublishData(_ context.Context, _ []byte, topic string, _ []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.packets == nil {
		r.packets = make(map[string]int)
	}
	r.packets[topic]++
	return nil
}

func (r *fakeRoom) count(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.packets[topic]
}

type fakeJob struct {
	rec        *recorder
	room       *fakeRoom
	connectErr error
	mode       job.AutoSubscribe
	hooks      []func(string)
}

func (j *fakeJob) Connect(_ context.Context, mode job.AutoSubscribe) error {
	j.rec.add("connect")
	j.mode = mode
	return j.connectErr
}

func (j *fakeJob) Room() avatar.Room { return j.room }

func (j *fakeJob) OnShutdown(hook func(string)) { j.hooks = append(j.hooks, hook) }

type fakeSession struct {
	rec      *recorder
	startErr error
	agent    *voice.Agent
	greeting string
	out      voice.AudioOutput
	closed   bool
}

func (s *fakeSession) Start(_ context.Context, agent *voice.Agent, _ voice.Room) error {
	s.rec.add("session.start")
	s.agent = agent
	return s.startErr
}

func (s *fakeSession) GenerateReply(_ context.Context, instructions string) error {
	s.rec.add("session.reply")
	s.greeting = instructions
	return nil
}

func (s *fakeSession) SetAudioOutput(out voice.AudioOutput) { s.out = out }

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeAvatar struct {
	rec *recorder
	err error
}

func (a *fakeAvatar) Start(_ context.Context, target avatar.Target, room avatar.Room) error {
	a.rec.add("avatar.start")
	return a.err
}

type fakeComponents struct {
	rec        *recorder
	session    *fakeSession
	avatar     *fakeAvatar
	sessionErr error
	avatarErr  error
}

func (c *fakeComponents) NewSession(Profile) (VoiceSession, error) {
	c.rec.add("new.session")
	if c.sessionErr != nil {
		return nil, c.sessionErr
	}
	return c.session, nil
}

func (c *fakeComponents) NewAgent(p Profile) *voice.Agent {
	c.rec.add("new.agent")
	return voice.NewAgent(p.Instructions)
}

func (c *fakeComponents) NewAvatar(Profile) (avatar.Session, error) {
	c.rec.add("new.avatar")
	if c.avatarErr != nil {
		return nil, c.avatarErr
	}
	return c.avatar, nil
}

func newFakes() (*recorder, *fakeJob, *fakeComponents) {
	rec := &recorder{}
	jc := &fakeJob{rec: rec, room: &fakeRoom{}}
	c := &fakeComponents{
		rec:     rec,
		session: &fakeSession{rec: rec},
		avatar:  &fakeAvatar{rec: rec},
	}
	return rec, jc, c
}

func TestEntrypoint_Order(t *testing.T) {
	is := is.New(t)
	rec, jc, c := newFakes()

	is.NoErr(Entrypoint(context.Background(), jc, c, DefaultProfile()))

	is.Equal(rec.list(), []string{
		"connect",
		"new.session",
		"new.agent",
		"new.avatar",
		"session.start",
		"avatar.start",
		"session.reply",
	})
	is.Equal(jc.mode, job.AudioOnly)
	is.Equal(c.session.agent.Instructions, DefaultInstructions)
	is.Equal(c.session.greeting, DefaultGreeting)

	// Shutdown closes the voice session.
	is.Equal(len(jc.hooks), 1)
	jc.hooks[0]("done")
	is.True(c.session.closed)
}

func TestEntrypoint_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		setup    func(jc *fakeJob, c *fakeComponents)
		wantLast string
	}{
		{
			name:     "connect",
			setup:    func(jc *fakeJob, _ *fakeComponents) { jc.connectErr = boom },
			wantLast: "connect",
		},
		{
			name:     "session",
			setup:    func(_ *fakeJob, c *fakeComponents) { c.sessionErr = boom },
			wantLast: "new.session",
		},
		{
			name:     "avatar",
			setup:    func(_ *fakeJob, c *fakeComponents) { c.avatarErr = boom },
			wantLast: "new.avatar",
		},
		{
			name:     "session start",
			setup:    func(_ *fakeJob, c *fakeComponents) { c.session.startErr = boom },
			wantLast: "session.start",
		},
		{
			name:     "avatar start",
			setup:    func(_ *fakeJob, c *fakeComponents) { c.avatar.err = boom },
			wantLast: "avatar.start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			rec, jc, c := newFakes()
			tt.setup(jc, c)

			err := Entrypoint(context.Background(), jc, c, DefaultProfile())
			is.True(errors.Is(err, boom))

			calls := rec.list()
			is.Equal(calls[len(calls)-1], tt.wantLast) // nothing runs after the failure
			is.Equal(c.session.greeting, "")
		})
	}
}

func TestFromJob_NilRoom(t *testing.T) {
	is := is.New(t)
	jc := FromJob(job.NewJobContext(context.Background()))
	is.True(jc.Room() == nil) // no typed-nil before Connect
}

func TestEntrypoint_FakePlugins(t *testing.T) {
	is := is.New(t)
	_, jc, _ := newFakes()

	p := DefaultProfile()
	p.Realtime = "fake"
	p.VAD = "fake"
	p.Avatar = "fake"

	c := newTestPluginComponents()
	is.NoErr(Entrypoint(context.Background(), jc, c, p))
	defer func() {
		for _, h := range jc.hooks {
			h("test done")
		}
	}()

	// The greeting is spoken through the avatar's data stream.
	deadline := time.Now().Add(2 * time.Second)
	for jc.room.count(avatar.ControlTopic) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("greeting never reached the avatar")
		}
		time.Sleep(5 * time.Millisecond)
	}
	is.True(jc.room.count(avatar.AudioStreamTopic) > 0)
}
