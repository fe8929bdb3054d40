package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/realtime"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/vad"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

var (
	ErrAlreadyStarted = errors.New("voice session already started")
	ErrNotStarted     = errors.New("voice session not started")
	ErrClosed         = errors.New("voice session closed")
)

// SessionOptions configures a Session.
type SessionOptions struct {
	// Model is required.
	Model realtime.Model

	// VAD, when set, replaces the model's own turn detection: speech end
	// commits the input buffer and requests a reply.
	VAD vad.VAD

	// DisableInterruptions drops user audio while the agent is speaking.
	DisableInterruptions bool

	Logger *slog.Logger
}

// Session wires a room's microphone audio to a realtime model and the
// model's speech to an AudioOutput.
type Session struct {
	opts   SessionOptions
	logger *slog.Logger
	gate   AudioGate

	mu      sync.Mutex
	started bool
	closed  bool
	agent   *Agent
	rt      realtime.Session
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// outMu guards the output path, which the event loop and interrupts share.
	outMu    sync.Mutex
	output   AudioOutput
	stream   *rtc.ByteStream
	speaking bool
}

// NewSession validates opts and returns an unstarted Session.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Model == nil {
		return nil, errors.New("voice session requires a realtime model")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var gate AudioGate = openGate{}
	if opts.DisableInterruptions {
		gate = NewAudioGate()
	}

	caps := opts.Model.Capabilities()
	return &Session{
		opts:   opts,
		logger: logger.With(slog.String("component", "voice_session")),
		gate:   gate,
		output: discardOutput{},
		stream: rtc.NewByteStream(caps.SampleRate, channels(caps)),
	}, nil
}

// Start opens the model session with the agent's instructions and begins
// relaying audio for room. It may be called once.
func (s *Session) Start(ctx context.Context, agent *Agent, room Room) error {
	if agent == nil {
		return errors.New("voice session requires an agent")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}

	turn := realtime.TurnDetectionServer
	if s.opts.VAD != nil {
		turn = realtime.TurnDetectionManual
	}

	rt, err := s.opts.Model.Connect(ctx, realtime.SessionConfig{
		Instructions:  agent.Instructions,
		TurnDetection: turn,
	})
	if err != nil {
		return fmt.Errorf("connect realtime model: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.rt = rt
	s.agent = agent
	s.cancel = cancel
	s.started = true

	var vadIn chan rtc.AudioFrame
	if s.opts.VAD != nil {
		vadIn = make(chan rtc.AudioFrame, 100)
		events, err := s.opts.VAD.Detect(runCtx, vadIn)
		if err != nil {
			cancel()
			_ = rt.Close()
			s.rt, s.cancel, s.agent = nil, nil, nil
			s.started = false
			return fmt.Errorf("start vad: %w", err)
		}
		s.wg.Add(1)
		go s.vadLoop(runCtx, events)
	}

	s.wg.Add(2)
	go s.inputLoop(runCtx, room, vadIn)
	go s.eventLoop(runCtx)

	roomName := ""
	if room != nil {
		roomName = room.Name()
	}
	s.logger.Info("Voice session started",
		slog.String("room", roomName),
		slog.Bool("local_vad", s.opts.VAD != nil))
	return nil
}

// GenerateReply asks the model to speak now. Instructions apply to this
// reply only.
func (s *Session) GenerateReply(ctx context.Context, instructions string) error {
	s.mu.Lock()
	rt, started, closed := s.rt, s.started, s.closed
	s.mu.Unlock()

	switch {
	case closed:
		return ErrClosed
	case !started:
		return ErrNotStarted
	}
	if err := rt.CreateResponse(ctx, instructions); err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}
	return nil
}

// SetAudioOutput replaces where synthesized speech goes.
func (s *Session) SetAudioOutput(out AudioOutput) {
	if out == nil {
		out = discardOutput{}
	}
	s.outMu.Lock()
	s.output = out
	s.outMu.Unlock()
}

// AudioOutput returns the current output.
func (s *Session) AudioOutput() AudioOutput {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	return s.output
}

// Agent returns the agent passed to Start, or nil before Start.
func (s *Session) Agent() *Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agent
}

// Close stops relaying and closes the model session.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	rt, cancel := s.rt, s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if rt != nil {
		err = rt.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Session) inputLoop(ctx context.Context, room Room, vadIn chan<- rtc.AudioFrame) {
	defer s.wg.Done()
	if vadIn != nil {
		defer close(vadIn)
	}
	if room == nil || room.AudioFrames() == nil {
		<-ctx.Done()
		return
	}

	modelRate := s.opts.Model.Capabilities().SampleRate
	vadRate := 0
	if s.opts.VAD != nil {
		vadRate = vad.PreferredSampleRate(s.opts.VAD)
	}

	frames := room.AudioFrames()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if s.gate.ShouldDiscardAudio() {
				continue
			}

			if err := s.rt.PushAudio(rtc.ResampleFrame(frame, modelRate).Data); err != nil {
				s.logger.Warn("Push audio failed", slog.String("error", err.Error()))
				continue
			}

			if vadIn != nil {
				select {
				case vadIn <- rtc.ResampleFrame(frame, vadRate):
				default:
					s.logger.Debug("VAD input full, dropping frame")
				}
			}
		}
	}
}

func (s *Session) vadLoop(ctx context.Context, events <-chan vad.VADEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case vad.VADEventSpeechStart:
				s.logger.Debug("User started speaking")
				s.interrupt()
			case vad.VADEventSpeechEnd:
				s.logger.Debug("User stopped speaking")
				if err := s.rt.CommitAudio(); err != nil {
					s.logger.Warn("Commit audio failed", slog.String("error", err.Error()))
					continue
				}
				if err := s.rt.CreateResponse(ctx, ""); err != nil {
					s.logger.Warn("Create response failed", slog.String("error", err.Error()))
				}
			case vad.VADEventError:
				s.logger.Warn("VAD error", slog.Any("error", ev.Error))
			}
		}
	}
}

func (s *Session) eventLoop(ctx context.Context) {
	defer s.wg.Done()
	events := s.rt.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ctx, ev)
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, ev realtime.Event) {
	switch ev.Type {
	case realtime.EventAudioDelta:
		s.outMu.Lock()
		if !s.speaking {
			s.speaking = true
			s.gate.SetAgentSpeaking(true)
		}
		out := s.output
		frames := s.stream.Write(ev.Audio)
		s.outMu.Unlock()

		for _, f := range frames {
			if err := out.CaptureFrame(ctx, f); err != nil {
				s.logger.Warn("Audio output rejected frame", slog.String("error", err.Error()))
				return
			}
		}

	case realtime.EventResponseDone:
		s.outMu.Lock()
		out := s.output
		last, ok := s.stream.Flush()
		s.speaking = false
		s.gate.SetAgentSpeaking(false)
		s.outMu.Unlock()

		if ok {
			if err := out.CaptureFrame(ctx, last); err != nil {
				s.logger.Warn("Audio output rejected frame", slog.String("error", err.Error()))
			}
		}
		out.Flush()
		s.logger.Debug("Response done", slog.String("response_id", ev.ResponseID))

	case realtime.EventSpeechStarted:
		s.interrupt()

	case realtime.EventTranscriptDelta:
		s.logger.Debug("Agent transcript", slog.String("text", ev.Text))

	case realtime.EventError:
		s.logger.Error("Realtime model error", slog.Any("error", ev.Err))
	}
}

// interrupt stops agent playback when the user starts talking.
func (s *Session) interrupt() {
	if s.opts.DisableInterruptions {
		return
	}
	s.outMu.Lock()
	if !s.speaking {
		s.outMu.Unlock()
		return
	}
	s.speaking = false
	s.stream.Reset()
	out := s.output
	s.outMu.Unlock()

	if err := s.rt.CancelResponse(); err != nil {
		s.logger.Warn("Cancel response failed", slog.String("error", err.Error()))
	}
	out.ClearBuffer()
	s.logger.Debug("Agent interrupted")
}

func channels(c realtime.Capabilities) int {
	if c.NumChannels <= 0 {
		return 1
	}
	return c.NumChannels
}
