package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go"
	"github.com/pion/webrtc/v3"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/rtc"
)

var ErrNotConnected = errors.New("room not connected")

const (
	// Remote audio is decoded at the opus native rate.
	inputSampleRate  = 48000
	inputNumChannels = 1

	defaultEventBufferSize = 100
	defaultAudioBufferSize = 200
)

// RoomConfig describes how to join a room.
type RoomConfig struct {
	URL      string
	Token    string
	RoomName string

	// EventBufferSize defaults to 100. Events are dropped when it is full.
	EventBufferSize int

	AutoSubscribe AutoSubscribe
}

// Room is a joined LiveKit room. Remote microphone audio is decoded and
// delivered on AudioFrames as 10 ms 48 kHz mono frames.
type Room struct {
	// Events carries room events until Disconnect closes it.
	Events chan *Event

	cfg    RoomConfig
	ctx    context.Context
	cancel context.CancelFunc
	audio  chan rtc.AudioFrame

	// newDecoder is swapped in tests.
	newDecoder func() (rtc.Decoder, error)

	mu           sync.RWMutex
	room         *lksdk.Room
	connected    bool
	eventsClosed bool
	participants map[string]*livekit.ParticipantInfo
}

// NewRoom validates cfg and returns an unconnected Room.
func NewRoom(ctx context.Context, cfg RoomConfig) (*Room, error) {
	switch {
	case cfg.URL == "":
		return nil, errors.New("URL is required")
	case cfg.Token == "":
		return nil, errors.New("token is required")
	case cfg.RoomName == "":
		return nil, errors.New("room name is required")
	}

	bufferSize := cfg.EventBufferSize
	if bufferSize <= 0 {
		bufferSize = defaultEventBufferSize
	}

	roomCtx, cancel := context.WithCancel(ctx)
	return &Room{
		Events:       make(chan *Event, bufferSize),
		cfg:          cfg,
		ctx:          roomCtx,
		cancel:       cancel,
		audio:        make(chan rtc.AudioFrame, defaultAudioBufferSize),
		participants: make(map[string]*livekit.ParticipantInfo),
		newDecoder: func() (rtc.Decoder, error) {
			return rtc.NewOpusDecoder(inputSampleRate, inputNumChannels)
		},
	}, nil
}

// Connect joins the room with the configured token.
func (r *Room) Connect() error {
	r.mu.RLock()
	connected := r.connected
	r.mu.RUnlock()
	if connected {
		return errors.New("room is already connected")
	}

	callback := &lksdk.RoomCallback{
		OnParticipantConnected:    r.onParticipantConnected,
		OnParticipantDisconnected: r.onParticipantDisconnected,
		OnDisconnected:            r.onDisconnected,
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackPublished:    r.onTrackPublished,
			OnTrackSubscribed:   r.onTrackSubscribed,
			OnTrackUnsubscribed: r.onTrackUnsubscribed,
			OnDataReceived:      r.onDataReceived,
		},
	}

	room, err := lksdk.ConnectToRoomWithToken(r.cfg.URL, r.cfg.Token, callback,
		lksdk.WithAutoSubscribe(r.cfg.AutoSubscribe == SubscribeAll))
	if err != nil {
		return fmt.Errorf("failed to connect to room: %w", err)
	}

	r.mu.Lock()
	r.room = room
	r.connected = true
	r.mu.Unlock()

	slog.Info("Connected to LiveKit room",
		slog.String("room_name", r.cfg.RoomName),
		slog.String("url", r.cfg.URL),
		slog.String("auto_subscribe", r.cfg.AutoSubscribe.String()))

	// Tracks published before we joined do not fire OnTrackPublished.
	for _, p := range room.GetParticipants() {
		for _, pub := range p.Tracks() {
			if remote, ok := pub.(*lksdk.RemoteTrackPublication); ok {
				r.maybeSubscribe(remote, p.Identity())
			}
		}
	}
	return nil
}

// Disconnect leaves the room and closes Events. It is safe to call twice.
func (r *Room) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancel()

	if r.connected {
		r.connected = false
		if r.room != nil {
			r.room.Disconnect()
		}
		slog.Info("Disconnected from LiveKit room", slog.String("room_name", r.cfg.RoomName))
	}

	if !r.eventsClosed {
		close(r.Events)
		r.eventsClosed = true
	}
	return nil
}

func (r *Room) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

func (r *Room) Name() string {
	return r.cfg.RoomName
}

// LocalIdentity is the identity the token was minted for, empty before Connect.
func (r *Room) LocalIdentity() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.room == nil || r.room.LocalParticipant == nil {
		return ""
	}
	return r.room.LocalParticipant.Identity()
}

// AudioFrames yields decoded remote microphone audio. The channel is never
// closed; stop reading when the room's context ends.
func (r *Room) AudioFrames() <-chan rtc.AudioFrame {
	return r.audio
}

// Participants returns a snapshot of remote participants keyed by identity.
func (r *Room) Participants() map[string]*livekit.ParticipantInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*livekit.ParticipantInfo, len(r.participants))
	for k, v := range r.participants {
		out[k] = v
	}
	return out
}

// PublishData sends a reliable data packet on topic. Empty destinations
// broadcast to the whole room.
func (r *Room) PublishData(ctx context.Context, payload []byte, topic string, destinations []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	room, connected := r.room, r.connected
	r.mu.RUnlock()
	if !connected || room == nil {
		return ErrNotConnected
	}

	if err := room.LocalParticipant.PublishDataPacket(userPacket(payload, topic, destinations), livekit.DataPacket_RELIABLE); err != nil {
		return fmt.Errorf("publish data on %q: %w", topic, err)
	}
	return nil
}

// userPacket addresses payload to participant identities on topic.
func userPacket(payload []byte, topic string, destinations []string) *livekit.UserPacket {
	pkt := &livekit.UserPacket{
		Payload:               payload,
		DestinationIdentities: destinations,
	}
	if topic != "" {
		pkt.Topic = &topic
	}
	return pkt
}

func (r *Room) onParticipantConnected(p *lksdk.RemoteParticipant) {
	r.mu.Lock()
	r.participants[p.Identity()] = &livekit.ParticipantInfo{
		Sid:      p.SID(),
		Identity: p.Identity(),
		State:    livekit.ParticipantInfo_ACTIVE,
	}
	r.mu.Unlock()

	r.sendEvent(NewEvent(EventParticipantConnected).WithParticipant(p.Identity(), p.SID()))
	slog.Info("Participant connected",
		slog.String("identity", p.Identity()),
		slog.String("sid", p.SID()))
}

func (r *Room) onParticipantDisconnected(p *lksdk.RemoteParticipant) {
	r.mu.Lock()
	delete(r.participants, p.Identity())
	r.mu.Unlock()

	r.sendEvent(NewEvent(EventParticipantDisconnected).WithParticipant(p.Identity(), p.SID()))
	slog.Info("Participant disconnected",
		slog.String("identity", p.Identity()),
		slog.String("sid", p.SID()))
}

func (r *Room) onDisconnected() {
	r.sendEvent(NewEvent(EventDisconnected))
	slog.Warn("Room connection lost", slog.String("room_name", r.cfg.RoomName))
}

func (r *Room) onTrackPublished(pub *lksdk.RemoteTrackPublication, p *lksdk.RemoteParticipant) {
	r.sendEvent(NewEvent(EventTrackPublished).
		WithParticipant(p.Identity(), p.SID()).
		WithTrack(pub.SID(), pub.Name(), pub.Kind().ProtoType(), pub.Source()))
	r.maybeSubscribe(pub, p.Identity())
}

func (r *Room) maybeSubscribe(pub *lksdk.RemoteTrackPublication, identity string) {
	mode := r.cfg.AutoSubscribe
	// SubscribeAll is handled by the SDK.
	if mode == SubscribeAll || !wantsTrack(mode, pub.Kind()) || pub.IsSubscribed() {
		return
	}
	if err := pub.SetSubscribed(true); err != nil {
		slog.Error("Failed to subscribe to track",
			slog.String("error", err.Error()),
			slog.String("participant", identity),
			slog.String("track_sid", pub.SID()))
		return
	}
	slog.Info("Subscribing to track",
		slog.String("participant", identity),
		slog.String("track_sid", pub.SID()),
		slog.String("track_type", pub.Kind().String()))
}

func wantsTrack(mode AutoSubscribe, kind lksdk.TrackKind) bool {
	switch mode {
	case SubscribeAll:
		return true
	case AudioOnly:
		return kind == lksdk.TrackKindAudio
	case VideoOnly:
		return kind == lksdk.TrackKindVideo
	default:
		return false
	}
}

func (r *Room) onTrackSubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, p *lksdk.RemoteParticipant) {
	r.sendEvent(NewEvent(EventTrackSubscribed).
		WithParticipant(p.Identity(), p.SID()).
		WithTrack(pub.SID(), pub.Name(), pub.Kind().ProtoType(), pub.Source()))

	slog.Info("Track subscribed",
		slog.String("participant", p.Identity()),
		slog.String("track_sid", pub.SID()),
		slog.String("track_type", pub.Kind().String()))

	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}

	dec, err := r.newDecoder()
	if err != nil {
		slog.Warn("Remote audio will not be decoded",
			slog.String("participant", p.Identity()),
			slog.String("error", err.Error()))
		return
	}

	read := func() ([]byte, error) {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return nil, err
		}
		return pkt.Payload, nil
	}
	go r.pumpAudio(p.Identity(), read, dec)
}

// pumpAudio decodes packets from read until it fails or the room closes,
// re-framing the PCM into 10 ms frames on the audio channel.
func (r *Room) pumpAudio(identity string, read func() ([]byte, error), dec rtc.Decoder) {
	stream := rtc.NewByteStream(inputSampleRate, inputNumChannels)
	packets := 0

	for {
		if r.ctx.Err() != nil {
			return
		}

		payload, err := read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				slog.Debug("Audio track ended", slog.String("participant", identity))
			} else if r.ctx.Err() == nil {
				slog.Warn("Audio track read failed",
					slog.String("participant", identity),
					slog.String("error", err.Error()))
			}
			return
		}
		if len(payload) == 0 {
			continue
		}

		pcm, err := dec.Decode(payload)
		if err != nil {
			slog.Debug("Dropping undecodable packet",
				slog.String("participant", identity),
				slog.String("error", err.Error()))
			continue
		}

		packets++
		if packets%500 == 0 {
			slog.Debug("Receiving audio",
				slog.String("participant", identity),
				slog.Int("packets", packets))
		}

		for _, frame := range stream.Write(pcm) {
			select {
			case r.audio <- frame:
			case <-r.ctx.Done():
				return
			default:
				slog.Debug("Audio consumer behind, dropping frame", slog.String("participant", identity))
			}
		}
	}
}

func (r *Room) onTrackUnsubscribed(_ *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, p *lksdk.RemoteParticipant) {
	r.sendEvent(NewEvent(EventTrackUnsubscribed).
		WithParticipant(p.Identity(), p.SID()).
		WithTrack(pub.SID(), pub.Name(), pub.Kind().ProtoType(), pub.Source()))
}

func (r *Room) onDataReceived(data []byte, p *lksdk.RemoteParticipant) {
	r.sendEvent(NewEvent(EventDataReceived).
		WithParticipant(p.Identity(), p.SID()).
		WithData(data, ""))
}

// sendEvent drops the event if Events is closed or full.
func (r *Room) sendEvent(event *Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.eventsClosed {
		return
	}

	select {
	case r.Events <- event:
	case <-r.ctx.Done():
	default:
		slog.Warn("Events channel is full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}
