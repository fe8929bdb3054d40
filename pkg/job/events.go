package job

import (
	"time"

	"github.com/livekit/protocol/livekit"
)

// EventType names a room event.
type EventType string

const (
	EventParticipantConnected    EventType = "participant_connected"
	EventParticipantDisconnected EventType = "participant_disconnected"
	EventTrackPublished          EventType = "track_published"
	EventTrackSubscribed         EventType = "track_subscribed"
	EventTrackUnsubscribed       EventType = "track_unsubscribed"
	EventDataReceived            EventType = "data_received"
	EventDisconnected            EventType = "disconnected"
)

// Event is a room event. Only the fields relevant to Type are set.
type Event struct {
	Type      EventType
	Timestamp time.Time

	Participant *livekit.ParticipantInfo
	Track       *livekit.TrackInfo

	// Data and Topic are set for EventDataReceived.
	Data  []byte
	Topic string
}

func NewEvent(eventType EventType) *Event {
	return &Event{Type: eventType, Timestamp: time.Now()}
}

func (e *Event) WithParticipant(identity, sid string) *Event {
	e.Participant = &livekit.ParticipantInfo{
		Identity: identity,
		Sid:      sid,
		State:    livekit.ParticipantInfo_ACTIVE,
	}
	if e.Type == EventParticipantDisconnected {
		e.Participant.State = livekit.ParticipantInfo_DISCONNECTED
	}
	return e
}

func (e *Event) WithTrack(sid, name string, kind livekit.TrackType, source livekit.TrackSource) *Event {
	e.Track = &livekit.TrackInfo{Sid: sid, Name: name, Type: kind, Source: source}
	return e
}

func (e *Event) WithData(data []byte, topic string) *Event {
	e.Data = data
	e.Topic = topic
	return e
}
