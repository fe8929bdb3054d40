// Package avatar connects a voice session to a remote avatar participant that
// renders the agent's speech as video.
package avatar

import (
	"context"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/voice"
)

const (
	// AudioStreamTopic carries raw 16-bit PCM to the avatar.
	AudioStreamTopic = "lk.audio_stream"
	// ControlTopic carries JSON control messages to the avatar.
	ControlTopic = "lk.avatar.control"
)

// Publisher sends data packets into a room.
type Publisher interface {
	PublishData(ctx context.Context, payload []byte, topic string, destinations []string) error
}

// Room is what an avatar session needs from the joined room.
type Room interface {
	voice.Room
	Publisher
}

// Target is the session whose speech the avatar renders.
type Target interface {
	SetAudioOutput(out voice.AudioOutput)
}

// Session is a provider-specific avatar. Start brings the avatar into room
// and redirects target's audio to it.
type Session interface {
	Start(ctx context.Context, target Target, room Room) error
}
