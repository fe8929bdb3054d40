package voice

import "sync/atomic"

// AudioGate decides whether microphone frames reach the model. While the
// agent is speaking and interruptions are disabled, frames are dropped so the
// user cannot barge in.
type AudioGate interface {
	SetAgentSpeaking(speaking bool)
	ShouldDiscardAudio() bool
}

// NewAudioGate returns a gate that starts open.
func NewAudioGate() AudioGate {
	return &defaultGate{}
}

type defaultGate struct {
	speaking atomic.Bool
}

func (g *defaultGate) SetAgentSpeaking(speaking bool) {
	g.speaking.Store(speaking)
}

func (g *defaultGate) ShouldDiscardAudio() bool {
	return g.speaking.Load()
}

// openGate never discards; used when interruptions are allowed.
type openGate struct{}

func (openGate) SetAgentSpeaking(bool)    {}
func (openGate) ShouldDiscardAudio() bool { return false }
