package voice

import (
	"sync"
	"testing"
)

func TestAudioGate(t *testing.T) {
	gate := NewAudioGate()

	if gate.ShouldDiscardAudio() {
		t.Error("new gate should let audio through")
	}

	gate.SetAgentSpeaking(true)
	if !gate.ShouldDiscardAudio() {
		t.Error("gate should discard while the agent speaks")
	}

	gate.SetAgentSpeaking(false)
	if gate.ShouldDiscardAudio() {
		t.Error("gate should reopen when the agent stops")
	}
}

func TestOpenGate(t *testing.T) {
	var g AudioGate = openGate{}
	g.SetAgentSpeaking(true)
	if g.ShouldDiscardAudio() {
		t.Error("open gate never discards")
	}
}

func TestAudioGateConcurrency(t *testing.T) {
	gate := NewAudioGate()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(speaking bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				gate.SetAgentSpeaking(speaking)
			}
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = gate.ShouldDiscardAudio()
			}
		}()
	}
	wg.Wait()
}
