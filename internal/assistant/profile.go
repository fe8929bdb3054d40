// Package assistant is the avatar assistant job: it joins the room, starts a
// realtime voice session, hands the session's speech to a video avatar and
// greets the user.
package assistant

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultInstructions = "You are English helpful assistance with a visual presence."
	DefaultGreeting     = "You should start by speaking in English. Greet the user saying **Welcome to the bots how can i help you**"
	DefaultAvatarID     = "694c83e2-8895-4a98-bd16-56332ca3f449"
	DefaultVoice        = "coral"
)

// Profile is the assistant persona and the providers that run it.
type Profile struct {
	Instructions string `yaml:"instructions"`
	Greeting     string `yaml:"greeting"`
	AvatarID     string `yaml:"avatar_id"`
	Voice        string `yaml:"voice"`

	// Plugin names per kind. An empty VAD leaves turn detection to the
	// realtime model.
	Realtime string `yaml:"realtime"`
	VAD      string `yaml:"vad"`
	Avatar   string `yaml:"avatar"`

	DisableInterruptions bool `yaml:"disable_interruptions"`

	// Plugins holds extra factory settings keyed by plugin kind.
	Plugins map[string]map[string]any `yaml:"plugins,omitempty"`
}

// DefaultProfile returns the stock assistant.
func DefaultProfile() Profile {
	return Profile{
		Instructions: DefaultInstructions,
		Greeting:     DefaultGreeting,
		AvatarID:     DefaultAvatarID,
		Voice:        DefaultVoice,
		Realtime:     "openai",
		VAD:          "silero",
		Avatar:       "bey",
	}
}

// LoadProfile reads a YAML profile. Fields the file leaves out keep their
// defaults. An empty path returns DefaultProfile.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Validate checks that every required provider is named.
func (p Profile) Validate() error {
	switch {
	case p.Realtime == "":
		return fmt.Errorf("realtime plugin is required")
	case p.Avatar == "":
		return fmt.Errorf("avatar plugin is required")
	case p.Greeting == "":
		return fmt.Errorf("greeting is required")
	}
	return nil
}

// UsesFakes reports whether any provider is a fake plugin.
func (p Profile) UsesFakes() bool {
	return p.Realtime == "fake" || p.VAD == "fake" || p.Avatar == "fake"
}

// pluginConfig returns a copy of the profile's settings for kind with base
// applied underneath.
func (p Profile) pluginConfig(kind string, base map[string]any) map[string]any {
	cfg := make(map[string]any, len(base))
	for k, v := range base {
		cfg[k] = v
	}
	for k, v := range p.Plugins[kind] {
		cfg[k] = v
	}
	return cfg
}
