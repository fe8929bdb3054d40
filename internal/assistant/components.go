package assistant

import (
	"log/slog"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/internal/config"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/vad"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/avatar"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/plugin"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/token"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/voice"
)

// PluginComponents builds components from registered plugins. Credentials
// come from Config; the Profile picks plugins and may override settings.
type PluginComponents struct {
	Registry *plugin.Registry
	Config   config.Config
	// Signer mints the avatar's room token.
	Signer token.Signer
	Logger *slog.Logger
}

// NewPluginComponents uses the default registry and an issuer built from
// cfg's LiveKit credentials.
func NewPluginComponents(cfg config.Config, logger *slog.Logger) *PluginComponents {
	if logger == nil {
		logger = slog.Default()
	}
	return &PluginComponents{
		Registry: plugin.Default(),
		Config:   cfg,
		Signer:   token.NewIssuer(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret),
		Logger:   logger,
	}
}

func (c *PluginComponents) NewSession(p Profile) (VoiceSession, error) {
	model, err := c.Registry.NewRealtime(p.Realtime, p.pluginConfig(plugin.KindRealtime, map[string]any{
		"voice":    p.Voice,
		"api_key":  c.Config.OpenAI.APIKey,
		"model":    c.Config.OpenAI.Model,
		"base_url": c.Config.OpenAI.BaseURL,
	}))
	if err != nil {
		return nil, err
	}

	var detector vad.VAD
	if p.VAD != "" {
		detector, err = c.Registry.NewVAD(p.VAD, p.pluginConfig(plugin.KindVAD, nil))
		if err != nil {
			return nil, err
		}
	}

	session, err := voice.NewSession(voice.SessionOptions{
		Model:                model,
		VAD:                  detector,
		DisableInterruptions: p.DisableInterruptions,
		Logger:               c.Logger,
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (c *PluginComponents) NewAgent(p Profile) *voice.Agent {
	return voice.NewAgent(p.Instructions)
}

func (c *PluginComponents) NewAvatar(p Profile) (avatar.Session, error) {
	return c.Registry.NewAvatar(p.Avatar, p.pluginConfig(plugin.KindAvatar, map[string]any{
		"api_key":     c.Config.Bey.APIKey,
		"api_url":     c.Config.Bey.APIURL,
		"avatar_id":   p.AvatarID,
		"livekit_url": c.Config.LiveKit.URL,
		"signer":      c.Signer,
	}))
}
