package openai

import (
	"os"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/plugin"
)

func newRealtime(cfg map[string]any) (any, error) {
	url := plugin.String(cfg, "url", "")
	if url == "" {
		url = RealtimeURL(plugin.String(cfg, "base_url", os.Getenv("OPENAI_BASE_URL")))
	}
	return NewRealtimeModel(RealtimeConfig{
		APIKey:      plugin.String(cfg, "api_key", os.Getenv("OPENAI_API_KEY")),
		Model:       plugin.String(cfg, "model", os.Getenv("OPENAI_REALTIME_MODEL")),
		Voice:       plugin.String(cfg, "voice", DefaultVoice),
		Temperature: plugin.Float(cfg, "temperature", DefaultTemperature),
		URL:         url,
	})
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindRealtime,
		Name:        "openai",
		Factory:     newRealtime,
		Description: "OpenAI Realtime API speech-to-speech model",
		Version:     "1.0.0",
		Config: map[string]any{
			"api_key":     "OpenAI API key (or OPENAI_API_KEY)",
			"model":       DefaultModel,
			"voice":       DefaultVoice,
			"temperature": DefaultTemperature,
			"base_url":    "HTTP API base (or OPENAI_BASE_URL)",
		},
	})
}
