package bey

import (
	"os"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/plugin"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/token"
)

func newAvatar(cfg map[string]any) (any, error) {
	signer, _ := cfg["signer"].(token.Signer)
	if signer == nil {
		signer = token.NewIssuer(
			plugin.String(cfg, "livekit_api_key", os.Getenv("LIVEKIT_API_KEY")),
			plugin.String(cfg, "livekit_api_secret", os.Getenv("LIVEKIT_API_SECRET")),
		)
	}

	apiURL := plugin.String(cfg, "api_url", os.Getenv("BEY_API_URL"))
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	return NewAvatarSession(Config{
		APIKey:     plugin.String(cfg, "api_key", os.Getenv("BEY_API_KEY")),
		APIURL:     apiURL,
		AvatarID:   plugin.String(cfg, "avatar_id", DefaultAvatarID),
		LiveKitURL: plugin.String(cfg, "livekit_url", os.Getenv("LIVEKIT_URL")),
		Signer:     signer,
	})
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindAvatar,
		Name:        "bey",
		Factory:     newAvatar,
		Description: "Beyond Presence video avatar",
		Version:     "1.0.0",
		Config: map[string]any{
			"api_key":     "Beyond Presence API key (or BEY_API_KEY)",
			"api_url":     DefaultAPIURL,
			"avatar_id":   DefaultAvatarID,
			"livekit_url": "LiveKit server URL (or LIVEKIT_URL)",
		},
	})
}
