// Package fake registers provider-free plugins so the agent can run in dev
// mode and in tests without network credentials.
package fake

import (
	realtimefake "github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/realtime/fake"
	vadfake "github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/vad/fake"
	avatarfake "github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/avatar/fake"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/plugin"
)

func newFakeRealtime(cfg map[string]any) (any, error) {
	return realtimefake.NewModel(plugin.String(cfg, "voice", "alloy")), nil
}

func newFakeVAD(cfg map[string]any) (any, error) {
	v := vadfake.NewFakeVAD().WithHysteresis(
		plugin.Int(cfg, "start_frames", vadfake.DefaultStartFrames),
		plugin.Int(cfg, "end_frames", vadfake.DefaultEndFrames),
	)
	return v, nil
}

func newFakeAvatar(cfg map[string]any) (any, error) {
	a := avatarfake.NewAvatar(plugin.String(cfg, "identity", avatarfake.DefaultIdentity))
	a.Record = plugin.String(cfg, "record", "")
	return a, nil
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindRealtime,
		Name:        "fake",
		Factory:     newFakeRealtime,
		Description: "Scripted realtime model that answers with a tone",
		Version:     "1.0.0",
		Config: map[string]any{
			"voice": "alloy",
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindVAD,
		Name:        "fake",
		Factory:     newFakeVAD,
		Description: "Amplitude threshold VAD for testing and development",
		Version:     "1.0.0",
		Config: map[string]any{
			"start_frames": vadfake.DefaultStartFrames,
			"end_frames":   vadfake.DefaultEndFrames,
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindAvatar,
		Name:        "fake",
		Factory:     newFakeAvatar,
		Description: "Streams speech to a local participant identity, no provider session",
		Version:     "1.0.0",
		Config: map[string]any{
			"identity": avatarfake.DefaultIdentity,
			"record":   "",
		},
	})
}
