package plugin

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/realtime"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/avatar"
)

type mockModel struct {
	voice string
}

func (m *mockModel) Connect(context.Context, realtime.SessionConfig) (realtime.Session, error) {
	return nil, nil
}

func (m *mockModel) Capabilities() realtime.Capabilities {
	return realtime.Capabilities{SampleRate: 24000, NumChannels: 1, Voice: m.voice}
}

func newMockModel(cfg map[string]any) (any, error) {
	voice := "alloy"
	if v, ok := cfg["voice"].(string); ok {
		voice = v
	}
	return &mockModel{voice: voice}, nil
}

type mockAvatar struct{}

func (mockAvatar) Start(context.Context, avatar.Target, avatar.Room) error { return nil }

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register(KindRealtime, "mock", newMockModel)

	factory, ok := r.Get(KindRealtime, "mock")
	if !ok || factory == nil {
		t.Fatal("expected plugin to be registered")
	}
}

func TestRegistry_RegisterPanics(t *testing.T) {
	tests := []struct {
		name   string
		plugin *Plugin
	}{
		{"empty kind", &Plugin{Name: "mock", Factory: newMockModel}},
		{"empty name", &Plugin{Kind: KindRealtime, Factory: newMockModel}},
		{"nil factory", &Plugin{Kind: KindRealtime, Name: "mock"}},
		{"duplicate", &Plugin{Kind: KindRealtime, Name: "dup", Factory: newMockModel}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			r.Register(KindRealtime, "dup", newMockModel)

			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			r.RegisterWithMetadata(tt.plugin)
		})
	}
}

func TestRegistry_GetAndLookup(t *testing.T) {
	r := NewRegistry()
	r.RegisterWithMetadata(&Plugin{
		Kind:        KindRealtime,
		Name:        "mock",
		Factory:     newMockModel,
		Description: "mock model",
		Version:     "1.0.0",
	})

	factory, ok := r.Get(KindRealtime, "mock")
	if !ok {
		t.Fatal("expected to find registered plugin")
	}
	instance, err := factory(map[string]any{"voice": "coral"})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if m, ok := instance.(*mockModel); !ok || m.voice != "coral" {
		t.Errorf("unexpected instance %#v", instance)
	}

	p, ok := r.Lookup(KindRealtime, "mock")
	if !ok || p.Description != "mock model" {
		t.Errorf("unexpected lookup result %+v", p)
	}

	if _, ok := r.Get(KindRealtime, "missing"); ok {
		t.Error("expected missing name to fail")
	}
	if _, ok := r.Get("missing", "mock"); ok {
		t.Error("expected missing kind to fail")
	}
}

func TestRegistry_TypedBuilders(t *testing.T) {
	r := NewRegistry()
	r.Register(KindRealtime, "mock", newMockModel)
	r.Register(KindAvatar, "mock", func(map[string]any) (any, error) { return mockAvatar{}, nil })
	r.Register(KindVAD, "wrong-type", newMockModel)

	model, err := r.NewRealtime("mock", nil)
	if err != nil {
		t.Fatalf("NewRealtime: %v", err)
	}
	if model.Capabilities().Voice != "alloy" {
		t.Errorf("expected default voice, got %s", model.Capabilities().Voice)
	}

	if _, err := r.NewAvatar("mock", nil); err != nil {
		t.Errorf("NewAvatar: %v", err)
	}

	_, err = r.NewVAD("wrong-type", nil)
	if err == nil || !strings.Contains(err.Error(), "factory returned") {
		t.Errorf("expected type mismatch error, got %v", err)
	}

	_, err = r.NewVAD("missing", nil)
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("expected not registered error, got %v", err)
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	r.Register(KindVAD, "silero", newMockModel)
	r.Register(KindRealtime, "openai", newMockModel)
	r.Register(KindRealtime, "fake", newMockModel)

	all := r.List("")
	want := []string{"realtime/fake", "realtime/openai", "vad/silero"}
	var got []string
	for _, p := range all {
		got = append(got, p.Kind+"/"+p.Name)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if n := len(r.List(KindRealtime)); n != 2 {
		t.Errorf("expected 2 realtime plugins, got %d", n)
	}
	if n := len(r.List("nonexistent")); n != 0 {
		t.Errorf("expected 0 plugins, got %d", n)
	}
}

func TestRegistry_ListKindsAndClear(t *testing.T) {
	r := NewRegistry()
	if len(r.ListKinds()) != 0 {
		t.Error("new registry should be empty")
	}

	r.Register(KindVAD, "fake", newMockModel)
	r.Register(KindAvatar, "fake", newMockModel)
	r.Register(KindRealtime, "fake", newMockModel)

	want := []string{KindAvatar, KindRealtime, KindVAD}
	if got := r.ListKinds(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected kinds %v, got %v", want, got)
	}

	r.Clear()
	if len(r.List("")) != 0 {
		t.Error("expected 0 plugins after clear")
	}
}

func TestGlobalRegistry(t *testing.T) {
	saved := globalRegistry
	globalRegistry = NewRegistry()
	defer func() { globalRegistry = saved }()

	Register(KindRealtime, "global-test", newMockModel)

	if _, ok := Get(KindRealtime, "global-test"); !ok {
		t.Error("expected to find globally registered plugin")
	}
	if len(List(KindRealtime)) != 1 {
		t.Error("expected 1 global plugin")
	}
	if kinds := ListKinds(); len(kinds) != 1 || kinds[0] != KindRealtime {
		t.Errorf("expected [realtime], got %v", kinds)
	}
	if Default() != globalRegistry {
		t.Error("Default should return the global registry")
	}
}
