// Package plugin is a registry of provider implementations (realtime models,
// voice activity detectors, avatars) that plugin packages fill from init()
// functions. Commands pick providers by name without importing them directly.
package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/realtime"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai/vad"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/avatar"
)

// Plugin kinds.
const (
	KindRealtime = "realtime"
	KindVAD      = "vad"
	KindAvatar   = "avatar"
)

// Factory creates a provider from configuration. The result must implement
// the interface for the plugin's kind: realtime.Model, vad.VAD or
// avatar.Session.
type Factory func(cfg map[string]any) (any, error)

// Downloader fetches model files a plugin needs at runtime.
type Downloader interface {
	Download() error
}

// Plugin is a registered provider and its metadata.
type Plugin struct {
	Kind        string
	Name        string
	Factory     Factory
	Description string
	Version     string
	Config      map[string]any // documented keys and their defaults
	Downloader  Downloader     // nil when nothing needs downloading
}

// Registry maps kind and name to a Plugin.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]map[string]*Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]map[string]*Plugin)}
}

var globalRegistry = NewRegistry()

// Default returns the registry that plugin packages register into.
func Default() *Registry {
	return globalRegistry
}

// Register adds a plugin to the global registry. It panics on duplicates.
func Register(kind, name string, factory Factory) {
	globalRegistry.Register(kind, name, factory)
}

// RegisterWithMetadata adds a plugin to the global registry. It panics on
// duplicates.
func RegisterWithMetadata(plugin *Plugin) {
	globalRegistry.RegisterWithMetadata(plugin)
}

func Get(kind, name string) (Factory, bool) {
	return globalRegistry.Get(kind, name)
}

func List(kind string) []*Plugin {
	return globalRegistry.List(kind)
}

func ListKinds() []string {
	return globalRegistry.ListKinds()
}

func (r *Registry) Register(kind, name string, factory Factory) {
	r.RegisterWithMetadata(&Plugin{Kind: kind, Name: name, Factory: factory})
}

func (r *Registry) RegisterWithMetadata(plugin *Plugin) {
	switch {
	case plugin.Kind == "":
		panic("plugin kind cannot be empty")
	case plugin.Name == "":
		panic("plugin name cannot be empty")
	case plugin.Factory == nil:
		panic("plugin factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.plugins[plugin.Kind] == nil {
		r.plugins[plugin.Kind] = make(map[string]*Plugin)
	}
	if existing, ok := r.plugins[plugin.Kind][plugin.Name]; ok {
		panic(fmt.Sprintf("plugin %s/%s already registered (existing version: %s, new version: %s)",
			plugin.Kind, plugin.Name, existing.Version, plugin.Version))
	}
	r.plugins[plugin.Kind][plugin.Name] = plugin
}

// Lookup returns the full plugin entry.
func (r *Registry) Lookup(kind, name string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[kind][name]
	return p, ok
}

// Get returns the factory for kind/name.
func (r *Registry) Get(kind, name string) (Factory, bool) {
	p, ok := r.Lookup(kind, name)
	if !ok {
		return nil, false
	}
	return p.Factory, true
}

// List returns plugins of kind, or all plugins when kind is empty, sorted by
// kind then name.
func (r *Registry) List(kind string) []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var plugins []*Plugin
	for k, byName := range r.plugins {
		if kind != "" && k != kind {
			continue
		}
		for _, p := range byName {
			plugins = append(plugins, p)
		}
	}

	sort.Slice(plugins, func(i, j int) bool {
		if plugins[i].Kind != plugins[j].Kind {
			return plugins[i].Kind < plugins[j].Kind
		}
		return plugins[i].Name < plugins[j].Name
	})
	return plugins
}

func (r *Registry) ListKinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.plugins))
	for kind := range r.plugins {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Clear removes every plugin. Tests use it on private registries.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = make(map[string]map[string]*Plugin)
}

// NewRealtime builds the realtime model registered as name.
func (r *Registry) NewRealtime(name string, cfg map[string]any) (realtime.Model, error) {
	return build[realtime.Model](r, KindRealtime, name, cfg)
}

// NewVAD builds the VAD registered as name.
func (r *Registry) NewVAD(name string, cfg map[string]any) (vad.VAD, error) {
	return build[vad.VAD](r, KindVAD, name, cfg)
}

// NewAvatar builds the avatar session registered as name.
func (r *Registry) NewAvatar(name string, cfg map[string]any) (avatar.Session, error) {
	return build[avatar.Session](r, KindAvatar, name, cfg)
}

func build[T any](r *Registry, kind, name string, cfg map[string]any) (T, error) {
	var zero T

	factory, ok := r.Get(kind, name)
	if !ok {
		return zero, fmt.Errorf("%s plugin %q not registered", kind, name)
	}
	if cfg == nil {
		cfg = map[string]any{}
	}

	v, err := factory(cfg)
	if err != nil {
		return zero, fmt.Errorf("create %s/%s: %w", kind, name, err)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s/%s factory returned %T", kind, name, v)
	}
	return typed, nil
}
