//go:build plugindyn && linux

package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	goplugin "plugin"
	"strings"
)

// DefaultPluginDir is searched when neither an argument nor LK_PLUGIN_PATH
// names a directory.
const DefaultPluginDir = "/usr/local/lib/beyond-presence-avatar/plugins"

// LoadDynamicPlugins opens every .so in dir and calls its exported
// RegisterPlugins() error. A missing directory loads nothing.
func LoadDynamicPlugins(dir string) error {
	if dir == "" {
		dir = os.Getenv("LK_PLUGIN_PATH")
	}
	if dir == "" {
		dir = DefaultPluginDir
	}

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.so"))
	if err != nil {
		return fmt.Errorf("search plugins in %s: %w", dir, err)
	}

	for _, file := range files {
		if err := loadSharedObject(file); err != nil {
			return fmt.Errorf("load plugin %s: %w", file, err)
		}
	}
	if len(files) > 0 {
		slog.Info("Loaded dynamic plugins",
			slog.Int("count", len(files)),
			slog.String("directory", dir))
	}
	return nil
}

func loadSharedObject(file string) error {
	p, err := goplugin.Open(file)
	if err != nil {
		return err
	}
	sym, err := p.Lookup("RegisterPlugins")
	if err != nil {
		return fmt.Errorf("missing RegisterPlugins: %w", err)
	}
	register, ok := sym.(func() error)
	if !ok {
		return errors.New("RegisterPlugins must be func() error")
	}
	if err := register(); err != nil {
		return err
	}

	slog.Info("Loaded plugin",
		slog.String("name", strings.TrimSuffix(filepath.Base(file), ".so")),
		slog.String("file", file))
	return nil
}
