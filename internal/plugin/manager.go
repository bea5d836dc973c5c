package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ayusman/akushu/internal/logging"
)

// ManifestFile is the file each hook directory must contain.
const ManifestFile = "plugin.json"

// ErrPluginNotFound is returned when a requested hook cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

// Manager discovers hooks and keeps them sorted by name.
type Manager struct {
	dir     string
	logger  *slog.Logger
	mu      sync.RWMutex
	plugins []*Plugin
}

// NewManager creates a new Manager for the given directory.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, logger: logging.GetLogger().With("component", "hooks")}
}

// Discover rescans the directory for subdirectories holding a manifest.
// A missing or empty directory setting yields no hooks; broken manifests are
// logged and skipped.
func (m *Manager) Discover() error {
	var found []*Plugin

	if m.dir != "" {
		entries, err := os.ReadDir(m.dir)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("read hook dir: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if p := m.loadPlugin(filepath.Join(m.dir, entry.Name())); p != nil {
				found = append(found, p)
			}
		}
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].Manifest.Name < found[j].Manifest.Name
	})

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()
	return nil
}

func (m *Manager) loadPlugin(path string) *Plugin {
	data, err := os.ReadFile(filepath.Join(path, ManifestFile))
	if err != nil {
		return nil
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		m.logger.Warn("skipping hook with invalid manifest", "path", path, "error", err)
		return nil
	}
	if manifest.Name == "" || manifest.Executable == "" {
		m.logger.Warn("skipping hook without name or executable", "path", path)
		return nil
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       path,
		Executable: filepath.Join(path, manifest.Executable),
	}
}

// Get returns a hook by name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.plugins {
		if p.Manifest.Name == name {
			return p, nil
		}
	}
	return nil, ErrPluginNotFound
}

// List returns all discovered hooks ordered by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Plugin(nil), m.plugins...)
}

// ForEvent returns the hooks subscribed to event, ordered by name.
func (m *Manager) ForEvent(event string) []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Plugin
	for _, p := range m.plugins {
		if p.Manifest.Handles(event) {
			out = append(out, p)
		}
	}
	return out
}

// PluginDir returns the hook directory path.
func (m *Manager) PluginDir() string {
	return m.dir
}
