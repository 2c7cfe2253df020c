package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dshills/corekit/internal/core"
)

// ErrAlreadyLoaded is returned when Load is called twice on a host.
var ErrAlreadyLoaded = errors.New("plugin already loaded")

// Manager loads every Lua feature module in a directory.
// Scripts load in lexical filename order, which fixes the registration
// order of their initializers.
type Manager struct {
	hosts []*Host
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// LoadDir loads all *.lua scripts under dir. A script that fails to load
// is skipped and reported through the returned error list; remaining
// scripts still load.
func (m *Manager) LoadDir(rt *core.Runtime, dir string) []error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return []error{fmt.Errorf("read plugin dir: %w", err)}
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	var errs []error
	for _, path := range paths {
		host := NewHost(rt, path)
		if err := host.Load(); err != nil {
			errs = append(errs, err)
			continue
		}
		m.hosts = append(m.hosts, host)
	}
	return errs
}

// Hosts returns the loaded modules in load order.
func (m *Manager) Hosts() []*Host {
	return m.hosts
}

// Close unloads every module.
func (m *Manager) Close() {
	for _, host := range m.hosts {
		host.Close()
	}
	m.hosts = nil
}
