// Package plugin hosts feature modules written as Lua scripts.
//
// A script runs once at load time, during the runtime's Loading phase,
// and uses the `core` global to register event handlers and state
// subscribers. If the script defines a global `ready` function it is
// registered as the module's initializer and runs when the lifecycle
// signal fires.
package plugin

import (
	"fmt"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/corekit/internal/core"
)

// Host manages a single Lua feature module.
type Host struct {
	name   string
	path   string
	rt     *core.Runtime
	state  *lua.LState
	bridge *bridge
	loaded bool
}

// NewHost creates a host for the script at path.
func NewHost(rt *core.Runtime, path string) *Host {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Host{
		name: name,
		path: path,
		rt:   rt,
	}
}

// Name returns the module name (script file name without extension).
func (h *Host) Name() string {
	return h.name
}

// Load runs the script and registers its `ready` initializer, if any.
func (h *Host) Load() error {
	if h.loaded {
		return ErrAlreadyLoaded
	}

	h.state = lua.NewState()
	h.bridge = newBridge(h.rt, h.name)
	h.bridge.register(h.state)

	if err := h.state.DoFile(h.path); err != nil {
		h.Close()
		return fmt.Errorf("load plugin %s: %w", h.name, err)
	}
	h.loaded = true

	if ready, ok := h.state.GetGlobal("ready").(*lua.LFunction); ok {
		if err := h.rt.OnReady(h.name, func() error {
			return h.state.CallByParam(lua.P{Fn: ready, NRet: 0, Protect: true})
		}); err != nil {
			// The script already ran and registered handlers; release
			// them rather than leave a rejected module attached.
			h.Close()
			return fmt.Errorf("register plugin %s: %w", h.name, err)
		}
	}
	return nil
}

// Close releases the module's subscriptions and Lua state.
func (h *Host) Close() {
	if h.bridge != nil {
		h.bridge.cleanup()
		h.bridge = nil
	}
	if h.state != nil {
		h.state.Close()
		h.state = nil
	}
	h.loaded = false
}
