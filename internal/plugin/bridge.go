package plugin

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/corekit/internal/bus"
	"github.com/dshills/corekit/internal/core"
	"github.com/dshills/corekit/internal/state"
)

// bridge exposes the coordination runtime to a plugin's Lua state as the
// global `core` table.
//
// Handlers run synchronously on the goroutine that publishes or writes,
// which in this runtime is the goroutine that fired the lifecycle
// signal; gopher-lua states are not goroutine-safe, so the bridge relies
// on the runtime's single-threaded dispatch discipline.
type bridge struct {
	rt      *core.Runtime
	name    string
	nextID  uint64
	subs    map[uint64]*bus.Subscription
	watches []*state.Subscription
}

func newBridge(rt *core.Runtime, name string) *bridge {
	return &bridge{
		rt:   rt,
		name: name,
		subs: make(map[uint64]*bus.Subscription),
	}
}

// register installs the `core` table into L.
func (b *bridge) register(L *lua.LState) {
	mod := L.NewTable()

	L.SetField(mod, "on", L.NewFunction(b.on))
	L.SetField(mod, "off", L.NewFunction(b.off))
	L.SetField(mod, "emit", L.NewFunction(b.emit))
	L.SetField(mod, "get", L.NewFunction(b.get))
	L.SetField(mod, "set", L.NewFunction(b.set))
	L.SetField(mod, "watch", L.NewFunction(b.watch))
	L.SetField(mod, "record", L.NewFunction(b.record))

	L.SetGlobal("core", mod)
}

// cleanup removes every bus and state subscription the plugin created,
// so nothing fires into the Lua state after it closes.
func (b *bridge) cleanup() {
	for _, sub := range b.subs {
		sub.Unsubscribe()
	}
	b.subs = make(map[uint64]*bus.Subscription)

	for _, sub := range b.watches {
		sub.Unsubscribe()
	}
	b.watches = nil
}

// on(topic, handler) -> handle
func (b *bridge) on(L *lua.LState) int {
	topic := L.CheckString(1)
	fn := L.CheckFunction(2)

	sub := b.rt.Register(topic, func(data any) {
		b.call(L, fn, goToLua(L, data))
	})

	b.nextID++
	b.subs[b.nextID] = sub
	L.Push(lua.LNumber(b.nextID))
	return 1
}

// off(handle)
func (b *bridge) off(L *lua.LState) int {
	id := uint64(L.CheckNumber(1))
	if sub, ok := b.subs[id]; ok {
		sub.Unsubscribe()
		delete(b.subs, id)
	}
	return 0
}

// emit(topic [, data])
func (b *bridge) emit(L *lua.LState) int {
	topic := L.CheckString(1)
	var data any
	if L.GetTop() >= 2 {
		data = luaToGo(L.Get(2))
	}
	b.rt.Publish(topic, data)
	return 0
}

// get(key) -> value | nil
func (b *bridge) get(L *lua.LState) int {
	key := L.CheckString(1)
	v, ok := b.rt.Get(key)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(goToLua(L, v))
	return 1
}

// set(key, value)
func (b *bridge) set(L *lua.LState) int {
	key := L.CheckString(1)
	value := luaToGo(L.Get(2))
	b.rt.Set(key, value)
	return 0
}

// watch(key, fn)
func (b *bridge) watch(L *lua.LState) int {
	key := L.CheckString(1)
	fn := L.CheckFunction(2)

	sub := b.rt.Subscribe(key, func(value any) {
		b.call(L, fn, goToLua(L, value))
	})
	b.watches = append(b.watches, sub)
	return 0
}

// record(type [, payload])
func (b *bridge) record(L *lua.LState) int {
	recordType := L.CheckString(1)
	var payload any
	if L.GetTop() >= 2 {
		payload = luaToGo(L.Get(2))
	}
	b.rt.Record(recordType, payload, b.name)
	return 0
}

// call invokes a Lua callback with one argument. A Lua error becomes a
// Go panic, which the bus/store dispatch isolation recovers and reports.
func (b *bridge) call(L *lua.LState, fn *lua.LFunction, arg lua.LValue) {
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, arg); err != nil {
		panic(fmt.Sprintf("plugin %s: %v", b.name, err))
	}
}

// luaToGo converts a Lua value to its Go equivalent.
func luaToGo(v lua.LValue) any {
	switch lv := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(lv)
	case lua.LNumber:
		return float64(lv)
	case lua.LString:
		return string(lv)
	case *lua.LTable:
		// Tables with consecutive integer keys become slices.
		maxN := lv.MaxN()
		if maxN > 0 {
			out := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				out = append(out, luaToGo(lv.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]any)
		lv.ForEach(func(k, val lua.LValue) {
			out[k.String()] = luaToGo(val)
		})
		return out
	default:
		return v.String()
	}
}

// goToLua converts a Go value to its Lua equivalent.
func goToLua(L *lua.LState, v any) lua.LValue {
	switch gv := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(gv)
	case int:
		return lua.LNumber(gv)
	case int64:
		return lua.LNumber(gv)
	case float64:
		return lua.LNumber(gv)
	case string:
		return lua.LString(gv)
	case []any:
		tbl := L.NewTable()
		for _, item := range gv {
			tbl.Append(goToLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, val := range gv {
			L.SetField(tbl, k, goToLua(L, val))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprint(gv))
	}
}
