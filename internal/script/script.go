// Package script runs an optional user Lua script that may rewrite a color
// before it is sent to the lights.
//
// The script can define
//
//	function on_color(r, g, b, source) return r, g, b end
//
// where source is "pick" for a newly picked color and "replay" for a
// long-press re-send. Returning nil keeps the original color.
package script

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/deckcolor/internal/color"
)

// HookName is the global function looked up in the script.
const HookName = "on_color"

// Script owns one Lua VM. LState is not goroutine-safe, so every call holds mu.
type Script struct {
	mu   sync.Mutex
	L    *lua.LState
	path string
}

// Load executes the script file and returns a ready Script.
func Load(path string) (*Script, error) {
	L := lua.NewState()
	L.PreloadModule("log", NewLogModule().Loader)

	log.Info().Str("path", path).Msg("Loading Lua script")

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to execute Lua script: %w", err)
	}

	s := &Script{L: L, path: path}
	if !s.HasHook() {
		log.Warn().Str("path", path).Msg("Lua script does not define " + HookName)
	}
	return s, nil
}

// LoadString is Load for inline source.
func LoadString(source string) (*Script, error) {
	L := lua.NewState()
	L.PreloadModule("log", NewLogModule().Loader)

	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to execute Lua script: %w", err)
	}
	return &Script{L: L, path: "<string>"}, nil
}

// HasHook reports whether the script defines on_color.
func (s *Script) HasHook() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.L.GetGlobal(HookName).(*lua.LFunction)
	return ok
}

// Transform calls on_color. Without a hook the color is returned unchanged.
// Results are rounded and must be valid channels.
func (s *Script) Transform(c color.RGB, source string) (color.RGB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn, ok := s.L.GetGlobal(HookName).(*lua.LFunction)
	if !ok {
		return c, nil
	}

	err := s.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    3,
		Protect: true,
	}, lua.LNumber(c.R()), lua.LNumber(c.G()), lua.LNumber(c.B()), lua.LString(source))
	if err != nil {
		return c, fmt.Errorf("%s failed: %w", HookName, err)
	}

	rets := [3]lua.LValue{s.L.Get(-3), s.L.Get(-2), s.L.Get(-1)}
	s.L.Pop(3)

	if rets[0] == lua.LNil {
		return c, nil
	}

	var out color.RGB
	for i, v := range rets {
		n, ok := v.(lua.LNumber)
		if !ok {
			return c, fmt.Errorf("%s returned %s for channel %d, want number", HookName, v.Type().String(), i+1)
		}
		out[i] = int(math.Round(float64(n)))
	}
	if err := out.Validate(); err != nil {
		return c, err
	}
	return out, nil
}

// Close releases the Lua VM.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.L.Close()
}
