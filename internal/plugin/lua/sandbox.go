package lua

import (
	lua "github.com/yuin/gopher-lua"
)

// Sandbox restricts Lua execution to side-effect free operations.
type Sandbox struct {
	L *lua.LState

	removed []string
}

// Globals removed by the sandbox.
var dangerousFuncs = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"collectgarbage",
}

// Modules require may resolve.
var safeModules = map[string]bool{
	"string": true,
	"table":  true,
	"math":   true,
}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *lua.LState) *Sandbox {
	return &Sandbox{L: L}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	for _, name := range dangerousFuncs {
		if s.L.GetGlobal(name) != lua.LNil {
			s.removed = append(s.removed, name)
		}
		s.L.SetGlobal(name, lua.LNil)
	}
	s.installSafeRequire()
}

// installSafeRequire replaces require with a whitelist of built-in modules
// and clears the search paths so nothing is loaded from disk.
func (s *Sandbox) installSafeRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !safeModules[name] {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(L.GetGlobal(name))
		return 1
	}))
}

// Removed returns the globals the sandbox removed.
func (s *Sandbox) Removed() []string {
	out := make([]string, len(s.removed))
	copy(out, s.removed)
	return out
}
