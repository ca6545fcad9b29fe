package lua

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds a single predicate evaluation.
const DefaultExecutionTimeout = 250 * time.Millisecond

// State wraps gopher-lua for predicate evaluation.
//
// gopher-lua's LState is not goroutine-safe; the mutex serializes every
// call into the interpreter, so predicates compiled from one State may be
// evaluated from any goroutine.
type State struct {
	L *lua.LState

	mu sync.Mutex

	executionTimeout time.Duration
	sandbox          *Sandbox
	closed           bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the timeout for a single evaluation.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{
		executionTimeout: DefaultExecutionTimeout,
	}
	for _, opt := range opts {
		opt(state)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	state.L = L

	openSafeLibraries(L)
	state.sandbox = NewSandbox(L)
	state.sandbox.Install()

	return state, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenPackage(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// io, os and debug are never opened
}

// DoString executes a Lua string.
func (s *State) DoString(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.doWithRecovery(func() error {
		return s.L.DoString(code)
	})
}

// doWithRecovery executes a function with panic recovery.
func (s *State) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// Predicate compiles src into a function deciding whether a value is
// allowed. The value is bound to the local variable value; a snippet
// without a return statement is evaluated as an expression.
func (s *State) Predicate(src string) (func(string) (bool, error), error) {
	body := strings.TrimSpace(src)
	if !strings.Contains(body, "return") {
		body = "return " + body
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStateClosed
	}
	fn, err := s.L.LoadString("local value = ...\n" + body)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}

	return func(value string) (bool, error) {
		ret, err := s.call(fn, lua.LString(value))
		if err != nil {
			return false, err
		}
		return lua.LVAsBool(ret), nil
	}, nil
}

// call runs fn with args under the execution timeout and returns its first
// result.
func (s *State) call(fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil, ErrStateClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.executionTimeout)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	top := s.L.GetTop()
	defer s.L.SetTop(top)

	s.L.Push(fn)
	for _, arg := range args {
		s.L.Push(arg)
	}
	err := s.doWithRecovery(func() error {
		return s.L.PCall(len(args), 1, nil)
	})
	if err != nil {
		if ctx.Err() != nil {
			return lua.LNil, fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
		}
		return lua.LNil, err
	}
	return s.L.Get(-1), nil
}

// Sandbox returns the sandbox installed on the state.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases all resources associated with the Lua state.
// After Close is called, compiled predicates return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
