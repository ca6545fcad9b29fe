// Package lua provides the sandboxed Lua runtime used to evaluate schema
// predicate values.
//
// Rule files may describe an allowed attribute or style value with a Lua
// snippet instead of a literal or pattern:
//
//	style:
//	  letter-spacing:
//	    lua: "tonumber(value:match('^(%d+)px$')) ~= nil"
//
// The snippet is compiled once into a chunk that receives the candidate
// value as the local variable value. A snippet without a return statement
// is treated as an expression.
//
//	state, err := lua.NewState(lua.WithExecutionTimeout(time.Second))
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	pred, err := state.Predicate("#value <= 8")
//
// # Sandbox
//
// Only the base, table, string and math libraries are opened. Functions
// that load code from disk or strings are removed and require only resolves
// the built-in modules.
package lua
