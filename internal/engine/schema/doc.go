// Package schema provides the schema registry that gates which node names,
// attributes and styles are legal in a document.
//
// Rules are keyed by node name and carry attribute and style allow-lists.
// Each allow-list entry is a Value: a literal, a list of literals, a regular
// expression, a predicate function, or the "*" wildcard. Adding a rule for
// a name that is already registered merges the two (union of allowed
// values). Global rules attach an attribute/style set to every rule of a
// category.
//
// Rules only accumulate for the lifetime of a registry; there is no removal.
//
// Rule files are YAML documents; predicate values can be written as Lua
// snippets evaluated in a sandboxed state, or refer to built-in predicates
// such as "color".
package schema
