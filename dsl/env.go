package dsl

import (
	"fmt"
	"strings"
)

// Env is one scope in the environment chain. A child Env is created per
// function call and discarded when the call returns; the parent pointer is
// a plain shared reference, so the runtime keeps parents alive for as long
// as any child can still reach them.
type Env struct {
	vars   map[string]Value
	funcs  map[string]*FuncDef
	parent *Env
}

// NewEnv creates a root scope.
func NewEnv() *Env {
	return &Env{
		vars:  make(map[string]Value),
		funcs: make(map[string]*FuncDef),
	}
}

// NewChild creates a scope whose lookups fall through to e.
func (e *Env) NewChild() *Env {
	return &Env{
		vars:   make(map[string]Value),
		funcs:  make(map[string]*FuncDef),
		parent: e,
	}
}

// Get resolves a name by walking the scope chain outward.
func (e *Env) Get(name string) (Value, error) {
	for scope := e; scope != nil; scope = scope.parent {
		if v, ok := scope.vars[name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("undefined variable: %s", name)
}

// Set is assign-or-declare: it rebinds the name in the nearest enclosing
// scope that already defines it, and otherwise creates the binding in the
// current scope.
func (e *Env) Set(name string, v Value) {
	for scope := e; scope != nil; scope = scope.parent {
		if _, ok := scope.vars[name]; ok {
			scope.vars[name] = v
			return
		}
	}
	e.vars[name] = v
}

// Define creates or overwrites the binding in the current scope only.
// Used for function parameters and loop variables.
func (e *Env) Define(name string, v Value) {
	e.vars[name] = v
}

// DefineFunc registers a user-defined function in the current scope.
func (e *Env) DefineFunc(fn *FuncDef) {
	e.funcs[fn.Name] = fn
}

// Func resolves a user-defined function by walking the scope chain.
func (e *Env) Func(name string) (*FuncDef, bool) {
	for scope := e; scope != nil; scope = scope.parent {
		if fn, ok := scope.funcs[name]; ok {
			return fn, true
		}
	}
	return nil, false
}

// Snapshot returns the current scope's own bindings (not the chain),
// skipping names with the given prefix. Used to build recognizer context
// without exposing the reserved underscore variables.
func (e *Env) Snapshot(skipPrefix string) map[string]Value {
	out := make(map[string]Value, len(e.vars))
	for name, v := range e.vars {
		if skipPrefix != "" && strings.HasPrefix(name, skipPrefix) {
			continue
		}
		out[name] = v
	}
	return out
}
