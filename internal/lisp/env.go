package lisp

import "fmt"

// Env is a lexical scope. Lookups fall back to the parent scope.
type Env struct {
	parent *Env
	table  map[Symbol]Value
}

func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, table: make(map[Symbol]Value)}
}

// Define binds name in this scope, shadowing any outer binding.
func (e *Env) Define(name Symbol, v Value) {
	e.table[name] = v
}

// Undefine removes name from this scope only.
func (e *Env) Undefine(name Symbol) {
	delete(e.table, name)
}

func (e *Env) Lookup(name Symbol) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.table[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set rebinds the nearest existing binding of name.
func (e *Env) Set(name Symbol, v Value) error {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.table[name]; ok {
			env.table[name] = v
			return nil
		}
	}
	return fmt.Errorf("symbol %s is not defined", name)
}
