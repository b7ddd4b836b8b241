package compiler

import (
	"maps"
	"slices"

	"tinygo.org/x/go-llvm"
)

// Levity tags how a binding is represented.
type Levity int

const (
	// Boxed bindings live in an addressable cell: every read is a load,
	// every assignment a store. Copies of an environment that carry a
	// Boxed binding alias the same cell, so a store through one copy is
	// visible through all of them.
	Boxed Levity = iota
	// Unboxed bindings are used directly as SSA values and carry the
	// integer constant they were bound to.
	Unboxed
)

// Symbol is one environment entry: a value handle plus its levity.
// For Boxed the handle is the cell address; the cell itself is owned by
// the module (an entry-block alloca), so copying a Symbol copies only
// the handle and never the storage.
type Symbol struct {
	Val    llvm.Value
	Levity Levity
	Const  int64 // the statically known value; meaningful only when Unboxed
}

type Scope struct {
	Elems map[string]*Symbol
}

func NewScope() Scope {
	return Scope{Elems: make(map[string]*Symbol)}
}

// PushScope enters a nested scope. Bindings made inside shadow outer
// ones and are discarded by PopScope; Boxed cells bound outside remain
// shared because only handles are ever copied.
func PushScope(scopes *[]Scope) {
	*scopes = append(*scopes, NewScope())
}

func PopScope(scopes *[]Scope) {
	if len(*scopes) == 1 {
		panic("cannot pop the outermost scope")
	}
	*scopes = (*scopes)[:len(*scopes)-1]
}

// Put binds name in the innermost scope, shadowing any outer binding.
func Put(scopes []Scope, name string, sym *Symbol) {
	scopes[len(scopes)-1].Elems[name] = sym
}

// Get resolves name from the innermost scope outward.
func Get(scopes []Scope, name string) (*Symbol, bool) {
	for i := len(scopes) - 1; i >= 0; i-- {
		if s, ok := scopes[i].Elems[name]; ok {
			return s, true
		}
	}
	return nil, false
}

// Names returns every currently visible binding name, sorted.
func Names(scopes []Scope) []string {
	seen := make(map[string]struct{})
	for i := range scopes {
		for name := range scopes[i].Elems {
			seen[name] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}
