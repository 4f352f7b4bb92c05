package symbol

import (
	"reflect"
	"sync"

	"github.com/wippyai/autolink/errors"
)

// Symbol is a resolved native entry point. Addr is set by host tables;
// Handle carries backend-specific data such as a wasm function.
type Symbol struct {
	Handle any
	Name   string
	Addr   uintptr
}

// Table looks symbols up by name.
type Table interface {
	Lookup(name string) (Symbol, bool)
}

// TableFunc adapts a function to Table.
type TableFunc func(name string) (Symbol, bool)

// Lookup implements Table.
func (f TableFunc) Lookup(name string) (Symbol, bool) {
	return f(name)
}

// Map is an in-memory symbol table. Map is thread-safe.
type Map struct {
	symbols map[string]Symbol
	mu      sync.RWMutex
}

// NewMap creates an empty table.
func NewMap() *Map {
	return &Map{symbols: make(map[string]Symbol)}
}

// Define registers sym under sym.Name, replacing any earlier definition.
func (m *Map) Define(sym Symbol) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols[sym.Name] = sym
}

// Lookup implements Table.
func (m *Map) Lookup(name string) (Symbol, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.symbols[name]
	return s, ok
}

// Chain searches tables in order and returns the first hit.
type Chain []Table

// Lookup implements Table.
func (c Chain) Lookup(name string) (Symbol, bool) {
	for _, t := range c {
		if absent(t) {
			continue
		}
		if s, ok := t.Lookup(name); ok {
			return s, true
		}
	}
	return Symbol{}, false
}

// absent reports whether t is nil, including a nil *Map or TableFunc held
// in a non-nil Table.
func absent(t Table) bool {
	if t == nil {
		return true
	}
	switch v := reflect.ValueOf(t); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Resolver performs the two-tier lookup used for linking.
//
// Resolution order:
//  1. Local, the binding's own table
//  2. Default, the process-wide table of the backend
//
// Either tier may be nil, including a typed nil such as (*Map)(nil).
type Resolver struct {
	Local   Table
	Default Table
}

// Resolve returns the symbol for name or a link error matching
// errors.ErrSymbolNotFound.
func (r Resolver) Resolve(name string) (Symbol, error) {
	if s, ok := (Chain{r.Local, r.Default}).Lookup(name); ok {
		if s.Name == "" {
			s.Name = name
		}
		return s, nil
	}
	return Symbol{}, errors.SymbolNotFound(name)
}
