// Package externs resolves extern("library", "symbol") declarations to
// native entry points known to the runtime.
package externs

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrUnknownLibrary = errors.New("unknown library")
	ErrUnknownSymbol  = errors.New("unknown symbol")
)

// Request records one resolution attempt.
type Request struct {
	Library string
	Symbol  string
	Handle  uint64
	Err     error
}

// Registry maps library symbols to native handles. It is safe for use by
// several analyzers at once.
type Registry struct {
	mu        sync.Mutex
	libraries map[string]map[string]uint64
	requests  []Request
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{libraries: make(map[string]map[string]uint64)}
}

// FromTables builds a registry from library -> symbol -> handle tables, as
// read from the [externs] section of the configuration.
func FromTables(tables map[string]map[string]uint64) (*Registry, error) {
	r := NewRegistry()
	for lib, syms := range tables {
		for sym, h := range syms {
			if err := r.Add(lib, sym, h); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// Add registers a native handle. Zero is reserved for "unresolved".
func (r *Registry) Add(library, symbol string, handle uint64) error {
	if handle == 0 {
		return fmt.Errorf("extern %s.%s: handle 0 is reserved", library, symbol)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	syms, ok := r.libraries[library]
	if !ok {
		syms = make(map[string]uint64)
		r.libraries[library] = syms
	}
	if prev, dup := syms[symbol]; dup && prev != handle {
		return fmt.Errorf("extern %s.%s: registered twice (%d, %d)", library, symbol, prev, handle)
	}
	syms[symbol] = handle
	return nil
}

// Load implements sema.ExternLoader.
func (r *Registry) Load(library, symbol string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req := Request{Library: library, Symbol: symbol}
	syms, ok := r.libraries[library]
	switch {
	case !ok:
		req.Err = fmt.Errorf("%w %q", ErrUnknownLibrary, library)
	default:
		if h, ok := syms[symbol]; ok {
			req.Handle = h
		} else {
			req.Err = fmt.Errorf("%w %s in %q", ErrUnknownSymbol, symbol, library)
		}
	}
	r.requests = append(r.requests, req)
	return req.Handle, req.Err
}

// Libraries lists the registered library names in sorted order.
func (r *Registry) Libraries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.libraries))
	for lib := range r.libraries {
		out = append(out, lib)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of registered symbols.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, syms := range r.libraries {
		n += len(syms)
	}
	return n
}

// Requests returns every Load call so far, in call order.
func (r *Registry) Requests() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.requests...)
}
