// Package registry keeps the two subscription indices (connection to symbols
// and symbol to connections) in lockstep.
package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var ErrConnectionNotRegistered = errors.New("connection not registered")

type set map[string]struct{}

// Stats is a point-in-time view of the registry size.
type Stats struct {
	Connections   int `json:"connections"`
	ActiveSymbols int `json:"active_symbols"`
	Subscriptions int `json:"subscriptions"`
}

// -----------------------------------------------------------------------------

// Registry maps connections to symbols and symbols to connections.
// For every (id, S): id is in subscribers[S] iff S is in symbols[id].
type Registry struct {
	mu          sync.RWMutex
	symbols     map[string]set // connection -> symbols
	subscribers map[string]set // symbol -> connections
}

func New() *Registry {
	return &Registry{
		symbols:     make(map[string]set),
		subscribers: make(map[string]set),
	}
}

// -----------------------------------------------------------------------------

// RegisterConnection starts tracking id with an empty symbol set.
// Registering an existing id keeps its subscriptions.
func (r *Registry) RegisterConnection(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.symbols[id]; !ok {
		r.symbols[id] = make(set)
	}
}

// RemoveConnection drops id from every index and returns the symbols it held.
// Safe to call more than once.
func (r *Registry) RemoveConnection(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	syms, ok := r.symbols[id]
	if !ok {
		return nil
	}

	released := make([]string, 0, len(syms))
	for sym := range syms {
		r.detach(id, sym)
		released = append(released, sym)
	}
	delete(r.symbols, id)

	sort.Strings(released)
	return released
}

// IsRegistered reports whether id is currently tracked.
func (r *Registry) IsRegistered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.symbols[id]
	return ok
}

// -----------------------------------------------------------------------------

// Subscribe adds symbols to id. It returns the symbols that were not
// already subscribed and the full resulting set, both sorted.
func (r *Registry) Subscribe(id string, symbols []string) (added []string, current []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	own, ok := r.symbols[id]
	if !ok {
		return nil, nil, ErrConnectionNotRegistered
	}

	for _, raw := range symbols {
		sym := strings.ToUpper(raw)
		if _, exists := own[sym]; exists {
			continue
		}
		own[sym] = struct{}{}

		subs, ok := r.subscribers[sym]
		if !ok {
			subs = make(set)
			r.subscribers[sym] = subs
		}
		subs[id] = struct{}{}
		added = append(added, sym)
	}

	sort.Strings(added)
	return added, sortedKeys(own), nil
}

// Unsubscribe removes symbols from id. It returns the symbols that were
// actually removed and what remains, both sorted.
func (r *Registry) Unsubscribe(id string, symbols []string) (removed []string, remaining []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	own, ok := r.symbols[id]
	if !ok {
		return nil, nil, ErrConnectionNotRegistered
	}

	for _, raw := range symbols {
		sym := strings.ToUpper(raw)
		if _, exists := own[sym]; !exists {
			continue
		}
		r.detach(id, sym)
		removed = append(removed, sym)
	}

	sort.Strings(removed)
	return removed, sortedKeys(own), nil
}

// detach removes the (id, sym) pair from both indices. Caller holds mu.
func (r *Registry) detach(id, sym string) {
	delete(r.symbols[id], sym)

	if subs, ok := r.subscribers[sym]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(r.subscribers, sym)
		}
	}
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// ActiveSymbols returns every symbol with at least one subscriber, sorted.
func (r *Registry) ActiveSymbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.subscribers)
}

// SymbolsForConnection returns the sorted symbols id is subscribed to.
func (r *Registry) SymbolsForConnection(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.symbols[id])
}

// Subscribers returns the sorted connection ids subscribed to symbol.
func (r *Registry) Subscribers(symbol string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.subscribers[strings.ToUpper(symbol)])
}

// Connections returns every registered connection id, sorted.
func (r *Registry) Connections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.symbols)
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{Connections: len(r.symbols), ActiveSymbols: len(r.subscribers)}
	for _, syms := range r.symbols {
		s.Subscriptions += len(syms)
	}
	return s
}

// -----------------------------------------------------------------------------

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
