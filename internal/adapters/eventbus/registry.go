package eventbus

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
)

// Binding is one registered handler. Bindings are never mutated after Add.
type Binding struct {
	ID              uuid.UUID
	Owner           ports.Listener
	Key             domain.EventKey
	Handler         ports.Handler
	IgnoreCancelled bool
}

// Registry holds the bindings per normalized event name, in subscription order.
// It is thread-safe for concurrent access.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string][]*Binding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byKey: make(map[string][]*Binding),
	}
}

// Add appends a binding. Duplicates are allowed.
func (r *Registry) Add(b *Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byKey[b.Key.Name] = append(r.byKey[b.Key.Name], b)
}

// Remove removes the first binding matching owner, key and ID.
func (r *Registry) Remove(ownerID uuid.UUID, key string, id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	bindings := r.byKey[key]
	for i, b := range bindings {
		if b.ID == id && b.Owner.ListenerID() == ownerID {
			r.setBindings(key, append(bindings[:i:i], bindings[i+1:]...))
			return true
		}
	}
	return false
}

// RemoveOwner removes every binding of the owner, across all keys.
func (r *Registry) RemoveOwner(ownerID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, bindings := range r.byKey {
		kept := make([]*Binding, 0, len(bindings))
		for _, b := range bindings {
			if b.Owner.ListenerID() == ownerID {
				removed++
				continue
			}
			kept = append(kept, b)
		}
		if len(kept) != len(bindings) {
			r.setBindings(key, kept)
		}
	}
	return removed
}

// setBindings must be called with the write lock held.
func (r *Registry) setBindings(key string, bindings []*Binding) {
	if len(bindings) == 0 {
		delete(r.byKey, key)
		return
	}
	r.byKey[key] = bindings
}

// Resolve returns a copy of the bindings for key. Name-keyed bindings come
// first, then type-keyed ones, each in subscription order.
func (r *Registry) Resolve(key string) []*Binding {
	r.mu.RLock()
	bindings := r.byKey[key]
	if len(bindings) == 0 {
		r.mu.RUnlock()
		return nil
	}
	snapshot := make([]*Binding, len(bindings))
	copy(snapshot, bindings)
	r.mu.RUnlock()

	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].Key.Kind < snapshot[j].Key.Kind
	})
	return snapshot
}

// Count returns the total number of bindings.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, bindings := range r.byKey {
		n += len(bindings)
	}
	return n
}

// CountByKey returns the number of bindings for key.
func (r *Registry) CountByKey(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byKey[key])
}

// Keys returns every key with at least one binding.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
