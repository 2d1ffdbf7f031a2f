package websocket

import (
	"slices"
	"sync"
)

// Registry maps each online identity to the connections currently bound to it.
// An identity is present iff it has at least one connection. Identities and
// per-identity connections both keep insertion order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string][]*Client
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string][]*Client)}
}

// Admit binds c to identity. created reports that identity was not online
// before; added is false when c was already bound to identity.
func (r *Registry) Admit(identity string, c *Client) (created, added bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.entries[identity]
	if slices.Contains(conns, c) {
		return false, false
	}
	if !ok {
		r.order = append(r.order, identity)
	}
	r.entries[identity] = append(conns, c)
	return !ok, true
}

// Retire unbinds c from identity. emptied reports that identity went offline;
// removed is false when c was not bound to identity.
func (r *Registry) Retire(identity string, c *Client) (emptied, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.entries[identity]
	i := slices.Index(conns, c)
	if i < 0 {
		return false, false
	}

	conns = slices.Delete(conns, i, i+1)
	if len(conns) > 0 {
		r.entries[identity] = conns
		return false, true
	}

	delete(r.entries, identity)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == identity })
	return true, true
}

func (r *Registry) IsOnline(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[identity]) > 0
}

// Snapshot returns the online identities in the order they came online.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Connections returns the connections bound to identity.
func (r *Registry) Connections(identity string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries[identity])
}

// Identities returns every identity c is bound to. A connection normally has
// one, but implicit admission can bind further names to the same socket.
func (r *Registry) Identities(c *Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for _, id := range r.order {
		if slices.Contains(r.entries[id], c) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of online identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
