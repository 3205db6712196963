package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sync"

	"github.com/samber/lo"
)

// Registry is the authoritative set of currently open connections.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnID]contract.Conn
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.ConnID]contract.Conn),
	}
}

// Add registers a connection. Adding the same identity twice keeps the latest value.
func (r *Registry) Add(conn contract.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[conn.ID()] = conn
}

// Remove forgets a connection and reports whether it was present.
// Removing twice is a no-op. Group cleanup is the caller's job.
func (r *Registry) Remove(id domain.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

func (r *Registry) Get(id domain.ConnID) (contract.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.sessions[id]
	return conn, ok
}

func (r *Registry) Contains(id domain.ConnID) bool {
	_, ok := r.Get(id)
	return ok
}

// All returns a snapshot of every registered connection, safe to iterate
// without holding the registry lock.
func (r *Registry) All() []contract.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.sessions)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
