package upload

import "sync"

// Registry tracks at most one active upload session per connection.
// Lifecycle is tied to the connection: sessions are removed on completion,
// failure and disconnect, and eviction on disconnect is unconditional.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Put registers the session and returns any session it displaced. A
// second upload:start on the same connection replaces the first entry;
// the displaced pipe is not destroyed.
func (r *Registry) Put(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.sessions[s.ConnectionID]
	r.sessions[s.ConnectionID] = s
	return old
}

func (r *Registry) Get(connectionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connectionID]
	return s, ok
}

// Remove drops the entry for connectionID if it still points at s. The
// guard keeps a finished session's cleanup from evicting a newer session
// that reused the connection.
func (r *Registry) Remove(connectionID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[connectionID]; ok && (s == nil || current == s) {
		delete(r.sessions, connectionID)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
