package session

import (
	"sync"
)

// Store is the process-wide session map. Each session carries its own lock,
// held for the duration of a full turn so concurrent turns on the same
// session cannot interleave history appends. Cross-session turns need no
// coordination.
type Store struct {
	mu           sync.RWMutex
	entries      map[string]*entry
	systemPrompt string
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

// NewStore creates an empty store. systemPrompt seeds history[0] of every
// new session.
func NewStore(systemPrompt string) *Store {
	return &Store{
		entries:      make(map[string]*entry),
		systemPrompt: systemPrompt,
	}
}

// Acquire returns the session for id, creating it on first use, with its
// per-session lock held. The caller must call release when the turn is
// complete.
func (st *Store) Acquire(id string) (sess *Session, release func()) {
	st.mu.RLock()
	e, ok := st.entries[id]
	st.mu.RUnlock()

	if !ok {
		st.mu.Lock()
		// Double check under the write lock.
		if e, ok = st.entries[id]; !ok {
			e = &entry{sess: newSession(id, st.systemPrompt)}
			st.entries[id] = e
		}
		st.mu.Unlock()
	}

	e.mu.Lock()
	return e.sess, e.mu.Unlock
}

// End deletes the session's stored history. A subsequent Acquire on the
// same id starts a fresh history beginning with the system message.
// Reports whether a session existed.
func (st *Store) End(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.entries[id]
	delete(st.entries, id)
	return ok
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.entries)
}
