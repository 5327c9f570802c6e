// Package session holds the process-wide lock state of the vault.
//
// The session object is passed by reference to every component that
// must observe lock status; there is no ambient global. State changes
// fan out through explicit subscriptions.
package session

import (
	"sync"
)

// LockState is the vault lifecycle state.
type LockState int

const (
	// Locked means no key is loaded; all vault operations fail.
	Locked LockState = iota

	// Unlocking means an external authentication prompt is
	// outstanding.
	Unlocking

	// Unlocked means the derived key is loaded in memory.
	Unlocked
)

func (s LockState) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocking:
		return "unlocking"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// Listener receives lock state transitions.
type Listener func(LockState)

// Session tracks the lock state and the in-memory content key.
//
// In-flight operations capture the key once at start and finish with
// the key they started with; Lock only prevents new operations from
// obtaining a key.
type Session struct {
	mu        sync.RWMutex
	state     LockState
	key       []byte
	listeners []Listener
}

// New returns a locked session.
func New() *Session {
	return &Session{state: Locked}
}

// State returns the current lock state.
func (s *Session) State() LockState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Key returns the loaded content key, or nil when the vault is not
// unlocked. Callers snapshot the result once per operation.
func (s *Session) Key() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Unlocked {
		return nil
	}
	return s.key
}

// Subscribe registers a listener for every subsequent transition.
// Listeners run synchronously on the transitioning goroutine.
func (s *Session) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// BeginUnlock marks an authentication prompt as outstanding. It is a
// no-op if the vault is already unlocked.
func (s *Session) BeginUnlock() {
	s.transition(func() bool {
		if s.state != Locked {
			return false
		}
		s.state = Unlocking
		return true
	})
}

// CancelUnlock returns to Locked after a failed or dismissed prompt.
func (s *Session) CancelUnlock() {
	s.transition(func() bool {
		if s.state != Unlocking {
			return false
		}
		s.state = Locked
		return true
	})
}

// SetUnlocked loads the key and transitions to Unlocked.
func (s *Session) SetUnlocked(key []byte) {
	s.transition(func() bool {
		s.key = key
		s.state = Unlocked
		return true
	})
}

// Lock discards the key reference. Safe to call at any time; readers
// that already captured the key complete with it, new callers observe
// no key loaded.
func (s *Session) Lock() {
	s.transition(func() bool {
		if s.state == Locked && s.key == nil {
			return false
		}
		s.key = nil
		s.state = Locked
		return true
	})
}

// transition applies fn under the lock and notifies listeners when it
// reports a state change.
func (s *Session) transition(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	state := s.state
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, l := range listeners {
		l(state)
	}
}
