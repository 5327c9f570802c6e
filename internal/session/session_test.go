package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/mediavault/internal/session"
)

func TestSession_Transitions(t *testing.T) {
	s := session.New()
	assert.Equal(t, session.Locked, s.State())
	assert.Nil(t, s.Key())

	s.BeginUnlock()
	assert.Equal(t, session.Unlocking, s.State())
	assert.Nil(t, s.Key())

	s.CancelUnlock()
	assert.Equal(t, session.Locked, s.State())

	key := []byte("0123456789abcdef0123456789abcdef")
	s.SetUnlocked(key)
	assert.Equal(t, session.Unlocked, s.State())
	assert.Equal(t, key, s.Key())

	s.Lock()
	assert.Equal(t, session.Locked, s.State())
	assert.Nil(t, s.Key())
}

func TestSession_BeginUnlockWhileUnlocked(t *testing.T) {
	s := session.New()
	s.SetUnlocked([]byte("key"))

	// An unlock prompt cannot start over an unlocked session.
	s.BeginUnlock()
	assert.Equal(t, session.Unlocked, s.State())
}

func TestSession_InFlightKeySnapshot(t *testing.T) {
	s := session.New()
	key := []byte("0123456789abcdef0123456789abcdef")
	s.SetUnlocked(key)

	// An operation captures the key once, then the vault locks.
	snapshot := s.Key()
	s.Lock()

	assert.Equal(t, key, snapshot, "in-flight snapshot survives lock")
	assert.Nil(t, s.Key(), "new callers observe no key")
}

func TestSession_Subscribe(t *testing.T) {
	s := session.New()

	var states []session.LockState
	s.Subscribe(func(state session.LockState) {
		states = append(states, state)
	})

	s.SetUnlocked([]byte("key"))
	s.Lock()
	s.Lock() // no-op, already locked with no key

	assert.Equal(t, []session.LockState{session.Unlocked, session.Locked}, states)
}

func TestLockState_String(t *testing.T) {
	assert.Equal(t, "locked", session.Locked.String())
	assert.Equal(t, "unlocking", session.Unlocking.String())
	assert.Equal(t, "unlocked", session.Unlocked.String())
}
