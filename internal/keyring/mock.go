package keyring

import (
	"context"

	"github.com/TheMichaelB/mediavault/internal/models"
)

// MockAuthenticator is a test double for the biometric prompt.
type MockAuthenticator struct {
	Available    bool
	PromptResult bool
	PromptErr    error
	Prompts      int
}

func (m *MockAuthenticator) IsAvailable() bool {
	return m.Available
}

func (m *MockAuthenticator) PromptForUnlock(ctx context.Context) (bool, error) {
	m.Prompts++
	return m.PromptResult, m.PromptErr
}

// MockSecretStore is a test double for the biometric-gated secure
// store. It "wraps" by reversing the bytes so a wrong token fails
// visibly.
type MockSecretStore struct {
	WrapErr   error
	UnwrapErr error
}

func (m *MockSecretStore) Wrap(secret []byte) ([]byte, error) {
	if m.WrapErr != nil {
		return nil, m.WrapErr
	}
	return reverse(secret), nil
}

func (m *MockSecretStore) Unwrap(token []byte) ([]byte, error) {
	if m.UnwrapErr != nil {
		return nil, m.UnwrapErr
	}
	if len(token) == 0 {
		return nil, models.ErrBiometricUnavailable
	}
	return reverse(token), nil
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}
