package models

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrWrongPassword        = errors.New("wrong password")
	ErrWeakPassword         = errors.New("password does not meet policy")
	ErrVaultLocked          = errors.New("vault is locked")
	ErrAuthenticationFailed = errors.New("ciphertext authentication failed")
	ErrItemNotFound         = errors.New("item not found")
	ErrCorruptedItem        = errors.New("stored item is corrupted")
	ErrSourceUnavailable    = errors.New("media source unavailable")
	ErrBiometricUnavailable = errors.New("biometric store unavailable")
	ErrPasswordNotSet       = errors.New("no password has been set")
)

// StorageError wraps a disk failure during manifest or blob I/O. The
// operation that hit it is aborted; the manifest stays at its last
// committed state.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ItemError carries a per-item failure inside a batch result.
type ItemError struct {
	ID    string
	Stage string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %s: %s: %v", e.ID, e.Stage, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// CorruptionError marks a malformed stored record, such as a
// wrong-length nonce or tag.
type CorruptionError struct {
	ID     string
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("item %s corrupted: %s", e.ID, e.Reason)
}

func (e *CorruptionError) Unwrap() error {
	return ErrCorruptedItem
}
