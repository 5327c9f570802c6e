// Package keyring manages vault credentials: password setup and
// verification, the wrapped master content key, and the optional
// biometric-gated secret path.
package keyring

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode"

	"github.com/TheMichaelB/mediavault/internal/crypto"
	"github.com/TheMichaelB/mediavault/internal/events"
	"github.com/TheMichaelB/mediavault/internal/models"
	"github.com/TheMichaelB/mediavault/internal/session"
)

// Authenticator is the external biometric prompt. The engine treats
// it as opaque and falls back to the password path on any failure.
type Authenticator interface {
	// IsAvailable reports whether a biometric prompt can be shown.
	IsAvailable() bool

	// PromptForUnlock shows the system prompt and reports success.
	PromptForUnlock(ctx context.Context) (bool, error)
}

// SecretStore is the platform's biometric-gated secure store. It
// wraps the vault password, never key material.
type SecretStore interface {
	Wrap(secret []byte) (token []byte, err error)
	Unwrap(token []byte) (secret []byte, err error)
}

// CredentialRecord is what survives on disk: enough to re-verify a
// password and unwrap the master key, never the password itself.
type CredentialRecord struct {
	KDFVersion int    `json:"kdf_version"`
	Salt       string `json:"salt,omitempty"` // base64

	// KeyCheck verifies the password-derived key.
	KeyCheck string `json:"key_check"` // base64

	// The master content key, sealed under the password-derived key.
	// Re-wrapping on password change leaves all ciphertext untouched.
	MasterNonce string `json:"master_nonce"` // base64
	MasterKey   string `json:"master_key"`   // base64, ciphertext
	MasterTag   string `json:"master_tag"`   // base64

	// BiometricToken is the wrapped password from the secure store,
	// present only when the user enabled biometric unlock.
	BiometricToken string `json:"biometric_token,omitempty"` // base64

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manager implements the credential and key lifecycle.
type Manager struct {
	provider crypto.Provider
	session  *session.Session
	logger   *events.Logger

	recordPath string
	kdfVersion int
	minLength  int

	auth    Authenticator
	secrets SecretStore
}

// Option configures a Manager.
type Option func(*Manager)

// WithBiometrics wires the biometric collaborators.
func WithBiometrics(auth Authenticator, secrets SecretStore) Option {
	return func(m *Manager) {
		m.auth = auth
		m.secrets = secrets
	}
}

// WithKDFVersion selects the derivation for new vaults.
func WithKDFVersion(version int) Option {
	return func(m *Manager) { m.kdfVersion = version }
}

// WithMinPasswordLength overrides the default policy length.
func WithMinPasswordLength(n int) Option {
	return func(m *Manager) { m.minLength = n }
}

// NewManager creates a credential manager storing its record under
// dataDir.
func NewManager(dataDir string, provider crypto.Provider, sess *session.Session, logger *events.Logger, opts ...Option) *Manager {
	m := &Manager{
		provider:   provider,
		session:    sess,
		logger:     logger.WithField("component", "keyring"),
		recordPath: filepath.Join(dataDir, "credentials.json"),
		kdfVersion: crypto.KDFLegacySHA256,
		minLength:  8,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsConfigured reports whether a password has been set.
func (m *Manager) IsConfigured() bool {
	_, err := os.Stat(m.recordPath)
	return err == nil
}

// SetupPassword derives a key from password, stores the credential
// record, and unlocks the vault. The policy is re-validated here
// regardless of caller-side checks.
func (m *Manager) SetupPassword(password string) error {
	if err := m.validatePolicy(password); err != nil {
		return err
	}

	params, err := crypto.NewKDFParams(m.kdfVersion)
	if err != nil {
		return fmt.Errorf("kdf params: %w", err)
	}

	derived, err := m.provider.DeriveKey(password, params)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}

	master, err := crypto.RandomKey()
	if err != nil {
		return err
	}

	box, err := m.provider.Encrypt(master, derived)
	if err != nil {
		return fmt.Errorf("wrap master key: %w", err)
	}

	now := time.Now().UTC()
	rec := &CredentialRecord{
		KDFVersion:  params.Version,
		Salt:        base64.StdEncoding.EncodeToString(params.Salt),
		KeyCheck:    base64.StdEncoding.EncodeToString(m.provider.KeyCheck(derived)),
		MasterNonce: base64.StdEncoding.EncodeToString(box.Nonce),
		MasterKey:   base64.StdEncoding.EncodeToString(box.Ciphertext),
		MasterTag:   base64.StdEncoding.EncodeToString(box.Tag),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.saveRecord(rec); err != nil {
		return err
	}

	m.session.SetUnlocked(master)
	m.logger.WithField("kdf_version", rec.KDFVersion).Info("Password configured")
	return nil
}

// Unlock verifies password against the stored key-check value and on
// success loads the master key. The comparison is constant time; a
// mismatch leaves the lock state unchanged.
func (m *Manager) Unlock(password string) error {
	rec, err := m.loadRecord()
	if err != nil {
		return err
	}

	params, err := rec.kdfParams()
	if err != nil {
		return err
	}

	derived, err := m.provider.DeriveKey(password, params)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}

	check, err := base64.StdEncoding.DecodeString(rec.KeyCheck)
	if err != nil {
		return &models.StorageError{Op: "decode", Path: m.recordPath, Err: err}
	}

	if !m.provider.VerifyKeyCheck(derived, check) {
		return models.ErrWrongPassword
	}

	master, err := m.unwrapMaster(rec, derived)
	if err != nil {
		return err
	}

	m.session.SetUnlocked(master)
	m.logger.Info("Vault unlocked")
	return nil
}

// Lock discards the in-memory key. Safe to call at any time;
// operations already holding a key snapshot complete, new ones fail.
func (m *Manager) Lock() {
	m.session.Lock()
	m.logger.Info("Vault locked")
}

// ChangePassword re-wraps the master key under a key derived from the
// new password. No item ciphertext is touched.
func (m *Manager) ChangePassword(oldPassword, newPassword string) error {
	if err := m.validatePolicy(newPassword); err != nil {
		return err
	}

	rec, err := m.loadRecord()
	if err != nil {
		return err
	}

	params, err := rec.kdfParams()
	if err != nil {
		return err
	}

	derived, err := m.provider.DeriveKey(oldPassword, params)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}

	check, err := base64.StdEncoding.DecodeString(rec.KeyCheck)
	if err != nil {
		return &models.StorageError{Op: "decode", Path: m.recordPath, Err: err}
	}
	if !m.provider.VerifyKeyCheck(derived, check) {
		return models.ErrWrongPassword
	}

	master, err := m.unwrapMaster(rec, derived)
	if err != nil {
		return err
	}

	newParams, err := crypto.NewKDFParams(rec.KDFVersion)
	if err != nil {
		return fmt.Errorf("kdf params: %w", err)
	}
	newDerived, err := m.provider.DeriveKey(newPassword, newParams)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}

	box, err := m.provider.Encrypt(master, newDerived)
	if err != nil {
		return fmt.Errorf("wrap master key: %w", err)
	}

	rec.Salt = base64.StdEncoding.EncodeToString(newParams.Salt)
	rec.KeyCheck = base64.StdEncoding.EncodeToString(m.provider.KeyCheck(newDerived))
	rec.MasterNonce = base64.StdEncoding.EncodeToString(box.Nonce)
	rec.MasterKey = base64.StdEncoding.EncodeToString(box.Ciphertext)
	rec.MasterTag = base64.StdEncoding.EncodeToString(box.Tag)
	rec.BiometricToken = "" // stale, wraps the old password
	rec.UpdatedAt = time.Now().UTC()

	if err := m.saveRecord(rec); err != nil {
		return err
	}

	m.session.SetUnlocked(master)
	m.logger.Info("Password changed")
	return nil
}

// SaveBiometricSecret wraps the password in the biometric-gated
// store. Failure here never corrupts the password path.
func (m *Manager) SaveBiometricSecret(password string) error {
	if m.secrets == nil {
		return models.ErrBiometricUnavailable
	}

	rec, err := m.loadRecord()
	if err != nil {
		return err
	}

	token, err := m.secrets.Wrap([]byte(password))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrBiometricUnavailable, err)
	}

	rec.BiometricToken = base64.StdEncoding.EncodeToString(token)
	rec.UpdatedAt = time.Now().UTC()
	return m.saveRecord(rec)
}

// UnlockWithBiometrics prompts, unwraps the stored password, and runs
// the normal unlock path. Any failure reports
// ErrBiometricUnavailable so the caller falls back to password entry.
func (m *Manager) UnlockWithBiometrics(ctx context.Context) error {
	if m.auth == nil || m.secrets == nil || !m.auth.IsAvailable() {
		return models.ErrBiometricUnavailable
	}

	rec, err := m.loadRecord()
	if err != nil {
		return err
	}
	if rec.BiometricToken == "" {
		return models.ErrBiometricUnavailable
	}

	m.session.BeginUnlock()

	ok, err := m.auth.PromptForUnlock(ctx)
	if err != nil || !ok {
		m.session.CancelUnlock()
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrBiometricUnavailable, err)
		}
		return models.ErrBiometricUnavailable
	}

	token, err := base64.StdEncoding.DecodeString(rec.BiometricToken)
	if err != nil {
		m.session.CancelUnlock()
		return &models.StorageError{Op: "decode", Path: m.recordPath, Err: err}
	}

	password, err := m.secrets.Unwrap(token)
	if err != nil {
		m.session.CancelUnlock()
		return fmt.Errorf("%w: %v", models.ErrBiometricUnavailable, err)
	}

	if err := m.Unlock(string(password)); err != nil {
		m.session.CancelUnlock()
		return err
	}
	return nil
}

// validatePolicy enforces the engine-side password policy: minimum
// length plus at least one letter and one digit.
func (m *Manager) validatePolicy(password string) error {
	if len(password) < m.minLength {
		return models.ErrWeakPassword
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return models.ErrWeakPassword
	}
	return nil
}

func (m *Manager) unwrapMaster(rec *CredentialRecord, derived []byte) ([]byte, error) {
	nonce, err := base64.StdEncoding.DecodeString(rec.MasterNonce)
	if err != nil {
		return nil, &models.StorageError{Op: "decode", Path: m.recordPath, Err: err}
	}
	ct, err := base64.StdEncoding.DecodeString(rec.MasterKey)
	if err != nil {
		return nil, &models.StorageError{Op: "decode", Path: m.recordPath, Err: err}
	}
	tag, err := base64.StdEncoding.DecodeString(rec.MasterTag)
	if err != nil {
		return nil, &models.StorageError{Op: "decode", Path: m.recordPath, Err: err}
	}

	master, err := m.provider.Decrypt(crypto.SealedBox{Nonce: nonce, Ciphertext: ct, Tag: tag}, derived)
	if err != nil {
		// The key check passed but the wrapped key did not open:
		// the record itself is damaged.
		return nil, models.ErrCorruptedItem
	}
	return master, nil
}

func (rec *CredentialRecord) kdfParams() (crypto.KDFParams, error) {
	params := crypto.KDFParams{Version: rec.KDFVersion}
	if rec.Salt != "" {
		salt, err := base64.StdEncoding.DecodeString(rec.Salt)
		if err != nil {
			return crypto.KDFParams{}, fmt.Errorf("decode salt: %w", err)
		}
		params.Salt = salt
	}
	return params, nil
}

func (m *Manager) loadRecord() (*CredentialRecord, error) {
	data, err := os.ReadFile(m.recordPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.ErrPasswordNotSet
		}
		return nil, &models.StorageError{Op: "read", Path: m.recordPath, Err: err}
	}

	var rec CredentialRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &models.StorageError{Op: "parse", Path: m.recordPath, Err: err}
	}
	return &rec, nil
}

// saveRecord writes the record atomically: temp file, fsync, rename.
func (m *Manager) saveRecord(rec *CredentialRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.recordPath), 0700); err != nil {
		return &models.StorageError{Op: "mkdir", Path: m.recordPath, Err: err}
	}

	tmpPath := m.recordPath + ".staged"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return &models.StorageError{Op: "write", Path: tmpPath, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return &models.StorageError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return &models.StorageError{Op: "sync", Path: tmpPath, Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &models.StorageError{Op: "close", Path: tmpPath, Err: err}
	}

	if err := os.Rename(tmpPath, m.recordPath); err != nil {
		_ = os.Remove(tmpPath)
		return &models.StorageError{Op: "rename", Path: m.recordPath, Err: err}
	}
	return nil
}
