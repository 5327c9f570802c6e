package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	// Key sizes
	KeySize   = 32 // AES-256
	NonceSize = 12 // GCM standard
	TagSize   = 16 // GCM tag

	// Salt length for the scrypt derivation path
	SaltSize = 16

	// Scrypt parameters (KDF version 2)
	ScryptN = 32768
	ScryptR = 8
	ScryptP = 1
)

// KDF versions. Version 1 is a single unsalted SHA-256 of the
// password, kept as the default for compatibility with existing
// vaults. It is deliberately not upgraded in place; version 2
// (scrypt, per-vault salt) is available for new vaults only.
const (
	KDFLegacySHA256 = 1
	KDFScrypt       = 2
)

// Errors
var (
	ErrInvalidKey       = errors.New("invalid key size")
	ErrInvalidNonce     = errors.New("invalid nonce size")
	ErrInvalidTag       = errors.New("invalid tag size")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrUnsupportedKDF   = errors.New("unsupported kdf version")
	ErrMissingSalt      = errors.New("kdf salt required")
)

// keyCheckLabel domain-separates the key verifier from any other use
// of the derived key.
var keyCheckLabel = []byte("mediavault-key-check-v1")

// KDFParams selects and parameterizes the password derivation.
type KDFParams struct {
	Version int    `json:"version"`
	Salt    []byte `json:"salt,omitempty"`
}

// NewKDFParams returns parameters for a new vault at the given
// version, generating a salt where the version needs one.
func NewKDFParams(version int) (KDFParams, error) {
	switch version {
	case KDFLegacySHA256:
		return KDFParams{Version: version}, nil
	case KDFScrypt:
		salt := make([]byte, SaltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return KDFParams{}, fmt.Errorf("generate salt: %w", err)
		}
		return KDFParams{Version: version, Salt: salt}, nil
	default:
		return KDFParams{}, ErrUnsupportedKDF
	}
}

// AESGCMProvider implements Provider with AES-256-GCM.
type AESGCMProvider struct{}

// NewProvider creates the default crypto provider.
func NewProvider() Provider {
	return &AESGCMProvider{}
}

// DeriveKey derives the unlock key from a password.
func (p *AESGCMProvider) DeriveKey(password string, params KDFParams) ([]byte, error) {
	switch params.Version {
	case KDFLegacySHA256:
		sum := sha256.Sum256([]byte(password))
		return sum[:], nil
	case KDFScrypt:
		if len(params.Salt) < SaltSize {
			return nil, ErrMissingSalt
		}
		key, err := scrypt.Key([]byte(password), params.Salt, ScryptN, ScryptR, ScryptP, KeySize)
		if err != nil {
			return nil, fmt.Errorf("scrypt: %w", err)
		}
		return key, nil
	default:
		return nil, ErrUnsupportedKDF
	}
}

// Encrypt seals plaintext under key with a fresh random nonce.
func (p *AESGCMProvider) Encrypt(plaintext, key []byte) (SealedBox, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return SealedBox{}, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return SealedBox{}, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)

	// Seal appends the tag to the ciphertext; split them out.
	split := len(sealed) - TagSize
	return SealedBox{
		Nonce:      nonce,
		Ciphertext: sealed[:split],
		Tag:        sealed[split:],
	}, nil
}

// Decrypt opens a sealed box. Wrong-length nonce or tag is rejected
// before touching the cipher so corrupted records fail loudly.
func (p *AESGCMProvider) Decrypt(box SealedBox, key []byte) ([]byte, error) {
	if len(box.Nonce) != NonceSize {
		return nil, ErrInvalidNonce
	}
	if len(box.Tag) != TagSize {
		return nil, ErrInvalidTag
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(box.Ciphertext)+TagSize)
	sealed = append(sealed, box.Ciphertext...)
	sealed = append(sealed, box.Tag...)

	plaintext, err := aead.Open(nil, box.Nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// KeyCheck computes the stored verifier for a derived key. The label
// keeps the verifier from doubling as an encryption oracle.
func (p *AESGCMProvider) KeyCheck(key []byte) []byte {
	h := sha256.New()
	h.Write(keyCheckLabel)
	h.Write(key)
	return h.Sum(nil)
}

// VerifyKeyCheck compares in constant time regardless of where the
// first mismatching byte sits.
func (p *AESGCMProvider) VerifyKeyCheck(key, check []byte) bool {
	return subtle.ConstantTimeCompare(p.KeyCheck(key), check) == 1
}

// ContentHash returns the hex digest used for duplicate detection.
func ContentHash(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return fmt.Sprintf("%x", sum)
}

// RandomKey generates a fresh content key.
func RandomKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aead, nil
}
