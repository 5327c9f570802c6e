package crypto

// Provider defines the cryptographic operations the vault depends on.
type Provider interface {
	// DeriveKey derives the unlock key from a password.
	DeriveKey(password string, params KDFParams) ([]byte, error)

	// Encrypt seals plaintext under key with a fresh nonce.
	Encrypt(plaintext, key []byte) (SealedBox, error)

	// Decrypt opens a sealed box, verifying its authentication tag.
	// It never returns partially decrypted bytes.
	Decrypt(box SealedBox, key []byte) ([]byte, error)

	// KeyCheck computes the stored verifier for a derived key.
	KeyCheck(key []byte) []byte

	// VerifyKeyCheck compares a derived key against a stored verifier
	// in constant time.
	VerifyKeyCheck(key, check []byte) bool
}

// SealedBox holds the three AEAD outputs separately; the manifest
// records nonce and tag per item while the ciphertext goes to a blob.
type SealedBox struct {
	Nonce      []byte
	Ciphertext []byte
	Tag        []byte
}
