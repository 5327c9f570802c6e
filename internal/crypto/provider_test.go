package crypto_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/mediavault/internal/crypto"
)

func TestProvider_DeriveKey(t *testing.T) {
	provider := crypto.NewProvider()

	t.Run("legacy sha256 is deterministic", func(t *testing.T) {
		params := crypto.KDFParams{Version: crypto.KDFLegacySHA256}

		key1, err := provider.DeriveKey("Abcd1234", params)
		require.NoError(t, err)
		assert.Len(t, key1, crypto.KeySize)

		key2, err := provider.DeriveKey("Abcd1234", params)
		require.NoError(t, err)
		assert.Equal(t, key1, key2)

		other, err := provider.DeriveKey("Abcd1235", params)
		require.NoError(t, err)
		assert.NotEqual(t, key1, other)
	})

	t.Run("scrypt requires salt", func(t *testing.T) {
		_, err := provider.DeriveKey("Abcd1234", crypto.KDFParams{Version: crypto.KDFScrypt})
		assert.ErrorIs(t, err, crypto.ErrMissingSalt)
	})

	t.Run("scrypt depends on salt", func(t *testing.T) {
		p1, err := crypto.NewKDFParams(crypto.KDFScrypt)
		require.NoError(t, err)
		p2, err := crypto.NewKDFParams(crypto.KDFScrypt)
		require.NoError(t, err)
		assert.NotEqual(t, p1.Salt, p2.Salt)

		key1, err := provider.DeriveKey("Abcd1234", p1)
		require.NoError(t, err)
		key2, err := provider.DeriveKey("Abcd1234", p2)
		require.NoError(t, err)
		assert.NotEqual(t, key1, key2)
	})

	t.Run("unknown version rejected", func(t *testing.T) {
		_, err := provider.DeriveKey("Abcd1234", crypto.KDFParams{Version: 99})
		assert.ErrorIs(t, err, crypto.ErrUnsupportedKDF)
	})
}

func TestProvider_RoundTrip(t *testing.T) {
	provider := crypto.NewProvider()
	key := testKey(t)

	plaintexts := [][]byte{
		[]byte("hello"),
		{},
		make([]byte, 1<<16),
	}
	rand.Read(plaintexts[2])

	for _, plaintext := range plaintexts {
		box, err := provider.Encrypt(plaintext, key)
		require.NoError(t, err)
		assert.Len(t, box.Nonce, crypto.NonceSize)
		assert.Len(t, box.Tag, crypto.TagSize)

		decrypted, err := provider.Decrypt(box, key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestProvider_EmptyPlaintext(t *testing.T) {
	provider := crypto.NewProvider()
	key := testKey(t)

	box, err := provider.Encrypt(nil, key)
	require.NoError(t, err)

	decrypted, err := provider.Decrypt(box, key)
	require.NoError(t, err)
	assert.NotNil(t, decrypted)
	assert.Empty(t, decrypted)
}

func TestProvider_NonceUnique(t *testing.T) {
	provider := crypto.NewProvider()
	key := testKey(t)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		box, err := provider.Encrypt([]byte("same plaintext"), key)
		require.NoError(t, err)
		assert.False(t, seen[string(box.Nonce)], "nonce reused")
		seen[string(box.Nonce)] = true
	}
}

func TestProvider_TamperDetection(t *testing.T) {
	provider := crypto.NewProvider()
	key := testKey(t)

	box, err := provider.Encrypt([]byte("sensitive photo bytes"), key)
	require.NoError(t, err)

	flip := func(b []byte, i int) []byte {
		cp := make([]byte, len(b))
		copy(cp, b)
		cp[i] ^= 0x01
		return cp
	}

	t.Run("ciphertext bit flip", func(t *testing.T) {
		for i := range box.Ciphertext {
			tampered := box
			tampered.Ciphertext = flip(box.Ciphertext, i)
			_, err := provider.Decrypt(tampered, key)
			assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
		}
	})

	t.Run("nonce bit flip", func(t *testing.T) {
		tampered := box
		tampered.Nonce = flip(box.Nonce, 0)
		_, err := provider.Decrypt(tampered, key)
		assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
	})

	t.Run("tag bit flip", func(t *testing.T) {
		tampered := box
		tampered.Tag = flip(box.Tag, crypto.TagSize-1)
		_, err := provider.Decrypt(tampered, key)
		assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := provider.Decrypt(box, testKey(t))
		assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
	})
}

func TestProvider_LengthValidation(t *testing.T) {
	provider := crypto.NewProvider()
	key := testKey(t)

	box, err := provider.Encrypt([]byte("data"), key)
	require.NoError(t, err)

	t.Run("short nonce", func(t *testing.T) {
		bad := box
		bad.Nonce = box.Nonce[:crypto.NonceSize-1]
		_, err := provider.Decrypt(bad, key)
		assert.ErrorIs(t, err, crypto.ErrInvalidNonce)
	})

	t.Run("long tag", func(t *testing.T) {
		bad := box
		bad.Tag = append(append([]byte{}, box.Tag...), 0x00)
		_, err := provider.Decrypt(bad, key)
		assert.ErrorIs(t, err, crypto.ErrInvalidTag)
	})

	t.Run("bad key size", func(t *testing.T) {
		_, err := provider.Encrypt([]byte("data"), key[:16])
		assert.ErrorIs(t, err, crypto.ErrInvalidKey)
	})
}

func TestProvider_KeyCheck(t *testing.T) {
	provider := crypto.NewProvider()
	key := testKey(t)

	check := provider.KeyCheck(key)
	assert.True(t, provider.VerifyKeyCheck(key, check))
	assert.False(t, provider.VerifyKeyCheck(testKey(t), check))

	// The verifier must not equal a plain hash of the key used
	// anywhere else.
	assert.NotEqual(t, key, check)
}

func TestContentHash(t *testing.T) {
	a := crypto.ContentHash([]byte("same bytes"))
	b := crypto.ContentHash([]byte("same bytes"))
	c := crypto.ContentHash([]byte("other bytes"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64) // hex sha256
}

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := crypto.RandomKey()
	require.NoError(t, err)
	return key
}
