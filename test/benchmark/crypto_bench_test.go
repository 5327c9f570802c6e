package benchmark

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/TheMichaelB/mediavault/internal/crypto"
)

func BenchmarkKeyDerivation(b *testing.B) {
	provider := crypto.NewProvider()

	versions := []struct {
		name    string
		version int
	}{
		{"legacy_sha256", crypto.KDFLegacySHA256},
		{"scrypt", crypto.KDFScrypt},
	}

	for _, v := range versions {
		b.Run(v.name, func(b *testing.B) {
			params, err := crypto.NewKDFParams(v.version)
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				_, err := provider.DeriveKey("Abcd1234", params)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEncrypt(b *testing.B) {
	provider := crypto.NewProvider()
	key := make([]byte, crypto.KeySize)
	rand.Read(key)

	sizes := []int{
		10240,    // 10KB thumbnail
		102400,   // 100KB photo
		1048576,  // 1MB photo
		10485760, // 10MB video clip
	}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("%dKB", size/1024), func(b *testing.B) {
			plaintext := make([]byte, size)
			rand.Read(plaintext)

			b.ResetTimer()
			b.ReportAllocs()
			b.SetBytes(int64(size))

			for i := 0; i < b.N; i++ {
				_, err := provider.Encrypt(plaintext, key)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDecrypt(b *testing.B) {
	provider := crypto.NewProvider()
	key := make([]byte, crypto.KeySize)
	rand.Read(key)

	sizes := []int{
		10240,
		102400,
		1048576,
		10485760,
	}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("%dKB", size/1024), func(b *testing.B) {
			plaintext := make([]byte, size)
			rand.Read(plaintext)

			box, err := provider.Encrypt(plaintext, key)
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			b.ReportAllocs()
			b.SetBytes(int64(size))

			for i := 0; i < b.N; i++ {
				_, err := provider.Decrypt(box, key)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkConcurrentDecrypt(b *testing.B) {
	provider := crypto.NewProvider()
	key := make([]byte, crypto.KeySize)
	rand.Read(key)

	plaintext := make([]byte, 102400)
	rand.Read(plaintext)

	box, err := provider.Encrypt(plaintext, key)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.SetBytes(int64(len(plaintext)))

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, err := provider.Decrypt(box, key)
			if err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkContentHash(b *testing.B) {
	sizes := []int{102400, 1048576, 10485760}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("%dKB", size/1024), func(b *testing.B) {
			data := make([]byte, size)
			rand.Read(data)

			b.ResetTimer()
			b.ReportAllocs()
			b.SetBytes(int64(size))

			for i := 0; i < b.N; i++ {
				crypto.ContentHash(data)
			}
		})
	}
}

// Simulate a vault holding mixed media sizes.
func BenchmarkRealisticWorkload(b *testing.B) {
	provider := crypto.NewProvider()
	key := make([]byte, crypto.KeySize)
	rand.Read(key)

	fileSizes := []int{
		51200,   // screenshots
		512000,  // compressed photos
		2097152, // full-resolution photos
	}

	var encrypted []crypto.SealedBox
	totalSize := 0
	for _, size := range fileSizes {
		for i := 0; i < 10; i++ {
			data := make([]byte, size)
			rand.Read(data)
			totalSize += size

			box, err := provider.Encrypt(data, key)
			if err != nil {
				b.Fatal(err)
			}
			encrypted = append(encrypted, box)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(totalSize))

	for i := 0; i < b.N; i++ {
		for j := range encrypted {
			_, err := provider.Decrypt(encrypted[j], key)
			if err != nil {
				b.Fatal(err)
			}
		}
	}
}
