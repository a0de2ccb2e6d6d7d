package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// MasterKeyEnv is consulted when no key file is configured.
const MasterKeyEnv = "LABRES_MASTER_KEY"

const hkdfInfo = "labres/store/v1"

var (
	// ErrNoMasterKey means neither a key file nor LABRES_MASTER_KEY was set.
	ErrNoMasterKey = errors.New("cryptox: no master key configured")

	// ErrOpen is returned for ciphertext that fails authentication. Wrong key,
	// truncated value and a value moved to another storage key all look the
	// same.
	ErrOpen = errors.New("cryptox: cannot open sealed value")
)

// LoadMasterKey reads key material from path, or from LABRES_MASTER_KEY when
// path is empty. Surrounding whitespace is trimmed so key files written by
// editors with a trailing newline still work.
func LoadMasterKey(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read master key file: %w", err)
		}
		data = []byte(strings.TrimSpace(string(data)))
		if len(data) == 0 {
			return nil, fmt.Errorf("master key file %s is empty", path)
		}
		return data, nil
	}

	if env := strings.TrimSpace(os.Getenv(MasterKeyEnv)); env != "" {
		return []byte(env), nil
	}
	return nil, ErrNoMasterKey
}

// Sealer encrypts small values with AES-256-GCM. The layout of a sealed
// value is [12-byte nonce][ciphertext][16-byte tag].
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a 32-byte key from the master key material with HKDF
// (SHA-256) and prepares the AEAD.
func NewSealer(keyMaterial []byte) (*Sealer, error) {
	if len(keyMaterial) == 0 {
		return nil, ErrNoMasterKey
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, keyMaterial, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: gcm}, nil
}

// Seal encrypts plaintext. aad is authenticated but not encrypted; the store
// passes the storage key so a sealed value cannot be replayed under another
// key.
func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed, aad []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, ErrOpen
	}

	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], aad)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}
