package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// KeySize is the number of random bytes in a generated master key.
const KeySize = 32

// GenerateToken returns size random bytes as unpadded base64url. labctl uses
// it to create master key files.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token,
// base64url encoded (43 chars).
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// LogFingerprint is a short fingerprint for log lines. It identifies which
// token was in play without exposing it. Empty tokens give "".
func LogFingerprint(token string) string {
	if token == "" {
		return ""
	}
	return FingerprintToken(token)[:8]
}
