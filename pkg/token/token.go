package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// Marker prefixes every ingestion token
	Marker = "hdx_ingest_"

	// PrefixLen is the number of leading characters that are safe to
	// display in UIs and logs. Covers the marker plus the first
	// character of the random body.
	PrefixLen = 12

	// 256 bits of entropy per token
	randomBytes = 32
)

// Generate returns a new user-visible ingestion token. The caller is
// responsible for showing it to the end user exactly once; only the
// hash may be stored.
func Generate() (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return Marker + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the lowercase hex SHA-256 of a token. All storage and
// comparison goes through this; the plaintext never persists.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Prefix returns the non-secret display prefix of a token
func Prefix(token string) string {
	if len(token) <= PrefixLen {
		return token
	}
	return token[:PrefixLen]
}

// Valid reports whether a string is shaped like an ingestion token:
// the marker followed by the base64url body, total length 54 +/- 1.
// Cheap pre-filter for resolution; the real check is the hash lookup.
func Valid(token string) bool {
	if !strings.HasPrefix(token, Marker) {
		return false
	}
	body := len(token) - len(Marker)
	return body >= 42 && body <= 44
}
