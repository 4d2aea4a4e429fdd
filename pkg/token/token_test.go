package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tok, err := Generate()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(tok, Marker))
	// 11-char marker + 43 chars of unpadded base64url for 32 bytes
	assert.Len(t, tok, 54)
	assert.True(t, Valid(tok))
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := Generate()
		require.NoError(t, err)
		assert.False(t, seen[tok], "duplicate token generated")
		seen[tok] = true
	}
}

func TestHash(t *testing.T) {
	tok, err := Generate()
	require.NoError(t, err)

	h := Hash(tok)
	assert.Len(t, h, 64)
	assert.Equal(t, strings.ToLower(h), h)
	assert.Equal(t, h, Hash(tok), "hash must be deterministic")

	other, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, h, Hash(other))
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected string
	}{
		{
			name:     "full token keeps marker plus first body char",
			token:    "hdx_ingest_AbCdEfGhIjKlMnOpQrStUvWxYz0123456789-_Ab",
			expected: "hdx_ingest_A",
		},
		{
			name:     "short string returned unchanged",
			token:    "hdx_ingest_",
			expected: "hdx_ingest_",
		},
		{
			name:     "empty string",
			token:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Prefix(tt.token))
		})
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		token string
		valid bool
	}{
		{
			name:  "generated token",
			token: "hdx_ingest_AbCdEfGhIjKlMnOpQrStUvWxYz0123456789-_AbCdE",
			valid: true,
		},
		{
			name:  "wrong marker",
			token: "hdx_query_AbCdEfGhIjKlMnOpQrStUvWxYz0123456789-_Ab",
			valid: false,
		},
		{
			name:  "body too short",
			token: "hdx_ingest_AbCdEf",
			valid: false,
		},
		{
			name:  "empty",
			token: "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, Valid(tt.token))
		})
	}
}
