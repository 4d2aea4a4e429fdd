/*
Package token implements the ingestion token wire format.

The token package is the single place that knows what an ingestion token looks
like: how one is minted, hashed for storage, shortened for display, and
recognized on the wire. Every other package treats tokens as opaque strings.

# Token Format

An ingestion token is a fixed 54-character string:

	hdx_ingest_AbCdEfGhIjKlMnOpQrStUvWxYz0123456789-_AbCdE
	└────┬────┘└───────────────────┬───────────────────┘
	  marker                    secret
	(11 chars)          (43 chars, base64url of 32
	                     random bytes, no padding)

The marker makes tokens greppable in config files and support tickets and
lets log scrubbers recognize them by prefix. The secret carries 256 bits of
entropy from crypto/rand.

# Storage Model

The plaintext is never stored. Three derived values are:

	Hash(token)    SHA-256 hex digest; the lookup key for resolution
	Prefix(token)  first 12 characters (marker + 1); safe for display
	               in listings, logs, and audit events

Resolution of an inbound token is a single indexed lookup of its hash. A
leaked database therefore contains nothing that authenticates.

# Usage

Minting:

	plaintext, err := token.Generate()
	if err != nil {
		return err
	}
	record.TokenHash = token.Hash(plaintext)
	record.TokenPrefix = token.Prefix(plaintext)
	// hand plaintext to the caller exactly once, then drop it

Recognizing and resolving:

	if !token.Valid(presented) {
		return errUnauthorized
	}
	rec, err := store.GetTokenByHash(token.Hash(presented))

# Integration Points

This package integrates with:

  - pkg/registry: Mints tokens and resolves presented plaintexts
  - pkg/types: IngestionToken carries the hash and prefix fields

# See Also

  - pkg/registry for the token lifecycle built on this format
*/
package token
