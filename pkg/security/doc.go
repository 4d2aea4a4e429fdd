/*
Package security provides encryption for secrets at rest.

The security package implements the SecretsManager, the authenticated
encryption primitive the storage layer uses to protect tenant write
credentials before they touch disk. Nothing else in the control plane
handles raw key material.

# Architecture

	┌────────────── SECRETS MANAGER ───────────────┐
	│                                              │
	│  passphrase (SECRET_KEY)                     │
	│       │ SHA-256                              │
	│       ▼                                      │
	│  32-byte key ──► AES-256-GCM                 │
	│                      │                       │
	│        ┌─────────────┴──────────────┐        │
	│        ▼                            ▼        │
	│   Encrypt(plaintext)          Decrypt(blob)  │
	│   nonce ∥ ciphertext ∥ tag    verifies tag   │
	└──────────────────────────────────────────────┘

Each Encrypt call draws a fresh random nonce from crypto/rand and prepends
it to the ciphertext, so the same plaintext never produces the same blob
twice. GCM authentication means any tampering with the stored blob fails
decryption instead of yielding garbage.

# Usage

From a configured passphrase:

	sm, err := security.NewSecretsManagerFromPassphrase(cfg.SecretKey)
	if err != nil {
		return err
	}

	blob, err := sm.EncryptString(conn.Password)
	...
	plaintext, err := sm.DecryptString(blob)

From raw key bytes (tests, key files):

	sm, err := security.NewSecretsManager(key32)

# Key Rotation

Changing the passphrase orphans previously written ciphertexts. The managed
connection is the only encrypted record, and it can be re-provisioned, so
rotation is: change the key, delete the affected connections, and let the
bootstrap reconciler mint fresh credentials.

# Integration Points

This package integrates with:

  - pkg/storage: Encrypts the managed connection credential at rest
  - cmd/switchboard: Builds the manager from the configured secret key

# See Also

  - pkg/storage for where ciphertexts live
  - pkg/provision for where the protected credential is minted
*/
package security
