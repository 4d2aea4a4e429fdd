/*
Package storage provides persistent state management for Switchboard using BoltDB.

The storage package implements the durable layer of the control plane: teams,
ingestion tokens, managed connections, and sources, all in a single embedded
BoltDB file. There is no external database dependency; the control plane's
whole state travels with its data directory.

# Architecture

	┌─────────────────── STORAGE LAYER ────────────────────┐
	│                                                       │
	│  Store (interface)                                    │
	│      │                                                │
	│      ▼                                                │
	│  BoltStore ──────────► switchboard.db (single file)   │
	│      │                                                │
	│      │   Buckets:                                     │
	│      │   ┌─────────────────────────────────────┐      │
	│      │   │ teams              id → Team        │      │
	│      │   │ ingestion_tokens   id → Token       │      │
	│      │   │ token_hash_index   sha256 → id      │      │
	│      │   │ connections        team_id → Conn   │      │
	│      │   │ sources            id → Source      │      │
	│      │   └─────────────────────────────────────┘      │
	│      │                                                │
	│      ▼                                                │
	│  SecretsManager (AES-256-GCM)                         │
	│      encrypts the tenant write credential before      │
	│      it touches disk                                  │
	└───────────────────────────────────────────────────────┘

# Core Components

Store interface:
  - Defines all persistence operations
  - Returns apperr-classified errors (NOT_FOUND, INVALID, INTERNAL)
  - Allows swapping implementations for testing

BoltStore:
  - BoltDB-backed implementation
  - ACID transactions for multi-record operations
  - JSON serialization of records inside buckets

Secondary index:
  - token_hash_index maps a token's SHA-256 hash to its record id
  - Makes ingest-path token resolution one indexed read
  - Maintained inside the same transaction as the token write

# Transactional Invariants

Token rotation:

RotateToken persists the replacement token and the revocation of the old one
in one transaction. There is never a state where both plaintexts resolve, nor
one where a team lost its only active token mid-rotate.

Uniqueness:

CreateTeam enforces name uniqueness; CreateToken enforces hash uniqueness
through the index bucket. Both checks run inside the writing transaction, so
concurrent creates cannot race past them.

# Credential Handling

The managed connection's write credential is special-cased end to end:

  - UpsertConnection encrypts Password into EncryptedPassword via the
    SecretsManager and zeroes the plaintext field before writing
  - GetConnection returns the record with no password at all; this is
    what every ordinary caller gets
  - GetConnectionWithPassword decrypts and returns the plaintext; the
    config synthesizer is its single legitimate caller

A reader of the database file sees only AES-256-GCM ciphertext.

# Usage

Opening a store:

	secrets, err := security.NewSecretsManagerFromPassphrase(key)
	if err != nil {
		return err
	}
	store, err := storage.NewBoltStore(dataDir, secrets)
	if err != nil {
		return err
	}
	defer store.Close()

Typical operations:

	err = store.CreateTeam(team)
	tok, err := store.GetTokenByHash(token.Hash(presented))
	tokens, err := store.ListTokensByTeam(teamID)
	err = store.RotateToken(old, fresh)

# Performance Characteristics

  - Single writer: BoltDB serializes write transactions
  - Concurrent readers: read transactions proceed in parallel
  - Dataset: thousands of teams and tokens; well within a single
    memory-mapped file
  - Durability: fsync on commit

The control plane's write rate is operator-driven (token and team
management), so the single-writer model is never the bottleneck.

# Integration Points

This package integrates with:

  - pkg/registry: Token lifecycle persistence
  - pkg/bootstrap: Team, connection, and source persistence
  - pkg/security: Credential encryption at rest
  - pkg/api: Read paths for listings
  - pkg/collectorcfg: The password-bearing connection read

# See Also

  - pkg/security for the encryption primitive
  - pkg/types for the persisted record shapes
  - BoltDB: https://github.com/etcd-io/bbolt
*/
package storage
