/*
Package registry implements the ingestion token lifecycle.

The registry is the policy layer between the HTTP API and the store: it mints
tokens, places tenants on collector shards, rotates and revokes credentials,
and resolves presented plaintexts on the ingest path. It owns every rule
about who may hold which shard; the token wire format lives in pkg/token and
the allocation arithmetic in pkg/shard.

# Token Lifecycle

	        Create                    Rotate
	          │                         │
	          ▼                         ▼
	      ┌────────┐  Rotate      ┌──────────┐
	      │ active │─────────────►│ replaced │ (new active record,
	      └────────┘              └──────────┘  same shard)
	          │                         │
	          │ Revoke                  │ old record
	          ▼                         ▼
	      ┌─────────┐             ┌─────────┐
	      │ revoked │             │ revoked │
	      └─────────┘             └─────────┘

Records are never deleted. A revoked token keeps its hash, prefix, and
timestamps as the audit trail of the credential's life.

# Shard Placement

Placement on Create follows two rules, in order:

 1. Team affinity: if the team already holds active tokens, the new token
    joins the team's existing shard. A team occupies one shard.
 2. Lowest free: otherwise the lowest-numbered shard with no active tokens
    is taken. When none exists, Create fails with SHARDS_EXHAUSTED and no
    record is written.

Rotation keeps the replacement on the revoked token's shard, so rotating a
credential never moves a tenant's pipeline. AssignShard is the explicit
operator override and only validates that the target shard exists.

# The Issued Value

Create and Rotate return an Issued pairing the plaintext with its record:

	issued, err := reg.Create(teamID, "primary key")
	// issued.Token is the 54-char plaintext, shown exactly once.
	// issued.Record is the durable record (hash, prefix, shard, ...).

The plaintext exists only in this return value. It is not persisted, not
logged, and not retrievable later; callers must deliver it immediately.

# Ingest-Path Resolution

Resolve answers "which tenant and shard does this presented token belong
to" in one indexed lookup:

	res := reg.Resolve(plaintext)
	if res == nil {
		// unknown, malformed, or revoked
	}
	// res.TeamID, res.AssignedShard route the payload

Resolution is nil for anything that should not ingest: bad format, unknown
hash, revoked status. MarkUsed stamps LastUsedAt asynchronously so the hot
path never waits on a write.

# Usage

	reg := registry.New(store, broker, cfg.ShardCount)

	issued, err := reg.Create(teamID, "primary")
	replaced, err := reg.Rotate(teamID, issued.Record.ID)
	record, err := reg.Revoke(teamID, replaced.Record.ID)
	record, err = reg.AssignShard(teamID, tokenID, "shard-2")

	tokens, err := reg.List(teamID)            // newest first
	statuses, err := reg.ShardStatuses()       // full pool occupancy
	active, err := reg.ActiveOnShard("shard-0")

All team-scoped operations take the team id first and treat another team's
token id as NOT_FOUND, never as FORBIDDEN, so a caller cannot probe which
ids exist.

# Events

Every lifecycle change publishes to the broker: token.created,
token.rotated, token.revoked, token.shard_assigned. Metadata carries ids
and the display prefix only.

# Integration Points

This package integrates with:

  - pkg/token: Wire format, hashing, prefixes
  - pkg/shard: Allocation arithmetic
  - pkg/storage: Durable records and the atomic rotate
  - pkg/api: HTTP surface for every operation
  - pkg/collectorcfg: ActiveOnShard drives config synthesis

# See Also

  - pkg/collectorcfg for how shard occupancy becomes collector config
  - pkg/api for the HTTP routes over these operations
*/
package registry
