/*
Package shard implements collector shard naming and allocation.

A shard is one collector deployment slot. The fleet is a fixed pool of
SHARD_COUNT slots named shard-0 through shard-(N-1); tokens are pinned to
shards and each shard serves at most one tenant at a time. This package owns
the naming scheme and the pure allocation arithmetic; the stateful policy
around it lives in pkg/registry.

# Allocation Model

	┌──────────────── SHARD POOL (count = 4) ────────────────┐
	│                                                         │
	│   shard-0           shard-1          shard-2   shard-3  │
	│   ┌─────────┐       ┌─────────┐      ┌──────┐  ┌──────┐ │
	│   │ team A  │       │ team B  │      │ free │  │ free │ │
	│   │ 2 active│       │ 1 active│      │      │  │      │ │
	│   │ tokens  │       │ token   │      │      │  │      │ │
	│   └─────────┘       └─────────┘      └──────┘  └──────┘ │
	│                                                         │
	│   occupied := shards holding ≥1 active token            │
	│   next free := lowest-numbered unoccupied shard         │
	└─────────────────────────────────────────────────────────┘

Occupancy is derived, never stored: a shard is occupied exactly when at
least one active token is assigned to it. Revoking a team's last active
token frees the shard with no bookkeeping to forget.

# Usage

Finding a slot for a new tenant:

	occupied := shard.Occupied(allTokens)
	name, err := shard.NextFree(count, occupied)
	if err != nil {
		// pool exhausted; surface SHARDS_EXHAUSTED to the caller
	}

Validating an operator-chosen shard:

	if !shard.ValidName(requested, count) {
		return apperr.New(apperr.KindInvalid, "unknown shard %q", requested)
	}

Reporting the pool:

	statuses := shard.Statuses(count, allTokens)
	// one entry per shard, occupant team and active token count

# Integration Points

This package integrates with:

  - pkg/registry: Applies the allocation policy on token creation
  - pkg/api: Serves shard occupancy on GET /shards
  - pkg/metrics: Derives the shards_occupied gauge

# See Also

  - pkg/registry for team affinity and exhaustion handling
  - pkg/collectorcfg for what an occupied shard's collector receives
*/
package shard
