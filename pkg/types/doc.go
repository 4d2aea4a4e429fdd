/*
Package types defines the core data structures used throughout Switchboard.

This package contains all fundamental types that represent Switchboard's domain
model: teams, ingestion tokens, sources, managed connections, and shard status.
These types are used by all other packages for state management, API
communication, and tenant orchestration logic.

# Architecture

The types package is the foundation of Switchboard's data model. One team owns
everything else:

	┌────────────────────── TENANT MODEL ──────────────────────┐
	│                                                           │
	│   Team ────────────────────────────────────────────┐      │
	│    │                                               │      │
	│    ├── IngestionToken (0..n)                       │      │
	│    │     status: active | revoked                  │      │
	│    │     assigned_shard: shard-N                   │      │
	│    │                                               │      │
	│    ├── ManagedConnection (0..1)                    │      │
	│    │     host, username                            │      │
	│    │     encrypted write credential                │      │
	│    │                                               │      │
	│    └── Source (0..4)          ┌──────────────┐     │      │
	│          log ◄───────────────►│ cross-linked │     │      │
	│          trace ◄─────────────►│  reference   │     │      │
	│          metric ◄────────────►│    graph     │     │      │
	│          session ◄───────────►└──────────────┘     │      │
	│                                                    │      │
	└────────────────────────────────────────────────────┘──────┘

All types are designed to be:
  - Serializable (JSON for the API and the bolt store)
  - Self-documenting (clear field names and struct tags)
  - Safe to expose (secret-bearing fields are excluded from JSON)

# Core Types

Tenant identity:
  - Team: A tenant of the platform, identified by UUID and unique name

Ingestion credentials:
  - IngestionToken: Durable record of one ingestion credential
  - TokenStatus: Active or revoked

The IngestionToken record never contains the token plaintext. It stores the
SHA-256 hash (for resolution) and a short display prefix (for listings and
logs). Revocation is a soft state change so the audit trail survives.

Query-side wiring:
  - ManagedConnection: The per-team connection the query layer uses
  - Source: One telemetry source (log, trace, metric, or session)
  - SourceKind: The four canonical kinds
  - MetricTables: The three metric tables a metric source spans

The ManagedConnection's Password field is tagged json:"-" so it can never
leak through an API response or a serialized store record; only the
EncryptedPassword ciphertext is persisted.

Shard occupancy:
  - ShardStatus: One shard's occupant team and active token count

# Table Names

The canonical telemetry tables every tenant database receives:

	TableLogs             otel_logs
	TableTraces           otel_traces
	TableSessions         hyperdx_sessions
	TableMetricsGauge     otel_metrics_gauge
	TableMetricsSum       otel_metrics_sum
	TableMetricsHistogram otel_metrics_histogram

# Usage

Creating a team:

	team := &types.Team{
		ID:        uuid.NewString(),
		Name:      "acme",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

Checking whether a token routes traffic:

	if tok.Active() {
		// counts toward shard occupancy
	}

Walking the canonical source kinds in display order:

	for _, kind := range types.SourceKinds {
		fmt.Println(kind) // log, trace, metric, session
	}

# Integration Points

This package integrates with:

  - pkg/storage: Persists and retrieves all types
  - pkg/registry: Manages IngestionToken lifecycle
  - pkg/bootstrap: Creates Team, ManagedConnection, and Source records
  - pkg/api: Serializes types into API responses
  - pkg/collectorcfg: Reads ManagedConnection for config synthesis

# See Also

  - pkg/storage for persistence of these types
  - pkg/registry for token lifecycle management
  - pkg/bootstrap for tenant source provisioning
*/
package types
