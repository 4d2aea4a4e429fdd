/*
Package collectorcfg synthesizes OpenTelemetry collector configurations per shard.

The synthesizer answers one question: what configuration should the collector
on shard N be running right now? The answer is derived entirely from durable
state (active tokens and the owning team's managed connection), rendered as a
byte-deterministic JSON document, and hashed so agents and the control plane
can agree on "unchanged" cheaply.

# Config Variants

Two variants exist, and every shard is always running exactly one:

	nop (parking)                      tenant (routing)
	┌──────────────────────┐           ┌──────────────────────────┐
	│ receivers: otlp      │           │ receivers: otlp/hyperdx  │
	│   grpc :4317         │           │   grpc :4317, http :4318 │
	│   http :4318         │           │ processors:              │
	│ exporters: nop       │           │   memory_limiter, batch  │
	│ pipelines:           │           │ exporters: clickhouse    │
	│   logs/nop           │           │   database: tenant_<id>  │
	│   traces/nop         │           │   username: tenant_<id>  │
	│   metrics/nop        │           │   password: <write cred> │
	└──────────────────────┘           │ pipelines:               │
	                                   │   logs, traces, metrics  │
	                                   └──────────────────────────┘

The nop config keeps the standard OTLP ports open so a parked shard accepts
connections and discards payloads instead of refusing traffic. The tenant
config routes every signal into the owning team's isolated database.

# Resolution Rules

ForShard(shardID) resolves the shard's occupant and degrades toward nop on
any doubt:

  - no active tokens on the shard            → nop
  - token lookup fails                       → nop (logged)
  - owning team's connection missing         → nop (logged); this is a
    tenant whose provisioning has not converged yet
  - multiple teams hold active tokens        → lexicographically smallest
    team id wins (logged); the others stay dark until the overlap is fixed

A shard can therefore never receive another tenant's pipeline by accident,
and an unprovisioned tenant parks instead of erroring.

# Determinism

Render marshals the document from fixed-field structs, not maps, so the
same inputs always produce identical bytes and an identical SHA-256 hash.
Agents compare hashes to decide whether to reload; spurious byte-level
differences would cause fleet-wide config churn.

# Usage

	synth := collectorcfg.NewSynthesizer(reg, store)

	cfg := synth.ForShard("shard-0")
	body, hash, err := cfg.Render()
	// cfg.Kind is KindNop or KindTenant
	// body is the collector.json document, hash its SHA-256

# Integration Points

This package integrates with:

  - pkg/registry: ActiveOnShard resolves the shard's occupant
  - pkg/storage: The single GetConnectionWithPassword caller
  - pkg/opamp: Delivers rendered configs in ServerToAgent responses
  - pkg/metrics: configs_delivered counter by variant

# See Also

  - pkg/opamp for the delivery protocol
  - pkg/provision for the tenant database the config points at
*/
package collectorcfg
