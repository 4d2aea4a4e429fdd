/*
Package opamp serves the OpAMP endpoint collectors heartbeat against.

The opamp package is the wire-protocol front of the agent registry and the
config synthesizer. It speaks plain-HTTP OpAMP: agents POST protobuf
AgentToServer messages to /v1/opamp and receive ServerToAgent responses
carrying the remote config for their shard. There is no WebSocket transport
and no server push; agents poll with their heartbeats.

# Message Round

	  collector                         control plane
	      │   POST /v1/opamp                 │
	      │   AgentToServer {                │
	      │     instance_uid,                │
	      │     capabilities,                │
	      │     agent_description {          │
	      │       hdx.shard_id = shard-N     │
	      │     },                           │
	      │     remote_config_status?        │
	      │   }                              │
	      │ ────────────────────────────────►│
	      │                                  │ registry.Preview(msg)
	      │                                  │ registry.Process(msg)
	      │                                  │ synthesizer.ForShard(N)
	      │                                  │ registry.SetDelivered(...)
	      │   ServerToAgent {                │
	      │     instance_uid,                │
	      │     remote_config {              │
	      │       config_map["collector.json"]
	      │       config_hash = sha256(body) │
	      │     }                            │
	      │   }                              │
	      │ ◄────────────────────────────────│

The remote config rides on every response to a shard-bearing agent that
accepts remote configs; agents skip reloading when the hash matches what
they already run. Confirmation arrives as RemoteConfigStatus APPLIED with
the delivered hash, which flips the agent's registry status to configured.

# Error Paths

	wrong Content-Type            415  expected application/x-protobuf
	unreadable / oversized body   400
	malformed protobuf            400
	agent reports no shard id     500  agent misconfigured; nothing is
	                                   delivered and no state changes
	config render failure         500

The missing-shard case is an operator error on the collector deployment
(OTEL_RESOURCE_ATTRIBUTES not set). The server gates on registry.Preview
before the registry sees the message, so the refused heartbeat registers
no entry, starts no eviction clock, and leaves an already-known agent's
state untouched. It logs the attribute key the agent must set and refuses
to hand out any config, because a config chosen without a shard identity
could belong to another tenant.

# Server Capabilities

The server advertises AcceptsStatus and OffersRemoteConfig only. Packages,
connection settings, and own-telemetry negotiation are not offered.

# Usage

Standalone (production):

	srv := opamp.NewServer(agents, synthesizer)
	go srv.Start(":4320")
	defer srv.Shutdown(ctx)

Mounted (tests):

	httptest.NewServer(srv.Handler())

# Integration Points

This package integrates with:

  - pkg/agent: Heartbeat processing and delivery tracking
  - pkg/collectorcfg: Per-shard config synthesis
  - pkg/metrics: opamp_requests counter by outcome

# See Also

  - pkg/agent for the registry behind this endpoint
  - OpAMP specification: https://github.com/open-telemetry/opamp-spec
*/
package opamp
