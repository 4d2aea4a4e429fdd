/*
Package agent tracks the collector fleet heartbeating against the control plane.

The agent registry is the control plane's live view of its collectors: which
instances exist, which shard each one claims, what config hash each is
running, and when each was last seen. It is deliberately in-memory; agents
re-register with their first heartbeat after any restart, so persisting this
state would only let it go stale.

# Agent Lifecycle

	first heartbeat                 config delivered
	      │                               │
	      ▼                               ▼
	 ┌────────────┐  initial config  ┌────────────┐
	 │ registered │─────────────────►│ configured │◄─┐
	 └────────────┘                  └────────────┘  │
	                                       │         │ agent confirms
	                                       │ new     │ delivered hash
	                                       ▼ hash    │
	                                ┌────────────────┐
	                                │ config_changed │
	                                └────────────────┘
	      any state ──(unseen for TTL)──► evicted (entry deleted)

Status moves to configured on the first delivery, to config_changed when a
delivery replaces a different hash, and back to configured when the agent
reports the delivered hash as applied.

# Shard Identity

An agent declares its shard through the hdx.shard_id identifying attribute
(ShardAttributeKey), set on the collector via OTEL_RESOURCE_ATTRIBUTES.
Enforcement of "a config-accepting agent must have a shard" happens at the
OpAMP endpoint: it calls Preview, the read-only mirror of Process's merge,
and refuses the heartbeat before the registry records anything. A refused
heartbeat therefore creates no entry and does not advance an existing
entry's eviction clock.

# Eviction

A background sweep evicts agents unseen for longer than the TTL and
publishes agent.evicted. EvictExpired is exported so tests can force a pass
with a synthetic clock instead of waiting out the sweep interval:

	evicted := registry.EvictExpired(time.Now().UTC().Add(ttl + time.Minute))

Eviction only forgets liveness. The agent's next heartbeat re-registers it
and ordinary config delivery resumes.

# Usage

	agents := agent.NewRegistry(broker, 5*time.Minute)
	agents.Start()
	defer agents.Stop()

	caps, shard := agents.Preview(msg)    // what Process would resolve
	state := agents.Process(msg)          // merge one AgentToServer
	agents.SetDelivered(uid, configHash)  // record a handed-out config
	st, ok := agents.Get(uid)
	all := agents.List()                  // most recently seen first

Process and SetDelivered return copies; callers never share memory with the
registry's internal state.

# Integration Points

This package integrates with:

  - pkg/opamp: Feeds heartbeats in, reads shard identity out
  - pkg/events: agent.registered, agent.configured, agent.evicted
  - pkg/api: GET /agents serves List
  - pkg/metrics: connected_agents gauge

# See Also

  - pkg/opamp for the protocol endpoint in front of this registry
  - pkg/collectorcfg for what gets delivered to each shard
*/
package agent
