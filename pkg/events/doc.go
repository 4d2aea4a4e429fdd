/*
Package events provides an in-memory event broker for Switchboard's pub/sub messaging.

The events package implements a lightweight event bus for broadcasting
control-plane events to interested subscribers. It supports asynchronous event
delivery with buffered channels, enabling loose coupling between Switchboard
components for state changes, notifications, and monitoring.

# Architecture

The event system provides non-blocking pub/sub messaging with buffered
channels:

	┌──────────────────── EVENT BROKER ────────────────────┐
	│                                                       │
	│  ┌─────────────────────────────────────────┐          │
	│  │             Event Broker                │          │
	│  │  - In-memory message bus                │          │
	│  │  - Topic-agnostic (all events broadcast)│          │
	│  │  - Non-blocking publish                 │          │
	│  └──────────────────┬──────────────────────┘          │
	│                     │                                 │
	│  ┌──────────────────▼──────────────────────┐          │
	│  │          Event Distribution             │          │
	│  │                                         │          │
	│  │  Publisher → Event Channel (buffer: 100)│          │
	│  │       ↓                                 │          │
	│  │  Broadcast Loop                         │          │
	│  │       ↓                                 │          │
	│  │  Subscriber Channels (buffer: 50 each)  │          │
	│  └──────────────────┬──────────────────────┘          │
	│                     │                                 │
	│  ┌──────────────────▼──────────────────────┐          │
	│  │            Subscribers                  │          │
	│  │                                         │          │
	│  │  API server: streams events to clients  │          │
	│  │  CLI: switchboard events follows live   │          │
	│  └─────────────────────────────────────────┘          │
	└───────────────────────────────────────────────────────┘

# Core Components

Event Broker:
  - Central message bus for event distribution
  - Manages subscriber lifecycle
  - Non-blocking publish (buffered channel)
  - Graceful shutdown via stop channel

Event:
  - Type: Event type (token.created, agent.evicted, etc.)
  - Timestamp: When the event occurred (stamped at publish)
  - Message: Human-readable description
  - Metadata: Key-value pairs for additional context

Subscriber:
  - Channel that receives Event pointers
  - Buffered (50 events) to handle bursts
  - Created via broker.Subscribe()
  - Closed via broker.Unsubscribe()

# Event Types Catalog

Team events:

EventTeamCreated:
  - Published when: A team is registered
  - Metadata: team_id, name

Token events:

EventTokenCreated:
  - Published when: An ingestion token is issued
  - Metadata: team_id, token_id, token_prefix, shard

EventTokenRotated:
  - Published when: A token is replaced by rotation
  - Metadata: team_id, token_id, token_prefix, shard

EventTokenRevoked:
  - Published when: A token is revoked
  - Metadata: team_id, token_id, token_prefix, shard

EventTokenShardAssigned:
  - Published when: An operator moves a token to another shard
  - Metadata: team_id, token_id, token_prefix, shard

Tenant events:

EventTenantProvisioned:
  - Published when: A team's isolated storage finishes provisioning
  - Metadata: team_id, database

Agent events:

EventAgentRegistered:
  - Published when: A collector heartbeats for the first time
  - Metadata: instance_uid, shard

EventAgentConfigured:
  - Published when: A collector receives its initial config
  - Metadata: instance_uid, shard

EventAgentEvicted:
  - Published when: An idle collector passes its TTL
  - Metadata: instance_uid, shard

Every metadata map carries identifiers only. Token plaintexts, hashes, and
tenant credentials never ride on an event.

# Usage

Creating and starting the broker:

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

Subscribing:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			fmt.Printf("[%s] %s: %s\n",
				event.Timestamp.Format(time.RFC3339),
				event.Type,
				event.Message)
		}
	}()

Publishing:

	broker.Publish(&events.Event{
		Type:    events.EventTokenCreated,
		Message: "ingestion token created",
		Metadata: map[string]string{
			"team_id": teamID,
			"shard":   shardName,
		},
	})

# Design Patterns

Non-Blocking Publish:
  - Publish sends to a buffered channel and returns immediately
  - Events may be dropped if the buffer is full
  - Trade-off: the control plane never stalls on observers

Fan-Out:
  - Single event broadcast to all subscribers
  - Each subscriber gets its own channel and processing rate
  - Full subscriber buffers are skipped, never waited on

Fire-and-Forget:
  - No acknowledgment, no retry, no replay
  - The bolt store is the source of truth; events are a live feed,
    not a ledger

# Limitations

Current limitations:
  - In-memory only, no persistence or replay
  - No topic filtering; subscribers filter by Type
  - Best-effort delivery only

Anything that must not be lost belongs in pkg/storage, not here.

# See Also

  - pkg/api for streaming events to HTTP clients as NDJSON
  - pkg/client for the consuming side of the stream
*/
package events
