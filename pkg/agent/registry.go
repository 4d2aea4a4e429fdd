package agent

import (
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/open-telemetry/opamp-go/protobufs"
	"github.com/rs/zerolog"

	"github.com/hyperdxio/switchboard/pkg/events"
	"github.com/hyperdxio/switchboard/pkg/log"
	"github.com/hyperdxio/switchboard/pkg/metrics"
)

// ShardAttributeKey is the identifying attribute a collector reports
// to declare which ingestion shard it serves.
const ShardAttributeKey = "hdx.shard_id"

// sweepInterval is how often idle agents are checked for eviction
const sweepInterval = 30 * time.Second

// Status is the lifecycle state of a tracked agent
type Status string

const (
	StatusUnknown       Status = "unknown"
	StatusRegistered    Status = "registered"
	StatusConfigured    Status = "configured"
	StatusConfigChanged Status = "config_changed"
)

// State is the registry's view of one collector agent. InstanceUID is
// the hex form of the opaque uid the agent reports.
type State struct {
	InstanceUID    string            `json:"instance_uid"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	Capabilities   uint64            `json:"capabilities"`
	Status         Status            `json:"status"`
	LastConfigHash string            `json:"last_config_hash,omitempty"`
	FirstSeenAt    time.Time         `json:"first_seen_at"`
	LastSeenAt     time.Time         `json:"last_seen_at"`
}

// ShardID returns the shard the agent declared, or empty when the
// agent is misconfigured.
func (s *State) ShardID() string {
	return s.Attributes[ShardAttributeKey]
}

func (s *State) clone() *State {
	c := *s
	c.Attributes = make(map[string]string, len(s.Attributes))
	for k, v := range s.Attributes {
		c.Attributes[k] = v
	}
	return &c
}

// Registry tracks the collector agents currently heartbeating against
// the control plane. It is purely in-memory: agents re-register with
// their first heartbeat after a restart, so persisting this state
// would only let it go stale.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*State

	ttl    time.Duration
	broker *events.Broker
	logger zerolog.Logger
	stopCh chan struct{}
}

// NewRegistry creates an agent registry. Agents unseen for ttl are
// evicted by the background sweep once Start is called.
func NewRegistry(broker *events.Broker, ttl time.Duration) *Registry {
	return &Registry{
		agents: make(map[string]*State),
		ttl:    ttl,
		broker: broker,
		logger: log.WithComponent("agent"),
		stopCh: make(chan struct{}),
	}
}

// Process merges an agent's status report into the registry, creating
// the entry on first contact. The returned state is a copy; callers
// may read it without holding any lock.
func (r *Registry) Process(msg *protobufs.AgentToServer) *State {
	key := string(msg.InstanceUid)
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.agents[key]
	if !ok {
		st = &State{
			InstanceUID: hex.EncodeToString(msg.InstanceUid),
			Attributes:  make(map[string]string),
			Status:      StatusRegistered,
			FirstSeenAt: now,
		}
		r.agents[key] = st
		metrics.ConnectedAgents.Set(float64(len(r.agents)))

		r.logger.Info().
			Str("instance_uid", st.InstanceUID).
			Msg("agent registered")
		r.publish(events.EventAgentRegistered, "agent registered", st)
	}

	st.LastSeenAt = now
	if msg.Capabilities != 0 {
		st.Capabilities = msg.Capabilities
	}
	if desc := msg.GetAgentDescription(); desc != nil {
		attrs := make(map[string]string, len(desc.IdentifyingAttributes))
		for _, kv := range desc.IdentifyingAttributes {
			attrs[kv.GetKey()] = kv.GetValue().GetStringValue()
		}
		st.Attributes = attrs
	}

	// An agent confirming the delivered hash has converged.
	if rcs := msg.GetRemoteConfigStatus(); rcs != nil && len(rcs.LastRemoteConfigHash) > 0 {
		if st.LastConfigHash != "" && hex.EncodeToString(rcs.LastRemoteConfigHash) == st.LastConfigHash {
			st.Status = StatusConfigured
		}
	}

	return st.clone()
}

// Preview resolves the capabilities and shard identity a message would
// carry after merging, without touching the registry. The OpAMP
// endpoint gates on this before Process so a misconfigured heartbeat
// leaves no entry and no eviction clock behind.
func (r *Registry) Preview(msg *protobufs.AgentToServer) (capabilities uint64, shardID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := r.agents[string(msg.InstanceUid)]

	capabilities = msg.Capabilities
	if capabilities == 0 && st != nil {
		capabilities = st.Capabilities
	}

	if desc := msg.GetAgentDescription(); desc != nil {
		// A description replaces the attribute set wholesale, exactly
		// as Process applies it.
		for _, kv := range desc.IdentifyingAttributes {
			if kv.GetKey() == ShardAttributeKey {
				shardID = kv.GetValue().GetStringValue()
			}
		}
	} else if st != nil {
		shardID = st.ShardID()
	}
	return capabilities, shardID
}

// SetDelivered records that a config with the given hash was handed to
// the agent. A delivery that replaces a different hash marks the agent
// config-changed until it confirms.
func (r *Registry) SetDelivered(instanceUID []byte, hash []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.agents[string(instanceUID)]
	if !ok {
		return
	}

	previous := st.LastConfigHash
	st.LastConfigHash = hex.EncodeToString(hash)

	switch {
	case previous == "":
		st.Status = StatusConfigured
		r.publish(events.EventAgentConfigured, "agent received initial config", st)
	case previous != st.LastConfigHash:
		st.Status = StatusConfigChanged
	}
}

// Get returns a copy of one agent's state
func (r *Registry) Get(instanceUID []byte) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.agents[string(instanceUID)]
	if !ok {
		return nil, false
	}
	return st.clone(), true
}

// List returns copies of all tracked agents, most recently seen first
func (r *Registry) List() []*State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*State, 0, len(r.agents))
	for _, st := range r.agents {
		out = append(out, st.clone())
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].LastSeenAt.Equal(out[b].LastSeenAt) {
			return out[a].InstanceUID < out[b].InstanceUID
		}
		return out[a].LastSeenAt.After(out[b].LastSeenAt)
	})
	return out
}

// Count returns the number of tracked agents
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Start begins the background eviction sweep
func (r *Registry) Start() {
	go r.run()
}

// Stop stops the background sweep
func (r *Registry) Stop() {
	close(r.stopCh)
}

func (r *Registry) run() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.EvictExpired(time.Now().UTC())
		case <-r.stopCh:
			return
		}
	}
}

// EvictExpired evicts agents unseen since now-ttl and returns how many
// went. The background sweep calls this on a timer; callers may invoke
// it directly to force a pass.
func (r *Registry) EvictExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key, st := range r.agents {
		if now.Sub(st.LastSeenAt) <= r.ttl {
			continue
		}
		delete(r.agents, key)
		evicted++

		r.logger.Info().
			Str("instance_uid", st.InstanceUID).
			Time("last_seen", st.LastSeenAt).
			Msg("agent evicted")
		r.publish(events.EventAgentEvicted, "agent evicted after ttl", st)
	}

	if evicted > 0 {
		metrics.ConnectedAgents.Set(float64(len(r.agents)))
	}
	return evicted
}

func (r *Registry) publish(eventType events.EventType, message string, st *State) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(&events.Event{
		Type:    eventType,
		Message: message,
		Metadata: map[string]string{
			"instance_uid": st.InstanceUID,
			"shard":        st.ShardID(),
		},
	})
}
