package agent

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/open-telemetry/opamp-go/protobufs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperdxio/switchboard/pkg/events"
)

func strValue(s string) *protobufs.AnyValue {
	return &protobufs.AnyValue{Value: &protobufs.AnyValue_StringValue{StringValue: s}}
}

func statusReport(uid string, shard string) *protobufs.AgentToServer {
	msg := &protobufs.AgentToServer{
		InstanceUid:  []byte(uid),
		Capabilities: uint64(protobufs.AgentCapabilities_AgentCapabilities_AcceptsRemoteConfig),
	}
	if shard != "" {
		msg.AgentDescription = &protobufs.AgentDescription{
			IdentifyingAttributes: []*protobufs.KeyValue{
				{Key: ShardAttributeKey, Value: strValue(shard)},
				{Key: "service.name", Value: strValue("otel-collector")},
			},
		}
	}
	return msg
}

func TestProcessRegistersAgent(t *testing.T) {
	r := NewRegistry(nil, 5*time.Minute)

	st := r.Process(statusReport("agent-1-uid-0001", "shard-0"))
	require.NotNil(t, st)

	assert.Equal(t, StatusRegistered, st.Status)
	assert.Equal(t, "shard-0", st.ShardID())
	assert.Equal(t, "otel-collector", st.Attributes["service.name"])
	assert.NotZero(t, st.FirstSeenAt)
	assert.NotZero(t, st.LastSeenAt)
	assert.Equal(t, 1, r.Count())
}

func TestProcessMergesHeartbeats(t *testing.T) {
	r := NewRegistry(nil, 5*time.Minute)

	first := r.Process(statusReport("agent-1-uid-0001", "shard-2"))

	// A bare heartbeat without a description keeps the attributes.
	beat := &protobufs.AgentToServer{InstanceUid: []byte("agent-1-uid-0001")}
	second := r.Process(beat)

	assert.Equal(t, "shard-2", second.ShardID())
	assert.Equal(t, first.Capabilities, second.Capabilities)
	assert.Equal(t, 1, r.Count())
	assert.False(t, second.LastSeenAt.Before(first.LastSeenAt))

	// A fresh description replaces the attribute set.
	third := r.Process(statusReport("agent-1-uid-0001", "shard-3"))
	assert.Equal(t, "shard-3", third.ShardID())
}

func TestPreviewMirrorsProcess(t *testing.T) {
	r := NewRegistry(nil, 5*time.Minute)

	// An unseen agent resolves from the message alone, and previewing
	// it must not register anything.
	caps, shard := r.Preview(statusReport("agent-1-uid-0001", "shard-0"))
	assert.Equal(t, uint64(protobufs.AgentCapabilities_AgentCapabilities_AcceptsRemoteConfig), caps)
	assert.Equal(t, "shard-0", shard)
	assert.Equal(t, 0, r.Count())

	// An unseen agent with no description has nothing to resolve from.
	_, shard = r.Preview(&protobufs.AgentToServer{InstanceUid: []byte("agent-1-uid-0001")})
	assert.Empty(t, shard)

	// Once registered, a bare heartbeat inherits the stored
	// capabilities and shard, the same way Process merges them.
	st := r.Process(statusReport("agent-1-uid-0001", "shard-2"))
	caps, shard = r.Preview(&protobufs.AgentToServer{InstanceUid: []byte("agent-1-uid-0001")})
	assert.Equal(t, st.Capabilities, caps)
	assert.Equal(t, "shard-2", shard)

	// A description replaces the attribute set wholesale, so one that
	// drops the shard attribute previews as shardless even for a known
	// agent. The stored entry is untouched.
	dropped := &protobufs.AgentToServer{
		InstanceUid:  []byte("agent-1-uid-0001"),
		Capabilities: uint64(protobufs.AgentCapabilities_AgentCapabilities_AcceptsRemoteConfig),
		AgentDescription: &protobufs.AgentDescription{
			IdentifyingAttributes: []*protobufs.KeyValue{
				{Key: "service.name", Value: strValue("otel-collector")},
			},
		},
	}
	_, shard = r.Preview(dropped)
	assert.Empty(t, shard)

	kept, ok := r.Get([]byte("agent-1-uid-0001"))
	require.True(t, ok)
	assert.Equal(t, "shard-2", kept.ShardID())
}

func TestProcessReturnsCopies(t *testing.T) {
	r := NewRegistry(nil, 5*time.Minute)

	st := r.Process(statusReport("agent-1-uid-0001", "shard-0"))
	st.Attributes[ShardAttributeKey] = "tampered"
	st.Status = StatusConfigChanged

	again := r.Process(&protobufs.AgentToServer{InstanceUid: []byte("agent-1-uid-0001")})
	assert.Equal(t, "shard-0", again.ShardID())
	assert.Equal(t, StatusRegistered, again.Status)
}

func TestSetDeliveredTransitions(t *testing.T) {
	r := NewRegistry(nil, 5*time.Minute)
	uid := []byte("agent-1-uid-0001")

	r.Process(statusReport(string(uid), "shard-0"))

	hashA := sha256.Sum256([]byte("config-a"))
	r.SetDelivered(uid, hashA[:])
	st, ok := r.Get(uid)
	require.True(t, ok)
	assert.Equal(t, StatusConfigured, st.Status)
	assert.Equal(t, fmt.Sprintf("%x", hashA), st.LastConfigHash)

	// Re-delivering the same hash keeps the agent converged.
	r.SetDelivered(uid, hashA[:])
	st, _ = r.Get(uid)
	assert.Equal(t, StatusConfigured, st.Status)

	// A different config marks it changed until the agent confirms.
	hashB := sha256.Sum256([]byte("config-b"))
	r.SetDelivered(uid, hashB[:])
	st, _ = r.Get(uid)
	assert.Equal(t, StatusConfigChanged, st.Status)

	confirm := statusReport(string(uid), "shard-0")
	confirm.RemoteConfigStatus = &protobufs.RemoteConfigStatus{
		LastRemoteConfigHash: hashB[:],
		Status:               protobufs.RemoteConfigStatuses_RemoteConfigStatuses_APPLIED,
	}
	merged := r.Process(confirm)
	assert.Equal(t, StatusConfigured, merged.Status)
}

func TestSetDeliveredUnknownAgent(t *testing.T) {
	r := NewRegistry(nil, 5*time.Minute)

	hash := sha256.Sum256([]byte("config"))
	r.SetDelivered([]byte("never-seen"), hash[:])
	assert.Equal(t, 0, r.Count())
}

func TestSweepEvictsIdleAgents(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	r := NewRegistry(broker, time.Minute)
	r.Process(statusReport("agent-1-uid-0001", "shard-0"))
	r.Process(statusReport("agent-2-uid-0002", "shard-1"))

	assert.Equal(t, 0, r.EvictExpired(time.Now().UTC()))
	assert.Equal(t, 2, r.Count())

	evicted := r.EvictExpired(time.Now().UTC().Add(2 * time.Minute))
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 0, r.Count())

	// Drain until the eviction event shows up; registration events
	// precede it on the same channel.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub:
			if ev.Type == events.EventAgentEvicted {
				assert.NotEmpty(t, ev.Metadata["instance_uid"])
				return
			}
		case <-deadline:
			t.Fatal("no eviction event received")
		}
	}
}

func TestListOrdering(t *testing.T) {
	r := NewRegistry(nil, 5*time.Minute)

	r.Process(statusReport("agent-1-uid-0001", "shard-0"))
	time.Sleep(5 * time.Millisecond)
	r.Process(statusReport("agent-2-uid-0002", "shard-1"))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "shard-1", list[0].ShardID(), "most recently seen first")
	assert.Equal(t, "shard-0", list[1].ShardID())
}

func TestProcessConcurrent(t *testing.T) {
	r := NewRegistry(nil, 5*time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := fmt.Sprintf("agent-%d-uid", i%4)
			for j := 0; j < 50; j++ {
				r.Process(statusReport(uid, fmt.Sprintf("shard-%d", i%4)))
				r.Get([]byte(uid))
				r.List()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, r.Count())
}
