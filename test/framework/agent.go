package framework

import (
	"bytes"
	"io"
	"net/http"

	"github.com/open-telemetry/opamp-go/protobufs"
	"google.golang.org/protobuf/proto"

	"github.com/hyperdxio/switchboard/pkg/agent"
)

// SimulatedAgent speaks the OpAMP wire protocol against a harness the
// way a real collector's opamp extension would: status reports out,
// remote configs in.
type SimulatedAgent struct {
	t        TestingT
	endpoint string
	uid      []byte
	shard    string

	lastConfig *protobufs.AgentRemoteConfig
}

// NewSimulatedAgent creates an agent that reports the given shard. An
// empty shard simulates a collector missing its resource attributes.
func NewSimulatedAgent(t TestingT, h *Harness, uid, shard string) *SimulatedAgent {
	return &SimulatedAgent{
		t:        t,
		endpoint: h.OpAMP + "/v1/opamp",
		uid:      []byte(uid),
		shard:    shard,
	}
}

// Heartbeat sends a full status report and records any remote config
// the server hands back.
func (a *SimulatedAgent) Heartbeat() *protobufs.ServerToAgent {
	a.t.Helper()

	msg := &protobufs.AgentToServer{
		InstanceUid:  a.uid,
		Capabilities: a.capabilities(),
	}
	if a.shard != "" {
		msg.AgentDescription = &protobufs.AgentDescription{
			IdentifyingAttributes: []*protobufs.KeyValue{
				{Key: agent.ShardAttributeKey, Value: anyString(a.shard)},
				{Key: "service.name", Value: anyString("otel-collector")},
			},
		}
	}

	resp := a.send(msg)
	if rc := resp.GetRemoteConfig(); rc != nil {
		a.lastConfig = rc
	}
	return resp
}

// ConfirmConfig reports the last received config as applied, the way a
// collector acknowledges after a successful reload.
func (a *SimulatedAgent) ConfirmConfig() *protobufs.ServerToAgent {
	a.t.Helper()

	if a.lastConfig == nil {
		a.t.Fatalf("agent %s has no config to confirm", a.uid)
	}

	msg := &protobufs.AgentToServer{
		InstanceUid:  a.uid,
		Capabilities: a.capabilities(),
		RemoteConfigStatus: &protobufs.RemoteConfigStatus{
			LastRemoteConfigHash: a.lastConfig.ConfigHash,
			Status:               protobufs.RemoteConfigStatuses_RemoteConfigStatuses_APPLIED,
		},
	}

	resp := a.send(msg)
	if rc := resp.GetRemoteConfig(); rc != nil {
		a.lastConfig = rc
	}
	return resp
}

// ConfigBody returns the last delivered collector config document
func (a *SimulatedAgent) ConfigBody() []byte {
	a.t.Helper()

	if a.lastConfig == nil {
		a.t.Fatalf("agent %s received no config", a.uid)
	}
	file := a.lastConfig.GetConfig().GetConfigMap()["collector.json"]
	if file == nil {
		a.t.Fatalf("remote config carries no collector.json entry")
	}
	return file.Body
}

// ConfigHash returns the hash of the last delivered config
func (a *SimulatedAgent) ConfigHash() []byte {
	a.t.Helper()

	if a.lastConfig == nil {
		a.t.Fatalf("agent %s received no config", a.uid)
	}
	return a.lastConfig.ConfigHash
}

func (a *SimulatedAgent) capabilities() uint64 {
	return uint64(protobufs.AgentCapabilities_AgentCapabilities_ReportsStatus |
		protobufs.AgentCapabilities_AgentCapabilities_AcceptsRemoteConfig)
}

func (a *SimulatedAgent) send(msg *protobufs.AgentToServer) *protobufs.ServerToAgent {
	a.t.Helper()

	raw, err := proto.Marshal(msg)
	if err != nil {
		a.t.Fatalf("failed to marshal agent message: %v", err)
	}

	resp, err := http.Post(a.endpoint, "application/x-protobuf", bytes.NewReader(raw))
	if err != nil {
		a.t.Fatalf("opamp request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		a.t.Fatalf("failed to read opamp response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		a.t.Fatalf("opamp request returned %d: %s", resp.StatusCode, body)
	}

	var out protobufs.ServerToAgent
	if err := proto.Unmarshal(body, &out); err != nil {
		a.t.Fatalf("failed to unmarshal server response: %v", err)
	}
	return &out
}

func anyString(s string) *protobufs.AnyValue {
	return &protobufs.AnyValue{Value: &protobufs.AnyValue_StringValue{StringValue: s}}
}
