package opamp

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/open-telemetry/opamp-go/protobufs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/hyperdxio/switchboard/pkg/agent"
	"github.com/hyperdxio/switchboard/pkg/collectorcfg"
	"github.com/hyperdxio/switchboard/pkg/registry"
	"github.com/hyperdxio/switchboard/pkg/security"
	"github.com/hyperdxio/switchboard/pkg/storage"
	"github.com/hyperdxio/switchboard/pkg/types"
)

type testEnv struct {
	handler http.Handler
	agents  *agent.Registry
	reg     *registry.Registry
	store   storage.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	secrets, err := security.NewSecretsManagerFromPassphrase("opamp-test")
	require.NoError(t, err)
	store, err := storage.NewBoltStore(t.TempDir(), secrets)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := registry.New(store, nil, 2)
	agents := agent.NewRegistry(nil, 5*time.Minute)
	srv := NewServer(agents, collectorcfg.NewSynthesizer(reg, store))

	return &testEnv{
		handler: srv.Handler(),
		agents:  agents,
		reg:     reg,
		store:   store,
	}
}

func strValue(s string) *protobufs.AnyValue {
	return &protobufs.AnyValue{Value: &protobufs.AnyValue_StringValue{StringValue: s}}
}

func agentMessage(uid, shard string) *protobufs.AgentToServer {
	msg := &protobufs.AgentToServer{
		InstanceUid:  []byte(uid),
		Capabilities: uint64(protobufs.AgentCapabilities_AgentCapabilities_AcceptsRemoteConfig),
	}
	attrs := []*protobufs.KeyValue{
		{Key: "service.name", Value: strValue("otel-collector")},
	}
	if shard != "" {
		attrs = append(attrs, &protobufs.KeyValue{Key: agent.ShardAttributeKey, Value: strValue(shard)})
	}
	msg.AgentDescription = &protobufs.AgentDescription{IdentifyingAttributes: attrs}
	return msg
}

func post(t *testing.T, handler http.Handler, msg *protobufs.AgentToServer) *httptest.ResponseRecorder {
	t.Helper()

	body, err := proto.Marshal(msg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/opamp", bytes.NewReader(body))
	req.Header.Set("Content-Type", contentTypeProtobuf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) *protobufs.ServerToAgent {
	t.Helper()

	require.Equal(t, contentTypeProtobuf, rec.Header().Get("Content-Type"))
	var resp protobufs.ServerToAgent
	require.NoError(t, proto.Unmarshal(rec.Body.Bytes(), &resp))
	return &resp
}

func configBody(t *testing.T, resp *protobufs.ServerToAgent) []byte {
	t.Helper()

	require.NotNil(t, resp.RemoteConfig)
	require.NotNil(t, resp.RemoteConfig.Config)
	file := resp.RemoteConfig.Config.ConfigMap[configFileName]
	require.NotNil(t, file)
	assert.Equal(t, contentTypeJSON, file.ContentType)
	return file.Body
}

func TestRejectsWrongContentType(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/opamp", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, 0, env.agents.Count())
}

func TestRejectsMalformedMessage(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/opamp", bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x01}))
	req.Header.Set("Content-Type", contentTypeProtobuf)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, env.agents.Count())
}

func TestMissingShardAttribute(t *testing.T) {
	env := newTestEnv(t)

	rec := post(t, env.handler, agentMessage("agent-misconfigured", ""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), agent.ShardAttributeKey)

	// The refused heartbeat leaves no trace: no entry, no eviction
	// clock, nothing for the operator views to report.
	assert.Equal(t, 0, env.agents.Count())
	_, ok := env.agents.Get([]byte("agent-misconfigured"))
	assert.False(t, ok, "a misconfigured heartbeat must not register the agent")
}

func TestMisconfiguredHeartbeatKeepsKnownAgentIntact(t *testing.T) {
	env := newTestEnv(t)
	uid := "agent-shard2-0001"

	rec := post(t, env.handler, agentMessage(uid, "shard-2"))
	require.Equal(t, http.StatusOK, rec.Code)

	before, ok := env.agents.Get([]byte(uid))
	require.True(t, ok)
	require.Equal(t, "shard-2", before.ShardID())
	require.Equal(t, agent.StatusConfigured, before.Status)

	// A later description that drops the shard attribute is refused
	// wholesale; the stored entry keeps its last good state and its
	// eviction clock does not advance.
	rec = post(t, env.handler, agentMessage(uid, ""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	after, ok := env.agents.Get([]byte(uid))
	require.True(t, ok)
	assert.Equal(t, "shard-2", after.ShardID())
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.LastConfigHash, after.LastConfigHash)
	assert.True(t, after.LastSeenAt.Equal(before.LastSeenAt), "refused heartbeat must not reset the eviction clock")
	assert.Equal(t, 1, env.agents.Count())
}

func TestHeartbeatWithoutRemoteConfigCapability(t *testing.T) {
	env := newTestEnv(t)

	msg := agentMessage("agent-passive", "")
	msg.Capabilities = uint64(protobufs.AgentCapabilities_AgentCapabilities_ReportsStatus)

	rec := post(t, env.handler, msg)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.RemoteConfig, "agents that cannot accept configs get none")
	assert.Equal(t, []byte("agent-passive"), resp.InstanceUid)
}

func TestNopThenTenantFlow(t *testing.T) {
	env := newTestEnv(t)
	uid := "agent-shard0-0001"

	// Before any token exists the shard is parked with a nop config.
	rec := post(t, env.handler, agentMessage(uid, "shard-0"))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.Equal(t, serverCapabilities, resp.Capabilities)
	assert.Equal(t, []byte(uid), resp.InstanceUid)

	nopBody := configBody(t, resp)
	sum := sha256.Sum256(nopBody)
	assert.Equal(t, sum[:], resp.RemoteConfig.ConfigHash)
	assert.Contains(t, string(nopBody), `"logs/nop"`)
	assert.Contains(t, string(nopBody), `"traces/nop"`)
	assert.Contains(t, string(nopBody), `"metrics/nop"`)
	assert.NotContains(t, string(nopBody), "clickhouse")

	// Bind a tenant to the shard.
	now := time.Now().UTC()
	require.NoError(t, env.store.CreateTeam(&types.Team{ID: "t1", Name: "acme", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, env.store.UpsertConnection(&types.ManagedConnection{
		ID:        "conn-t1",
		TeamID:    "t1",
		Name:      "Default",
		Host:      "clickhouse.internal:9000",
		Username:  "tenant_t1",
		Password:  "pw",
		IsManaged: true,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	issued, err := env.reg.Create("t1", "")
	require.NoError(t, err)
	require.Equal(t, "shard-0", issued.Record.AssignedShard)

	// The very next heartbeat picks up the tenant pipeline.
	rec = post(t, env.handler, agentMessage(uid, "shard-0"))
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeResponse(t, rec)

	tenantBody := configBody(t, resp)
	assert.NotEqual(t, sum[:], resp.RemoteConfig.ConfigHash, "config hash changes when the tenant binds")

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(tenantBody, &doc))

	exporters := doc["exporters"].(map[string]interface{})
	clickhouse := exporters["clickhouse"].(map[string]interface{})
	assert.Equal(t, "tenant_t1", clickhouse["database"])
	assert.Equal(t, "tenant_t1", clickhouse["username"])
	assert.Equal(t, "pw", clickhouse["password"])

	pipelines := doc["service"].(map[string]interface{})["pipelines"].(map[string]interface{})
	for _, signal := range []string{"logs", "traces", "metrics"} {
		pipe := pipelines[signal].(map[string]interface{})
		assert.Equal(t, []interface{}{"clickhouse"}, pipe["exporters"].([]interface{}), "pipeline %s", signal)
	}

	st, ok := env.agents.Get([]byte(uid))
	require.True(t, ok)
	assert.Equal(t, agent.StatusConfigChanged, st.Status, "delivered hash moved from nop to tenant")
}

func TestRepeatedHeartbeatsKeepHashStable(t *testing.T) {
	env := newTestEnv(t)
	uid := "agent-shard1-0001"

	first := decodeResponse(t, post(t, env.handler, agentMessage(uid, "shard-1")))
	second := decodeResponse(t, post(t, env.handler, agentMessage(uid, "shard-1")))

	require.NotNil(t, first.RemoteConfig)
	require.NotNil(t, second.RemoteConfig)
	assert.Equal(t, first.RemoteConfig.ConfigHash, second.RemoteConfig.ConfigHash)

	st, ok := env.agents.Get([]byte(uid))
	require.True(t, ok)
	assert.Equal(t, agent.StatusConfigured, st.Status)
}
