package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/open-telemetry/opamp-go/protobufs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperdxio/switchboard/pkg/agent"
	"github.com/hyperdxio/switchboard/pkg/bootstrap"
	"github.com/hyperdxio/switchboard/pkg/events"
	"github.com/hyperdxio/switchboard/pkg/registry"
	"github.com/hyperdxio/switchboard/pkg/security"
	"github.com/hyperdxio/switchboard/pkg/storage"
	"github.com/hyperdxio/switchboard/pkg/types"
)

type testEnv struct {
	store  storage.Store
	reg    *registry.Registry
	teams  *bootstrap.Orchestrator
	agents *agent.Registry
	broker *events.Broker
	server *httptest.Server
}

func newTestEnv(t *testing.T, shardCount int) *testEnv {
	t.Helper()

	secrets, err := security.NewSecretsManagerFromPassphrase("api-test")
	require.NoError(t, err)

	store, err := storage.NewBoltStore(t.TempDir(), secrets)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	reg := registry.New(store, broker, shardCount)
	teams := bootstrap.New(store, nil, "clickhouse:8123", broker)
	agents := agent.NewRegistry(broker, time.Minute)

	srv := NewServer(store, reg, teams, agents, broker)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testEnv{
		store:  store,
		reg:    reg,
		teams:  teams,
		agents: agents,
		broker: broker,
		server: ts,
	}
}

// do sends a request and returns the response with its body drained
func (e *testEnv) do(t *testing.T, method, path, teamID string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if teamID != "" {
		req.Header.Set(teamHeader, teamID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, raw
}

func (e *testEnv) createTeam(t *testing.T, name string) *types.Team {
	t.Helper()

	resp, raw := e.do(t, http.MethodPost, "/teams", "", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var team types.Team
	require.NoError(t, json.Unmarshal(raw, &team))
	require.NotEmpty(t, team.ID)
	return &team
}

type issuedResponse struct {
	Token       string `json:"token"`
	TokenRecord struct {
		ID            string `json:"id"`
		TokenPrefix   string `json:"token_prefix"`
		Status        string `json:"status"`
		AssignedShard string `json:"assigned_shard"`
		Description   string `json:"description"`
	} `json:"token_record"`
}

type errorResponse struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestTokenLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t, 4)
	team := env.createTeam(t, "acme")

	resp, raw := env.do(t, http.MethodGet, "/ingestion-tokens", team.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Empty(t, list.Data)

	resp, raw = env.do(t, http.MethodPost, "/ingestion-tokens", team.ID, map[string]string{"description": "laptop agent"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var created issuedResponse
	require.NoError(t, json.Unmarshal(raw, &created))

	assert.True(t, strings.HasPrefix(created.Token, "hdx_ingest_"))
	assert.Len(t, created.Token, 54)
	assert.Equal(t, created.Token[:12], created.TokenRecord.TokenPrefix)
	assert.Equal(t, "active", created.TokenRecord.Status)
	assert.Equal(t, "shard-0", created.TokenRecord.AssignedShard)
	assert.Equal(t, "laptop agent", created.TokenRecord.Description)
	assert.NotContains(t, string(raw), "token_hash")

	resp, raw = env.do(t, http.MethodPost, "/ingestion-tokens/"+created.TokenRecord.ID+"/rotate", team.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var rotated issuedResponse
	require.NoError(t, json.Unmarshal(raw, &rotated))

	assert.NotEqual(t, created.Token, rotated.Token)
	assert.Equal(t, "shard-0", rotated.TokenRecord.AssignedShard)
	assert.Equal(t, "laptop agent", rotated.TokenRecord.Description)

	resp, raw = env.do(t, http.MethodGet, "/ingestion-tokens", team.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Data, 2)
	assert.Equal(t, rotated.TokenRecord.ID, list.Data[0]["id"])
	assert.Equal(t, "active", list.Data[0]["status"])
	assert.Equal(t, created.TokenRecord.ID, list.Data[1]["id"])
	assert.Equal(t, "revoked", list.Data[1]["status"])
	assert.NotContains(t, string(raw), "token_hash")

	resp, raw = env.do(t, http.MethodDelete, "/ingestion-tokens/"+rotated.TokenRecord.ID, team.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var revoked struct {
		Status    string     `json:"status"`
		RevokedAt *time.Time `json:"revoked_at"`
	}
	require.NoError(t, json.Unmarshal(raw, &revoked))
	assert.Equal(t, "revoked", revoked.Status)
	assert.NotNil(t, revoked.RevokedAt)

	// With every token revoked the shard is free again.
	resp, raw = env.do(t, http.MethodGet, "/shards", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var shards struct {
		Data []types.ShardStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &shards))
	require.Len(t, shards.Data, 4)
	assert.Equal(t, "shard-0", shards.Data[0].Shard)
	assert.Empty(t, shards.Data[0].TeamID)
	assert.Zero(t, shards.Data[0].ActiveTokens)
}

func TestShardExhaustionOverHTTP(t *testing.T) {
	env := newTestEnv(t, 2)
	first := env.createTeam(t, "first")
	second := env.createTeam(t, "second")
	third := env.createTeam(t, "third")

	resp, raw := env.do(t, http.MethodPost, "/ingestion-tokens", first.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var issued issuedResponse
	require.NoError(t, json.Unmarshal(raw, &issued))
	assert.Equal(t, "shard-0", issued.TokenRecord.AssignedShard)

	resp, raw = env.do(t, http.MethodPost, "/ingestion-tokens", second.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &issued))
	assert.Equal(t, "shard-1", issued.TokenRecord.AssignedShard)

	resp, raw = env.do(t, http.MethodPost, "/ingestion-tokens", third.ID, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var errResp errorResponse
	require.NoError(t, json.Unmarshal(raw, &errResp))
	assert.Equal(t, "SHARDS_EXHAUSTED", errResp.Error.Kind)

	// Revoking the first team's only token frees shard-0 for the third.
	resp, raw = env.do(t, http.MethodGet, "/ingestion-tokens", first.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Data, 1)

	resp, _ = env.do(t, http.MethodDelete, "/ingestion-tokens/"+list.Data[0].ID, first.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = env.do(t, http.MethodPost, "/ingestion-tokens", third.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &issued))
	assert.Equal(t, "shard-0", issued.TokenRecord.AssignedShard)
}

func TestSourcesAreTenantScoped(t *testing.T) {
	env := newTestEnv(t, 4)
	alpha := env.createTeam(t, "alpha")
	beta := env.createTeam(t, "beta")

	type sourceList struct {
		Data []types.Source `json:"data"`
	}

	resp, raw := env.do(t, http.MethodGet, "/sources", alpha.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var alphaSources sourceList
	require.NoError(t, json.Unmarshal(raw, &alphaSources))
	require.Len(t, alphaSources.Data, 4)
	for _, src := range alphaSources.Data {
		assert.Equal(t, alpha.ID, src.TeamID)
		assert.Equal(t, "default", src.Database)
	}

	resp, raw = env.do(t, http.MethodGet, "/sources", beta.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var betaSources sourceList
	require.NoError(t, json.Unmarshal(raw, &betaSources))
	require.Len(t, betaSources.Data, 4)

	// Deleting another team's source id succeeds without touching it.
	resp, raw = env.do(t, http.MethodDelete, "/sources/"+betaSources.Data[0].ID, alpha.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))

	resp, raw = env.do(t, http.MethodGet, "/sources", beta.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &betaSources))
	assert.Len(t, betaSources.Data, 4)

	resp, _ = env.do(t, http.MethodDelete, "/sources/"+alphaSources.Data[0].ID, alpha.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = env.do(t, http.MethodGet, "/sources", alpha.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &alphaSources))
	assert.Len(t, alphaSources.Data, 3)
}

func TestTeamScopedRoutesRequireTeam(t *testing.T) {
	env := newTestEnv(t, 4)
	team := env.createTeam(t, "acme")

	tests := []struct {
		name   string
		teamID string
	}{
		{name: "missing header", teamID: ""},
		{name: "unknown team", teamID: "no-such-team"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := env.do(t, http.MethodGet, "/ingestion-tokens", tt.teamID, nil)
			require.Equal(t, http.StatusForbidden, resp.StatusCode)

			var errResp errorResponse
			require.NoError(t, json.Unmarshal(raw, &errResp))
			assert.Equal(t, "FORBIDDEN", errResp.Error.Kind)
		})
	}

	resp, raw := env.do(t, http.MethodGet, "/team", team.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got types.Team
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, team.ID, got.ID)
	assert.Equal(t, "acme", got.Name)
}

func TestForeignTokenLooksMissing(t *testing.T) {
	env := newTestEnv(t, 4)
	alpha := env.createTeam(t, "alpha")
	beta := env.createTeam(t, "beta")

	resp, raw := env.do(t, http.MethodPost, "/ingestion-tokens", alpha.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var issued issuedResponse
	require.NoError(t, json.Unmarshal(raw, &issued))

	for _, path := range []string{
		"/ingestion-tokens/" + issued.TokenRecord.ID + "/rotate",
	} {
		resp, raw = env.do(t, http.MethodPost, path, beta.ID, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		var errResp errorResponse
		require.NoError(t, json.Unmarshal(raw, &errResp))
		assert.Equal(t, "NOT_FOUND", errResp.Error.Kind)
	}

	resp, _ = env.do(t, http.MethodDelete, "/ingestion-tokens/"+issued.TokenRecord.ID, beta.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// The owner still sees an active token.
	resp, raw = env.do(t, http.MethodGet, "/ingestion-tokens", alpha.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Data []struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "active", list.Data[0].Status)
}

func TestAssignShardOverHTTP(t *testing.T) {
	env := newTestEnv(t, 4)
	team := env.createTeam(t, "acme")

	resp, raw := env.do(t, http.MethodPost, "/ingestion-tokens", team.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var issued issuedResponse
	require.NoError(t, json.Unmarshal(raw, &issued))
	require.Equal(t, "shard-0", issued.TokenRecord.AssignedShard)

	tokenPath := "/ingestion-tokens/" + issued.TokenRecord.ID + "/shard"

	resp, raw = env.do(t, http.MethodPatch, tokenPath, team.ID, map[string]string{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errResp errorResponse
	require.NoError(t, json.Unmarshal(raw, &errResp))
	assert.Equal(t, "INVALID", errResp.Error.Kind)

	resp, raw = env.do(t, http.MethodPatch, tokenPath, team.ID, map[string]string{"assigned_shard": "shard-9"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &errResp))
	assert.Equal(t, "INVALID", errResp.Error.Kind)

	resp, raw = env.do(t, http.MethodPatch, tokenPath, team.ID, map[string]string{"assigned_shard": "shard-2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"`+issued.TokenRecord.ID+`","assigned_shard":"shard-2"}`, string(raw))

	resp, raw = env.do(t, http.MethodGet, "/ingestion-tokens", team.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Data []struct {
			AssignedShard string `json:"assigned_shard"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "shard-2", list.Data[0].AssignedShard)
}

func TestDuplicateTeamNameRejected(t *testing.T) {
	env := newTestEnv(t, 4)
	env.createTeam(t, "acme")

	resp, raw := env.do(t, http.MethodPost, "/teams", "", map[string]string{"name": "acme"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp errorResponse
	require.NoError(t, json.Unmarshal(raw, &errResp))
	assert.Equal(t, "INVALID", errResp.Error.Kind)
}

func TestAgentsEndpoint(t *testing.T) {
	env := newTestEnv(t, 4)

	resp, raw := env.do(t, http.MethodGet, "/agents", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Data []agent.State `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Empty(t, list.Data)

	env.agents.Process(&protobufs.AgentToServer{InstanceUid: []byte("0123456789abcdef")})

	resp, raw = env.do(t, http.MethodGet, "/agents", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "30313233343536373839616263646566", list.Data[0].InstanceUID)
	assert.Equal(t, agent.StatusRegistered, list.Data[0].Status)
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t, 4)
	team := env.createTeam(t, "acme")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.server.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	_, err = env.reg.Create(team.ID, "stream test")
	require.NoError(t, err)

	// Events published before the stream opened may still be in flight;
	// skip until the token creation shows up.
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')
		require.NoError(t, err)

		var ev events.Event
		require.NoError(t, json.Unmarshal(line, &ev))
		if ev.Type != events.EventTokenCreated {
			continue
		}
		assert.Equal(t, team.ID, ev.Metadata["team_id"])
		assert.False(t, ev.Timestamp.IsZero())
		return
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, 4)

	resp, raw := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"status":"healthy"`)
}
