package collectorcfg

import (
	"bytes"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperdxio/switchboard/pkg/registry"
	"github.com/hyperdxio/switchboard/pkg/security"
	"github.com/hyperdxio/switchboard/pkg/storage"
	"github.com/hyperdxio/switchboard/pkg/types"
)

const nopGolden = `{
  "extensions": {"health_check": {"endpoint": "0.0.0.0:13133"}},
  "receivers": {
    "otlp": {
      "protocols": {
        "grpc": {"endpoint": "0.0.0.0:4317"},
        "http": {"endpoint": "0.0.0.0:4318"}
      }
    }
  },
  "exporters": {"nop": {}},
  "service": {
    "extensions": ["health_check"],
    "pipelines": {
      "logs/nop": {"receivers": ["otlp"], "exporters": ["nop"]},
      "traces/nop": {"receivers": ["otlp"], "exporters": ["nop"]},
      "metrics/nop": {"receivers": ["otlp"], "exporters": ["nop"]}
    }
  }
}`

const tenantGolden = `{
  "extensions": {"health_check": {"endpoint": "0.0.0.0:13133"}},
  "receivers": {
    "otlp/hyperdx": {
      "protocols": {
        "grpc": {"endpoint": "0.0.0.0:4317", "include_metadata": true},
        "http": {
          "endpoint": "0.0.0.0:4318",
          "include_metadata": true,
          "cors": {"allowed_origins": ["*"], "allowed_headers": ["*"]}
        }
      }
    }
  },
  "processors": {
    "memory_limiter": {"check_interval": "1s", "limit_percentage": 80, "spike_limit_percentage": 25},
    "batch": {}
  },
  "exporters": {
    "clickhouse": {
      "endpoint": "${env:CLICKHOUSE_ENDPOINT}",
      "database": "tenant_t1",
      "username": "tenant_t1",
      "password": "secretpw",
      "ttl": "720h",
      "retry_on_failure": {
        "enabled": true,
        "initial_interval": "5s",
        "max_interval": "30s",
        "max_elapsed_time": "300s"
      }
    }
  },
  "service": {
    "extensions": ["health_check"],
    "pipelines": {
      "logs": {"receivers": ["otlp/hyperdx"], "processors": ["memory_limiter", "batch"], "exporters": ["clickhouse"]},
      "traces": {"receivers": ["otlp/hyperdx"], "processors": ["memory_limiter", "batch"], "exporters": ["clickhouse"]},
      "metrics": {"receivers": ["otlp/hyperdx"], "processors": ["memory_limiter", "batch"], "exporters": ["clickhouse"]}
    }
  }
}`

func TestNopConfigShape(t *testing.T) {
	cfg := Nop()
	assert.Equal(t, KindNop, cfg.Kind)
	assert.Empty(t, cfg.TeamID)

	body, _, err := cfg.Render()
	require.NoError(t, err)
	assert.JSONEq(t, nopGolden, string(body))

	// An unbound shard must never carry a real exporter.
	assert.NotContains(t, string(body), "clickhouse")
}

func TestTenantConfigShape(t *testing.T) {
	cfg := Tenant("t1", "tenant_t1", "tenant_t1", "secretpw")
	assert.Equal(t, KindTenant, cfg.Kind)
	assert.Equal(t, "t1", cfg.TeamID)

	body, _, err := cfg.Render()
	require.NoError(t, err)
	assert.JSONEq(t, tenantGolden, string(body))
}

func TestRenderIsDeterministic(t *testing.T) {
	first, firstHash, err := Tenant("t1", "tenant_t1", "tenant_t1", "secretpw").Render()
	require.NoError(t, err)
	second, secondHash, err := Tenant("t1", "tenant_t1", "tenant_t1", "secretpw").Render()
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "same inputs must render byte-identically")
	assert.Equal(t, firstHash, secondHash)

	sum := sha256.Sum256(first)
	assert.Equal(t, sum[:], firstHash)

	nopA, nopHashA, err := Nop().Render()
	require.NoError(t, err)
	nopB, nopHashB, err := Nop().Render()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(nopA, nopB))
	assert.Equal(t, nopHashA, nopHashB)
}

func newTestSynthesizer(t *testing.T) (*Synthesizer, *registry.Registry, storage.Store) {
	t.Helper()

	secrets, err := security.NewSecretsManagerFromPassphrase("synthesizer-test")
	require.NoError(t, err)
	store, err := storage.NewBoltStore(t.TempDir(), secrets)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := registry.New(store, nil, 4)
	return NewSynthesizer(reg, store), reg, store
}

func seedTeam(t *testing.T, store storage.Store, id, name string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, store.CreateTeam(&types.Team{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}))
}

func seedConnection(t *testing.T, store storage.Store, teamID, username, password string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, store.UpsertConnection(&types.ManagedConnection{
		ID:        "conn-" + teamID,
		TeamID:    teamID,
		Name:      "Default",
		Host:      "clickhouse.internal:9000",
		Username:  username,
		Password:  password,
		IsManaged: true,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func TestForShardEmpty(t *testing.T) {
	syn, _, _ := newTestSynthesizer(t)

	cfg := syn.ForShard("shard-0")
	assert.Equal(t, KindNop, cfg.Kind)
}

func TestForShardMissingConnection(t *testing.T) {
	syn, reg, store := newTestSynthesizer(t)
	seedTeam(t, store, "t-aaa", "alpha")

	_, err := reg.Create("t-aaa", "")
	require.NoError(t, err)

	cfg := syn.ForShard("shard-0")
	assert.Equal(t, KindNop, cfg.Kind, "a tenant without a connection parks the shard")
}

func TestForShardTenant(t *testing.T) {
	syn, reg, store := newTestSynthesizer(t)
	seedTeam(t, store, "t-aaa", "alpha")
	seedConnection(t, store, "t-aaa", "tenant_t-aaa", "48hexpassword")

	issued, err := reg.Create("t-aaa", "")
	require.NoError(t, err)
	require.Equal(t, "shard-0", issued.Record.AssignedShard)

	cfg := syn.ForShard("shard-0")
	require.Equal(t, KindTenant, cfg.Kind)
	assert.Equal(t, "t-aaa", cfg.TeamID)

	exporter := cfg.Document.Exporters.ClickHouse
	require.NotNil(t, exporter)
	assert.Equal(t, "tenant_t-aaa", exporter.Database)
	assert.Equal(t, "tenant_t-aaa", exporter.Username)
	assert.Equal(t, "48hexpassword", exporter.Password, "credential comes from the opt-in connection read")

	// Other shards stay parked.
	assert.Equal(t, KindNop, syn.ForShard("shard-1").Kind)
}

func TestForShardUsesSourceDatabase(t *testing.T) {
	syn, reg, store := newTestSynthesizer(t)
	seedTeam(t, store, "t-aaa", "alpha")
	seedConnection(t, store, "t-aaa", "default", "")

	_, err := reg.Create("t-aaa", "")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, store.CreateSource(&types.Source{
		ID:           "src-log",
		TeamID:       "t-aaa",
		Kind:         types.SourceKindLog,
		Name:         "Logs",
		ConnectionID: "conn-t-aaa",
		Database:     "default",
		Table:        types.TableLogs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	cfg := syn.ForShard("shard-0")
	require.Equal(t, KindTenant, cfg.Kind)
	assert.Equal(t, "default", cfg.Document.Exporters.ClickHouse.Database)
}

func TestForShardStackedTeamsPicksSmallest(t *testing.T) {
	syn, reg, store := newTestSynthesizer(t)
	seedTeam(t, store, "t-bbb", "beta")
	seedTeam(t, store, "t-aaa", "alpha")
	seedConnection(t, store, "t-aaa", "tenant_t-aaa", "pw-a")
	seedConnection(t, store, "t-bbb", "tenant_t-bbb", "pw-b")

	b, err := reg.Create("t-bbb", "")
	require.NoError(t, err)
	require.Equal(t, "shard-0", b.Record.AssignedShard)

	a, err := reg.Create("t-aaa", "")
	require.NoError(t, err)
	require.Equal(t, "shard-1", a.Record.AssignedShard)

	// Operator override stacks both teams on shard-0.
	_, err = reg.AssignShard("t-aaa", a.Record.ID, "shard-0")
	require.NoError(t, err)

	cfg := syn.ForShard("shard-0")
	require.Equal(t, KindTenant, cfg.Kind)
	assert.Equal(t, "t-aaa", cfg.TeamID)
	assert.Equal(t, "pw-a", cfg.Document.Exporters.ClickHouse.Password)
}
