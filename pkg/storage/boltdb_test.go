package storage

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/hyperdxio/switchboard/pkg/apperr"
	"github.com/hyperdxio/switchboard/pkg/security"
	"github.com/hyperdxio/switchboard/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	secrets, err := security.NewSecretsManagerFromPassphrase("test-passphrase")
	require.NoError(t, err)

	store, err := NewBoltStore(t.TempDir(), secrets)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestTeamRoundTrip(t *testing.T) {
	store := newTestStore(t)

	team := &types.Team{ID: "team-1", Name: "acme", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.CreateTeam(team))

	got, err := store.GetTeam("team-1")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Name)

	byName, err := store.GetTeamByName("acme")
	require.NoError(t, err)
	assert.Equal(t, "team-1", byName.ID)

	_, err = store.GetTeam("missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestConnectionPasswordOptIn(t *testing.T) {
	store := newTestStore(t)

	conn := &types.ManagedConnection{
		ID:        "conn-1",
		TeamID:    "team-1",
		Host:      "clickhouse:9000",
		Username:  "tenant_team-1",
		Password:  "0f1e2d3c4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a6978",
		IsManaged: true,
	}
	require.NoError(t, store.UpsertConnection(conn))

	plain, err := store.GetConnection("team-1")
	require.NoError(t, err)
	assert.Empty(t, plain.Password)
	assert.Empty(t, plain.EncryptedPassword)

	withPassword, err := store.GetConnectionWithPassword("team-1")
	require.NoError(t, err)
	assert.Equal(t, "0f1e2d3c4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a6978", withPassword.Password)
}

func TestConnectionPasswordEncryptedAtRest(t *testing.T) {
	store := newTestStore(t)

	conn := &types.ManagedConnection{
		ID:       "conn-1",
		TeamID:   "team-1",
		Password: "super-sensitive-credential",
	}
	require.NoError(t, store.UpsertConnection(conn))

	err := store.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketConnections).Get([]byte("team-1"))
		require.NotNil(t, raw)
		assert.False(t, strings.Contains(string(raw), "super-sensitive-credential"),
			"plaintext password must not reach disk")

		var stored types.ManagedConnection
		require.NoError(t, json.Unmarshal(raw, &stored))
		assert.NotEmpty(t, stored.EncryptedPassword)
		return nil
	})
	require.NoError(t, err)
}

func TestUpsertConnectionKeepsStoredCredential(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertConnection(&types.ManagedConnection{
		ID:       "conn-1",
		TeamID:   "team-1",
		Host:     "clickhouse:9000",
		Password: "original-password",
	}))

	// Re-upsert without a password, as the bootstrap retry path does
	require.NoError(t, store.UpsertConnection(&types.ManagedConnection{
		ID:     "conn-1",
		TeamID: "team-1",
		Host:   "clickhouse-2:9000",
	}))

	conn, err := store.GetConnectionWithPassword("team-1")
	require.NoError(t, err)
	assert.Equal(t, "clickhouse-2:9000", conn.Host)
	assert.Equal(t, "original-password", conn.Password)
}

func TestTokenHashIndex(t *testing.T) {
	store := newTestStore(t)

	tok := &types.IngestionToken{
		ID:            "tok-1",
		TeamID:        "team-1",
		TokenHash:     "aaaa",
		TokenPrefix:   "hdx_ingest_A",
		Status:        types.TokenStatusActive,
		AssignedShard: "shard-0",
	}
	require.NoError(t, store.CreateToken(tok))

	byHash, err := store.GetTokenByHash("aaaa")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", byHash.ID)

	// Same hash under a different id violates global uniqueness
	dup := &types.IngestionToken{ID: "tok-2", TeamID: "team-2", TokenHash: "aaaa"}
	err = store.CreateToken(dup)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))

	_, err = store.GetTokenByHash("bbbb")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRotateTokenSwapsAtomically(t *testing.T) {
	store := newTestStore(t)

	old := &types.IngestionToken{
		ID:            "tok-1",
		TeamID:        "team-1",
		TokenHash:     "oldhash",
		Status:        types.TokenStatusActive,
		AssignedShard: "shard-0",
	}
	require.NoError(t, store.CreateToken(old))

	now := time.Now().UTC()
	old.Status = types.TokenStatusRevoked
	old.RevokedAt = &now

	fresh := &types.IngestionToken{
		ID:            "tok-2",
		TeamID:        "team-1",
		TokenHash:     "newhash",
		Status:        types.TokenStatusActive,
		AssignedShard: "shard-0",
	}
	require.NoError(t, store.RotateToken(old, fresh))

	revoked, err := store.GetTokenByHash("oldhash")
	require.NoError(t, err)
	assert.Equal(t, types.TokenStatusRevoked, revoked.Status)

	active, err := store.GetTokenByHash("newhash")
	require.NoError(t, err)
	assert.Equal(t, types.TokenStatusActive, active.Status)
	assert.Equal(t, "shard-0", active.AssignedShard)
}

func TestDeleteSourceScoped(t *testing.T) {
	store := newTestStore(t)

	source := &types.Source{
		ID:     "src-1",
		TeamID: "team-a",
		Kind:   types.SourceKindLog,
		Table:  types.TableLogs,
	}
	require.NoError(t, store.CreateSource(source))

	// Another team's delete is a silent no-op
	require.NoError(t, store.DeleteSourceScoped("team-b", "src-1"))
	got, err := store.GetSource("src-1")
	require.NoError(t, err)
	assert.Equal(t, "team-a", got.TeamID)

	// Unknown ids are also a no-op
	require.NoError(t, store.DeleteSourceScoped("team-a", "src-999"))

	// The owner can delete
	require.NoError(t, store.DeleteSourceScoped("team-a", "src-1"))
	_, err = store.GetSource("src-1")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListTokensByTeam(t *testing.T) {
	store := newTestStore(t)

	for _, tok := range []*types.IngestionToken{
		{ID: "t1", TeamID: "team-a", TokenHash: "h1", Status: types.TokenStatusActive},
		{ID: "t2", TeamID: "team-b", TokenHash: "h2", Status: types.TokenStatusActive},
		{ID: "t3", TeamID: "team-a", TokenHash: "h3", Status: types.TokenStatusRevoked},
	} {
		require.NoError(t, store.CreateToken(tok))
	}

	tokens, err := store.ListTokensByTeam("team-a")
	require.NoError(t, err)
	assert.Len(t, tokens, 2)

	all, err := store.ListTokens()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPingFailsAfterClose(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Ping())

	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(), "a closed store must not report reachable")
}
