package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hyperdxio/switchboard/pkg/apperr"
	"github.com/hyperdxio/switchboard/pkg/events"
	"github.com/hyperdxio/switchboard/pkg/log"
	"github.com/hyperdxio/switchboard/pkg/metrics"
	"github.com/hyperdxio/switchboard/pkg/shard"
	"github.com/hyperdxio/switchboard/pkg/storage"
	"github.com/hyperdxio/switchboard/pkg/token"
	"github.com/hyperdxio/switchboard/pkg/types"
)

// Issued pairs the one-time plaintext token with its durable record.
// The plaintext exists only in this value; it is never stored and the
// caller must hand it to the end user immediately.
type Issued struct {
	Token  string
	Record *types.IngestionToken
}

// Resolution is what the data plane learns about a presented token
type Resolution struct {
	TokenID       string `json:"token_id"`
	TeamID        string `json:"team_id"`
	AssignedShard string `json:"assigned_shard"`
}

// Registry owns the ingestion-token lifecycle: issuance, rotation,
// revocation, resolution, and shard binding.
type Registry struct {
	store      storage.Store
	broker     *events.Broker
	shardCount int
	logger     zerolog.Logger

	// Serializes writes so a shard allocation cannot interleave with
	// another create or an override.
	mu sync.Mutex
}

// New creates a token registry over the given store
func New(store storage.Store, broker *events.Broker, shardCount int) *Registry {
	return &Registry{
		store:      store,
		broker:     broker,
		shardCount: shardCount,
		logger:     log.WithComponent("registry"),
	}
}

// Create issues a new ingestion token for a team. Teams holding an
// active token keep their shard; otherwise the lowest free shard is
// allocated. Fails with SHARDS_EXHAUSTED when no shard is free.
func (r *Registry) Create(teamID, description string) (*Issued, error) {
	if _, err := r.store.GetTeam(teamID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	assigned, err := r.shardFor(teamID)
	if err != nil {
		return nil, err
	}

	issued, record, err := r.mint(teamID, description, assigned)
	if err != nil {
		return nil, err
	}

	if err := r.store.CreateToken(record); err != nil {
		return nil, err
	}

	metrics.TokensIssued.WithLabelValues("create").Inc()
	r.publish(events.EventTokenCreated, "ingestion token created", record)
	r.logger.Info().
		Str("team_id", teamID).
		Str("token_id", record.ID).
		Str("shard", assigned).
		Msg("ingestion token created")

	return &Issued{Token: issued, Record: record}, nil
}

// List returns a team's tokens, newest first. Plaintext is never
// present; records carry the display prefix only.
func (r *Registry) List(teamID string) ([]*types.IngestionToken, error) {
	tokens, err := r.store.ListTokensByTeam(teamID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(tokens)
	return tokens, nil
}

// Rotate revokes a token and issues its replacement in one atomic
// step. The replacement keeps the team's shard so collector routing is
// undisturbed. At no observable moment do both plaintexts resolve.
func (r *Registry) Rotate(teamID, tokenID string) (*Issued, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, err := r.teamToken(teamID, tokenID)
	if err != nil {
		return nil, err
	}
	if !old.Active() {
		return nil, apperr.New(apperr.KindInvalid, "cannot rotate revoked token: %s", tokenID)
	}

	issued, fresh, err := r.mint(teamID, old.Description, old.AssignedShard)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	old.Status = types.TokenStatusRevoked
	old.RevokedAt = &now
	old.UpdatedAt = now

	if err := r.store.RotateToken(old, fresh); err != nil {
		return nil, err
	}

	metrics.TokensIssued.WithLabelValues("rotate").Inc()
	metrics.TokensRevoked.Inc()
	r.publish(events.EventTokenRotated, "ingestion token rotated", fresh)
	r.logger.Info().
		Str("team_id", teamID).
		Str("old_token_id", old.ID).
		Str("token_id", fresh.ID).
		Str("shard", fresh.AssignedShard).
		Msg("ingestion token rotated")

	return &Issued{Token: issued, Record: fresh}, nil
}

// Revoke marks a token revoked. Revoking an already revoked token is
// a no-op returning the record unchanged.
func (r *Registry) Revoke(teamID, tokenID string) (*types.IngestionToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.teamToken(teamID, tokenID)
	if err != nil {
		return nil, err
	}
	if !rec.Active() {
		return rec, nil
	}

	now := time.Now().UTC()
	rec.Status = types.TokenStatusRevoked
	rec.RevokedAt = &now
	rec.UpdatedAt = now

	if err := r.store.UpdateToken(rec); err != nil {
		return nil, err
	}

	metrics.TokensRevoked.Inc()
	r.publish(events.EventTokenRevoked, "ingestion token revoked", rec)
	r.logger.Info().
		Str("team_id", teamID).
		Str("token_id", rec.ID).
		Msg("ingestion token revoked")

	return rec, nil
}

// Resolve looks up an active token by its plaintext. Returns nil for
// anything that does not resolve: malformed input, unknown hash, or a
// revoked record. It never raises.
func (r *Registry) Resolve(plaintext string) *Resolution {
	if !token.Valid(plaintext) {
		metrics.TokenResolutions.WithLabelValues("miss").Inc()
		return nil
	}

	rec, err := r.store.GetTokenByHash(token.Hash(plaintext))
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			r.logger.Error().Err(err).Msg("token resolution failed")
		}
		metrics.TokenResolutions.WithLabelValues("miss").Inc()
		return nil
	}
	if !rec.Active() {
		metrics.TokenResolutions.WithLabelValues("miss").Inc()
		return nil
	}

	metrics.TokenResolutions.WithLabelValues("hit").Inc()
	return &Resolution{
		TokenID:       rec.ID,
		TeamID:        rec.TeamID,
		AssignedShard: rec.AssignedShard,
	}
}

// MarkUsed stamps a token's last-used time. Errors are swallowed; a
// missed stamp must never interfere with ingestion.
func (r *Registry) MarkUsed(tokenID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.store.GetToken(tokenID)
	if err != nil {
		r.logger.Debug().Err(err).Str("token_id", tokenID).Msg("mark_used skipped")
		return
	}

	now := time.Now().UTC()
	rec.LastUsedAt = &now
	rec.UpdatedAt = now
	if err := r.store.UpdateToken(rec); err != nil {
		r.logger.Debug().Err(err).Str("token_id", tokenID).Msg("mark_used failed")
	}
}

// AssignShard is the operator override for a token's shard binding.
// Stacking a second team onto an occupied shard is permitted but
// logged as a policy violation; the synthesizer resolves the conflict
// at the next heartbeat.
func (r *Registry) AssignShard(teamID, tokenID, shardName string) (*types.IngestionToken, error) {
	if !shard.ValidName(shardName, r.shardCount) {
		return nil, apperr.New(apperr.KindInvalid, "invalid shard %q for capacity %d", shardName, r.shardCount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.teamToken(teamID, tokenID)
	if err != nil {
		return nil, err
	}

	all, err := r.store.ListTokens()
	if err != nil {
		return nil, err
	}
	for _, other := range all {
		if other.Active() && other.AssignedShard == shardName && other.TeamID != teamID {
			r.logger.Warn().
				Str("shard", shardName).
				Str("team_id", teamID).
				Str("occupant_team_id", other.TeamID).
				Msg("shard override stacks a second team onto an occupied shard")
			break
		}
	}

	rec.AssignedShard = shardName
	rec.UpdatedAt = time.Now().UTC()
	if err := r.store.UpdateToken(rec); err != nil {
		return nil, err
	}

	r.publish(events.EventTokenShardAssigned, "token shard reassigned", rec)
	return rec, nil
}

// ActiveOnShard returns the active tokens bound to a shard
func (r *Registry) ActiveOnShard(shardName string) ([]*types.IngestionToken, error) {
	all, err := r.store.ListTokens()
	if err != nil {
		return nil, err
	}

	var out []*types.IngestionToken
	for _, tok := range all {
		if tok.Active() && tok.AssignedShard == shardName {
			out = append(out, tok)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ShardStatuses summarizes shard occupancy for the operator view
func (r *Registry) ShardStatuses() ([]types.ShardStatus, error) {
	all, err := r.store.ListTokens()
	if err != nil {
		return nil, err
	}
	return shard.Statuses(r.shardCount, all), nil
}

// shardFor picks the shard a new token for teamID belongs on: the
// team's existing shard when it already holds an active token, else
// the lowest free shard.
func (r *Registry) shardFor(teamID string) (string, error) {
	teamTokens, err := r.store.ListTokensByTeam(teamID)
	if err != nil {
		return "", err
	}
	sortNewestFirst(teamTokens)
	for _, tok := range teamTokens {
		if tok.Active() && tok.AssignedShard != "" {
			return tok.AssignedShard, nil
		}
	}

	all, err := r.store.ListTokens()
	if err != nil {
		return "", err
	}
	return shard.NextFree(r.shardCount, shard.Occupied(all))
}

// mint generates a plaintext and builds its record. The plaintext
// leaves this package only inside an Issued.
func (r *Registry) mint(teamID, description, assigned string) (string, *types.IngestionToken, error) {
	plaintext, err := token.Generate()
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindInternal, err, "token generation failed")
	}

	now := time.Now().UTC()
	record := &types.IngestionToken{
		ID:            uuid.NewString(),
		TeamID:        teamID,
		TokenHash:     token.Hash(plaintext),
		TokenPrefix:   token.Prefix(plaintext),
		Status:        types.TokenStatusActive,
		AssignedShard: assigned,
		Description:   description,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return plaintext, record, nil
}

// teamToken fetches a token and verifies team ownership. Foreign and
// missing tokens are indistinguishable to the caller.
func (r *Registry) teamToken(teamID, tokenID string) (*types.IngestionToken, error) {
	rec, err := r.store.GetToken(tokenID)
	if err != nil {
		return nil, err
	}
	if rec.TeamID != teamID {
		return nil, apperr.New(apperr.KindNotFound, "ingestion token not found: %s", tokenID)
	}
	return rec, nil
}

func (r *Registry) publish(eventType events.EventType, message string, rec *types.IngestionToken) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(&events.Event{
		Type:    eventType,
		Message: message,
		Metadata: map[string]string{
			"team_id":      rec.TeamID,
			"token_id":     rec.ID,
			"token_prefix": rec.TokenPrefix,
			"shard":        rec.AssignedShard,
		},
	})
}

func sortNewestFirst(tokens []*types.IngestionToken) {
	sort.Slice(tokens, func(a, b int) bool {
		if tokens[a].CreatedAt.Equal(tokens[b].CreatedAt) {
			return tokens[a].ID > tokens[b].ID
		}
		return tokens[a].CreatedAt.After(tokens[b].CreatedAt)
	})
}
