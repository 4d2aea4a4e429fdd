package collectorcfg

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/hyperdxio/switchboard/pkg/log"
	"github.com/hyperdxio/switchboard/pkg/provision"
	"github.com/hyperdxio/switchboard/pkg/registry"
	"github.com/hyperdxio/switchboard/pkg/storage"
	"github.com/hyperdxio/switchboard/pkg/types"
)

// Synthesizer resolves which tenant owns a shard and produces the
// collector config for it. It is the single reader of the managed
// connection's write credential; the credential goes into the rendered
// document and nowhere else.
type Synthesizer struct {
	registry *registry.Registry
	store    storage.Store
	logger   zerolog.Logger
}

// NewSynthesizer creates a config synthesizer
func NewSynthesizer(reg *registry.Registry, store storage.Store) *Synthesizer {
	return &Synthesizer{
		registry: reg,
		store:    store,
		logger:   log.WithComponent("synthesizer"),
	}
}

// ForShard synthesizes the config for one shard. Any state that does
// not amount to exactly one routable tenant degrades to the nop
// config; a shard never receives another tenant's pipeline by
// accident.
func (s *Synthesizer) ForShard(shardID string) *Config {
	tokens, err := s.registry.ActiveOnShard(shardID)
	if err != nil {
		s.logger.Error().Err(err).Str("shard", shardID).Msg("token lookup failed; emitting nop config")
		return Nop()
	}

	teams := distinctTeams(tokens)
	if len(teams) == 0 {
		return Nop()
	}
	if len(teams) > 1 {
		s.logger.Warn().
			Str("shard", shardID).
			Strs("team_ids", teams).
			Msg("multiple teams hold active tokens on one shard; using the lexicographically smallest")
	}
	teamID := teams[0]

	conn, err := s.store.GetConnectionWithPassword(teamID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("team_id", teamID).
			Str("shard", shardID).
			Msg("managed connection unavailable; emitting nop config")
		return Nop()
	}

	return Tenant(teamID, s.tenantDatabase(teamID), conn.Username, conn.Password)
}

// tenantDatabase prefers what bootstrap recorded on the team's log
// source and falls back to the canonical tenant naming.
func (s *Synthesizer) tenantDatabase(teamID string) string {
	sources, err := s.store.ListSourcesByTeam(teamID)
	if err == nil {
		for _, src := range sources {
			if src.Kind == types.SourceKindLog && src.Database != "" {
				return src.Database
			}
		}
	}
	return provision.TenantDatabase(teamID)
}

func distinctTeams(tokens []*types.IngestionToken) []string {
	seen := make(map[string]bool)
	var teams []string
	for _, tok := range tokens {
		if !seen[tok.TeamID] {
			seen[tok.TeamID] = true
			teams = append(teams, tok.TeamID)
		}
	}
	sort.Strings(teams)
	return teams
}
