package storage

import (
	"github.com/hyperdxio/switchboard/pkg/types"
)

// Store defines the persistence interface for control-plane state.
// Implementations return apperr-classified errors so callers can map
// them to API responses without string matching.
type Store interface {
	// Team operations
	CreateTeam(team *types.Team) error
	GetTeam(id string) (*types.Team, error)
	GetTeamByName(name string) (*types.Team, error)
	ListTeams() ([]*types.Team, error)

	// Ingestion token operations
	CreateToken(token *types.IngestionToken) error
	GetToken(id string) (*types.IngestionToken, error)
	GetTokenByHash(hash string) (*types.IngestionToken, error)
	ListTokens() ([]*types.IngestionToken, error)
	ListTokensByTeam(teamID string) ([]*types.IngestionToken, error)
	UpdateToken(token *types.IngestionToken) error

	// RotateToken persists the replacement token and the revocation of
	// the old one as a single atomic step. There is never a state where
	// both plaintexts resolve, nor one where the team lost its only
	// active token mid-rotate.
	RotateToken(old, fresh *types.IngestionToken) error

	// Managed connection operations. GetConnection never returns the
	// write credential; GetConnectionWithPassword is the explicit
	// opt-in for the single legitimate reader (config synthesis).
	UpsertConnection(conn *types.ManagedConnection) error
	GetConnection(teamID string) (*types.ManagedConnection, error)
	GetConnectionWithPassword(teamID string) (*types.ManagedConnection, error)

	// Source operations. DeleteSourceScoped silently ignores records
	// owned by another team; tenant isolation over HTTP depends on it.
	CreateSource(source *types.Source) error
	GetSource(id string) (*types.Source, error)
	ListSourcesByTeam(teamID string) ([]*types.Source, error)
	UpdateSource(source *types.Source) error
	DeleteSourceScoped(teamID, id string) error

	// Ping verifies the store is still reachable. The readiness
	// endpoint calls it on every request.
	Ping() error

	Close() error
}
