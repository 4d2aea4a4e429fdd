package bootstrap

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hyperdxio/switchboard/pkg/apperr"
	"github.com/hyperdxio/switchboard/pkg/events"
	"github.com/hyperdxio/switchboard/pkg/log"
	"github.com/hyperdxio/switchboard/pkg/metrics"
	"github.com/hyperdxio/switchboard/pkg/provision"
	"github.com/hyperdxio/switchboard/pkg/storage"
	"github.com/hyperdxio/switchboard/pkg/types"
)

// sharedDatabase is where sources point when tenant provisioning is
// disabled and all teams write into one database.
const sharedDatabase = "default"

// TenantProvisioner is the slice of the provisioner the orchestrator
// depends on.
type TenantProvisioner interface {
	EnsureTenantStorage(ctx context.Context, teamID string) (*provision.Tenant, error)
}

// Orchestrator drives a team from bare identity to queryable tenant:
// provisioned storage, a managed connection, and the four cross-linked
// sources. Every step is idempotent, so a partially bootstrapped team
// can always be pushed forward by calling Bootstrap again.
type Orchestrator struct {
	store       storage.Store
	provisioner TenantProvisioner // nil disables provisioning
	queryHost   string
	broker      *events.Broker
	logger      zerolog.Logger
}

// New creates a bootstrap orchestrator. Passing a nil provisioner
// disables tenant storage provisioning; sources then point at the
// shared default database.
func New(store storage.Store, provisioner TenantProvisioner, queryHost string, broker *events.Broker) *Orchestrator {
	return &Orchestrator{
		store:       store,
		provisioner: provisioner,
		queryHost:   queryHost,
		broker:      broker,
		logger:      log.WithComponent("bootstrap"),
	}
}

// CreateTeam registers a new team and bootstraps its tenant. Bootstrap
// failures are logged but never roll the team back; the reconciler
// retries them until the tenant converges.
func (o *Orchestrator) CreateTeam(ctx context.Context, name string) (*types.Team, error) {
	if name == "" {
		return nil, apperr.New(apperr.KindInvalid, "team name must not be empty")
	}

	if _, err := o.store.GetTeamByName(name); err == nil {
		return nil, apperr.New(apperr.KindInvalid, "team name already in use: %s", name)
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	team := &types.Team{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.CreateTeam(team); err != nil {
		return nil, err
	}

	if o.broker != nil {
		o.broker.Publish(&events.Event{
			Type:    events.EventTeamCreated,
			Message: "team created",
			Metadata: map[string]string{
				"team_id": team.ID,
				"name":    team.Name,
			},
		})
	}

	if err := o.Bootstrap(ctx, team.ID); err != nil {
		o.logger.Warn().
			Err(err).
			Str("team_id", team.ID).
			Msg("team bootstrap incomplete; will be retried")
	}

	return team, nil
}

// Bootstrap converges one team's tenant state: storage, connection,
// sources, cross-links. Safe to call any number of times.
func (o *Orchestrator) Bootstrap(ctx context.Context, teamID string) error {
	conn, err := o.ensureConnection(ctx, teamID)
	if err != nil {
		metrics.BootstrapRuns.WithLabelValues("failure").Inc()
		return err
	}

	sources, err := o.ensureSources(teamID, conn)
	if err != nil {
		metrics.BootstrapRuns.WithLabelValues("failure").Inc()
		return err
	}

	if err := o.linkSources(sources); err != nil {
		metrics.BootstrapRuns.WithLabelValues("failure").Inc()
		return err
	}

	metrics.BootstrapRuns.WithLabelValues("success").Inc()
	return nil
}

// Bootstrapped reports whether a team's tenant state is complete:
// connection present, all four sources present, cross-link graph
// closed.
func (o *Orchestrator) Bootstrapped(teamID string) (bool, error) {
	if _, err := o.store.GetConnection(teamID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return false, nil
		}
		return false, err
	}

	sources, err := o.store.ListSourcesByTeam(teamID)
	if err != nil {
		return false, err
	}

	byKind := make(map[types.SourceKind]*types.Source)
	for _, src := range sources {
		byKind[src.Kind] = src
	}
	for _, kind := range types.SourceKinds {
		if byKind[kind] == nil {
			return false, nil
		}
	}
	for _, src := range sources {
		if !linked(src, byKind) {
			return false, nil
		}
	}
	return true, nil
}

// ensureConnection returns the team's managed connection, provisioning
// tenant storage and creating the record when absent. The write
// credential passes through exactly once; the returned value carries
// it only encrypted.
func (o *Orchestrator) ensureConnection(ctx context.Context, teamID string) (*types.ManagedConnection, error) {
	existing, err := o.store.GetConnection(teamID)
	if err == nil {
		return existing, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	conn := &types.ManagedConnection{
		ID:        uuid.NewString(),
		TeamID:    teamID,
		Name:      "Default",
		Host:      o.queryHost,
		Username:  "default",
		IsManaged: true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if o.provisioner != nil {
		tenant, err := o.provisioner.EnsureTenantStorage(ctx, teamID)
		if err != nil {
			return nil, err
		}
		conn.Username = tenant.Username
		conn.Password = tenant.Password
	}

	if err := o.store.UpsertConnection(conn); err != nil {
		return nil, err
	}

	o.logger.Info().
		Str("team_id", teamID).
		Str("host", conn.Host).
		Bool("provisioned", o.provisioner != nil).
		Msg("managed connection created")

	return o.store.GetConnection(teamID)
}

// ensureSources creates any of the four canonical sources the team is
// missing and returns all of them keyed by kind.
func (o *Orchestrator) ensureSources(teamID string, conn *types.ManagedConnection) (map[types.SourceKind]*types.Source, error) {
	existing, err := o.store.ListSourcesByTeam(teamID)
	if err != nil {
		return nil, err
	}

	byKind := make(map[types.SourceKind]*types.Source)
	for _, src := range existing {
		byKind[src.Kind] = src
	}

	database := sharedDatabase
	if o.provisioner != nil {
		database = provision.TenantDatabase(teamID)
	}

	now := time.Now().UTC()
	for _, kind := range types.SourceKinds {
		if byKind[kind] != nil {
			continue
		}

		src := &types.Source{
			ID:           uuid.NewString(),
			TeamID:       teamID,
			Kind:         kind,
			Name:         sourceName(kind),
			ConnectionID: conn.ID,
			Database:     database,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		switch kind {
		case types.SourceKindLog:
			src.Table = types.TableLogs
		case types.SourceKindTrace:
			src.Table = types.TableTraces
		case types.SourceKindSession:
			src.Table = types.TableSessions
		case types.SourceKindMetric:
			src.MetricTables = &types.MetricTables{
				Gauge:     types.TableMetricsGauge,
				Sum:       types.TableMetricsSum,
				Histogram: types.TableMetricsHistogram,
			}
		}

		if err := o.store.CreateSource(src); err != nil {
			return nil, err
		}
		byKind[kind] = src

		o.logger.Debug().
			Str("team_id", teamID).
			Str("kind", string(kind)).
			Str("source_id", src.ID).
			Msg("source created")
	}

	return byKind, nil
}

// linkSources patches every source with the ids of the other three,
// closing the cross-link graph. Runs after all four exist so that a
// crash between creations never persists a dangling reference.
func (o *Orchestrator) linkSources(byKind map[types.SourceKind]*types.Source) error {
	for _, src := range byKind {
		patched := *src
		if src.Kind != types.SourceKindLog {
			patched.LogSourceID = byKind[types.SourceKindLog].ID
		}
		if src.Kind != types.SourceKindTrace {
			patched.TraceSourceID = byKind[types.SourceKindTrace].ID
		}
		if src.Kind != types.SourceKindMetric {
			patched.MetricSourceID = byKind[types.SourceKindMetric].ID
		}
		if src.Kind != types.SourceKindSession {
			patched.SessionSourceID = byKind[types.SourceKindSession].ID
		}

		if patched == *src {
			continue
		}
		patched.UpdatedAt = time.Now().UTC()
		if err := o.store.UpdateSource(&patched); err != nil {
			return err
		}
		*src = patched
	}
	return nil
}

func linked(src *types.Source, byKind map[types.SourceKind]*types.Source) bool {
	if src.Kind != types.SourceKindLog && src.LogSourceID != byKind[types.SourceKindLog].ID {
		return false
	}
	if src.Kind != types.SourceKindTrace && src.TraceSourceID != byKind[types.SourceKindTrace].ID {
		return false
	}
	if src.Kind != types.SourceKindMetric && src.MetricSourceID != byKind[types.SourceKindMetric].ID {
		return false
	}
	if src.Kind != types.SourceKindSession && src.SessionSourceID != byKind[types.SourceKindSession].ID {
		return false
	}
	return true
}

func sourceName(kind types.SourceKind) string {
	switch kind {
	case types.SourceKindLog:
		return "Logs"
	case types.SourceKindTrace:
		return "Traces"
	case types.SourceKindMetric:
		return "Metrics"
	case types.SourceKindSession:
		return "Sessions"
	}
	return string(kind)
}
