package provision

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperdxio/switchboard/pkg/apperr"
	"github.com/hyperdxio/switchboard/pkg/events"
	"github.com/hyperdxio/switchboard/pkg/log"
	"github.com/hyperdxio/switchboard/pkg/metrics"
)

const (
	// tenantPrefix namespaces every per-team object in the analytical store
	tenantPrefix = "tenant_"

	// passwordBytes yields 48 hex characters
	passwordBytes = 24

	// statementTimeout bounds each DDL statement individually so one
	// hung ALTER cannot eat the whole provisioning deadline
	statementTimeout = 10 * time.Second
)

// Executor runs one administrative DDL statement against the
// analytical store. Ping backs the readiness endpoint: it must be
// cheap and must fail once the admin endpoint is unreachable.
type Executor interface {
	Exec(ctx context.Context, ddl string) error
	Ping(ctx context.Context) error
	Close() error
}

// Tenant carries the credentials minted for a team's isolated
// database. The password exists only in this value until the caller
// persists it as a ManagedConnection.
type Tenant struct {
	Database string
	Username string
	Password string
}

// Provisioner creates per-tenant databases, users, grants, and the
// canonical telemetry tables.
type Provisioner struct {
	exec   Executor
	broker *events.Broker
	logger zerolog.Logger
}

// New creates a provisioner over the given executor
func New(exec Executor, broker *events.Broker) *Provisioner {
	return &Provisioner{
		exec:   exec,
		broker: broker,
		logger: log.WithComponent("provision"),
	}
}

// TenantDatabase returns the database name for a team
func TenantDatabase(teamID string) string {
	return tenantPrefix + teamID
}

// TenantUsername returns the database user name for a team
func TenantUsername(teamID string) string {
	return tenantPrefix + teamID
}

// NewPassword returns a 48-hex-character credential from a strong RNG
func NewPassword() (string, error) {
	buf := make([]byte, passwordBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// EnsureTenantStorage creates the team's database, write user, grants,
// and telemetry tables. Every statement is idempotent, so partial
// failures leave safe state and the whole call can simply be retried.
// The returned credentials are handed out exactly once; they are never
// persisted here and never logged.
func (p *Provisioner) EnsureTenantStorage(ctx context.Context, teamID string) (*Tenant, error) {
	password, err := NewPassword()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvisioning, err, "password generation failed")
	}

	tenant := &Tenant{
		Database: TenantDatabase(teamID),
		Username: TenantUsername(teamID),
		Password: password,
	}

	db := quoteIdent(tenant.Database)
	user := quoteIdent(tenant.Username)

	statements := []struct {
		name string
		ddl  string
	}{
		{"create database", fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db)},
		{"create user", fmt.Sprintf("CREATE USER IF NOT EXISTS %s IDENTIFIED BY %s", user, quoteString(password))},
		{"grant", fmt.Sprintf("GRANT SELECT, INSERT, ALTER, CREATE, DROP, TRUNCATE ON %s.* TO %s", db, user)},
		{"logs table", fmt.Sprintf(ddlLogs, db)},
		{"traces table", fmt.Sprintf(ddlTraces, db)},
		{"sessions table", fmt.Sprintf(ddlSessions, db)},
		{"metrics gauge table", fmt.Sprintf(ddlMetricsGauge, db)},
		{"metrics sum table", fmt.Sprintf(ddlMetricsSum, db)},
		{"metrics histogram table", fmt.Sprintf(ddlMetricsHistogram, db)},
	}

	timer := metrics.NewTimer()
	for _, st := range statements {
		// Statement names go to the log, never the DDL text: the
		// create-user statement embeds the credential.
		p.logger.Debug().
			Str("team_id", teamID).
			Str("statement", st.name).
			Msg("executing provisioning statement")

		stmtCtx, cancel := context.WithTimeout(ctx, statementTimeout)
		err := p.exec.Exec(stmtCtx, st.ddl)
		cancel()
		if err != nil {
			metrics.ProvisioningRuns.WithLabelValues("failure").Inc()
			return nil, apperr.Wrap(apperr.KindProvisioning, err,
				fmt.Sprintf("tenant storage provisioning failed at %q", st.name))
		}
	}

	metrics.ProvisioningRuns.WithLabelValues("success").Inc()
	timer.ObserveDuration(metrics.ProvisioningDuration)

	if p.broker != nil {
		p.broker.Publish(&events.Event{
			Type:    events.EventTenantProvisioned,
			Message: "tenant storage provisioned",
			Metadata: map[string]string{
				"team_id":  teamID,
				"database": tenant.Database,
			},
		})
	}

	p.logger.Info().
		Str("team_id", teamID).
		Str("database", tenant.Database).
		Str("username", tenant.Username).
		Dur("duration", timer.Duration()).
		Msg("tenant storage provisioned")

	return tenant, nil
}

// Close releases the underlying executor connection
func (p *Provisioner) Close() error {
	return p.exec.Close()
}

// quoteIdent wraps a name in identifier quotes. Embedded quote
// characters are stripped rather than escaped; object names are
// derived from internal ids and must never smuggle quoting.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, "") + `"`
}

// quoteString single-quotes a literal, escaping backslashes and
// embedded single quotes
func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
