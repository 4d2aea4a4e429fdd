/*
Package provision creates isolated per-tenant storage in ClickHouse.

The provisioner turns a team id into a ready-to-write tenant: its own
database, its own write user, grants scoped to that database, and the six
canonical telemetry tables. Everything it runs is idempotent DDL, so a
partially failed run leaves safe state and the whole operation is simply
retried.

# Provisioning Sequence

One EnsureTenantStorage call for team id T runs nine statements in order:

	 1. create database          CREATE DATABASE IF NOT EXISTS "tenant_T"
	 2. create user              CREATE USER IF NOT EXISTS "tenant_T"
	                             IDENTIFIED BY '<48-hex password>'
	 3. grant                    GRANT SELECT, INSERT, ALTER, CREATE,
	                             DROP, TRUNCATE ON "tenant_T".* TO "tenant_T"
	 4. logs table               otel_logs
	 5. traces table             otel_traces
	 6. sessions table           hyperdx_sessions
	 7. metrics gauge table      otel_metrics_gauge
	 8. metrics sum table        otel_metrics_sum
	 9. metrics histogram table  otel_metrics_histogram

Each statement gets its own 10-second timeout so one hung ALTER cannot eat
the whole provisioning deadline. The first failure aborts the run with a
PROVISIONING_FAILED error naming the statement; the bootstrap reconciler
retries the whole sequence later.

# Identifier Handling

Database and user are both named tenant_<team_id> with the team id used
verbatim, wrapped in identifier quoting. The password is 48 hex characters
from a strong RNG, single-quoted with backslash and quote escaping. Object
names derive from internal UUIDs and must never smuggle quoting.

# Credential Flow

The minted password exists in exactly three places, in this order:

 1. The CREATE USER statement sent to ClickHouse
 2. The returned Tenant value, which bootstrap immediately persists as an
    encrypted managed connection
 3. The synthesized collector config for the tenant's shard

It is never logged. Provisioning logs carry statement names, not statement
text, because the create-user DDL embeds the credential.

# Table Schemas

The telemetry tables follow the OpenTelemetry ClickHouse exporter layout:
MergeTree engines, date partitioning, timestamp-ordered keys, bloom-filter
indexes over attribute maps, and ZSTD codecs throughout. The sessions table
reuses the log schema under the hyperdx_sessions name so session replay
events query like logs.

# Usage

Against a live ClickHouse (production path):

	exec, err := provision.NewClickHouseExecutor(ctx, cfg.ClickHouse)
	if err != nil {
		return err
	}
	defer exec.Close()

	p := provision.New(exec, broker)
	tenant, err := p.EnsureTenantStorage(ctx, teamID)
	// tenant.Database, tenant.Username, tenant.Password

The Executor interface is one Exec method, so tests substitute an in-memory
recorder and scenario tests script outages.

# Integration Points

This package integrates with:

  - pkg/bootstrap: Calls EnsureTenantStorage during team bootstrap
  - pkg/config: ClickHouse admin connection settings
  - pkg/events: Publishes tenant.provisioned
  - pkg/metrics: Provisioning run counters and duration histogram

# See Also

  - pkg/bootstrap for the orchestration and retry loop around this package
  - ClickHouse exporter schemas: https://github.com/open-telemetry/opentelemetry-collector-contrib/tree/main/exporter/clickhouseexporter
*/
package provision
