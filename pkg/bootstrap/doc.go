/*
Package bootstrap orchestrates tenant creation and convergence.

The bootstrap package drives a team from bare identity to queryable tenant:
provisioned storage, an encrypted managed connection, and the four
cross-linked telemetry sources the query layer expects. Its two halves are
the Orchestrator, which performs one convergence pass, and the Reconciler,
which retries incomplete tenants on a timer until they converge.

# Bootstrap Pipeline

	CreateTeam(name)
	     │
	     ├─ persist Team record            (never rolled back)
	     ├─ publish team.created
	     │
	     └─ Bootstrap(teamID) ── one convergence pass ──┐
	                                                    │
	        1. ensureConnection                         │
	           ├─ provisioner.EnsureTenantStorage       │
	           │    (database, user, grants, tables)    │
	           └─ persist ManagedConnection             │
	              (credential encrypted at rest)        │
	                                                    │
	        2. ensureSources                            │
	           └─ create missing log / trace /          │
	              metric / session sources              │
	                                                    │
	        3. linkSources                              │
	           └─ patch every source with the ids       │
	              of the other three                    │
	                                                    ▼
	                                         Bootstrapped(teamID) == true

A bootstrap failure is logged and the team stays. Every step is idempotent
and keyed by what already exists, so calling Bootstrap again pushes a
partial tenant forward instead of duplicating anything.

# Source Graph

The four sources cross-reference each other so the query layer can pivot
between signals:

	     log ◄──────► trace
	      ▲ ▲          ▲ ▲
	      │ └──────────┘ │
	      ▼              ▼
	   metric ◄─────► session

Linking runs only after all four records exist. A crash between creations
therefore never persists a dangling reference; the next pass creates the
missing records and closes the graph.

# Provisioning Modes

With a provisioner (production): sources point at the team's isolated
tenant_<team_id> database and the connection carries the minted write
credential.

With a nil provisioner (provisioning disabled): sources point at the shared
"default" database and the connection is credential-less. Everything else
behaves identically, which is what makes the mode switch safe.

# The Reconciler

	reconciler := bootstrap.NewReconciler(store, orchestrator, interval)
	reconciler.Start()
	defer reconciler.Stop()

Each cycle lists all teams, checks Bootstrapped, and runs Bootstrap for any
team that is incomplete, with a per-team timeout. A team whose provisioning
failed at creation time (ClickHouse down, network cut) is picked up here
without operator action. Convergence is observable through the
bootstrap_reconcile_cycles and bootstrap_runs metrics.

# Usage

	orchestrator := bootstrap.New(store, provisioner, queryHost, broker)

	team, err := orchestrator.CreateTeam(ctx, "acme")
	done, err := orchestrator.Bootstrapped(team.ID)
	err = orchestrator.Bootstrap(ctx, team.ID) // manual push, idempotent

# Integration Points

This package integrates with:

  - pkg/provision: Tenant storage DDL
  - pkg/storage: Team, connection, and source persistence
  - pkg/events: team.created publication
  - pkg/metrics: Bootstrap and reconcile counters
  - pkg/api: POST /teams lands here

# See Also

  - pkg/provision for what storage provisioning entails
  - pkg/collectorcfg for how the bootstrapped state feeds collector config
*/
package bootstrap
