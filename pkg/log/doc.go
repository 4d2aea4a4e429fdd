/*
Package log provides structured logging for Switchboard using zerolog.

The log package wraps zerolog with Switchboard-specific conventions: a global
logger initialized once at startup, component-tagged sub-loggers for each
subsystem, and field helpers for the identifiers that recur across the
codebase (team, shard, token).

# Architecture

	┌───────────────── LOGGING PIPELINE ──────────────────┐
	│                                                      │
	│  log.Init(Config)                                    │
	│       │                                              │
	│       ▼                                              │
	│  global zerolog.Logger                               │
	│       │                                              │
	│       ├── WithComponent("api")      per-subsystem    │
	│       ├── WithComponent("registry")  sub-loggers     │
	│       ├── WithComponent("opamp")                     │
	│       │                                              │
	│       ▼                                              │
	│  console writer (dev) | JSON lines (production)      │
	└──────────────────────────────────────────────────────┘

# Output Formats

Development (JSONOutput false):

	2026-08-25T10:04:11Z INF token issued component=registry team_id=... shard=shard-0

Production (JSONOutput true):

	{"level":"info","component":"registry","team_id":"...","shard":"shard-0",
	 "time":"2026-08-25T10:04:11Z","message":"token issued"}

# Usage

Initialization (once, in main):

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Component loggers:

	logger := log.WithComponent("bootstrap")
	logger.Info().Str("team_id", teamID).Msg("managed connection created")

Field helpers for recurring identifiers:

	log.WithTeamID(teamID).Debug().Msg("sources linked")
	log.WithShard(shardID).Warn().Msg("multiple tenants on one shard")
	log.WithTokenID(tokenID).Info().Msg("token revoked")

Package-level convenience for simple messages:

	log.Info("reconciler started")
	log.Errorf("store open failed: %v", err)

# Redaction Rules

Secrets never reach a log line by convention, enforced at the call sites
that handle them:

  - Token plaintexts are never logged; listings and events carry only the
    12-character display prefix
  - Tenant write credentials are never logged; provisioning logs statement
    names, not statement text, because the CREATE USER DDL embeds the
    password
  - The secret key and anything derived from it never appear in any field

# Integration Points

This package integrates with:

  - every pkg/ package: component-tagged sub-loggers
  - cmd/switchboard: initializes the global logger from config

# See Also

  - pkg/config for the log_level and log_json settings
  - zerolog: https://github.com/rs/zerolog
*/
package log
