/*
Package config loads and validates Switchboard's runtime configuration.

Configuration is layered: compiled defaults, then an optional YAML file, then
environment variables, with each layer overriding the one before it. Command
flags applied by the caller sit on top. The same Config struct feeds every
subsystem, so there is exactly one place a setting can come from.

# Settings

	setting               yaml                   env                     default
	data directory        data_dir               DATA_DIR                /var/lib/switchboard
	log level             log_level              LOG_LEVEL               info
	JSON logs             log_json               LOG_JSON                false
	API port              api_port               API_PORT                8000
	OpAMP port            opamp_port             OPAMP_PORT              4320
	shard count           shard_count            SHARD_COUNT             1
	provisioning on/off   provisioning_enabled   PROVISIONING_ENABLED    false
	secret key            secret_key             SECRET_KEY              (unset)
	agent TTL             agent_ttl              AGENT_TTL               5m
	clickhouse admin      clickhouse.admin_host  CLICKHOUSE_ADMIN_HOST   (unset)
	admin user            clickhouse.admin_user  CLICKHOUSE_ADMIN_USER   (unset)
	admin password        clickhouse.admin_password CLICKHOUSE_ADMIN_PASSWORD (unset)
	clickhouse query host clickhouse.query_host  CLICKHOUSE_QUERY_HOST   (unset)

# Validation

Validate enforces the cross-field rules flags and files cannot express:

  - ports must be in 1-65535 and the two surfaces must differ
  - shard_count must be at least 1
  - agent_ttl must be positive
  - provisioning_enabled requires clickhouse.admin_host and a secret_key;
    provisioning mints credentials, and credentials must be encryptable

Validation failures abort startup with a message naming the setting.

# Usage

	cfg, err := config.Load(path) // path may be ""
	if err != nil {
		return err
	}
	// apply flag overrides here
	if err := cfg.Validate(); err != nil {
		return err
	}

# See Also

  - cmd/switchboard for the flag layer on top of this package
*/
package config
