package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultDataDir   = "/var/lib/switchboard"
	DefaultAPIPort   = 8000
	DefaultOpAMPPort = 4320
	DefaultAgentTTL  = 5 * time.Minute
)

// ClickHouse holds the analytical-store endpoints. The admin endpoint
// executes provisioning DDL; the query host is what tenant sources
// reference at query time.
type ClickHouse struct {
	AdminHost     string `yaml:"admin_host"`
	AdminUser     string `yaml:"admin_user"`
	AdminPassword string `yaml:"admin_password"`
	QueryHost     string `yaml:"query_host"`
}

// Config is the full control-plane configuration. Values load from an
// optional YAML file, then environment variables, then CLI flags, each
// layer overriding the previous one.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	APIPort   int `yaml:"api_port"`
	OpAMPPort int `yaml:"opamp_port"`

	ShardCount int `yaml:"shard_count"`

	ProvisioningEnabled bool   `yaml:"provisioning_enabled"`
	SecretKey           string `yaml:"secret_key"`

	ClickHouse ClickHouse `yaml:"clickhouse"`

	AgentTTL time.Duration `yaml:"agent_ttl"`
}

// Default returns the baseline configuration
func Default() *Config {
	return &Config{
		DataDir:    DefaultDataDir,
		LogLevel:   "info",
		APIPort:    DefaultAPIPort,
		OpAMPPort:  DefaultOpAMPPort,
		ShardCount: 1,
		AgentTTL:   DefaultAgentTTL,
	}
}

// Load builds the configuration from the optional YAML file at path
// and the process environment
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error

	c.DataDir = envString("DATA_DIR", c.DataDir)
	c.LogLevel = envString("LOG_LEVEL", c.LogLevel)
	c.SecretKey = envString("SECRET_KEY", c.SecretKey)

	c.ClickHouse.AdminHost = envString("CLICKHOUSE_ADMIN_HOST", c.ClickHouse.AdminHost)
	c.ClickHouse.AdminUser = envString("CLICKHOUSE_ADMIN_USER", c.ClickHouse.AdminUser)
	c.ClickHouse.AdminPassword = envString("CLICKHOUSE_ADMIN_PASSWORD", c.ClickHouse.AdminPassword)
	c.ClickHouse.QueryHost = envString("CLICKHOUSE_QUERY_HOST", c.ClickHouse.QueryHost)

	if c.LogJSON, err = envBool("LOG_JSON", c.LogJSON); err != nil {
		return err
	}
	if c.ProvisioningEnabled, err = envBool("PROVISIONING_ENABLED", c.ProvisioningEnabled); err != nil {
		return err
	}
	if c.APIPort, err = envInt("API_PORT", c.APIPort); err != nil {
		return err
	}
	if c.OpAMPPort, err = envInt("OPAMP_PORT", c.OpAMPPort); err != nil {
		return err
	}
	if c.ShardCount, err = envInt("SHARD_COUNT", c.ShardCount); err != nil {
		return err
	}
	if c.AgentTTL, err = envDuration("AGENT_TTL", c.AgentTTL); err != nil {
		return err
	}
	return nil
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	if c.ShardCount < 1 {
		return fmt.Errorf("shard count must be at least 1, got %d", c.ShardCount)
	}
	if c.APIPort < 1 || c.APIPort > 65535 {
		return fmt.Errorf("invalid api port: %d", c.APIPort)
	}
	if c.OpAMPPort < 1 || c.OpAMPPort > 65535 {
		return fmt.Errorf("invalid opamp port: %d", c.OpAMPPort)
	}
	if c.APIPort == c.OpAMPPort {
		return fmt.Errorf("api and opamp ports must differ, both are %d", c.APIPort)
	}
	if c.AgentTTL <= 0 {
		return fmt.Errorf("agent ttl must be positive, got %s", c.AgentTTL)
	}
	if c.ProvisioningEnabled {
		if c.ClickHouse.AdminHost == "" {
			return fmt.Errorf("provisioning requires a clickhouse admin host")
		}
		if c.SecretKey == "" {
			return fmt.Errorf("provisioning requires a secret key to protect tenant credentials")
		}
	}
	return nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return i, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, v)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
