package types

import (
	"time"
)

// Team is the identity of a tenant. A team owns zero or more ingestion
// tokens and at most one managed storage connection.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenStatus represents the lifecycle state of an ingestion token
type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "active"
	TokenStatusRevoked TokenStatus = "revoked"
)

// IngestionToken is the durable record of a tenant-scoped ingestion
// credential. The user-visible token string is never stored; only its
// SHA-256 hash and a short display prefix are.
type IngestionToken struct {
	ID            string      `json:"id"`
	TeamID        string      `json:"team_id"`
	TokenHash     string      `json:"token_hash"`
	TokenPrefix   string      `json:"token_prefix"`
	Status        TokenStatus `json:"status"`
	AssignedShard string      `json:"assigned_shard"`
	Description   string      `json:"description,omitempty"`
	LastUsedAt    *time.Time  `json:"last_used_at,omitempty"`
	RevokedAt     *time.Time  `json:"revoked_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Active reports whether the token is currently usable for ingestion
func (t *IngestionToken) Active() bool {
	return t.Status == TokenStatusActive
}

// ManagedConnection is the per-team record of the provisioned storage
// endpoint and its write credential. The password is held encrypted at
// rest; the Password field is populated only on reads that explicitly
// opt in and is never serialized.
type ManagedConnection struct {
	ID                string    `json:"id"`
	TeamID            string    `json:"team_id"`
	Name              string    `json:"name"`
	Host              string    `json:"host"`
	Username          string    `json:"username"`
	Password          string    `json:"-"`
	EncryptedPassword []byte    `json:"encrypted_password,omitempty"`
	IsManaged         bool      `json:"is_managed"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SourceKind identifies which telemetry signal a source describes
type SourceKind string

const (
	SourceKindLog     SourceKind = "log"
	SourceKindTrace   SourceKind = "trace"
	SourceKindMetric  SourceKind = "metric"
	SourceKindSession SourceKind = "session"
)

// SourceKinds lists the canonical kinds in creation order
var SourceKinds = []SourceKind{
	SourceKindLog,
	SourceKindTrace,
	SourceKindMetric,
	SourceKindSession,
}

// MetricTables names the per-kind metric tables of a metric source
type MetricTables struct {
	Gauge     string `json:"gauge"`
	Sum       string `json:"sum"`
	Histogram string `json:"histogram"`
}

// Source is the query-time description of one signal of a tenant's
// data: where it lives (connection, database, table) and how it links
// to the tenant's other sources. The four canonical sources of a team
// cross-reference each other by id, forming a complete graph.
type Source struct {
	ID              string        `json:"id"`
	TeamID          string        `json:"team_id"`
	Kind            SourceKind    `json:"kind"`
	Name            string        `json:"name"`
	ConnectionID    string        `json:"connection_id"`
	Database        string        `json:"database"`
	Table           string        `json:"table,omitempty"`
	MetricTables    *MetricTables `json:"metric_tables,omitempty"`
	LogSourceID     string        `json:"log_source_id,omitempty"`
	TraceSourceID   string        `json:"trace_source_id,omitempty"`
	MetricSourceID  string        `json:"metric_source_id,omitempty"`
	SessionSourceID string        `json:"session_source_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Canonical table names materialized in every tenant database
const (
	TableLogs             = "otel_logs"
	TableTraces           = "otel_traces"
	TableSessions         = "hyperdx_sessions"
	TableMetricsGauge     = "otel_metrics_gauge"
	TableMetricsSum       = "otel_metrics_sum"
	TableMetricsHistogram = "otel_metrics_histogram"
)

// ShardStatus is the operator's view of one shard's occupancy
type ShardStatus struct {
	Shard        string `json:"shard"`
	TeamID       string `json:"team_id,omitempty"`
	ActiveTokens int    `json:"active_tokens"`
}
