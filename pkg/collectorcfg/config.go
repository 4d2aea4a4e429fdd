package collectorcfg

import (
	"crypto/sha256"
	"encoding/json"
)

// Kind tags the two config variants a shard can receive
type Kind string

const (
	// KindNop parks an unbound shard: telemetry is accepted and
	// discarded, and the collector does not tight-loop on a missing
	// pipeline.
	KindNop Kind = "nop"

	// KindTenant routes a shard's telemetry into one team's database
	KindTenant Kind = "tenant"
)

// Config is the synthesized collector configuration for one shard.
// The document embeds the tenant's write credential when Kind is
// tenant; it must never be logged.
type Config struct {
	Kind     Kind
	TeamID   string
	Document *Document
}

// Document is the typed form of the collector pipeline config. Field
// order is fixed, so serialization is byte-stable and the config hash
// a collector sees never flaps without a real change.
type Document struct {
	Extensions extensionMap  `json:"extensions"`
	Receivers  receiverMap   `json:"receivers"`
	Processors *processorMap `json:"processors,omitempty"`
	Exporters  exporterMap   `json:"exporters"`
	Service    service       `json:"service"`
}

type extensionMap struct {
	HealthCheck *healthCheckExtension `json:"health_check"`
}

type healthCheckExtension struct {
	Endpoint string `json:"endpoint"`
}

type receiverMap struct {
	OTLP        *otlpReceiver `json:"otlp,omitempty"`
	OTLPHyperDX *otlpReceiver `json:"otlp/hyperdx,omitempty"`
}

type otlpReceiver struct {
	Protocols otlpProtocols `json:"protocols"`
}

type otlpProtocols struct {
	GRPC *grpcProtocol `json:"grpc,omitempty"`
	HTTP *httpProtocol `json:"http,omitempty"`
}

type grpcProtocol struct {
	Endpoint        string `json:"endpoint"`
	IncludeMetadata bool   `json:"include_metadata,omitempty"`
}

type httpProtocol struct {
	Endpoint        string      `json:"endpoint"`
	IncludeMetadata bool        `json:"include_metadata,omitempty"`
	CORS            *corsConfig `json:"cors,omitempty"`
}

type corsConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
	AllowedHeaders []string `json:"allowed_headers"`
}

type processorMap struct {
	MemoryLimiter *memoryLimiterProcessor `json:"memory_limiter,omitempty"`
	Batch         *batchProcessor         `json:"batch,omitempty"`
}

type memoryLimiterProcessor struct {
	CheckInterval        string `json:"check_interval"`
	LimitPercentage      int    `json:"limit_percentage"`
	SpikeLimitPercentage int    `json:"spike_limit_percentage"`
}

type batchProcessor struct{}

type exporterMap struct {
	Nop        *nopExporter        `json:"nop,omitempty"`
	ClickHouse *clickhouseExporter `json:"clickhouse,omitempty"`
}

type nopExporter struct{}

type clickhouseExporter struct {
	Endpoint       string      `json:"endpoint"`
	Database       string      `json:"database"`
	Username       string      `json:"username"`
	Password       string      `json:"password"`
	TTL            string      `json:"ttl"`
	RetryOnFailure retryConfig `json:"retry_on_failure"`
}

type retryConfig struct {
	Enabled         bool   `json:"enabled"`
	InitialInterval string `json:"initial_interval"`
	MaxInterval     string `json:"max_interval"`
	MaxElapsedTime  string `json:"max_elapsed_time"`
}

type service struct {
	Extensions []string    `json:"extensions"`
	Pipelines  pipelineMap `json:"pipelines"`
}

type pipelineMap struct {
	Logs       *pipeline `json:"logs,omitempty"`
	Traces     *pipeline `json:"traces,omitempty"`
	Metrics    *pipeline `json:"metrics,omitempty"`
	LogsNop    *pipeline `json:"logs/nop,omitempty"`
	TracesNop  *pipeline `json:"traces/nop,omitempty"`
	MetricsNop *pipeline `json:"metrics/nop,omitempty"`
}

type pipeline struct {
	Receivers  []string `json:"receivers"`
	Processors []string `json:"processors,omitempty"`
	Exporters  []string `json:"exporters"`
}

const (
	grpcEndpoint        = "0.0.0.0:4317"
	httpEndpoint        = "0.0.0.0:4318"
	healthCheckEndpoint = "0.0.0.0:13133"

	// clickhouseEndpointRef defers endpoint resolution to the shard's
	// environment so one config serves every deployment topology.
	clickhouseEndpointRef = "${env:CLICKHOUSE_ENDPOINT}"

	storageTTL = "720h"
)

// Nop builds the parking config for a shard with no tenant: receivers
// stay open on the standard OTLP ports, every signal has a pipeline,
// and everything lands in the nop exporter.
func Nop() *Config {
	nopPipe := func() *pipeline {
		return &pipeline{
			Receivers: []string{"otlp"},
			Exporters: []string{"nop"},
		}
	}

	return &Config{
		Kind: KindNop,
		Document: &Document{
			Extensions: extensionMap{
				HealthCheck: &healthCheckExtension{Endpoint: healthCheckEndpoint},
			},
			Receivers: receiverMap{
				OTLP: &otlpReceiver{
					Protocols: otlpProtocols{
						GRPC: &grpcProtocol{Endpoint: grpcEndpoint},
						HTTP: &httpProtocol{Endpoint: httpEndpoint},
					},
				},
			},
			Exporters: exporterMap{Nop: &nopExporter{}},
			Service: service{
				Extensions: []string{"health_check"},
				Pipelines: pipelineMap{
					LogsNop:    nopPipe(),
					TracesNop:  nopPipe(),
					MetricsNop: nopPipe(),
				},
			},
		},
	}
}

// Tenant builds the config that routes a shard into one team's
// database. The password is embedded verbatim; the caller got it from
// the managed connection's opt-in read.
func Tenant(teamID, database, username, password string) *Config {
	tenantPipe := func() *pipeline {
		return &pipeline{
			Receivers:  []string{"otlp/hyperdx"},
			Processors: []string{"memory_limiter", "batch"},
			Exporters:  []string{"clickhouse"},
		}
	}

	return &Config{
		Kind:   KindTenant,
		TeamID: teamID,
		Document: &Document{
			Extensions: extensionMap{
				HealthCheck: &healthCheckExtension{Endpoint: healthCheckEndpoint},
			},
			Receivers: receiverMap{
				OTLPHyperDX: &otlpReceiver{
					Protocols: otlpProtocols{
						GRPC: &grpcProtocol{
							Endpoint:        grpcEndpoint,
							IncludeMetadata: true,
						},
						HTTP: &httpProtocol{
							Endpoint:        httpEndpoint,
							IncludeMetadata: true,
							CORS: &corsConfig{
								AllowedOrigins: []string{"*"},
								AllowedHeaders: []string{"*"},
							},
						},
					},
				},
			},
			Processors: &processorMap{
				MemoryLimiter: &memoryLimiterProcessor{
					CheckInterval:        "1s",
					LimitPercentage:      80,
					SpikeLimitPercentage: 25,
				},
				Batch: &batchProcessor{},
			},
			Exporters: exporterMap{
				ClickHouse: &clickhouseExporter{
					Endpoint: clickhouseEndpointRef,
					Database: database,
					Username: username,
					Password: password,
					TTL:      storageTTL,
					RetryOnFailure: retryConfig{
						Enabled:         true,
						InitialInterval: "5s",
						MaxInterval:     "30s",
						MaxElapsedTime:  "300s",
					},
				},
			},
			Service: service{
				Extensions: []string{"health_check"},
				Pipelines: pipelineMap{
					Logs:    tenantPipe(),
					Traces:  tenantPipe(),
					Metrics: tenantPipe(),
				},
			},
		},
	}
}

// Render serializes the document and returns the bytes with their
// SHA-256 hash. Identical configs render to identical bytes.
func (c *Config) Render() ([]byte, []byte, error) {
	body, err := json.Marshal(c.Document)
	if err != nil {
		return nil, nil, err
	}
	sum := sha256.Sum256(body)
	return body, sum[:], nil
}
