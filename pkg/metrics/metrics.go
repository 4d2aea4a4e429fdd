package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Token registry metrics
	TokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchboard_tokens_issued_total",
			Help: "Total number of ingestion tokens issued, by origin (create or rotate)",
		},
		[]string{"origin"},
	)

	TokensRevoked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "switchboard_tokens_revoked_total",
			Help: "Total number of ingestion tokens revoked",
		},
	)

	TokensActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "switchboard_tokens_active",
			Help: "Current number of active ingestion tokens",
		},
	)

	TokenResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchboard_token_resolutions_total",
			Help: "Total number of token resolution attempts by result",
		},
		[]string{"result"},
	)

	// Shard metrics
	ShardCapacity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "switchboard_shard_capacity",
			Help: "Configured number of ingestion shards",
		},
	)

	ShardsOccupied = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "switchboard_shards_occupied",
			Help: "Number of shards with at least one active token",
		},
	)

	// Provisioning metrics
	ProvisioningRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchboard_provisioning_runs_total",
			Help: "Total number of tenant provisioning runs by result",
		},
		[]string{"result"},
	)

	ProvisioningDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "switchboard_provisioning_duration_seconds",
			Help:    "Tenant provisioning duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BootstrapRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchboard_bootstrap_runs_total",
			Help: "Total number of team bootstrap attempts by result",
		},
		[]string{"result"},
	)

	BootstrapReconcileCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "switchboard_bootstrap_reconcile_cycles_total",
			Help: "Total number of bootstrap reconciliation cycles",
		},
	)

	// OpAMP metrics
	OpAMPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchboard_opamp_requests_total",
			Help: "Total number of OpAMP requests by status",
		},
		[]string{"status"},
	)

	ConfigsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchboard_configs_delivered_total",
			Help: "Total number of collector configs delivered by kind (nop or tenant)",
		},
		[]string{"kind"},
	)

	ConnectedAgents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "switchboard_connected_agents",
			Help: "Number of collector agents currently tracked by the registry",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchboard_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "switchboard_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(TokensIssued)
	prometheus.MustRegister(TokensRevoked)
	prometheus.MustRegister(TokensActive)
	prometheus.MustRegister(TokenResolutions)
	prometheus.MustRegister(ShardCapacity)
	prometheus.MustRegister(ShardsOccupied)
	prometheus.MustRegister(ProvisioningRuns)
	prometheus.MustRegister(ProvisioningDuration)
	prometheus.MustRegister(BootstrapRuns)
	prometheus.MustRegister(BootstrapReconcileCycles)
	prometheus.MustRegister(OpAMPRequests)
	prometheus.MustRegister(ConfigsDelivered)
	prometheus.MustRegister(ConnectedAgents)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
