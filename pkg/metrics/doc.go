/*
Package metrics provides Prometheus metrics and health monitoring for Switchboard.

The metrics package implements observability for the control plane: Prometheus
metrics for tokens, shards, provisioning, and both HTTP surfaces, plus the
component health registry behind the /healthz and /readyz endpoints.

# Metrics Catalog

Token lifecycle:

	switchboard_tokens_issued_total      counter  by origin (create|rotate)
	switchboard_tokens_revoked_total     counter
	switchboard_tokens_active            gauge
	switchboard_token_resolutions_total  counter  by result

Shard pool:

	switchboard_shard_capacity           gauge
	switchboard_shards_occupied          gauge

Tenant provisioning and bootstrap:

	switchboard_provisioning_runs_total       counter  by result
	switchboard_provisioning_duration_seconds histogram
	switchboard_bootstrap_runs_total          counter  by result
	switchboard_bootstrap_reconcile_cycles_total counter

Agent plane:

	switchboard_opamp_requests_total     counter  by status
	switchboard_configs_delivered_total  counter  by kind (nop|tenant)
	switchboard_connected_agents         gauge

Control API:

	switchboard_api_requests_total           counter    by method, status
	switchboard_api_request_duration_seconds histogram  by method

Counters increment at their mutation sites. Gauges derived from durable
state (active tokens, occupied shards) are refreshed by the Collector on a
15-second timer, so restarts and manual store edits converge instead of
drifting.

# Health Model

Components register themselves as they start and update on failure:

	metrics.RegisterComponent("storage", true, "")
	metrics.UpdateComponent("opamp", false, err.Error())

Dependencies that can die after startup additionally register a live
check, run on every readiness request with a bounded timeout:

	metrics.RegisterCheck("storage", func(ctx context.Context) error {
		return store.Ping()
	})

Two endpoints read the registry:

  - /healthz (liveness): healthy unless any registered component reports
    unhealthy. An empty registry is healthy, so liveness checks pass
    during early startup. Live checks do not run here; a dead dependency
    should drain traffic, not restart the process.
  - /readyz (readiness): ready only when the critical components
    (storage, api, opamp) have all registered healthy and every
    registered live check passes. A failing check overrides the boot
    flag, so readiness degrades when bbolt or ClickHouse dies mid-run.

Responses carry per-component status, version, and uptime.

# Usage

Serving:

	r.Get("/healthz", metrics.HealthHandler())
	r.Get("/readyz", metrics.ReadyHandler())
	r.Handle("/metrics", metrics.Handler())

Instrumenting:

	metrics.TokensIssued.WithLabelValues("created").Inc()

	timer := metrics.NewTimer()
	// ... provisioning ...
	timer.ObserveDuration(metrics.ProvisioningDuration)

Background gauge refresh:

	collector := metrics.NewCollector(store, shardCount)
	collector.Start()
	defer collector.Stop()

# Integration Points

This package integrates with:

  - pkg/registry, pkg/provision, pkg/bootstrap, pkg/opamp, pkg/api:
    instrumentation at mutation sites
  - cmd/switchboard: component registration and the gauge collector

# See Also

  - pkg/api for where the endpoints are mounted
  - Prometheus client: https://github.com/prometheus/client_golang
*/
package metrics
