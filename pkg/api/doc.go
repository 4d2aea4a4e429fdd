/*
Package api implements Switchboard's REST control API.

The api package serves the human- and automation-facing surface of the control
plane: team registration, ingestion token lifecycle, source management, shard
and agent visibility, and the live event stream. It is a chi router over the
registry, the bootstrap orchestrator, and the store; all policy lives in
those packages, and handlers only translate between HTTP and domain calls.

# Route Map

Platform routes (no team scope):

	GET  /healthz                      liveness
	GET  /readyz                       readiness
	GET  /metrics                      Prometheus exposition
	POST /teams                        create a team (bootstraps its tenant)
	GET  /teams                        list teams
	GET  /teams/{id}                   fetch one team
	GET  /shards                       shard pool occupancy
	GET  /agents                       tracked collector agents
	GET  /events                       NDJSON event stream

Team-scoped routes (require X-Team-ID):

	GET    /team                                   the calling team
	GET    /ingestion-tokens                       list tokens, newest first
	POST   /ingestion-tokens                       issue a token
	POST   /ingestion-tokens/{id}/rotate           revoke and replace
	DELETE /ingestion-tokens/{id}                  revoke
	PATCH  /ingestion-tokens/{id}/shard            operator shard override
	GET    /sources                                list the team's sources
	DELETE /sources/{id}                           delete one source

# Team Scoping

Platform authentication sits in front of this service; the X-Team-ID header
arrives already verified. The requireTeam middleware resolves it to a team
and stores it on the request context. A missing header and an unknown team
id produce the same FORBIDDEN response, so probing the endpoint cannot
confirm which team ids exist. Within a valid scope, another team's token id
reads as NOT_FOUND and another team's source id deletes as a silent no-op,
for the same reason.

# Response Envelopes

Success, single record:

	{ "id": "...", "name": "acme", ... }

Success, collections:

	{ "data": [ ... ] }

Errors:

	{ "error": { "kind": "SHARDS_EXHAUSTED", "message": "..." } }

The kind is the apperr classification and the HTTP status follows it. Token
responses carry the record's display prefix but never the stored hash; the
token plaintext appears only in the create and rotate responses, exactly
once:

	{ "token": "hdx_ingest_...", "token_record": { ... } }

# Event Stream

GET /events holds the connection open and writes one JSON event per line
(application/x-ndjson), fed from a broker subscription. Slow consumers skip
events rather than stalling the broker; the stream is a live feed, not a
replayable log.

# Server Lifecycle

	srv := api.NewServer(store, reg, teams, agents, broker)
	go srv.Start(":8000")
	defer srv.Shutdown(ctx)

Router() exposes the handler tree for tests to mount on httptest servers.
Every request is instrumented (request counter, duration histogram) and
panics recover to a 500 via chi middleware.

# Integration Points

This package integrates with:

  - pkg/registry: Token operations
  - pkg/bootstrap: Team creation
  - pkg/agent: Agent listings
  - pkg/storage: Team, source, and shard reads
  - pkg/events: The /events stream
  - pkg/metrics: Health endpoints and instrumentation
  - pkg/apperr: Error classification to status codes

# See Also

  - pkg/client for the typed Go client over this API
  - cmd/switchboard for the CLI built on that client
*/
package api
