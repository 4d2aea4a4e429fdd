/*
Package client provides a typed Go client for the Switchboard control API.

The client wraps every control-plane operation in a typed method, translates
API error envelopes back into apperr-classified errors, and handles team
scoping through immutable scoped copies. The switchboard CLI is built
entirely on this package; anything the CLI can do, an importer of this
package can do.

# Scoping Model

A client starts unscoped and gains a team scope by copy:

	c := client.New("http://localhost:8000")

	acme := c.WithTeam(teamID)   // scoped copy; c itself is unchanged
	tokens, err := acme.ListTokens()

Platform operations (CreateTeam, ListTeams, ListShards, ListAgents,
StreamEvents) work on any client. Team operations on an unscoped client
fail server-side with FORBIDDEN.

# Operations

	CreateTeam(name)                  POST   /teams
	ListTeams()                       GET    /teams
	GetTeam(id)                       GET    /teams/{id}
	CurrentTeam()                     GET    /team
	CreateToken(description)          POST   /ingestion-tokens
	ListTokens()                      GET    /ingestion-tokens
	RotateToken(id)                   POST   /ingestion-tokens/{id}/rotate
	RevokeToken(id)                   DELETE /ingestion-tokens/{id}
	AssignShard(tokenID, shard)       PATCH  /ingestion-tokens/{id}/shard
	ListSources()                     GET    /sources
	DeleteSource(id)                  DELETE /sources/{id}
	ListShards()                      GET    /shards
	ListAgents()                      GET    /agents
	StreamEvents(ctx, fn)             GET    /events

Each call carries its own 10-second timeout. StreamEvents is the exception:
it runs until its context is cancelled or the stream ends, invoking fn for
every decoded event.

# Handling Issued Tokens

CreateToken and RotateToken return an IssuedToken whose Token field is the
plaintext, delivered by the server exactly once:

	issued, err := acme.CreateToken("ci pipeline")
	if err != nil {
		return err
	}
	fmt.Println(issued.Token) // show or store now; not retrievable later

Every later listing returns TokenRecord values, which carry the display
prefix and never the plaintext or hash.

# Error Handling

API errors decode back into their classification, so callers branch on
kinds instead of matching message strings:

	_, err := acme.CreateToken("")
	if apperr.Is(err, apperr.KindShardsExhausted) {
		// pool is full; grow SHARD_COUNT or free a shard
	}

# Streaming Events

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err := c.StreamEvents(ctx, func(ev *events.Event) {
		fmt.Printf("%s %s %s\n", ev.Timestamp.Format(time.RFC3339), ev.Type, ev.Message)
	})

The stream is NDJSON over a held-open HTTP response. Cancelling the context
returns context.Canceled; a server-side close returns nil.

# Integration Points

This package integrates with:

  - pkg/api: The HTTP surface this client speaks to
  - pkg/apperr: Error kind reconstruction
  - pkg/types, pkg/agent, pkg/events: Response payload types
  - cmd/switchboard: Every CLI command

# See Also

  - pkg/api for the server-side contract
  - cmd/switchboard for CLI usage of every method
*/
package client
