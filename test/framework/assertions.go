package framework

import (
	"encoding/json"

	"github.com/hyperdxio/switchboard/pkg/client"
	"github.com/hyperdxio/switchboard/pkg/provision"
)

// Assertions provides scenario-level assertion helpers
type Assertions struct {
	t TestingT
}

// NewAssertions creates a new Assertions instance
func NewAssertions(t TestingT) *Assertions {
	return &Assertions{t: t}
}

// collectorDoc is the slice of a collector config the assertions need
type collectorDoc struct {
	Exporters map[string]json.RawMessage `json:"exporters"`
	Service   struct {
		Pipelines map[string]struct {
			Receivers []string `json:"receivers"`
			Exporters []string `json:"exporters"`
		} `json:"pipelines"`
	} `json:"service"`
}

func (a *Assertions) parseConfig(body []byte) *collectorDoc {
	a.t.Helper()

	var doc collectorDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		a.t.Fatalf("config is not valid JSON: %v", err)
	}
	return &doc
}

// ConfigIsNop asserts a config discards all telemetry: nop pipelines
// only, no storage exporter anywhere.
func (a *Assertions) ConfigIsNop(body []byte) {
	a.t.Helper()

	doc := a.parseConfig(body)
	if _, ok := doc.Exporters["clickhouse"]; ok {
		a.t.Fatalf("nop config must not carry a clickhouse exporter")
	}
	if _, ok := doc.Exporters["nop"]; !ok {
		a.t.Fatalf("nop config is missing the nop exporter")
	}

	for _, name := range []string{"logs/nop", "traces/nop", "metrics/nop"} {
		pipe, ok := doc.Service.Pipelines[name]
		if !ok {
			a.t.Fatalf("nop config is missing pipeline %s", name)
		}
		if len(pipe.Exporters) != 1 || pipe.Exporters[0] != "nop" {
			a.t.Fatalf("pipeline %s must export to nop, got %v", name, pipe.Exporters)
		}
	}
}

// ConfigIsTenant asserts a config writes the given team's telemetry
// into its tenant database.
func (a *Assertions) ConfigIsTenant(body []byte, teamID string) {
	a.t.Helper()

	doc := a.parseConfig(body)
	raw, ok := doc.Exporters["clickhouse"]
	if !ok {
		a.t.Fatalf("tenant config is missing the clickhouse exporter")
	}

	var exporter struct {
		Database string `json:"database"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(raw, &exporter); err != nil {
		a.t.Fatalf("clickhouse exporter is malformed: %v", err)
	}

	if want := provision.TenantDatabase(teamID); exporter.Database != want {
		a.t.Fatalf("exporter database = %q, want %q", exporter.Database, want)
	}
	if want := provision.TenantUsername(teamID); exporter.Username != want {
		a.t.Fatalf("exporter username = %q, want %q", exporter.Username, want)
	}

	for _, name := range []string{"logs", "traces", "metrics"} {
		pipe, ok := doc.Service.Pipelines[name]
		if !ok {
			a.t.Fatalf("tenant config is missing pipeline %s", name)
		}
		if len(pipe.Exporters) != 1 || pipe.Exporters[0] != "clickhouse" {
			a.t.Fatalf("pipeline %s must export to clickhouse, got %v", name, pipe.Exporters)
		}
	}
}

// ShardOccupiedBy asserts the named shard is held by the given team
func (a *Assertions) ShardOccupiedBy(c *client.Client, shard, teamID string) {
	a.t.Helper()

	statuses, err := c.ListShards()
	if err != nil {
		a.t.Fatalf("failed to list shards: %v", err)
	}

	for _, st := range statuses {
		if st.Shard != shard {
			continue
		}
		if st.TeamID != teamID {
			a.t.Fatalf("shard %s held by %q, want %q", shard, st.TeamID, teamID)
		}
		if st.ActiveTokens == 0 {
			a.t.Fatalf("shard %s has no active tokens", shard)
		}
		return
	}
	a.t.Fatalf("shard %s not reported", shard)
}

// ShardFree asserts the named shard has no occupant
func (a *Assertions) ShardFree(c *client.Client, shard string) {
	a.t.Helper()

	statuses, err := c.ListShards()
	if err != nil {
		a.t.Fatalf("failed to list shards: %v", err)
	}

	for _, st := range statuses {
		if st.Shard != shard {
			continue
		}
		if st.TeamID != "" || st.ActiveTokens != 0 {
			a.t.Fatalf("shard %s still occupied by %q with %d tokens", shard, st.TeamID, st.ActiveTokens)
		}
		return
	}
	a.t.Fatalf("shard %s not reported", shard)
}
