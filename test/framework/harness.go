package framework

import (
	"net/http/httptest"
	"time"

	"github.com/hyperdxio/switchboard/pkg/agent"
	"github.com/hyperdxio/switchboard/pkg/api"
	"github.com/hyperdxio/switchboard/pkg/bootstrap"
	"github.com/hyperdxio/switchboard/pkg/client"
	"github.com/hyperdxio/switchboard/pkg/collectorcfg"
	"github.com/hyperdxio/switchboard/pkg/events"
	"github.com/hyperdxio/switchboard/pkg/log"
	"github.com/hyperdxio/switchboard/pkg/opamp"
	"github.com/hyperdxio/switchboard/pkg/registry"
	"github.com/hyperdxio/switchboard/pkg/security"
	"github.com/hyperdxio/switchboard/pkg/storage"
)

// TestingT is the subset of testing.T the framework needs
type TestingT interface {
	Logf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	FailNow()
	Helper()
	TempDir() string
	Cleanup(func())
}

// HarnessConfig configures a test control plane
type HarnessConfig struct {
	// ShardCount is the number of ingestion shards
	ShardCount int
	// AgentTTL is how long an unseen agent survives before eviction
	AgentTTL time.Duration
	// QueryHost is the host tenant sources reference
	QueryHost string
	// Provisioner provisions tenant storage; nil disables provisioning
	Provisioner bootstrap.TenantProvisioner
}

// Harness is a complete in-process control plane: store, registries,
// bootstrap orchestrator, and both HTTP surfaces served over httptest.
// Scenario tests drive it through the public API client and simulated
// OpAMP agents, the same paths production traffic takes.
type Harness struct {
	Store       storage.Store
	Broker      *events.Broker
	Registry    *registry.Registry
	Agents      *agent.Registry
	Teams       *bootstrap.Orchestrator
	Synthesizer *collectorcfg.Synthesizer

	// API is the control API base URL; OpAMP is the agent endpoint URL
	API   string
	OpAMP string

	// Client is an unscoped API client; scope it with WithTeam
	Client *client.Client
}

// NewHarness assembles a control plane for one test. Everything is torn
// down through t.Cleanup.
func NewHarness(t TestingT, cfg HarnessConfig) *Harness {
	t.Helper()

	if cfg.ShardCount == 0 {
		cfg.ShardCount = 4
	}
	if cfg.AgentTTL == 0 {
		cfg.AgentTTL = 5 * time.Minute
	}
	if cfg.QueryHost == "" {
		cfg.QueryHost = "clickhouse:8123"
	}

	log.Init(log.Config{Level: log.ErrorLevel})

	secrets, err := security.NewSecretsManagerFromPassphrase("integration-test")
	if err != nil {
		t.Fatalf("failed to create secrets manager: %v", err)
	}

	store, err := storage.NewBoltStore(t.TempDir(), secrets)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	reg := registry.New(store, broker, cfg.ShardCount)
	agents := agent.NewRegistry(broker, cfg.AgentTTL)
	teams := bootstrap.New(store, cfg.Provisioner, cfg.QueryHost, broker)
	synthesizer := collectorcfg.NewSynthesizer(reg, store)

	apiServer := httptest.NewServer(api.NewServer(store, reg, teams, agents, broker).Router())
	t.Cleanup(apiServer.Close)

	opampServer := httptest.NewServer(opamp.NewServer(agents, synthesizer).Handler())
	t.Cleanup(opampServer.Close)

	return &Harness{
		Store:       store,
		Broker:      broker,
		Registry:    reg,
		Agents:      agents,
		Teams:       teams,
		Synthesizer: synthesizer,
		API:         apiServer.URL,
		OpAMP:       opampServer.URL,
		Client:      client.New(apiServer.URL),
	}
}

// CreateTeam creates a team through the API and returns a client scoped
// to it.
func (h *Harness) CreateTeam(t TestingT, name string) (string, *client.Client) {
	t.Helper()

	team, err := h.Client.CreateTeam(name)
	if err != nil {
		t.Fatalf("failed to create team %q: %v", name, err)
	}
	return team.ID, h.Client.WithTeam(team.ID)
}
