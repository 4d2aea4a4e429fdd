package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperdxio/switchboard/pkg/agent"
	"github.com/hyperdxio/switchboard/pkg/api"
	"github.com/hyperdxio/switchboard/pkg/bootstrap"
	"github.com/hyperdxio/switchboard/pkg/collectorcfg"
	"github.com/hyperdxio/switchboard/pkg/config"
	"github.com/hyperdxio/switchboard/pkg/events"
	"github.com/hyperdxio/switchboard/pkg/log"
	"github.com/hyperdxio/switchboard/pkg/metrics"
	"github.com/hyperdxio/switchboard/pkg/opamp"
	"github.com/hyperdxio/switchboard/pkg/provision"
	"github.com/hyperdxio/switchboard/pkg/registry"
	"github.com/hyperdxio/switchboard/pkg/security"
	"github.com/hyperdxio/switchboard/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Switchboard - multi-tenant ingestion control plane",
	Long: `Switchboard is the ingestion control plane of an OpenTelemetry
observability platform. It issues tenant ingestion tokens, assigns
tenants to collector shards, provisions per-tenant ClickHouse storage,
and serves collector configuration over OpAMP.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Switchboard version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("server", "http://localhost:8000", "Control API address")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(teamCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(sourceCmd)
	rootCmd.AddCommand(shardsCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(eventsCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the switchboard control plane",
	Long: `Run the control plane: the REST API for token and team management
and the OpAMP endpoint that configures collector shards.

Configuration loads from the optional --config YAML file, then
environment variables, then flags, each layer overriding the last.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("config", "", "Path to YAML config file")
	serveCmd.Flags().String("data-dir", "", "Data directory for control-plane state")
	serveCmd.Flags().Int("api-port", 0, "Control API port")
	serveCmd.Flags().Int("opamp-port", 0, "OpAMP endpoint port")
	serveCmd.Flags().Int("shard-count", 0, "Number of ingestion shards")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetInt("api-port"); v != 0 {
		cfg.APIPort = v
	}
	if v, _ := cmd.Flags().GetInt("opamp-port"); v != 0 {
		cfg.OpAMPPort = v
	}
	if v, _ := cmd.Flags().GetInt("shard-count"); v != 0 {
		cfg.ShardCount = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})
	logger := log.WithComponent("main")
	metrics.SetVersion(Version)

	passphrase := cfg.SecretKey
	if passphrase == "" {
		passphrase = "switchboard-dev"
		logger.Warn().Msg("no secret key configured; using the development default")
	}
	secrets, err := security.NewSecretsManagerFromPassphrase(passphrase)
	if err != nil {
		return err
	}

	store, err := storage.NewBoltStore(cfg.DataDir, secrets)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	metrics.RegisterComponent("storage", true, "")
	metrics.RegisterCheck("storage", func(ctx context.Context) error {
		return store.Ping()
	})

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	reg := registry.New(store, broker, cfg.ShardCount)

	gauges := metrics.NewCollector(store, cfg.ShardCount)
	gauges.Start()
	defer gauges.Stop()

	agents := agent.NewRegistry(broker, cfg.AgentTTL)
	agents.Start()
	defer agents.Stop()

	var provisioner bootstrap.TenantProvisioner
	if cfg.ProvisioningEnabled {
		exec, err := provision.NewClickHouseExecutor(cmd.Context(), cfg.ClickHouse)
		if err != nil {
			return fmt.Errorf("failed to connect to clickhouse: %w", err)
		}
		defer exec.Close()
		metrics.RegisterCheck("clickhouse", exec.Ping)
		provisioner = provision.New(exec, broker)
	}

	orchestrator := bootstrap.New(store, provisioner, cfg.ClickHouse.QueryHost, broker)
	reconciler := bootstrap.NewReconciler(store, orchestrator, bootstrap.DefaultReconcileInterval)
	reconciler.Start()
	defer reconciler.Stop()

	synthesizer := collectorcfg.NewSynthesizer(reg, store)
	opampServer := opamp.NewServer(agents, synthesizer)
	apiServer := api.NewServer(store, reg, orchestrator, agents, broker)

	errCh := make(chan error, 2)
	go func() {
		metrics.RegisterComponent("opamp", true, "")
		if err := opampServer.Start(fmt.Sprintf(":%d", cfg.OpAMPPort)); err != nil {
			metrics.UpdateComponent("opamp", false, err.Error())
			errCh <- fmt.Errorf("opamp server: %w", err)
		}
	}()
	go func() {
		metrics.RegisterComponent("api", true, "")
		if err := apiServer.Start(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			metrics.UpdateComponent("api", false, err.Error())
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	logger.Info().
		Str("version", Version).
		Int("api_port", cfg.APIPort).
		Int("opamp_port", cfg.OpAMPPort).
		Int("shard_count", cfg.ShardCount).
		Bool("provisioning", cfg.ProvisioningEnabled).
		Msg("switchboard started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api shutdown failed")
	}
	if err := opampServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("opamp shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}
