package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperdxio/switchboard/pkg/log"
	"github.com/hyperdxio/switchboard/pkg/metrics"
	"github.com/hyperdxio/switchboard/pkg/storage"
)

// DefaultReconcileInterval is how often incomplete bootstraps are
// retried.
const DefaultReconcileInterval = 60 * time.Second

// teamBootstrapTimeout bounds one team's retry within a cycle
const teamBootstrapTimeout = 2 * time.Minute

// Reconciler retries incomplete team bootstraps until the tenant
// state converges. A team whose provisioning failed at creation time
// is picked up here without any operator action.
type Reconciler struct {
	store        storage.Store
	orchestrator *Orchestrator
	interval     time.Duration
	logger       zerolog.Logger
	mu           sync.Mutex
	stopCh       chan struct{}
}

// NewReconciler creates a bootstrap reconciler
func NewReconciler(store storage.Store, orchestrator *Orchestrator, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &Reconciler{
		store:        store,
		orchestrator: orchestrator,
		interval:     interval,
		logger:       log.WithComponent("reconciler"),
		stopCh:       make(chan struct{}),
	}
}

// Start begins the reconciliation loop
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciler
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.reconcile()
		case <-r.stopCh:
			return
		}
	}
}

// reconcile performs one cycle: find teams whose tenant state is
// incomplete and push each one forward.
func (r *Reconciler) reconcile() {
	metrics.BootstrapReconcileCycles.Inc()

	r.mu.Lock()
	defer r.mu.Unlock()

	teams, err := r.store.ListTeams()
	if err != nil {
		r.logger.Error().Err(err).Msg("reconcile cycle failed to list teams")
		return
	}

	for _, team := range teams {
		complete, err := r.orchestrator.Bootstrapped(team.ID)
		if err != nil {
			r.logger.Error().Err(err).Str("team_id", team.ID).Msg("bootstrap state check failed")
			continue
		}
		if complete {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), teamBootstrapTimeout)
		err = r.orchestrator.Bootstrap(ctx, team.ID)
		cancel()
		if err != nil {
			r.logger.Warn().Err(err).Str("team_id", team.ID).Msg("bootstrap retry failed")
			continue
		}

		r.logger.Info().Str("team_id", team.ID).Msg("bootstrap completed on retry")
	}
}
