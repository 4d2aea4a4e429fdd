package framework

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperdxio/switchboard/pkg/agent"
	"github.com/hyperdxio/switchboard/pkg/bootstrap"
)

// Waiter provides utilities for waiting on conditions with timeouts
type Waiter struct {
	timeout  time.Duration
	interval time.Duration
}

// NewWaiter creates a new Waiter with the given timeout and polling interval
func NewWaiter(timeout, interval time.Duration) *Waiter {
	return &Waiter{
		timeout:  timeout,
		interval: interval,
	}
}

// DefaultWaiter returns a waiter tuned for in-process convergence
// (5s timeout, 20ms interval)
func DefaultWaiter() *Waiter {
	return NewWaiter(5*time.Second, 20*time.Millisecond)
}

// WaitFor waits for a condition to become true
func (w *Waiter) WaitFor(ctx context.Context, condition func() bool, description string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Check immediately
	if condition() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for: %s (timeout: %v)", description, w.timeout)
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// WaitForBootstrapped waits for a team's tenant state to converge:
// connection present, four sources, cross-links closed.
func (w *Waiter) WaitForBootstrapped(ctx context.Context, teams *bootstrap.Orchestrator, teamID string) error {
	return w.WaitFor(ctx, func() bool {
		done, err := teams.Bootstrapped(teamID)
		return err == nil && done
	}, fmt.Sprintf("team %s to be bootstrapped", teamID))
}

// WaitForAgentCount waits for the registry to track exactly count agents
func (w *Waiter) WaitForAgentCount(ctx context.Context, agents *agent.Registry, count int) error {
	return w.WaitFor(ctx, func() bool {
		return agents.Count() == count
	}, fmt.Sprintf("registry to track %d agents", count))
}

// PollUntil polls a condition until it returns true or context is cancelled
func PollUntil(ctx context.Context, interval time.Duration, condition func() bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Check immediately
	if condition() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}
