package framework

import (
	"context"
	"errors"
	"sync"
)

// RecordingExecutor is an in-memory stand-in for the analytical store's
// DDL executor. It records every statement it runs and can be scripted
// to fail a number of leading calls, which is how scenario tests
// simulate a storage outage during provisioning.
type RecordingExecutor struct {
	mu         sync.Mutex
	failures   int
	statements []string
}

// NewRecordingExecutor creates an executor whose first failures calls
// return an error before it starts succeeding.
func NewRecordingExecutor(failures int) *RecordingExecutor {
	return &RecordingExecutor{failures: failures}
}

// Exec records the statement, or fails if scripted failures remain
func (e *RecordingExecutor) Exec(ctx context.Context, ddl string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failures > 0 {
		e.failures--
		return errors.New("simulated storage outage")
	}
	e.statements = append(e.statements, ddl)
	return nil
}

// Ping implements provision.Executor. The outage script applies to DDL
// only; the fake always reports reachable.
func (e *RecordingExecutor) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements provision.Executor
func (e *RecordingExecutor) Close() error {
	return nil
}

// Executed returns a copy of every statement run so far
func (e *RecordingExecutor) Executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, len(e.statements))
	copy(out, e.statements)
	return out
}
