// Package database provides the in-memory build database the eqwalizer
// driver runs against: memoized per-module queries keyed by identity, the
// shell-mode module-to-handle registry, and the eqwalizing observability
// sinks.
//
// Memoization here is deliberately simple. Entries are keyed by
// (project, module) and live until Invalidate is called for them; dependency
// tracking between queries is out of scope. Results computed under a
// cancelled context are never stored.
package database

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer"
	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer/ast"
	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer/ipc"
)

// Sink receives the fire-and-forget eqwalizing lifecycle hooks.
type Sink interface {
	EqwalizingStart(module string)
	EqwalizingDone(module string)
}

type moduleKey struct {
	projectID ast.ProjectID
	module    string
}

type diagEntry struct {
	outcome   eqwalizer.Outcome
	timestamp time.Time
}

type statsEntry struct {
	stats *eqwalizer.Stats
}

// DB implements eqwalizer.Database over an underlying AST source.
type DB struct {
	ast.Query

	clock clockwork.Clock
	sink  Sink

	mu      sync.RWMutex
	handles map[ast.ModuleName]*ipc.SharedHandle
	diags   map[moduleKey]diagEntry
	stats   map[moduleKey]statsEntry

	untrackedReads atomic.Int64
}

// Option configures a DB.
type Option func(*DB)

// WithClock substitutes the clock used for diagnostic timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(d *DB) { d.clock = clock }
}

// WithSink routes the eqwalizing hooks to sink instead of the debug log.
func WithSink(sink Sink) Option {
	return func(d *DB) { d.sink = sink }
}

// New creates a database over the given AST source.
func New(asts ast.Query, opts ...Option) *DB {
	d := &DB{
		Query:   asts,
		clock:   clockwork.NewRealClock(),
		handles: make(map[ast.ModuleName]*ipc.SharedHandle),
		diags:   make(map[moduleKey]diagEntry),
		stats:   make(map[moduleKey]statsEntry),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// EqwalizingStart implements the lifecycle hook.
func (d *DB) EqwalizingStart(module string) {
	if d.sink != nil {
		d.sink.EqwalizingStart(module)

		return
	}

	slog.Debug("eqwalizing", "module", module)
}

// EqwalizingDone implements the lifecycle hook.
func (d *DB) EqwalizingDone(module string) {
	if d.sink != nil {
		d.sink.EqwalizingDone(module)

		return
	}

	slog.Debug("eqwalized", "module", module)
}

// SetModuleIPCHandle parks the shared handle for a module.
func (d *DB) SetModuleIPCHandle(module ast.ModuleName, handle *ipc.SharedHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handles[module] = handle
}

// ModuleIPCHandle returns the parked handle for a module, or nil.
func (d *DB) ModuleIPCHandle(module ast.ModuleName) *ipc.SharedHandle {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.handles[module]
}

// ModuleDiagnostics returns the memoized diagnostics for a module, computing
// them over the parked shell handle on a miss. Every computation gets a
// fresh timestamp, so a recomputation that yields equal diagnostics still
// registers as a new version downstream.
func (d *DB) ModuleDiagnostics(
	ctx context.Context,
	projectID ast.ProjectID,
	module string,
) (eqwalizer.Outcome, time.Time, error) {
	key := moduleKey{projectID: projectID, module: module}

	d.mu.RLock()
	entry, found := d.diags[key]
	d.mu.RUnlock()

	if found {
		return entry.outcome, entry.timestamp, nil
	}

	// Computed without holding the lock: the exchange blocks on the child,
	// and the shared handle provides its own mutual exclusion.
	outcome, timestamp, err := eqwalizer.ModuleDiagnostics(ctx, d, projectID, module, d.clock)
	if err != nil {
		return nil, time.Time{}, err
	}

	d.mu.Lock()
	d.diags[key] = diagEntry{outcome: outcome, timestamp: timestamp}
	d.mu.Unlock()

	return outcome, timestamp, nil
}

// EqwalizerStats returns the memoized suppression-annotation counts for a
// module. Nil means the module has none (or its AST is unavailable).
func (d *DB) EqwalizerStats(projectID ast.ProjectID, module ast.ModuleName) *eqwalizer.Stats {
	key := moduleKey{projectID: projectID, module: string(module)}

	d.mu.RLock()
	entry, found := d.stats[key]
	d.mu.RUnlock()

	if found {
		return entry.stats
	}

	stats := eqwalizer.ComputeStats(d.Query, projectID, module)

	d.mu.Lock()
	d.stats[key] = statsEntry{stats: stats}
	d.mu.Unlock()

	return stats
}

// Invalidate drops the memoized results for a module, forcing the next query
// to recompute. Called when the module's source changes.
func (d *DB) Invalidate(projectID ast.ProjectID, module ast.ModuleName) {
	key := moduleKey{projectID: projectID, module: string(module)}

	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.diags, key)
	delete(d.stats, key)
}

// ReportUntrackedRead marks the current computation as not memoizable.
// This engine memoizes only what it is explicitly asked to, so the mark is
// recorded for observability rather than acted upon.
func (d *DB) ReportUntrackedRead() {
	d.untrackedReads.Add(1)
}

// UntrackedReads returns how many computations declared themselves
// untracked.
func (d *DB) UntrackedReads() int64 {
	return d.untrackedReads.Load()
}
