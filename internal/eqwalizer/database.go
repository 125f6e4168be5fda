package eqwalizer

import (
	"context"
	"time"

	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer/ast"
	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer/ipc"
)

// Database is the build-database surface the driver runs against: AST
// queries, the eqwalizing observability sinks, the shell-mode module-to-
// handle registry, the memoized per-module diagnostics query, and the
// incremental engine's untracked-read escape hatch.
//
// Cancellation is carried by context: every protocol loop checks its context
// before each blocking receive, and a cancelled computation propagates the
// context error instead of producing an Outcome, so the engine can discard
// it rather than memoize it.
type Database interface {
	ast.Query

	// EqwalizingStart is a fire-and-forget hook invoked when the child
	// starts checking a module.
	EqwalizingStart(module string)
	// EqwalizingDone is the matching completion hook.
	EqwalizingDone(module string)

	// SetModuleIPCHandle parks the shared handle for a module about to be
	// visited in shell mode, so the memoized query can resume it.
	SetModuleIPCHandle(module ast.ModuleName, handle *ipc.SharedHandle)
	// ModuleIPCHandle returns the parked handle for a module, or nil.
	ModuleIPCHandle(module ast.ModuleName) *ipc.SharedHandle

	// ModuleDiagnostics is the memoized per-module query driven by the
	// shell-mode loop. The timestamp is fresh for every recomputation, even
	// when the outcome is unchanged, so downstream consumers always observe
	// a new version.
	ModuleDiagnostics(ctx context.Context, projectID ast.ProjectID, module string) (Outcome, time.Time, error)

	// ReportUntrackedRead marks the current computation as not memoizable.
	ReportUntrackedRead()
}
