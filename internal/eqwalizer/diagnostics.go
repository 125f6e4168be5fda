package eqwalizer

import (
	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer/ipc"
)

// Diagnostic is a single type-check finding, as decoded off the wire.
type Diagnostic = ipc.Diagnostic

// Outcome is the result of running the checker: a diagnostics map, a
// missing-AST marker, or an unrecoverable error. The concrete types are
// Diagnostics, NoAst, and CheckError.
type Outcome interface {
	isOutcome()
}

// Diagnostics maps module names to their ordered findings. The zero value
// (nil map) is the identity of Combine.
type Diagnostics struct {
	ByModule map[string][]Diagnostic
}

// NoAst reports that the checker could not be served because Module failed
// to parse.
type NoAst struct {
	Module string
}

// CheckError reports any other unrecoverable condition: I/O failure,
// protocol violation, or a child-side refusal.
type CheckError struct {
	Message string
}

func (Diagnostics) isOutcome() {}
func (NoAst) isOutcome()       {}
func (CheckError) isOutcome()  {}

// Combine merges two outcomes. NoAst and CheckError absorb: the left-most
// non-Diagnostics operand wins. Two Diagnostics union their maps, the right
// side replacing the left on duplicate modules. Associative; the empty
// Diagnostics is the identity.
func Combine(left, right Outcome) Outcome {
	l, ok := left.(Diagnostics)
	if !ok {
		return left
	}

	r, ok := right.(Diagnostics)
	if !ok {
		return right
	}

	if len(r.ByModule) == 0 {
		return l
	}

	merged := make(map[string][]Diagnostic, len(l.ByModule)+len(r.ByModule))
	for module, diags := range l.ByModule {
		merged[module] = diags
	}

	for module, diags := range r.ByModule {
		merged[module] = diags
	}

	return Diagnostics{ByModule: merged}
}
