// Package ast defines the AST query surface the eqwalizer driver consumes.
//
// The driver never parses target-language source itself. Parsed modules and
// their progressively transformed stubs are produced elsewhere and served to
// the driver as opaque byte payloads, keyed by (project, module). This package
// holds the identifiers, the query interface, the error taxonomy of a failed
// query, and the minimal form model the stats collector scans.
package ast

import "errors"

// ProjectID identifies a project in the build database.
type ProjectID uint32

// ModuleName identifies a module of the target language.
type ModuleName string

// Query errors. ErrModuleNotFound and ErrParseError are load-bearing: the
// protocol loops reply differently to the child depending on which of them a
// failed query wraps. Anything else aborts the run.
var (
	// ErrModuleNotFound indicates the requested module is not known to the
	// build database.
	ErrModuleNotFound = errors.New("module not found")
	// ErrParseError indicates the module exists but could not be parsed.
	ErrParseError = errors.New("parse error")
)

// Query serves serialized module representations, one method per
// transformation stage the type-checker can request, plus the decoded
// converted forms consumed by the stats collector.
//
// Implementations are expected to memoize internally; the driver calls these
// once per child request.
type Query interface {
	// ErlASTBytes returns the serialized raw parse forms of a module.
	ErlASTBytes(projectID ProjectID, module ModuleName) ([]byte, error)
	// ConvertedASTBytes returns the serialized converted forms.
	ConvertedASTBytes(projectID ProjectID, module ModuleName) ([]byte, error)
	// ErlStubBytes returns the serialized raw stub.
	ErlStubBytes(projectID ProjectID, module ModuleName) ([]byte, error)
	// ConvertedStubBytes returns the serialized converted stub.
	ConvertedStubBytes(projectID ProjectID, module ModuleName) ([]byte, error)
	// ExpandedStubBytes returns the serialized expanded stub.
	ExpandedStubBytes(projectID ProjectID, module ModuleName) ([]byte, error)
	// ContractiveStubBytes returns the serialized contractiveness-checked stub.
	ContractiveStubBytes(projectID ProjectID, module ModuleName) ([]byte, error)
	// CovariantStubBytes returns the serialized covariance-checked stub.
	CovariantStubBytes(projectID ProjectID, module ModuleName) ([]byte, error)
	// TransitiveStubBytes returns the serialized transitively-checked stub.
	TransitiveStubBytes(projectID ProjectID, module ModuleName) ([]byte, error)

	// ConvertedAST returns the decoded converted forms of a module.
	ConvertedAST(projectID ProjectID, module ModuleName) ([]Form, error)
}
