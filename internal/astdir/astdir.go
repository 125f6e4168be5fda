// Package astdir serves serialized module representations from a directory
// tree, one subdirectory per transformation stage.
//
// This is the same layout a passthrough child reads via
// EQWALIZER_ELP_AST_DIR: <dir>/<stage>/<module>, with an optional
// <dir>/<stage>/<module>.err marker left behind by the AST pipeline when the
// module failed to parse.
package astdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer/ast"
)

// Stage subdirectory names.
const (
	dirRawForms        = "raw_forms"
	dirConvertedForms  = "converted_forms"
	dirRawStub         = "raw_stub"
	dirConvertedStub   = "converted_stub"
	dirExpandedStub    = "expanded_stub"
	dirContractiveStub = "contractive_stub"
	dirCovariantStub   = "covariant_stub"
	dirTransitiveStub  = "transitive_stub"
)

// errMarkerSuffix marks a module the AST pipeline could not parse.
const errMarkerSuffix = ".err"

// ErrNoConvertedForms indicates decoded converted forms are not available
// from a directory source.
var ErrNoConvertedForms = errors.New("astdir: decoded converted forms not available")

// Source implements ast.Query over a directory tree.
type Source struct {
	root string
}

// New creates a source rooted at dir.
func New(dir string) *Source {
	return &Source{root: dir}
}

func (s *Source) read(stage string, module ast.ModuleName) ([]byte, error) {
	path := filepath.Join(s.root, stage, string(module))

	_, statErr := os.Stat(path + errMarkerSuffix)
	if statErr == nil {
		return nil, fmt.Errorf("%s: %w", module, ast.ErrParseError)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", module, ast.ErrModuleNotFound)
		}

		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return data, nil
}

// ErlASTBytes implements ast.Query.
func (s *Source) ErlASTBytes(_ ast.ProjectID, module ast.ModuleName) ([]byte, error) {
	return s.read(dirRawForms, module)
}

// ConvertedASTBytes implements ast.Query.
func (s *Source) ConvertedASTBytes(_ ast.ProjectID, module ast.ModuleName) ([]byte, error) {
	return s.read(dirConvertedForms, module)
}

// ErlStubBytes implements ast.Query.
func (s *Source) ErlStubBytes(_ ast.ProjectID, module ast.ModuleName) ([]byte, error) {
	return s.read(dirRawStub, module)
}

// ConvertedStubBytes implements ast.Query.
func (s *Source) ConvertedStubBytes(_ ast.ProjectID, module ast.ModuleName) ([]byte, error) {
	return s.read(dirConvertedStub, module)
}

// ExpandedStubBytes implements ast.Query.
func (s *Source) ExpandedStubBytes(_ ast.ProjectID, module ast.ModuleName) ([]byte, error) {
	return s.read(dirExpandedStub, module)
}

// ContractiveStubBytes implements ast.Query.
func (s *Source) ContractiveStubBytes(_ ast.ProjectID, module ast.ModuleName) ([]byte, error) {
	return s.read(dirContractiveStub, module)
}

// CovariantStubBytes implements ast.Query.
func (s *Source) CovariantStubBytes(_ ast.ProjectID, module ast.ModuleName) ([]byte, error) {
	return s.read(dirCovariantStub, module)
}

// TransitiveStubBytes implements ast.Query.
func (s *Source) TransitiveStubBytes(_ ast.ProjectID, module ast.ModuleName) ([]byte, error) {
	return s.read(dirTransitiveStub, module)
}

// ConvertedAST implements ast.Query. A directory source serves opaque bytes
// only; stats over decoded forms need an in-process AST pipeline.
func (s *Source) ConvertedAST(_ ast.ProjectID, _ ast.ModuleName) ([]ast.Form, error) {
	return nil, ErrNoConvertedForms
}
