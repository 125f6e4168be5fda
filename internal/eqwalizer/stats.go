package eqwalizer

import (
	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer/ast"
)

// Stats counts the suppression annotations of one module, collected for
// telemetry.
type Stats struct {
	Ignores uint32 `json:"ignores"`
	Fixmes  uint32 `json:"fixmes"`
	Nowarn  uint32 `json:"nowarn"`
}

// ComputeStats scans a module's converted forms once and counts its
// suppression annotations. Returns nil when the module has none, and also
// when the AST cannot be obtained: missing stats are not an error.
func ComputeStats(q ast.Query, projectID ast.ProjectID, module ast.ModuleName) *Stats {
	forms, err := q.ConvertedAST(projectID, module)
	if err != nil {
		return nil
	}

	var stats Stats

	for _, form := range forms {
		switch f := form.(type) {
		case ast.MetadataForm:
			for _, fixme := range f.Fixmes {
				if fixme.IsIgnore {
					stats.Ignores++
				} else {
					stats.Fixmes++
				}
			}
		case ast.NowarnFunctionForm:
			stats.Nowarn++
		}
	}

	if stats.Ignores == 0 && stats.Fixmes == 0 && stats.Nowarn == 0 {
		return nil
	}

	return &stats
}
