package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer"
)

// renderOutcome writes the check result to w. A run with at least one
// diagnostic, and the NoAst / error terminals, map to a non-nil error so the
// process exits non-zero; a run with no diagnostics returns nil.
func renderOutcome(w io.Writer, outcome eqwalizer.Outcome, format string) error {
	switch out := outcome.(type) {
	case eqwalizer.Diagnostics:
		if countDiagnostics(out) == 0 {
			fmt.Fprintln(w, "no issues found")

			return nil
		}

		if format == "json" {
			renderJSON(w, out)
		} else {
			renderTable(w, out)
		}

		return fmt.Errorf("%w: %d", ErrDiagnosticsFound, countDiagnostics(out))
	case eqwalizer.NoAst:
		return fmt.Errorf("module %s could not be parsed", out.Module)
	case eqwalizer.CheckError:
		return fmt.Errorf("eqwalizer failed: %s", out.Message)
	default:
		return fmt.Errorf("unexpected outcome %T", outcome)
	}
}

func countDiagnostics(out eqwalizer.Diagnostics) int {
	total := 0
	for _, diags := range out.ByModule {
		total += len(diags)
	}

	return total
}

func renderJSON(w io.Writer, out eqwalizer.Diagnostics) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out.ByModule)
}

func renderTable(w io.Writer, out eqwalizer.Diagnostics) {
	modules := make([]string, 0, len(out.ByModule))
	for module := range out.ByModule {
		modules = append(modules, module)
	}

	sort.Strings(modules)

	moduleHeader := color.New(color.FgCyan, color.Bold)

	for _, module := range modules {
		moduleHeader.Fprintln(w, module)

		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"Range", "Code", "Message"})

		for _, diag := range out.ByModule[module] {
			tw.AppendRow(table.Row{
				fmt.Sprintf("%d..%d", diag.Range.Start, diag.Range.End),
				diag.Code,
				diag.Message,
			})
		}

		tw.Render()
	}
}
