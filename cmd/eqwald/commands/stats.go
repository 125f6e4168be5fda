package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/eqwald/internal/astdir"
	"github.com/Sumatoshi-tech/eqwald/internal/database"
	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer/ast"
)

func newStatsCmd() *cobra.Command {
	var (
		astDir  string
		project uint32
	)

	cmd := &cobra.Command{
		Use:   "stats [modules...]",
		Short: "Report suppression-annotation counts per module",
		Long: `Report fixme, ignore and nowarn counts per module.

Counts are computed from a module's decoded converted forms. The AST
directory source serves serialized bytes only and does not decode forms,
so with it every module is reported as "-".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if astDir == "" {
				astDir = cfg.Eqwalizer.ASTDir
			}

			if astDir == "" {
				return ErrASTDirRequired
			}

			db := database.New(astdir.New(astDir))

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Module", "Fixmes", "Ignores", "Nowarn"})

			for _, module := range args {
				stats := db.EqwalizerStats(ast.ProjectID(project), ast.ModuleName(module))
				if stats == nil {
					tw.AppendRow(table.Row{module, "-", "-", "-"})

					continue
				}

				tw.AppendRow(table.Row{module, stats.Fixmes, stats.Ignores, stats.Nowarn})
			}

			tw.Render()

			return nil
		},
	}

	cmd.Flags().StringVar(&astDir, "ast-dir", "", "directory holding serialized module representations")
	cmd.Flags().Uint32Var(&project, "project", 0, "project identity used as the query key")

	return cmd
}
