package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer"
)

// ExitStatusError carries a non-zero child exit status up to the process
// exit, so a passthrough run terminates with the checker's own status
// instead of a generic failure code.
type ExitStatusError struct {
	Code int
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("eqwalizer exited with status %d", e.Code)
}

func newPassthroughCmd() *cobra.Command {
	var (
		buildInfo string
		astDir    string
	)

	cmd := &cobra.Command{
		Use:   "passthrough [args...]",
		Short: "Run the checker directly with the given arguments",
		Long: `Run the bundled checker with caller-supplied arguments and inherited
stdio, outside the IPC protocol. The checker reads its module
representations from the AST directory instead of requesting them over
the pipe. The checker's exit status becomes eqwald's exit status.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			if buildInfo == "" {
				buildInfo = cfg.Eqwalizer.BuildInfo
			}

			if astDir == "" {
				astDir = cfg.Eqwalizer.ASTDir
			}

			if buildInfo == "" {
				return ErrBuildInfoRequired
			}

			eq, err := eqwalizer.New()
			if err != nil {
				return err
			}
			defer eq.Close()

			status, err := eq.Passthrough(args, buildInfo, astDir)
			if err != nil {
				return err
			}

			if status != 0 {
				return &ExitStatusError{Code: status}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&buildInfo, "build-info", "", "path to the build-info file handed to the checker")
	cmd.Flags().StringVar(&astDir, "ast-dir", "", "directory the checker reads module representations from")

	return cmd
}
