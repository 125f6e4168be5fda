package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/eqwald/internal/astdir"
	"github.com/Sumatoshi-tech/eqwald/internal/database"
	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer"
	"github.com/Sumatoshi-tech/eqwald/internal/eqwalizer/ast"
	"github.com/Sumatoshi-tech/eqwald/internal/observability"
)

// serverShutdownTimeout bounds the graceful stop of the diagnostics server.
const serverShutdownTimeout = 5 * time.Second

var (
	// ErrBuildInfoRequired is returned when no build-info path is configured.
	ErrBuildInfoRequired = errors.New("--build-info is required (or eqwalizer.build_info in config)")
	// ErrASTDirRequired is returned when no AST directory is configured.
	ErrASTDirRequired = errors.New("--ast-dir is required (or eqwalizer.ast_dir in config)")
	// ErrDiagnosticsFound signals a completed check that reported findings.
	ErrDiagnosticsFound = errors.New("type errors found")
)

type checkOptions struct {
	buildInfo string
	astDir    string
	shell     bool
	project   uint32
	format    string
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check [modules...]",
		Short: "Type-check modules with the eqWAlizer child process",
		Long: `Type-check the named modules.

By default the child works through the module list in batch mode. With
--shell the child drives module visitation itself and per-module results
are memoized in the build database.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyCheckConfig(&opts)

			return runCheck(cmd, &opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.buildInfo, "build-info", "", "path to the build-info file handed to the checker")
	cmd.Flags().StringVar(&opts.astDir, "ast-dir", "", "directory holding serialized module representations")
	cmd.Flags().BoolVar(&opts.shell, "shell", false, "let the checker drive module visitation")
	cmd.Flags().Uint32Var(&opts.project, "project", 0, "project identity used as the query key")
	cmd.Flags().StringVar(&opts.format, "format", "table", "output format: table or json")

	return cmd
}

// applyCheckConfig fills unset flags from the loaded config file.
func applyCheckConfig(opts *checkOptions) {
	if opts.buildInfo == "" {
		opts.buildInfo = cfg.Eqwalizer.BuildInfo
	}

	if opts.astDir == "" {
		opts.astDir = cfg.Eqwalizer.ASTDir
	}

	if !opts.shell {
		opts.shell = cfg.Eqwalizer.Shell
	}

	if opts.project == 0 {
		opts.project = cfg.Eqwalizer.Project
	}
}

func runCheck(cmd *cobra.Command, opts *checkOptions, modules []string) error {
	if opts.buildInfo == "" {
		return ErrBuildInfoRequired
	}

	if opts.astDir == "" {
		return ErrASTDirRequired
	}

	eq, err := eqwalizer.New()
	if err != nil {
		return err
	}
	defer eq.Close()

	eq.Shell = opts.shell

	dbOpts, stopServer, err := observabilityOptions()
	if err != nil {
		return err
	}
	defer stopServer()

	db := database.New(astdir.New(opts.astDir), dbOpts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := eq.Typecheck(ctx, opts.buildInfo, db, ast.ProjectID(opts.project), modules)
	if err != nil {
		// Cancellation: the engine discards the run, nothing to render.
		return err
	}

	return renderOutcome(cmd.OutOrStdout(), outcome, opts.format)
}

// observabilityOptions wires the metrics sink and diagnostics server when a
// listen address is configured. The returned stop function is always safe to
// call.
func observabilityOptions() ([]database.Option, func(), error) {
	if cfg.Metrics.Addr == "" {
		return nil, func() {}, nil
	}

	providers, err := observability.NewProviders()
	if err != nil {
		return nil, func() {}, err
	}

	metrics, err := observability.NewEqwalizerMetrics(providers.Meter)
	if err != nil {
		return nil, func() {}, err
	}

	server, err := observability.NewDiagnosticsServer(cfg.Metrics.Addr, providers)
	if err != nil {
		return nil, func() {}, err
	}

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()

		_ = server.Shutdown(ctx)
	}

	return []database.Option{database.WithSink(metrics)}, stop, nil
}
