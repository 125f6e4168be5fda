// Package commands implements CLI command handlers for eqwald.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/eqwald/internal/config"
	"github.com/Sumatoshi-tech/eqwald/pkg/version"
)

var (
	cfgFile string
	verbose bool
	quiet   bool

	// cfg is populated by the root PersistentPreRunE before any subcommand
	// runs.
	cfg *config.Config
)

// Execute runs the eqwald CLI and returns the process exit code.
func Execute() int {
	return exitCode(NewRootCmd().Execute())
}

// exitCode maps a command error to the process exit code. A child exit
// status is propagated verbatim; the child already reported on stderr.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitStatusError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	fmt.Fprintln(os.Stderr, "Error:", err)

	return 1
}

// NewRootCmd constructs the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "eqwald",
		Short:         "Drive the eqWAlizer type-checker over a build database",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			cfg = loaded
			setupLogging(cfg)

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .eqwald.yaml in CWD or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newPassthroughCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func setupLogging(cfg *config.Config) {
	level := parseLevel(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}

	if quiet {
		level = slog.LevelWarn
	}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:   level,
			NoColor: color.NoColor,
		})
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
