// Package config holds the eqwald configuration model and loader.
package config

import (
	"errors"
	"slices"
)

// Config is the top-level configuration struct for eqwald.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Eqwalizer EqwalizerConfig `mapstructure:"eqwalizer"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// EqwalizerConfig holds checker invocation settings.
type EqwalizerConfig struct {
	// BuildInfo is the path to the build-info file handed to the child.
	BuildInfo string `mapstructure:"build_info"`
	// ASTDir is the directory serialized module representations are read
	// from, both by the driver's AST source and by passthrough children.
	ASTDir string `mapstructure:"ast_dir"`
	// Shell selects child-driven module visitation.
	Shell bool `mapstructure:"shell"`
	// Project is the project identity used as the query key.
	Project uint32 `mapstructure:"project"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds the diagnostics HTTP server settings.
type MetricsConfig struct {
	// Addr is the listen address for /healthz, /readyz, and /metrics.
	// Empty disables the server.
	Addr string `mapstructure:"addr"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("log.level must be one of debug, info, warn, error")
	// ErrInvalidLogFormat indicates an unknown log format.
	ErrInvalidLogFormat = errors.New("log.format must be text or json")
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if !slices.Contains(logLevels, c.Log.Level) {
		return ErrInvalidLogLevel
	}

	if !slices.Contains(logFormats, c.Log.Format) {
		return ErrInvalidLogFormat
	}

	return nil
}
