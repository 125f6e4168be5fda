package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".eqwald"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for eqwald settings.
const envPrefix = "EQWALD"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Defaults.
const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"
	// DefaultLogFormat is the default logging output format.
	DefaultLogFormat = "text"
)

// applyDefaults registers the built-in default values on v.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
}

// Load resolves the effective configuration: defaults, then the config file
// (if any), then EQWALD_* environment variables, later sources overriding
// earlier ones. A non-empty configPath names a file that must exist; with an
// empty configPath the file is optional and searched for in the working
// directory and $HOME.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()
	applyDefaults(v)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", v.ConfigFileUsed(), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if configPath != "" {
		v.SetConfigFile(configPath)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config %s: %w", configPath, err)
		}

		return nil
	}

	v.SetConfigName(configName)
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	err := v.ReadInConfig()

	// No file on the search path is fine; defaults and environment
	// variables still apply.
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("config: %w", err)
	}

	return nil
}
