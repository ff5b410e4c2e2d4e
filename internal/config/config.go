// Package config loads the engine's runtime settings: the directory
// backing table files, the HTTP client timeout used for remote tables, and
// the CLI's prompt.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the settings needed to run the engine and its CLI.
type Config struct {
	TablesDir    string        `mapstructure:"tables_dir"`
	Prompt       string        `mapstructure:"prompt"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// Default returns the zero-config settings the engine runs with when no
// config file is supplied.
func Default() Config {
	return Config{
		TablesDir:    "./tables",
		Prompt:       "query> ",
		FetchTimeout: 10 * time.Second,
	}
}

// Load reads settings from an optional YAML file at path, overlays flags
// bound via fs, and falls back to Default for anything unset. path may be
// empty, in which case only flags and defaults apply.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("tables_dir", def.TablesDir)
	v.SetDefault("prompt", def.Prompt)
	v.SetDefault("fetch_timeout", def.FetchTimeout)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
