// Package config loads extractsuper settings from a config file, the
// environment and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. EXTRACTSUPER_LOG_LEVEL.
	EnvPrefix = "EXTRACTSUPER"
	// FileName is the config file searched for, without extension.
	FileName = ".extractsuper"
)

// Output formats.
const (
	OutputTOON = "toon"
	OutputJSON = "json"
)

// Config holds runtime settings shared by the CLI and the MCP server.
type Config struct {
	LogLevel      string `mapstructure:"log_level"`
	ScanDepth     int    `mapstructure:"scan_depth"`
	Output        string `mapstructure:"output"`
	PomIndent     int    `mapstructure:"pom_indent"`
	RespectIgnore bool   `mapstructure:"respect_ignore"`
}

// New returns a viper instance reading cfgFile, or when it is empty the
// first .extractsuper.yaml found in searchDirs (default: the working
// directory, then the home directory). A missing discovered file is not an error.
func New(cfgFile string, searchDirs ...string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
		return v, nil
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if len(searchDirs) == 0 {
		searchDirs = []string{"."}
		if home, err := os.UserHomeDir(); err == nil {
			searchDirs = append(searchDirs, home)
		}
	}
	for _, dir := range searchDirs {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("scan_depth", 8)
	v.SetDefault("output", OutputTOON)
	v.SetDefault("pom_indent", 2)
	v.SetDefault("respect_ignore", false)
}

// Load unmarshals and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	if c.Output != OutputTOON && c.Output != OutputJSON {
		return fmt.Errorf("output must be %q or %q, got %q", OutputTOON, OutputJSON, c.Output)
	}
	if c.ScanDepth < 1 {
		return fmt.Errorf("scan_depth must be positive, got %d", c.ScanDepth)
	}
	if c.PomIndent < 0 {
		return fmt.Errorf("pom_indent must not be negative, got %d", c.PomIndent)
	}
	return nil
}
