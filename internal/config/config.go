// Package config provides configuration management for srcserve using
// Viper for flexible loading from files, environment variables, and
// command-line flags.
//
// The configuration system supports YAML files, environment variable
// overrides with the SRCSERVE_ prefix, and validation. It manages server
// settings, script serving options, cache budgets, and development
// options like live reload.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultTranspileCacheBytes bounds the transpile output cache.
	DefaultTranspileCacheBytes = 64 << 20

	// DefaultAnalyzeCacheBytes bounds the analysis result cache.
	DefaultAnalyzeCacheBytes = 1 << 20
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Scripts     ScriptsConfig     `yaml:"scripts"`
	Development DevelopmentConfig `yaml:"development"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Environment    string   `yaml:"environment"`
}

type ScriptsConfig struct {
	// BaseFolder is the directory scripts and static assets are served
	// from.
	BaseFolder string `yaml:"base_folder"`

	// FileEndings lists the extensions handled by the debug core; other
	// paths fall through to static file serving.
	FileEndings []string `yaml:"file_endings"`

	// MaxTranspileCacheSize is the transpile cache budget in bytes.
	MaxTranspileCacheSize int64 `yaml:"max_transpile_cache_size"`

	// MaxAnalyzeCacheSize is the analysis cache budget in bytes.
	MaxAnalyzeCacheSize int64 `yaml:"max_analyze_cache_size"`
}

type DevelopmentConfig struct {
	LiveReload bool `yaml:"live_reload"`

	// DebounceMillis batches rapid file change events before a reload
	// broadcast.
	DebounceMillis int `yaml:"debounce_millis"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle underscore keys set via viper (workaround for viper key mapping)
	if viper.IsSet("server.allowed_origins") {
		config.Server.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")
	}
	if viper.IsSet("scripts.base_folder") {
		config.Scripts.BaseFolder = viper.GetString("scripts.base_folder")
	}
	if viper.IsSet("scripts.file_endings") {
		if endings := viper.GetStringSlice("scripts.file_endings"); len(endings) > 0 {
			config.Scripts.FileEndings = endings
		}
	}
	if viper.IsSet("scripts.max_transpile_cache_size") {
		config.Scripts.MaxTranspileCacheSize = viper.GetInt64("scripts.max_transpile_cache_size")
	}
	if viper.IsSet("scripts.max_analyze_cache_size") {
		config.Scripts.MaxAnalyzeCacheSize = viper.GetInt64("scripts.max_analyze_cache_size")
	}
	if viper.IsSet("development.live_reload") {
		config.Development.LiveReload = viper.GetBool("development.live_reload")
	}
	if viper.IsSet("development.debounce_millis") {
		config.Development.DebounceMillis = viper.GetInt("development.debounce_millis")
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Environment == "" {
		config.Server.Environment = "development"
	}

	if config.Scripts.BaseFolder == "" {
		config.Scripts.BaseFolder = "."
	}
	if len(config.Scripts.FileEndings) == 0 {
		config.Scripts.FileEndings = []string{".js", ".ts"}
	}
	if config.Scripts.MaxTranspileCacheSize == 0 {
		config.Scripts.MaxTranspileCacheSize = DefaultTranspileCacheBytes
	}
	if config.Scripts.MaxAnalyzeCacheSize == 0 {
		config.Scripts.MaxAnalyzeCacheSize = DefaultAnalyzeCacheBytes
	}

	if !viper.IsSet("development.live_reload") {
		config.Development.LiveReload = config.Server.Environment == "development"
	}
	if config.Development.DebounceMillis == 0 {
		config.Development.DebounceMillis = 100
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
}

// validateConfig validates configuration values for security and correctness.
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateScriptsConfig(&config.Scripts); err != nil {
		return fmt.Errorf("scripts config: %w", err)
	}
	if config.Development.DebounceMillis < 0 {
		return fmt.Errorf("development config: debounce_millis must not be negative, got %d",
			config.Development.DebounceMillis)
	}
	return nil
}

// validateServerConfig validates server configuration values.
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing.
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", config.Port)
	}
	if strings.ContainsAny(config.Host, " \t\n") {
		return fmt.Errorf("host contains whitespace: %q", config.Host)
	}
	switch config.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("environment must be development, staging, or production, got %q",
			config.Environment)
	}
	return nil
}

// validateScriptsConfig validates script serving configuration values.
func validateScriptsConfig(config *ScriptsConfig) error {
	clean := filepath.Clean(config.BaseFolder)
	if !filepath.IsAbs(clean) && strings.HasPrefix(clean, "..") {
		return fmt.Errorf("base_folder must not escape the working directory: %q",
			config.BaseFolder)
	}

	for _, ending := range config.FileEndings {
		if !strings.HasPrefix(ending, ".") {
			return fmt.Errorf("file ending must start with a dot, got %q", ending)
		}
	}

	if config.MaxTranspileCacheSize < 0 {
		return fmt.Errorf("max_transpile_cache_size must not be negative")
	}
	if config.MaxAnalyzeCacheSize < 0 {
		return fmt.Errorf("max_analyze_cache_size must not be negative")
	}
	return nil
}
