// Package config resolves celesta's runtime configuration: which
// database dialect and DSN to update, the system grain name, the
// score.yaml root manifest scoreio should read, and logging level.
//
// Grounded on arkiliandb-Arkilian/internal/config for the layered
// Default → file → environment resolution shape, adapted from
// Arkilian's ingest/query/compaction settings to celesta's single
// concern (one target database, one score); on
// petar-djukic-crumbs/cmd/cupboard/config.go for the viper setup
// (SetDefault → SetConfigName/Type → AddConfigPath → ReadInConfig,
// tolerating a missing file); and on
// bigmountainben-go-mysql-dummy-populator/internal/utils.go for the
// .env-then-environment-variable loading idiom.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	keyDialect     = "dialect"
	keyDSN         = "dsn"
	keySystemGrain = "system_grain"
	keyScoreRoots  = "score_roots"
	keyForceInit   = "force_dd_initialize"
	keyLogLevel    = "log_level"

	defaultDialect     = "sqlite"
	defaultSystemGrain = "celesta"
	defaultLogLevel    = "info"
)

// Config is celesta's resolved runtime configuration.
type Config struct {
	// Dialect selects the Adaptor implementation: "sqlite" or "mysql".
	Dialect string
	// DSN is the dialect-specific connection string.
	DSN string
	// SystemGrain names the grain holding celesta.grains/celesta.tables.
	SystemGrain string
	// ScoreRoots is the path to the score.yaml manifest scoreio reads.
	ScoreRoots string
	// ForceDDInitialize permits an initial DDL run against a
	// non-empty database, mirroring the original engine's
	// force_dd_initialize flag.
	ForceDDInitialize bool
	// LogLevel is a logrus level name ("debug", "info", "warn", ...).
	LogLevel string
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		Dialect:     defaultDialect,
		SystemGrain: defaultSystemGrain,
		LogLevel:    defaultLogLevel,
	}
}

// Load builds a Config by reading configDir/config.yaml (creating a
// default file on first run), then an optional .env file, then
// environment variables prefixed CELESTA_ — each layer overriding the
// one before it.
func Load(configDir, envFile string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("config: ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("config: ensure default config: %w", err)
	}

	v := viper.New()
	def := DefaultConfig()
	v.SetDefault(keyDialect, def.Dialect)
	v.SetDefault(keySystemGrain, def.SystemGrain)
	v.SetDefault(keyLogLevel, def.LogLevel)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config: %w", err)
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", envFile, err)
			}
		}
	}

	v.SetEnvPrefix("CELESTA")
	v.AutomaticEnv()

	cfg := &Config{
		Dialect:           v.GetString(keyDialect),
		DSN:               v.GetString(keyDSN),
		SystemGrain:       v.GetString(keySystemGrain),
		ScoreRoots:        v.GetString(keyScoreRoots),
		ForceDDInitialize: v.GetBool(keyForceInit),
		LogLevel:          v.GetString(keyLogLevel),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects a Config with an unrecognized dialect or a missing DSN.
func (c *Config) Validate() error {
	switch c.Dialect {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("config: invalid dialect %q (must be sqlite or mysql)", c.Dialect)
	}
	if c.DSN == "" {
		return fmt.Errorf("config: dsn is required")
	}
	if c.SystemGrain == "" {
		return fmt.Errorf("config: system_grain is required")
	}
	return nil
}

// NewLogger builds a logrus.Logger at cfg.LogLevel, falling back to
// info on an unparsable level name.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stdout)
	return logger
}

const defaultConfigYAML = `# celesta configuration
dialect: sqlite
# dsn: "./celesta.db"
system_grain: celesta
# score_roots: "./score.yaml"
force_dd_initialize: false
log_level: info
`

func ensureDefaultConfigFile(configDir string) error {
	path := configDir + string(os.PathSeparator) + configFileExt
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
