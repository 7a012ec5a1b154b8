// Package config loads facet settings from facet.yaml, FACET_* environment
// variables and built-in defaults, in increasing order of precedence below
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Store   StoreConfig   `mapstructure:"store"`
	Suggest SuggestConfig `mapstructure:"suggest"`
	History HistoryConfig `mapstructure:"history"`
	SQL     SQLConfig     `mapstructure:"sql"`
	Log     LogConfig     `mapstructure:"log"`
}

type CatalogConfig struct {
	// Path is a .cue/.yaml file or a CUE package directory. Empty means
	// the built-in catalog.
	Path string `mapstructure:"path"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	// Path is the SQLite file or Badger directory.
	Path  string `mapstructure:"path"`
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

type SuggestConfig struct {
	Limit int `mapstructure:"limit"`
}

type HistoryConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

// SQLConfig describes the search table compiled queries run against.
type SQLConfig struct {
	Table   string            `mapstructure:"table"`
	Dialect string            `mapstructure:"dialect"`
	OrderBy string            `mapstructure:"order_by"`
	Columns map[string]string `mapstructure:"columns"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// GetDefaults returns a Config with all default values. State is kept in
// a SQLite file under the user config directory so history and learned
// patterns carry over between runs; without a config directory it stays
// in memory.
func GetDefaults() *Config {
	st := StoreConfig{Backend: BackendMemory}
	if path := DefaultStorePath(); path != "" {
		st = StoreConfig{Backend: BackendSQLite, Path: path}
	}
	return &Config{
		Store:   st,
		Suggest: SuggestConfig{Limit: 10},
		History: HistoryConfig{MaxEntries: 20},
		SQL:     SQLConfig{Table: "items", Dialect: "sqlite", OrderBy: "id"},
		Log:     LogConfig{Level: "warn"},
	}
}

func setDefaults(v *viper.Viper) {
	d := GetDefaults()
	v.SetDefault("catalog.path", d.Catalog.Path)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.table", d.Store.Table)
	v.SetDefault("suggest.limit", d.Suggest.Limit)
	v.SetDefault("history.max_entries", d.History.MaxEntries)
	v.SetDefault("sql.table", d.SQL.Table)
	v.SetDefault("sql.dialect", d.SQL.Dialect)
	v.SetDefault("sql.order_by", d.SQL.OrderBy)
	v.SetDefault("log.level", d.Log.Level)
}

// Load reads configuration. When file is non-empty it must exist;
// otherwise facet.yaml is searched in the user config directory and the
// current directory, and a missing file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FACET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("facet")
		v.SetConfigType("yaml")
		if dir, err := GetConfigPath(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail later with a less
// helpful message.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite, BackendBadger:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s backend", c.Store.Backend)
		}
	case BackendPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q (want memory, sqlite, badger or postgres)", c.Store.Backend)
	}
	if c.Suggest.Limit < 1 {
		return fmt.Errorf("suggest.limit must be at least 1, got %d", c.Suggest.Limit)
	}
	if c.History.MaxEntries < 1 {
		return fmt.Errorf("history.max_entries must be at least 1, got %d", c.History.MaxEntries)
	}
	switch strings.ToLower(c.SQL.Dialect) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown sql.dialect %q (want sqlite or postgres)", c.SQL.Dialect)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log.level %q (want debug, info, warn or error)", c.Log.Level)
	}
	return nil
}

// DefaultStorePath returns the SQLite file used when store.path is not
// configured, or "" when there is no user config directory.
func DefaultStorePath() string {
	dir, err := GetConfigPath()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "facet.db")
}

// GetConfigPath returns the user config directory path
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "facet"), nil
}
