package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/eslsoft/vidya/internal/entity"
)

// Store drivers.
const (
	DriverSQLite    = "sqlite3"
	DriverPostgres  = "postgres"
	DriverPostgREST = "postgrest"
)

// Config holds all configuration for our application
type Config struct {
	Store       StoreConfig                 `mapstructure:"store"`
	Source      SourceConfig                `mapstructure:"source"`
	Ingest      IngestConfig                `mapstructure:"ingest"`
	Lexicon     LexiconConfig               `mapstructure:"lexicon"`
	Log         LogConfig                   `mapstructure:"log"`
	Collections map[string]CollectionConfig `mapstructure:"collections"`
}

// StoreConfig selects where records are persisted. Endpoint is a DSN for
// sql drivers and a base URL for postgrest.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	Endpoint string `mapstructure:"endpoint"`
	Key      string `mapstructure:"key"`
	Schema   string `mapstructure:"schema"`
	LogSQL   bool   `mapstructure:"log_sql"`
	MaxConns int32  `mapstructure:"max_conns"`
	// Pool switches the postgres driver from database/sql to pgxpool.
	Pool bool `mapstructure:"pool"`
}

// SourceConfig holds retrieval settings
type SourceConfig struct {
	Kind      string        `mapstructure:"kind"`
	Root      string        `mapstructure:"root"`
	APIBase   string        `mapstructure:"api_base"`
	RawBase   string        `mapstructure:"raw_base"`
	Token     string        `mapstructure:"token"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PageSize  int           `mapstructure:"page_size"`
	Delay     time.Duration `mapstructure:"delay"`
}

// IngestConfig holds orchestration settings
type IngestConfig struct {
	BatchSize   int           `mapstructure:"batch_size"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	DryRun      bool          `mapstructure:"dry_run"`
	Limit       int           `mapstructure:"limit"`
}

// LexiconConfig holds dictionary import settings
type LexiconConfig struct {
	Path      string `mapstructure:"path"`
	BatchSize int    `mapstructure:"batch_size"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CollectionConfig describes one ingestible collection. SecondaryRepo and
// SecondaryPath locate the target-language stream.
type CollectionConfig struct {
	Kind          string `mapstructure:"kind"`
	Book          string `mapstructure:"book"`
	Part          int    `mapstructure:"part"`
	Repo          string `mapstructure:"repo"`
	Ref           string `mapstructure:"ref"`
	Path          string `mapstructure:"path"`
	SecondaryRepo string `mapstructure:"secondary_repo"`
	SecondaryPath string `mapstructure:"secondary_path"`
	Extension     string `mapstructure:"extension"`

	// Language codes are informational and only reach the logs.
	Language          string `mapstructure:"language"`
	SecondaryLanguage string `mapstructure:"secondary_language"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	setDefaults()

	// Enable reading from environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read configuration file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Collections live in an optional yaml file next to .env.
	if err := mergeCollections(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func mergeCollections() error {
	v := viper.New()
	v.SetConfigName("collections")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("error reading collections file: %w", err)
	}
	return viper.MergeConfigMap(v.AllSettings())
}

// setDefaults sets default configuration values
func setDefaults() {
	// Store defaults
	viper.SetDefault("store.driver", DriverSQLite)
	viper.SetDefault("store.endpoint", "file:vidya.db?_fk=1")
	viper.SetDefault("store.schema", "public")
	viper.SetDefault("store.max_conns", 10)

	// Source defaults
	viper.SetDefault("source.kind", "github")
	viper.SetDefault("source.api_base", "https://api.github.com")
	viper.SetDefault("source.raw_base", "https://raw.githubusercontent.com")
	viper.SetDefault("source.user_agent", "vidya-ingest")
	viper.SetDefault("source.timeout", 30*time.Second)
	viper.SetDefault("source.page_size", 100)
	viper.SetDefault("source.delay", 300*time.Millisecond)

	// Ingest defaults
	viper.SetDefault("ingest.batch_size", 100)
	viper.SetDefault("ingest.max_attempts", 4)
	viper.SetDefault("ingest.base_delay", 500*time.Millisecond)

	// Lexicon defaults
	viper.SetDefault("lexicon.batch_size", 1000)

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
}

// Validate checks the preconditions every command needs before touching the
// network. Remote stores need both an endpoint and a key.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Store.Endpoint) == "" {
			return fmt.Errorf("%w: store.endpoint", entity.ErrMissingCredentials)
		}
	case DriverPostgres, DriverPostgREST:
		if strings.TrimSpace(c.Store.Endpoint) == "" || strings.TrimSpace(c.Store.Key) == "" {
			return fmt.Errorf("%w: store.endpoint and store.key are required for %s", entity.ErrMissingCredentials, c.Store.Driver)
		}
	default:
		return fmt.Errorf("%w: %q", entity.ErrUnsupportedDriver, c.Store.Driver)
	}
	return nil
}

// DatabaseDriver returns the database/sql driver name for the store.
func (c *Config) DatabaseDriver() (string, error) {
	switch driver := strings.ToLower(strings.TrimSpace(c.Store.Driver)); driver {
	case DriverSQLite, "sqlite":
		return DriverSQLite, nil
	case DriverPostgres, "postgresql":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("%w: %q has no sql driver", entity.ErrUnsupportedDriver, c.Store.Driver)
	}
}

// DatabaseURL returns the connection string. For postgres the key is used as
// the password when the endpoint does not carry one.
func (c *Config) DatabaseURL() (string, error) {
	driver, err := c.DatabaseDriver()
	if err != nil {
		return "", err
	}
	endpoint := strings.TrimSpace(c.Store.Endpoint)
	if endpoint == "" {
		return "", fmt.Errorf("%w: store.endpoint", entity.ErrMissingCredentials)
	}
	if driver != DriverPostgres || c.Store.Key == "" {
		return endpoint, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse store.endpoint: %w", err)
	}
	if u.User == nil {
		return endpoint, nil
	}
	if _, ok := u.User.Password(); !ok {
		u.User = url.UserPassword(u.User.Username(), c.Store.Key)
	}
	return u.String(), nil
}

// Collection returns the named collection.
func (c *Config) Collection(name string) (entity.Collection, error) {
	key := strings.ToLower(name)
	col, ok := c.Collections[key]
	if !ok {
		return entity.Collection{}, fmt.Errorf("%w: %q", entity.ErrUnknownCollection, name)
	}
	book := col.Book
	if book == "" {
		book = key
	}
	return entity.Collection{
		Name:              key,
		Kind:              entity.ParseCollectionKind(col.Kind),
		Book:              book,
		Part:              col.Part,
		Repo:              col.Repo,
		Ref:               col.Ref,
		Path:              col.Path,
		Extension:         col.Extension,
		Language:          entity.ParseLanguage(col.Language),
		SecondaryRepo:     col.SecondaryRepo,
		SecondaryPath:     col.SecondaryPath,
		SecondaryLanguage: entity.ParseLanguage(col.SecondaryLanguage),
	}, nil
}

// CollectionNames lists the configured collections in sorted order.
func (c *Config) CollectionNames() []string {
	names := make([]string, 0, len(c.Collections))
	for name := range c.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
