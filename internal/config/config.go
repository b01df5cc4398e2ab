// Package config loads the catalog loader configuration.
//
// Configuration comes from a YAML file with environment overrides
// (cleanenv). A .env file in the working directory, if present, is loaded
// into the environment first. Secrets (API keys, object-store credentials)
// are read from the environment only.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
	"unicode/utf8"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"catalogetl/internal/probe"
)

// Config is the whole loader configuration.
type Config struct {
	Job       string          `yaml:"job" env:"CATALOG_JOB" env-default:"catalog_load"`
	Source    SourceConfig    `yaml:"source"`
	Storage   StorageConfig   `yaml:"storage"`
	Schema    SchemaConfig    `yaml:"schema"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// SourceConfig locates and parses the CSV.
type SourceConfig struct {
	// Path is a local file or s3://bucket/key.
	Path      string `yaml:"path" env:"CATALOG_CSV"`
	Delimiter string `yaml:"delimiter" env:"CATALOG_CSV_DELIMITER" env-default:","`

	// Object-store settings, used only for s3:// paths.
	Endpoint  string `yaml:"endpoint,omitempty" env:"CATALOG_S3_ENDPOINT"`
	Region    string `yaml:"region,omitempty" env:"CATALOG_S3_REGION"`
	Insecure  bool   `yaml:"insecure,omitempty" env:"CATALOG_S3_INSECURE"`
	AccessKey string `yaml:"-" env:"CATALOG_S3_ACCESS_KEY"`
	SecretKey string `yaml:"-" env:"CATALOG_S3_SECRET_KEY"`
}

// Comma returns the delimiter rune, ',' when unset.
func (s SourceConfig) Comma() rune {
	r, _ := utf8.DecodeRuneInString(s.Delimiter)
	if r == utf8.RuneError {
		return ','
	}
	return r
}

// StorageConfig selects the sink.
type StorageConfig struct {
	// Kind is postgres, sqlite, mssql, mysql or script.
	Kind string `yaml:"kind" env:"CATALOG_STORAGE" env-default:"sqlite"`
	DSN  string `yaml:"dsn" env:"CATALOG_DSN" env-default:"catalog.db"`
	// Dialect renders the script sink; ignored by database sinks.
	Dialect string `yaml:"dialect" env:"CATALOG_SCRIPT_DIALECT" env-default:"postgres"`
}

// SchemaConfig names the target tables and the columns to normalize.
// Column names may be given as CSV headers; Load sanitizes them.
type SchemaConfig struct {
	RawTable     string   `yaml:"raw_table" env-default:"rawdata"`
	CleanTable   string   `yaml:"clean_table" env-default:"clean_products"`
	SizeTable    string   `yaml:"size_table" env-default:"sizes"`
	EnumPrefix   string   `yaml:"enum_prefix" env-default:"enum_"`
	NaturalKey   string   `yaml:"natural_key" env:"CATALOG_NATURAL_KEY" env-default:"product_quality_colour_number"`
	Attributes   []string `yaml:"attributes" env:"CATALOG_ATTRIBUTES"`
	// CommaColumns are split on ',' instead of ';'. Unset means
	// DefaultCommaColumn.
	CommaColumns []string `yaml:"comma_columns,omitempty" env:"CATALOG_COMMA_COLUMNS"`
	SizeColumns  []string `yaml:"size_columns,omitempty" env:"CATALOG_SIZE_COLUMNS"`
	// Drop drops existing tables before creating them.
	Drop bool `yaml:"drop,omitempty" env:"CATALOG_DROP"`
}

// EmbeddingConfig selects the vocabulary embedding provider.
type EmbeddingConfig struct {
	// Provider is openai, hashing or none.
	Provider   string `yaml:"provider" env:"CATALOG_EMBEDDING_PROVIDER" env-default:"hashing"`
	BaseURL    string `yaml:"base_url,omitempty" env:"CATALOG_EMBEDDING_URL"`
	APIKey     string `yaml:"-" env:"CATALOG_EMBEDDING_API_KEY"`
	Model      string `yaml:"model,omitempty" env:"CATALOG_EMBEDDING_MODEL"`
	Dimensions int    `yaml:"dimensions" env:"CATALOG_EMBEDDING_DIMENSIONS" env-default:"384"`
	CacheSize  int    `yaml:"cache_size" env:"CATALOG_EMBEDDING_CACHE_SIZE" env-default:"10000"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"CATALOG_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"CATALOG_LOG_FORMAT" env-default:"json"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	// Backend is none or datadog.
	Backend    string        `yaml:"backend" env:"METRICS_BACKEND" env-default:"none"`
	Tags       string        `yaml:"tags" env:"METRICS_TAGS"`
	FlushEvery time.Duration `yaml:"flush_every" env:"METRICS_FLUSH_EVERY" env-default:"60s"`
}

// Load reads path (YAML) with environment overrides. An empty path reads
// the environment only. A missing .env file is not an error.
//
// Column names in the schema section are sanitized the same way CSV
// headers are, so config may name columns by their header text.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := &Config{}
	var err error
	if path == "" {
		err = cleanenv.ReadEnv(cfg)
	} else {
		err = cleanenv.ReadConfig(path, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// DefaultCommaColumn is the comma-split column used when comma_columns is
// not configured at all.
const DefaultCommaColumn = "product_type_attributes"

func (c *Config) normalize() {
	// nil means unset; an explicit empty list turns comma splitting off.
	if c.Schema.CommaColumns == nil {
		c.Schema.CommaColumns = []string{DefaultCommaColumn}
	}
	c.Schema.NaturalKey = probe.SanitizeIdentifier(c.Schema.NaturalKey)
	c.Schema.Attributes = sanitizeAll(c.Schema.Attributes)
	c.Schema.CommaColumns = sanitizeAll(c.Schema.CommaColumns)
	c.Schema.SizeColumns = sanitizeAll(c.Schema.SizeColumns)
}

func sanitizeAll(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if s := probe.SanitizeIdentifier(n); s != "" {
			out = append(out, s)
		}
	}
	return out
}
