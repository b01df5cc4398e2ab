package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
job: nightly
source:
  path: ./products.csv
  delimiter: ";"
storage:
  kind: sqlite
  dsn: /tmp/catalog.db
schema:
  natural_key: Product Quality Colour Number
  attributes: [Product Type, Colour, " Segments "]
  comma_columns: [Product Type]
embedding:
  provider: none
metrics:
  flush_every: 5s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_YAMLAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "nightly", cfg.Job)
	assert.Equal(t, ';', cfg.Source.Comma())
	assert.Equal(t, "sqlite", cfg.Storage.Kind)
	assert.Equal(t, "/tmp/catalog.db", cfg.Storage.DSN)

	assert.Equal(t, "product_quality_colour_number", cfg.Schema.NaturalKey)
	assert.Equal(t, []string{"product_type", "colour", "segments"}, cfg.Schema.Attributes)
	assert.Equal(t, []string{"product_type"}, cfg.Schema.CommaColumns)
	assert.Nil(t, cfg.Schema.SizeColumns)

	// defaults
	assert.Equal(t, "rawdata", cfg.Schema.RawTable)
	assert.Equal(t, "clean_products", cfg.Schema.CleanTable)
	assert.Equal(t, "sizes", cfg.Schema.SizeTable)
	assert.Equal(t, "enum_", cfg.Schema.EnumPrefix)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, 10000, cfg.Embedding.CacheSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 5*time.Second, cfg.Metrics.FlushEvery)

	assert.Empty(t, Validate(*cfg))
}

func TestLoad_EnvOverridesAndSecrets(t *testing.T) {
	t.Setenv("CATALOG_DSN", "file:override.db")
	t.Setenv("CATALOG_EMBEDDING_API_KEY", "sk-test")
	t.Setenv("CATALOG_S3_ACCESS_KEY", "ak")
	t.Setenv("CATALOG_S3_SECRET_KEY", "sk")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "file:override.db", cfg.Storage.DSN)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "ak", cfg.Source.AccessKey)
	assert.Equal(t, "sk", cfg.Source.SecretKey)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("CATALOG_CSV", "s3://catalog/products.csv")
	t.Setenv("CATALOG_ATTRIBUTES", "Colour,Range")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "s3://catalog/products.csv", cfg.Source.Path)
	assert.Equal(t, []string{"colour", "range"}, cfg.Schema.Attributes)
	assert.Equal(t, "hashing", cfg.Embedding.Provider)
}

func TestLoad_CommaColumnsDefault(t *testing.T) {
	const body = `
source:
  path: ./products.csv
schema:
  attributes: [Product type attributes, Colour]
%s`

	tests := []struct {
		name  string
		extra string
		want  []string
	}{
		{"unset_uses_default", "", []string{"product_type_attributes"}},
		{"explicit_list", "  comma_columns: [Segments]\n", []string{"segments"}},
		{"explicit_empty_disables", "  comma_columns: []\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, fmt.Sprintf(body, tt.extra)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Schema.CommaColumns)
		})
	}
}

func TestValidate_DefaultCommaColumnNeedNotBeAttribute(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.Schema.CommaColumns = []string{DefaultCommaColumn}
	assert.Empty(t, Validate(c))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestComma_Default(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ',', SourceConfig{}.Comma())
	assert.Equal(t, '\t', SourceConfig{Delimiter: "\t"}.Comma())
}

func validConfig() Config {
	return Config{
		Source:  SourceConfig{Path: "p.csv", Delimiter: ","},
		Storage: StorageConfig{Kind: "postgres", DSN: "postgres://localhost/catalog", Dialect: "postgres"},
		Schema: SchemaConfig{
			RawTable:   "rawdata",
			CleanTable: "clean_products",
			SizeTable:  "sizes",
			EnumPrefix: "enum_",
			NaturalKey: "sku",
			Attributes: []string{"colour", "range"},
		},
		Embedding: EmbeddingConfig{Provider: "hashing", Dimensions: 384},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Metrics:   MetricsConfig{Backend: "none"},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(c *Config)
		wantPath string
		wantSev  Severity
	}{
		{"missing_path", func(c *Config) { c.Source.Path = "" }, "source.path", SeverityError},
		{"multi_char_delimiter", func(c *Config) { c.Source.Delimiter = ";;" }, "source.delimiter", SeverityError},
		{"unknown_storage", func(c *Config) { c.Storage.Kind = "oracle" }, "storage.kind", SeverityError},
		{"missing_dsn", func(c *Config) { c.Storage.DSN = "" }, "storage.dsn", SeverityError},
		{"script_dialect", func(c *Config) { c.Storage.Kind = "script"; c.Storage.Dialect = "db2" }, "storage.dialect", SeverityError},
		{"bad_table", func(c *Config) { c.Schema.RawTable = "Raw Data" }, "schema.raw_table", SeverityError},
		{"same_table", func(c *Config) { c.Schema.SizeTable = "rawdata" }, "schema.size_table", SeverityError},
		{"bad_prefix", func(c *Config) { c.Schema.EnumPrefix = "enum-" }, "schema.enum_prefix", SeverityError},
		{"missing_key", func(c *Config) { c.Schema.NaturalKey = "" }, "schema.natural_key", SeverityError},
		{"no_attributes", func(c *Config) { c.Schema.Attributes = nil }, "schema.attributes", SeverityWarning},
		{"reserved_attr", func(c *Config) { c.Schema.Attributes = []string{"id"} }, "schema.attributes[0]", SeverityError},
		{"key_attr", func(c *Config) { c.Schema.Attributes = []string{"colour", "sku"} }, "schema.attributes[1]", SeverityWarning},
		{"dup_attr", func(c *Config) { c.Schema.Attributes = []string{"colour", "colour"} }, "schema.attributes[1]", SeverityWarning},
		{"comma_not_attr", func(c *Config) { c.Schema.CommaColumns = []string{"segments"} }, "schema.comma_columns[0]", SeverityWarning},
		{"openai_no_url", func(c *Config) { c.Embedding.Provider = "openai" }, "embedding.base_url", SeverityError},
		{"bad_provider", func(c *Config) { c.Embedding.Provider = "bert" }, "embedding.provider", SeverityError},
		{"bad_dims", func(c *Config) { c.Embedding.Dimensions = 0 }, "embedding.dimensions", SeverityError},
		{"bad_cache", func(c *Config) { c.Embedding.CacheSize = -1 }, "embedding.cache_size", SeverityError},
		{"bad_level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level", SeverityError},
		{"bad_format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format", SeverityError},
		{"bad_metrics", func(c *Config) { c.Metrics.Backend = "statsd" }, "metrics.backend", SeverityError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validConfig()
			tt.mutate(&c)
			issues := Validate(c)
			require.Len(t, issues, 1, "%+v", issues)
			assert.Equal(t, tt.wantPath, issues[0].Path)
			assert.Equal(t, tt.wantSev, issues[0].Severity)
			assert.Equal(t, tt.wantSev == SeverityError, HasErrors(issues))
		})
	}
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Validate(validConfig()))
}
