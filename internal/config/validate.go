package config

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"go.uber.org/zap/zapcore"

	"catalogetl/internal/dialect"
	"catalogetl/internal/probe"
	"catalogetl/internal/sqlgen"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Path is the dotted config path.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// StorageKinds are the sink kinds the loader ships with.
var StorageKinds = []string{"mssql", "mysql", "postgres", "script", "sqlite"}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks a loaded config. Errors make the run invalid; warnings
// describe settings that are accepted but probably unintended.
func Validate(c Config) []Issue {
	var out []Issue
	add := func(sev Severity, path, format string, a ...any) {
		out = append(out, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	// source
	if c.Source.Path == "" {
		add(SeverityError, "source.path", "required (or set CATALOG_CSV)")
	}
	if utf8.RuneCountInString(c.Source.Delimiter) != 1 {
		add(SeverityError, "source.delimiter", "must be a single character, got %q", c.Source.Delimiter)
	}

	// storage
	if !slices.Contains(StorageKinds, c.Storage.Kind) {
		add(SeverityError, "storage.kind", "unknown kind %q (want one of %v)", c.Storage.Kind, StorageKinds)
	}
	if c.Storage.DSN == "" {
		add(SeverityError, "storage.dsn", "required (or set CATALOG_DSN)")
	}
	if c.Storage.Kind == "script" {
		if _, err := dialect.ForName(c.Storage.Dialect); err != nil {
			add(SeverityError, "storage.dialect", "%v", err)
		}
	}

	// schema
	s := c.Schema
	tables := map[string]string{
		"schema.raw_table":   s.RawTable,
		"schema.clean_table": s.CleanTable,
		"schema.size_table":  s.SizeTable,
	}
	seen := map[string]string{}
	for _, path := range []string{"schema.raw_table", "schema.clean_table", "schema.size_table"} {
		name := tables[path]
		if name == "" || probe.SanitizeIdentifier(name) != name {
			add(SeverityError, path, "%q is not a valid identifier", name)
			continue
		}
		if prev, ok := seen[name]; ok {
			add(SeverityError, path, "%q is also used by %s", name, prev)
		}
		seen[name] = path
	}
	if s.EnumPrefix != "" && probe.SanitizeIdentifier(s.EnumPrefix) != s.EnumPrefix {
		add(SeverityError, "schema.enum_prefix", "%q is not a valid identifier prefix", s.EnumPrefix)
	}
	if s.NaturalKey == "" {
		add(SeverityError, "schema.natural_key", "required")
	}
	if len(s.Attributes) == 0 {
		add(SeverityWarning, "schema.attributes", "empty; only size columns will be normalized")
	}
	attrSeen := map[string]bool{}
	for i, a := range s.Attributes {
		path := fmt.Sprintf("schema.attributes[%d]", i)
		switch {
		case a == sqlgen.IDColumn:
			add(SeverityError, path, "%q is reserved for surrogate keys", a)
		case a == s.NaturalKey:
			add(SeverityWarning, path, "%q is the natural key and is not normalized", a)
		case attrSeen[a]:
			add(SeverityWarning, path, "%q is listed more than once", a)
		}
		attrSeen[a] = true
	}
	for i, col := range s.CommaColumns {
		if !attrSeen[col] && col != DefaultCommaColumn {
			add(SeverityWarning, fmt.Sprintf("schema.comma_columns[%d]", i), "%q is not an attribute", col)
		}
	}

	// embedding
	e := c.Embedding
	switch e.Provider {
	case "hashing", "none":
	case "openai":
		if e.BaseURL == "" {
			add(SeverityError, "embedding.base_url", "required for provider openai")
		}
	default:
		add(SeverityError, "embedding.provider", "unknown provider %q (want openai, hashing or none)", e.Provider)
	}
	if e.Dimensions <= 0 {
		add(SeverityError, "embedding.dimensions", "must be positive, got %d", e.Dimensions)
	}
	if e.CacheSize < 0 {
		add(SeverityError, "embedding.cache_size", "must not be negative, got %d", e.CacheSize)
	}

	// logging
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		add(SeverityError, "logging.level", "unknown level %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		add(SeverityError, "logging.format", "unknown format %q (want json or console)", c.Logging.Format)
	}

	// metrics
	switch c.Metrics.Backend {
	case "", "none", "datadog":
	default:
		add(SeverityError, "metrics.backend", "unknown backend %q (want none or datadog)", c.Metrics.Backend)
	}

	return out
}
