// Command probe bootstraps a loader configuration from a catalog CSV.
//
// It reads the whole file (local path or s3://bucket/key), profiles every
// sanitized column, and suggests a natural key and the attribute columns to
// normalize into vocabularies. Suggestions are classified one:one or
// many:many the same way the loader does after merging on the key.
//
// Output modes
//
//   - Default mode: prints a YAML config for cmd/etl to stdout.
//   - Report mode (-report): prints the uniqueness report and the
//     classification instead.
//
// Object-store credentials come from CATALOG_S3_ACCESS_KEY and
// CATALOG_S3_SECRET_KEY, as for cmd/etl.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"catalogetl/internal/config"
	csvparser "catalogetl/internal/parser/csv"
	"catalogetl/internal/probe"
	"catalogetl/internal/source"
	"catalogetl/internal/transformer"
	"catalogetl/pkg/records"
)

// bootstrap is the part of config.Config the probe can fill in.
type bootstrap struct {
	Job       string                 `yaml:"job"`
	Source    config.SourceConfig    `yaml:"source"`
	Storage   config.StorageConfig   `yaml:"storage"`
	Schema    config.SchemaConfig    `yaml:"schema"`
	Embedding config.EmbeddingConfig `yaml:"embedding"`
}

func main() {
	var (
		flagCSV        = flag.String("csv", "", "CSV path or s3://bucket/key")
		flagDelimiter  = flag.String("delimiter", ",", "CSV field delimiter")
		flagKey        = flag.String("key", "", "natural key column; suggested when empty")
		flagAttributes = flag.String("attributes", "", "comma-separated attribute columns; suggested when empty")
		flagJob        = flag.String("job", "catalog_load", "job name in the emitted config")
		flagBackend    = flag.String("backend", "sqlite", "storage kind in the emitted config: "+strings.Join(config.StorageKinds, "|"))
		flagDSN        = flag.String("dsn", "", "storage DSN in the emitted config (default: CATALOG_DSN or catalog.db)")
		flagReport     = flag.Bool("report", false, "print the uniqueness report instead of a config")
	)
	flag.Parse()

	if strings.TrimSpace(*flagCSV) == "" {
		fmt.Fprintln(os.Stderr, "missing -csv")
		flag.Usage()
		os.Exit(2)
	}

	// Environment-only config supplies defaults and object-store secrets.
	env, err := config.Load("")
	if err != nil {
		fatalf("%v", err)
	}
	env.Job = *flagJob
	env.Source.Path = *flagCSV
	env.Source.Delimiter = *flagDelimiter
	env.Storage.Kind = *flagBackend
	if *flagDSN != "" {
		env.Storage.DSN = *flagDSN
	}

	ctx := context.Background()
	t, err := readTable(ctx, env.Source)
	if err != nil {
		fatalf("probe: %v", err)
	}

	stats := probe.Uniqueness(t)
	key := probe.SanitizeIdentifier(*flagKey)
	if key == "" {
		key = probe.SuggestKey(stats)
	}
	if key == "" || !t.Has(key) {
		fatalf("probe: no usable natural key (got %q); pass -key", key)
	}

	sizeCols := transformer.DetectSizeColumns(t, key)
	attrs := splitList(*flagAttributes)
	if len(attrs) == 0 {
		attrs = probe.SuggestAttributes(stats, key, sizeCols)
	}

	merged, err := transformer.Merge(t, transformer.MergeOptions{
		NaturalKey:   key,
		SizeColumns:  sizeCols,
		CommaColumns: env.Schema.CommaColumns,
	})
	if err != nil {
		fatalf("probe: merge: %v", err)
	}
	cls := probe.ClassifyRelationships(merged.Table, append(append([]string(nil), attrs...), sizeCols...), transformer.CanonicalSeparator)

	if *flagReport {
		fmt.Println(probe.FormatUniquenessReport(stats))
		fmt.Printf("natural key:\t%s\n", key)
		fmt.Printf("products:\t%d (duplicates=%d invalid_keys=%d)\n", merged.Table.Len(), merged.Duplicates, merged.InvalidKeys)
		fmt.Printf("size columns:\t%s\n", strings.Join(sizeCols, ", "))
		fmt.Printf("one:one:\t%s\n", strings.Join(cls.OneToOne, ", "))
		fmt.Printf("many:many:\t%s\n", strings.Join(cls.ManyToMany, ", "))
		return
	}

	schema := env.Schema
	schema.NaturalKey = key
	schema.Attributes = attrs
	schema.SizeColumns = sizeCols

	out, err := yaml.Marshal(bootstrap{
		Job:       env.Job,
		Source:    env.Source,
		Storage:   env.Storage,
		Schema:    schema,
		Embedding: env.Embedding,
	})
	if err != nil {
		fatalf("probe: encode config: %v", err)
	}
	fmt.Printf("# one:one: %s\n# many:many: %s\n", strings.Join(cls.OneToOne, ", "), strings.Join(cls.ManyToMany, ", "))
	os.Stdout.Write(out)
}

func readTable(ctx context.Context, cfg config.SourceConfig) (*records.Table, error) {
	rc, err := source.Open(ctx, source.Config{
		Path:      cfg.Path,
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Secure:    !cfg.Insecure,
	})
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	res, err := csvparser.ReadTable(ctx, rc, csvparser.Options{
		Comma:       cfg.Comma(),
		NameColumns: probe.SanitizeColumns,
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cfg.Path, err)
	}
	return res.Table, nil
}

// splitList splits a comma-separated flag into sanitized column names.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if n := probe.SanitizeIdentifier(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
