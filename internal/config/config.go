// Package config defines the import-job configuration model.
//
// A job names the input file, how to parse it, the destination table and the
// reconciliation to perform. It is loaded from a YAML (or JSON) file and can be
// overridden from the environment and command-line flags; see Load.
//
// Example (trimmed):
//
//	job: groceries
//	source:  { kind: file, file: { path: in/prices.xlsx.gz } }
//	parser:  { kind: xlsx, options: { sheet: Prices, index_column: id } }
//	storage: { kind: mssql, db: { dsn: "sqlserver://...", schema: dbo, table: groceries } }
//	import:  { join_on: [id], subset: [price], update: true }
//	runtime: { batch_size: 5000 }
//	metrics: { backend: prometheus, pushgateway_url: "http://pushgateway:9091" }
package config

import (
	"strconv"
	"strings"
)

// Defaults applied before any file, environment or flag value.
const (
	DefaultJob         = "dbimport"
	DefaultSourceKind  = "file"
	DefaultBatchSize   = 5000
	DefaultDatadogAddr = "127.0.0.1:8125"
)

// Metrics backends.
const (
	MetricsNone       = "none"
	MetricsPrometheus = "prometheus"
	MetricsDatadog    = "datadog"
)

// Job describes one import. It is the top-level object of a job file.
type Job struct {
	// Job labels metrics and log lines of this run.
	Job string `koanf:"job"`

	Source  Source  `koanf:"source"`
	Parser  Parser  `koanf:"parser"`
	Storage Storage `koanf:"storage"`
	Import  Import  `koanf:"import"`
	Runtime Runtime `koanf:"runtime"`
	Metrics Metrics `koanf:"metrics"`
}

// Source identifies where the input comes from.
type Source struct {
	// Kind selects the source implementation. Current value: "file".
	Kind string     `koanf:"kind"`
	File SourceFile `koanf:"file"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local path to the input. A .gz, .zst or .xz suffix is
	// decompressed transparently.
	Path string `koanf:"path"`
}

// Parser selects how the input is turned into a table.
type Parser struct {
	// Kind is "csv", "tsv" or "xlsx". Empty picks it from the file extension.
	Kind string `koanf:"kind"`

	// Options is interpreted by the parser implementation. Keys shared by all
	// of them: has_header, header_map, snake_case_headers, index_column.
	Options Options `koanf:"options"`
}

// Storage selects the destination database and table.
type Storage struct {
	// Kind is the SQL dialect: "mssql", "postgres" or "sqlite". Empty means
	// mssql.
	Kind string   `koanf:"kind"`
	DB   DBConfig `koanf:"db"`
}

// DBConfig configures the destination connection and table.
type DBConfig struct {
	DSN string `koanf:"dsn"`

	// Schema defaults per dialect: dbo on mssql, public on postgres.
	Schema string `koanf:"schema"`
	Table  string `koanf:"table"`
}

// Import selects the reconciliation.
type Import struct {
	// JoinOn lists the columns rows are matched on. Empty means the table's
	// primary key columns present in the input.
	JoinOn []string `koanf:"join_on"`

	// Subset lists the columns to write. Empty means every input column that
	// is not a join column.
	Subset []string `koanf:"subset"`

	Update bool `koanf:"update"`
	Insert bool `koanf:"insert"`
}

// Runtime tunes loading.
type Runtime struct {
	// BatchSize is the number of rows per staged batch.
	BatchSize int `koanf:"batch_size"`
}

// Metrics selects where run metrics go.
type Metrics struct {
	Backend        string `koanf:"backend"`
	PushgatewayURL string `koanf:"pushgateway_url"`
	DatadogAddr    string `koanf:"datadog_addr"`
}

// Options is a free-form option bag with typed getters. Getters return def
// when a key is absent or holds a value that cannot be read as the requested
// type. Strings are parsed, since values coming from the environment are
// always text.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. YAML decodes integers as int,
// JSON numbers arrive as float64.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. A literal `\t` selects a tab.
func (o Options) Rune(key string, def rune) rune {
	s, ok := o[key].(string)
	if !ok || s == "" {
		return def
	}
	if s == `\t` {
		return '\t'
	}
	return []rune(s)[0]
}

// StringMap returns a map[string]string for key when the value is an object.
// Non-string values are ignored. Returns an empty map when the key is missing.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	switch m := o[key].(type) {
	case map[string]any:
		for k, vv := range m {
			if s, ok := vv.(string); ok {
				res[k] = s
			}
		}
	case map[string]string:
		for k, s := range m {
			res[k] = s
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is a list of strings.
// A comma separated string is split. Returns nil when the key is missing.
func (o Options) StringSlice(key string) []string {
	switch vv := o[key].(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return vv
	case string:
		parts := strings.Split(vv, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return nil
}

// Any returns the raw value for key.
func (o Options) Any(key string) any {
	return o[key]
}
