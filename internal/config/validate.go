package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/qpenko/database-importer/internal/dialect"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding to surface that does not block
	// execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Job.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "import.subset"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues holds at least one SeverityError.
func HasErrors(issues []Issue) bool {
	return slices.ContainsFunc(issues, func(i Issue) bool { return i.Severity == SeverityError })
}

// Known parser kinds and the extensions they are picked for. Kept here rather
// than imported so the parser packages can depend on config.
var (
	parserKinds  = []string{"csv", "tsv", "xlsx"}
	parserExts   = []string{".csv", ".txt", ".tsv", ".tab", ".xlsx", ".xlsm"}
	compressExts = []string{".gz", ".zst", ".xz"}
	metricsKinds = []string{MetricsNone, MetricsPrometheus, MetricsDatadog}
)

// ValidateJob performs static validation of a Job. It does not touch the
// database or the input file; problems that need either (unknown columns, an
// empty table) surface when the import runs.
func ValidateJob(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSource(j.Source, j.Parser)...)
	issues = append(issues, validateStorage(j.Storage)...)
	issues = append(issues, validateImport(j.Import)...)
	issues = append(issues, validateRuntime(j.Runtime)...)
	issues = append(issues, validateMetrics(j.Metrics)...)

	return issues
}

func validateSource(s Source, p Parser) []Issue {
	var issues []Issue

	if s.Kind != DefaultSourceKind {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unsupported source kind %q, use %q", s.Kind, DefaultSourceKind),
		})
	}
	path := strings.TrimSpace(s.File.Path)
	if path == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.file.path",
			Message:  "file source requires a non-empty path",
		})
	}

	if p.Kind != "" {
		if !slices.Contains(parserKinds, p.Kind) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.kind",
				Message:  fmt.Sprintf("unknown parser kind %q, use one of: %s", p.Kind, strings.Join(parserKinds, ", ")),
			})
		}
		return issues
	}

	name := strings.ToLower(path)
	if slices.Contains(compressExts, filepath.Ext(name)) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if !slices.Contains(parserExts, filepath.Ext(name)) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("cannot pick a parser for %q; set parser.kind", filepath.Base(path)),
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if s.Kind == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("storage.kind is empty; defaulting to %q", dialect.MSSQL),
		})
	} else if _, err := dialect.Lookup(dialect.Kind(s.Kind)); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  err.Error(),
		})
	}

	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.table",
			Message:  "storage.db.table must not be empty",
		})
	}
	if s.Kind == string(dialect.SQLite) && s.DB.Schema != "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.db.schema",
			Message:  "sqlite has no schemas; storage.db.schema only labels messages",
		})
	}

	return issues
}

func validateImport(im Import) []Issue {
	var issues []Issue

	if !im.Update && !im.Insert {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "import",
			Message:  "at least one action must be performed",
		})
	}
	if im.Insert {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "import.insert",
			Message:  "insert is not implemented; the run fails after staging and updating",
		})
	}

	for _, f := range []struct {
		path string
		cols []string
	}{{"import.join_on", im.JoinOn}, {"import.subset", im.Subset}} {
		if dup := repeated(f.cols); len(dup) > 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     f.path,
				Message:  fmt.Sprintf("repeated column(s) ignored: %s", strings.Join(dup, ", ")),
			})
		}
		for _, c := range f.cols {
			if strings.TrimSpace(c) == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     f.path,
					Message:  "column names must not be empty",
				})
				break
			}
		}
	}

	var overlap []string
	for _, c := range im.Subset {
		if slices.Contains(im.JoinOn, c) && !slices.Contains(overlap, c) {
			overlap = append(overlap, c)
		}
	}
	if len(overlap) > 0 {
		slices.Sort(overlap)
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "import.subset",
			Message:  fmt.Sprintf("subset cannot contain join on column(s): %s", strings.Join(overlap, ", ")),
		})
	}

	return issues
}

func validateRuntime(r Runtime) []Issue {
	if r.BatchSize < 0 {
		return []Issue{{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  fmt.Sprintf("batch_size=%d must not be negative", r.BatchSize),
		}}
	}
	return nil
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	backend := m.Backend
	if backend == "" {
		backend = MetricsNone
	}
	if !slices.Contains(metricsKinds, backend) {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q, use one of: %s", m.Backend, strings.Join(metricsKinds, ", ")),
		})
	}
	if backend == MetricsPrometheus && strings.TrimSpace(m.PushgatewayURL) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.pushgateway_url",
			Message:  "prometheus backend requires a pushgateway url",
		})
	}
	if backend == MetricsDatadog && strings.TrimSpace(m.DatadogAddr) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.datadog_addr",
			Message:  "datadog backend requires an agent address",
		})
	}
	return issues
}

// repeated returns the names that occur more than once, in first-seen order.
func repeated(cols []string) []string {
	var out []string
	seen := make(map[string]int, len(cols))
	for _, c := range cols {
		seen[c]++
		if seen[c] == 2 {
			out = append(out, c)
		}
	}
	return out
}
