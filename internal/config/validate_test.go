package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validJob() Job {
	return Job{
		Job:    "groceries",
		Source: Source{Kind: "file", File: SourceFile{Path: "in/prices.csv"}},
		Storage: Storage{
			Kind: "mssql",
			DB:   DBConfig{DSN: "sqlserver://sa@localhost?database=shop", Table: "groceries"},
		},
		Import:  Import{JoinOn: []string{"id"}, Subset: []string{"price"}, Update: true},
		Runtime: Runtime{BatchSize: DefaultBatchSize},
		Metrics: Metrics{Backend: MetricsNone},
	}
}

func TestValidateJob_ValidMinimal(t *testing.T) {
	t.Parallel()

	if issues := ValidateJob(validJob()); len(issues) != 0 {
		t.Fatalf("expected no issues; got %+v", issues)
	}
}

func TestValidateJob_Issues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(j *Job)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"missing job", func(j *Job) { j.Job = " " }, SeverityError, "job", "job must not be empty"},
		{"source kind", func(j *Job) { j.Source.Kind = "http" }, SeverityError, "source.kind", `unsupported source kind "http"`},
		{"source path", func(j *Job) { j.Source.File.Path = "" }, SeverityError, "source.file.path", "non-empty path"},
		{"unknown parser", func(j *Job) { j.Parser.Kind = "xml" }, SeverityError, "parser.kind", `unknown parser kind "xml"`},
		{"no parser for extension", func(j *Job) { j.Source.File.Path = "in/prices.ods" }, SeverityError, "parser.kind", `cannot pick a parser for "prices.ods"`},
		{"default dialect", func(j *Job) { j.Storage.Kind = "" }, SeverityWarning, "storage.kind", `defaulting to "mssql"`},
		{"unknown dialect", func(j *Job) { j.Storage.Kind = "mysql" }, SeverityError, "storage.kind", "unsupported dialect, use available: 'mssql', 'postgres', 'sqlite'"},
		{"missing dsn", func(j *Job) { j.Storage.DB.DSN = "" }, SeverityError, "storage.db.dsn", "must not be empty"},
		{"missing table", func(j *Job) { j.Storage.DB.Table = "" }, SeverityError, "storage.db.table", "must not be empty"},
		{"sqlite schema", func(j *Job) { j.Storage.Kind = "sqlite"; j.Storage.DB.Schema = "main" }, SeverityWarning, "storage.db.schema", "sqlite has no schemas"},
		{"no action", func(j *Job) { j.Import.Update = false }, SeverityError, "import", "at least one action must be performed"},
		{"insert", func(j *Job) { j.Import.Insert = true }, SeverityWarning, "import.insert", "not implemented"},
		{"repeated join", func(j *Job) { j.Import.JoinOn = []string{"id", "id"} }, SeverityWarning, "import.join_on", "repeated column(s) ignored: id"},
		{"blank subset name", func(j *Job) { j.Import.Subset = []string{"price", ""} }, SeverityError, "import.subset", "must not be empty"},
		{"overlap", func(j *Job) { j.Import.Subset = []string{"sku", "id", "price", "sku"}; j.Import.JoinOn = []string{"sku", "id"} }, SeverityError, "import.subset", "cannot contain join on column(s): id, sku"},
		{"negative batch", func(j *Job) { j.Runtime.BatchSize = -1 }, SeverityError, "runtime.batch_size", "must not be negative"},
		{"unknown metrics", func(j *Job) { j.Metrics.Backend = "statsd" }, SeverityError, "metrics.backend", `unknown metrics backend "statsd"`},
		{"pushgateway url", func(j *Job) { j.Metrics.Backend = MetricsPrometheus }, SeverityError, "metrics.pushgateway_url", "requires a pushgateway url"},
		{"datadog addr", func(j *Job) { j.Metrics.Backend = MetricsDatadog }, SeverityError, "metrics.datadog_addr", "requires an agent address"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			j := validJob()
			tc.mutate(&j)
			issues := ValidateJob(j)
			if !hasIssue(t, issues, tc.sev, tc.path, tc.msg) {
				t.Fatalf("expected %s at %s containing %q; got %+v", tc.sev, tc.path, tc.msg, issues)
			}
		})
	}
}

func TestValidateJob_CompressedInputPicksParser(t *testing.T) {
	t.Parallel()

	j := validJob()
	j.Source.File.Path = "in/Prices.XLSX.zst"
	if issues := ValidateJob(j); len(issues) != 0 {
		t.Fatalf("expected no issues; got %+v", issues)
	}
}

func TestHasErrors(t *testing.T) {
	t.Parallel()

	warn := Issue{Severity: SeverityWarning, Path: "import.insert", Message: "m"}
	if HasErrors([]Issue{warn}) {
		t.Fatal("warnings alone reported as errors")
	}
	if !HasErrors([]Issue{warn, {Severity: SeverityError, Path: "job", Message: "m"}}) {
		t.Fatal("error not reported")
	}
	if got := warn.Error(); got != "warning at import.insert: m" {
		t.Fatalf("Error()=%q", got)
	}
}
