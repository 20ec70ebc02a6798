package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: DBIMPORT_STORAGE__DB__DSN sets storage.db.dsn.
const EnvPrefix = "DBIMPORT_"

// FlagKeys maps command-line flag names to the job keys they override.
// Flags not listed here (config, verbose) are not part of the job.
var FlagKeys = map[string]string{
	"job":          "job",
	"file":         "source.file.path",
	"parser":       "parser.kind",
	"sheet":        "parser.options.sheet",
	"index-column": "parser.options.index_column",
	"dialect":      "storage.kind",
	"dsn":          "storage.db.dsn",
	"schema":       "storage.db.schema",
	"table":        "storage.db.table",
	"join-on":      "import.join_on",
	"subset":       "import.subset",
	"update":       "import.update",
	"insert":       "import.insert",
	"batch-size":   "runtime.batch_size",
	"metrics":      "metrics.backend",
	"pushgateway":  "metrics.pushgateway_url",
	"datadog-addr": "metrics.datadog_addr",
}

func defaults() map[string]any {
	return map[string]any{
		"job":                  DefaultJob,
		"source.kind":          DefaultSourceKind,
		"import.update":        true,
		"import.insert":        false,
		"runtime.batch_size":   DefaultBatchSize,
		"metrics.backend":      MetricsNone,
		"metrics.datadog_addr": DefaultDatadogAddr,
	}
}

// Load builds a Job from, lowest precedence first: defaults, the job file at
// path (skipped when empty), DBIMPORT_* environment variables and the flags
// in flags that were explicitly set.
func Load(path string, flags *pflag.FlagSet) (*Job, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("config: load flags: %w", err)
		}
	}

	var job Job
	if err := k.Unmarshal("", &job); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if job.Parser.Options == nil {
		job.Parser.Options = Options{}
	}
	return &job, nil
}

// envValue turns DBIMPORT_IMPORT__JOIN_ON into import.join_on. List keys
// take a comma separated value.
func envValue(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	switch key {
	case "import.join_on", "import.subset":
		return key, Options{"v": value}.StringSlice("v")
	}
	return key, value
}
