package importer

import (
	"errors"
	"slices"
	"strings"
)

// ErrNotImplemented is returned by Run when inserting new rows is requested.
var ErrNotImplemented = errors.New("not implemented")

// ConfigError reports an unusable import configuration: an empty dataset, an
// unknown dialect, bad join or subset columns, or no action requested.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// IntegrityError reports data that cannot be staged: duplicated column names
// or duplicated join key values.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string { return e.Msg }

// plural returns "s" when n calls for the plural form.
func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}

// quoteList renders names as 'a', 'b' in the given order.
func quoteList(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = "'" + n + "'"
	}
	return strings.Join(q, ", ")
}

// sortedSet returns the distinct names, sorted.
func sortedSet(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return slices.Compact(out)
}

// unique drops repeated names, keeping the first occurrence.
func unique(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

// missing returns the sorted names in want that are not in have.
func missing(want, have []string) []string {
	var out []string
	for _, n := range want {
		if !slices.Contains(have, n) {
			out = append(out, n)
		}
	}
	return sortedSet(out)
}

// common returns the sorted names present in both a and b.
func common(a, b []string) []string {
	var out []string
	for _, n := range a {
		if slices.Contains(b, n) {
			out = append(out, n)
		}
	}
	return sortedSet(out)
}
