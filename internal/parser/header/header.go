// Package header cleans spreadsheet header cells into column names.
//
// Header cells coming out of CSV exports and workbooks carry noise that never
// matches a database column: a UTF-8 BOM on the first cell, zero-width
// characters, line breaks inside a wrapped cell and decomposed accents. Clean
// removes that noise while keeping the visible text (and its case) intact.
// SnakeCase goes further and produces a lowercase ASCII identifier.
package header

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Options controls Normalize.
type Options struct {
	// Map renames cleaned header text to a column name. Applied before
	// SnakeCase; mapped names are used verbatim.
	Map map[string]string

	// SnakeCase lowercases, strips accents and replaces separators with '_'.
	SnakeCase bool
}

// Normalize returns the column names for a raw header row. Blank cells get a
// positional name ("col_3"). Repeated names are kept as they are; rejecting
// them is up to the importer.
func Normalize(raw []string, opt Options) []string {
	out := make([]string, len(raw))
	for i, cell := range raw {
		c := Clean(cell)
		switch m, ok := opt.Map[c]; {
		case ok:
			out[i] = m
			continue
		case opt.SnakeCase:
			c = SnakeCase(c)
		}
		if c == "" {
			c = Positional(i)
		}
		out[i] = c
	}
	return out
}

// Positional is the name given to column i when its header is missing.
func Positional(i int) string {
	return fmt.Sprintf("col_%d", i)
}

// Clean drops format characters (BOM, zero-width space and joiners), composes
// the text to NFC and collapses whitespace runs to single spaces.
func Clean(s string) string {
	if s == "" {
		return s
	}
	t := transform.Chain(runes.Remove(runes.In(unicode.Cf)), norm.NFC)
	composed, _, err := transform.String(t, s)
	if err != nil {
		composed = s
	}
	return CollapseWhitespace(composed)
}

// CollapseWhitespace replaces consecutive whitespace characters with a single
// ASCII space and trims both ends.
func CollapseWhitespace(s string) string {
	if s == "" {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	seenSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !seenSpace {
				b.WriteByte(' ')
				seenSpace = true
			}
			continue
		}
		b.WriteRune(r)
		seenSpace = false
	}
	return strings.TrimSpace(b.String())
}

// SnakeCase converts header text into a lowercase ASCII identifier:
// accents are stripped, space, dash and dot become '_', anything else outside
// [a-z0-9_] is dropped. Returns "" when nothing is left.
func SnakeCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Decompose, remove nonspacing marks, recompose.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
