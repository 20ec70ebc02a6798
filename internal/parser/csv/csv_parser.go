// Package csv reads delimited text exports into a dataset.Table.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/qpenko/database-importer/internal/config"
	"github.com/qpenko/database-importer/internal/dataset"
	"github.com/qpenko/database-importer/internal/parser/header"
)

// Options configures the CSV parser. The zero value reads comma separated
// input without a header row.
type Options struct {
	// HasHeader indicates whether the first row contains column headers.
	HasHeader bool

	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from text cells. Numeric and
	// date cells are always trimmed before conversion.
	TrimSpace bool

	// LazyQuotes lets a quote appear in an unquoted field.
	LazyQuotes bool

	// HeaderMap renames cleaned header text to column names.
	HeaderMap map[string]string

	// SnakeCaseHeaders lowercases headers and turns separators into '_'.
	SnakeCaseHeaders bool

	// NullValues lists cell texts read as null in addition to "".
	NullValues []string

	// Replace rewrites byte sequences before the reader sees them, e.g. to
	// repair a quoting error an exporting tool is known to make.
	Replace map[string]string
}

// OptionsFrom reads parser options from a job's free-form option bag.
// Recognised keys: has_header (default true), comma, trim_space, lazy_quotes,
// header_map, snake_case_headers, null_values, replace.
func OptionsFrom(o config.Options) Options {
	return Options{
		HasHeader:        o.Bool("has_header", true),
		Comma:            o.Rune("comma", ','),
		TrimSpace:        o.Bool("trim_space", false),
		LazyQuotes:       o.Bool("lazy_quotes", false),
		HeaderMap:        o.StringMap("header_map"),
		SnakeCaseHeaders: o.Bool("snake_case_headers", false),
		NullValues:       o.StringSlice("null_values"),
		Replace:          o.StringMap("replace"),
	}
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Parse reads every record from r. Column types are inferred per column by
// dataset.FromStrings. A record wider than the header is an error; shorter
// records are padded with nulls.
func (p *Parser) Parse(r io.Reader) (*dataset.Table, error) {
	r = p.rewrite(r)

	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = p.opt.LazyQuotes
	cr.FieldsPerRecord = -1

	var headers []string
	if p.opt.HasHeader {
		h, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv: read header: %w", dataset.ErrNoColumns)
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read header: %w", err)
		}
		headers = header.Normalize(h, header.Options{
			Map:       p.opt.HeaderMap,
			SnakeCase: p.opt.SnakeCaseHeaders,
		})
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		records = append(records, p.cells(rec))
	}

	// Without a header the widest record decides the column count.
	if !p.opt.HasHeader {
		width := 0
		for _, rec := range records {
			width = max(width, len(rec))
		}
		headers = make([]string, width)
		for i := range headers {
			headers[i] = header.Positional(i)
		}
	}

	tbl, err := dataset.FromStrings(headers, records)
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return tbl, nil
}

// cells applies TrimSpace and NullValues to one record in place.
func (p *Parser) cells(rec []string) []string {
	for i, v := range rec {
		if p.opt.TrimSpace {
			v = strings.TrimSpace(v)
		}
		if slices.Contains(p.opt.NullValues, v) {
			v = ""
		}
		rec[i] = v
	}
	return rec
}

// rewrite chains one streaming rewriter per Replace entry, longest pattern
// first so that overlapping patterns resolve the same way on every run.
func (p *Parser) rewrite(r io.Reader) io.Reader {
	if len(p.opt.Replace) == 0 {
		return r
	}
	pats := make([]string, 0, len(p.opt.Replace))
	for pat := range p.opt.Replace {
		if pat != "" {
			pats = append(pats, pat)
		}
	}
	sort.Slice(pats, func(i, j int) bool {
		if len(pats[i]) != len(pats[j]) {
			return len(pats[i]) > len(pats[j])
		}
		return pats[i] < pats[j]
	})
	for _, pat := range pats {
		r = newStreamingRewriter(r, []byte(pat), []byte(p.opt.Replace[pat]))
	}
	return r
}
