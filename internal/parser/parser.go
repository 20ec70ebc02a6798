// Package parser turns the bytes of an input file into a dataset.Table.
package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/qpenko/database-importer/internal/config"
	"github.com/qpenko/database-importer/internal/dataset"
	"github.com/qpenko/database-importer/internal/parser/csv"
	"github.com/qpenko/database-importer/internal/parser/xlsx"
)

// Parser reads a whole input into a table.
type Parser interface {
	Parse(r io.Reader) (*dataset.Table, error)
}

// Parser kinds.
const (
	KindCSV  = "csv"
	KindTSV  = "tsv"
	KindXLSX = "xlsx"
)

// ErrUnsupportedFormat is returned for a parser kind or file extension
// nothing here can read.
var ErrUnsupportedFormat = errors.New("parser: unsupported format")

// Kinds lists the supported parser kinds.
func Kinds() []string { return []string{KindCSV, KindTSV, KindXLSX} }

// KindFromName picks the parser kind from a file name's extension. The name
// must already be stripped of any compression suffix.
func KindFromName(name string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt":
		return KindCSV, nil
	case ".tsv", ".tab":
		return KindTSV, nil
	case ".xlsx", ".xlsm":
		return KindXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// New builds the parser for kind. The option bag is interpreted by the
// selected implementation; index_column is common to all of them and turns a
// column into the table's row label.
func New(kind string, opts config.Options) (Parser, error) {
	var p Parser
	switch kind {
	case KindCSV:
		p = csv.NewParser(csv.OptionsFrom(opts))
	case KindTSV:
		o := csv.OptionsFrom(opts)
		if _, ok := opts["comma"]; !ok {
			o.Comma = '\t'
		}
		p = csv.NewParser(o)
	case KindXLSX:
		p = xlsx.NewParser(xlsx.OptionsFrom(opts))
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnsupportedFormat, kind)
	}

	if col := opts.String("index_column", ""); col != "" {
		p = indexed{Parser: p, column: col}
	}
	return p, nil
}

type indexed struct {
	Parser
	column string
}

func (p indexed) Parse(r io.Reader) (*dataset.Table, error) {
	tbl, err := p.Parser.Parse(r)
	if err != nil {
		return nil, err
	}
	out, err := tbl.SetIndex(p.column)
	if err != nil {
		return nil, fmt.Errorf("parser: index_column: %w", err)
	}
	return out, nil
}
