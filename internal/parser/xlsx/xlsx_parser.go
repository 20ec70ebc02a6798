// Package xlsx reads one worksheet of an Excel workbook into a dataset.Table.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/qpenko/database-importer/internal/config"
	"github.com/qpenko/database-importer/internal/dataset"
	"github.com/qpenko/database-importer/internal/parser/header"
)

// ErrNoSheets is returned for a workbook without worksheets.
var ErrNoSheets = errors.New("xlsx: no sheets found in workbook")

// SheetNotFoundError reports a requested sheet the workbook does not have.
type SheetNotFoundError struct {
	Sheet     string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("xlsx: sheet %q not found, available: %s", e.Sheet, strings.Join(e.Available, ", "))
}

// Options configures the workbook parser.
type Options struct {
	// Sheet names the worksheet to read. Empty selects the first one.
	Sheet string

	// HasHeader indicates whether the first row holds column headers.
	HasHeader bool

	// HeaderMap renames cleaned header text to column names.
	HeaderMap map[string]string

	// SnakeCaseHeaders lowercases headers and turns separators into '_'.
	SnakeCaseHeaders bool

	// RawValues reads the stored cell values instead of their displayed,
	// number-formatted text. Dates then come through as serial numbers.
	RawValues bool
}

// OptionsFrom reads parser options from a job's free-form option bag.
// Recognised keys: sheet, has_header (default true), header_map,
// snake_case_headers, raw_values.
func OptionsFrom(o config.Options) Options {
	return Options{
		Sheet:            o.String("sheet", ""),
		HasHeader:        o.Bool("has_header", true),
		HeaderMap:        o.StringMap("header_map"),
		SnakeCaseHeaders: o.Bool("snake_case_headers", false),
		RawValues:        o.Bool("raw_values", false),
	}
}

// Parser parses workbooks according to Options.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Sheets lists the worksheet names of the workbook in r, in tab order.
func Sheets(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return f.GetSheetList(), nil
}

// Parse reads the selected sheet. Rows without any non-blank cell are
// skipped; trailing blank cells excel leaves out are read as nulls.
func (p *Parser) Parse(r io.Reader) (*dataset.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheet, err := p.pick(f.GetSheetList())
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: p.opt.RawValues})
	if err != nil {
		return nil, fmt.Errorf("xlsx: read sheet %s: %w", sheet, err)
	}

	var records [][]string
	width := 0
	for _, row := range rows {
		if blank(row) {
			continue
		}
		records = append(records, row)
		width = max(width, len(row))
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("xlsx: sheet %s: %w", sheet, dataset.ErrNoColumns)
	}

	var raw []string
	if p.opt.HasHeader {
		raw, records = records[0], records[1:]
	}
	// A header shorter than the data gets positional names for the rest.
	raw = append(raw, make([]string, width-len(raw))...)
	headers := header.Normalize(raw, header.Options{
		Map:       p.opt.HeaderMap,
		SnakeCase: p.opt.SnakeCaseHeaders,
	})

	tbl, err := dataset.FromStrings(headers, records)
	if err != nil {
		return nil, fmt.Errorf("xlsx: sheet %s: %w", sheet, err)
	}
	return tbl, nil
}

func (p *Parser) pick(sheets []string) (string, error) {
	if len(sheets) == 0 {
		return "", ErrNoSheets
	}
	if p.opt.Sheet == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == p.opt.Sheet {
			return s, nil
		}
	}
	return "", &SheetNotFoundError{Sheet: p.opt.Sheet, Available: sheets}
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
