package dataset

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Dtype names follow the spreadsheet/dataframe vocabulary the column grid and
// importer.TranslateDtype understand.
const (
	DtypeObject   = "object"
	DtypeInt64    = "int64"
	DtypeFloat64  = "float64"
	DtypeBool     = "bool"
	DtypeDatetime = "datetime64[ns]"
)

// inferDtype derives the dtype of column j from its non-null Go values.
func inferDtype(rows [][]any, j int) string {
	var ints, floats, bools, times, others int
	for _, row := range rows {
		v := row[j]
		if IsNull(v) {
			continue
		}
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			ints++
		case float32, float64:
			floats++
		case bool:
			bools++
		case time.Time:
			times++
		default:
			others++
		}
	}
	switch {
	case others > 0:
		return DtypeObject
	case times > 0 && ints+floats+bools == 0:
		return DtypeDatetime
	case bools > 0 && ints+floats+times == 0:
		return DtypeBool
	case floats > 0 && bools+times == 0:
		return DtypeFloat64
	case ints > 0 && bools+times == 0:
		return DtypeInt64
	case ints+floats+bools+times == 0:
		return DtypeObject
	}
	return DtypeObject
}

var datetimeLayouts = []struct {
	re      *regexp.Regexp
	layouts []string
}{
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`),
		[]string{time.RFC3339Nano},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?$`),
		[]string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		[]string{"2006-01-02"},
	},
	{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}( \d{1,2}:\d{2}(:\d{2})?)?$`),
		[]string{"1/2/2006", "1/2/2006 15:04", "1/2/2006 15:04:05"},
	},
	{
		regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}( \d{1,2}:\d{2}(:\d{2})?)?$`),
		[]string{"2.1.2006", "2.1.2006 15:04", "2.1.2006 15:04:05"},
	},
}

func parseDatetime(s string) (time.Time, bool) {
	for _, dl := range datetimeLayouts {
		if !dl.re.MatchString(s) {
			continue
		}
		for _, l := range dl.layouts {
			if t, err := time.Parse(l, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

type cellKind int

const (
	kindEmpty cellKind = iota
	kindInt
	kindFloat
	kindDatetime
	kindText
)

func classify(s string) cellKind {
	if s == "" {
		return kindEmpty
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return kindInt
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return kindFloat
	}
	if _, ok := parseDatetime(s); ok {
		return kindDatetime
	}
	return kindText
}

// FromStrings builds a Table from textual cells, the way spreadsheet and CSV
// readers hand them over. Empty (after trimming) cells become nulls. Each
// column is typed as a whole: integers, then floats, then datetimes; a
// column mixing kinds, or holding any other text, stays as strings.
// Rows shorter than the header are padded with nulls; longer rows are an error.
func FromStrings(header []string, records [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, ErrNoColumns
	}
	width := len(header)
	kinds := make([]cellKind, width)
	for i, rec := range records {
		if len(rec) > width {
			return nil, &RowError{Row: i, Got: len(rec), Want: width}
		}
		for j := 0; j < width; j++ {
			k := kindEmpty
			if j < len(rec) {
				k = classify(strings.TrimSpace(rec[j]))
			}
			kinds[j] = widen(kinds[j], k)
		}
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, width)
		for j := 0; j < width; j++ {
			if j >= len(rec) {
				continue
			}
			row[j] = convert(rec[j], kinds[j])
		}
		rows[i] = row
	}
	return New(header, rows)
}

// widen merges the kind seen so far with the kind of one more cell.
func widen(acc, k cellKind) cellKind {
	switch {
	case k == kindEmpty:
		return acc
	case acc == kindEmpty || acc == k:
		return k
	case (acc == kindInt && k == kindFloat) || (acc == kindFloat && k == kindInt):
		return kindFloat
	}
	return kindText
}

func convert(raw string, k cellKind) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	switch k {
	case kindInt:
		n, _ := strconv.ParseInt(s, 10, 64)
		return n
	case kindFloat:
		f, _ := strconv.ParseFloat(s, 64)
		return f
	case kindDatetime:
		t, _ := parseDatetime(s)
		return t
	}
	return raw
}
