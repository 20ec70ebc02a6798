package dataset

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/zeebo/xxh3"
)

// RowError reports a record wider than the header.
type RowError struct {
	Row  int
	Got  int
	Want int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("dataset: record %d has %d fields, header has %d", e.Row, e.Got, e.Want)
}

// HasDuplicateRows reports whether two rows share the same value combination
// across the columns named in names. Nulls compare equal to each other.
//
// Keys are bucketed by their xxh3 hash and compared byte-for-byte within a
// bucket, so hash collisions never produce a false positive.
func (t *Table) HasDuplicateRows(names []string) bool {
	var pos []int
	for j, c := range t.columns {
		if slices.Contains(names, c) {
			pos = append(pos, j)
		}
	}
	if len(pos) == 0 || len(t.rows) < 2 {
		return false
	}

	seen := make(map[uint64][][]byte, len(t.rows))
	buf := make([]byte, 0, 64)
	for _, row := range t.rows {
		buf = buf[:0]
		for _, p := range pos {
			buf = appendKey(buf, row[p])
		}
		h := xxh3.Hash(buf)
		for _, k := range seen[h] {
			if string(k) == string(buf) {
				return true
			}
		}
		seen[h] = append(seen[h], slices.Clone(buf))
	}
	return false
}

// appendKey writes a type-tagged, length-delimited encoding of v to b.
// Integers of every kind and integral floats share one tag, so 1 and 1.0
// produce the same key.
func appendKey(b []byte, v any) []byte {
	if IsNull(v) {
		return append(b, 0)
	}
	switch x := v.(type) {
	case string:
		b = append(b, 's')
		b = binary.AppendUvarint(b, uint64(len(x)))
		return append(b, x...)
	case int:
		return appendInt(b, int64(x))
	case int8:
		return appendInt(b, int64(x))
	case int16:
		return appendInt(b, int64(x))
	case int32:
		return appendInt(b, int64(x))
	case int64:
		return appendInt(b, x)
	case uint:
		return appendUint(b, uint64(x))
	case uint8:
		return appendUint(b, uint64(x))
	case uint16:
		return appendUint(b, uint64(x))
	case uint32:
		return appendUint(b, uint64(x))
	case uint64:
		return appendUint(b, x)
	case float32:
		return appendFloat(b, float64(x))
	case float64:
		return appendFloat(b, x)
	case bool:
		if x {
			return append(b, 'b', 1)
		}
		return append(b, 'b', 0)
	case time.Time:
		b = append(b, 't')
		return binary.BigEndian.AppendUint64(b, uint64(x.UnixNano()))
	case []byte:
		b = append(b, 'x')
		b = binary.AppendUvarint(b, uint64(len(x)))
		return append(b, x...)
	}
	s := fmt.Sprint(v)
	b = append(b, 'v')
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

func appendInt(b []byte, n int64) []byte {
	b = append(b, 'i')
	return binary.BigEndian.AppendUint64(b, uint64(n))
}

// appendUint encodes n like appendInt when it fits an int64.
func appendUint(b []byte, n uint64) []byte {
	if n <= math.MaxInt64 {
		return appendInt(b, int64(n))
	}
	b = append(b, 'u')
	return binary.BigEndian.AppendUint64(b, n)
}

// appendFloat encodes an integral x in the int64 range like appendInt.
func appendFloat(b []byte, x float64) []byte {
	if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
		return appendInt(b, int64(x))
	}
	b = append(b, 'f')
	return binary.BigEndian.AppendUint64(b, math.Float64bits(x))
}
