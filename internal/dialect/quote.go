package dialect

import (
	"errors"
	"fmt"
	"strings"
)

// MaxIdentLen is the longest identifier SQL Server accepts (sysname).
const MaxIdentLen = 128

// ErrIdentTooLong is returned when an identifier exceeds MaxIdentLen.
var ErrIdentTooLong = errors.New("identifier longer than 128 characters")

// QuoteName adds brackets to s to make it a valid SQL Server delimited
// identifier, doubling any closing bracket. It reports false, like
// QUOTENAME returning NULL, when s is longer than MaxIdentLen characters.
func QuoteName(s string) (string, bool) {
	if len([]rune(s)) > MaxIdentLen {
		return "", false
	}
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]", true
}

// ParseQuotedName reverses QuoteName: it strips the brackets and undoubles
// closing brackets. A lone "]" inside the name is a syntax error.
func ParseQuotedName(q string) (string, error) {
	if len(q) < 2 || q[0] != '[' || q[len(q)-1] != ']' {
		return "", fmt.Errorf("mssql: %q is not a bracket-delimited identifier", q)
	}
	body := q[1 : len(q)-1]
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == ']' {
			if i+1 >= len(body) || body[i+1] != ']' {
				return "", fmt.Errorf("mssql: unescaped ']' at offset %d in %q", i+1, q)
			}
			i++
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

func bracketIdent(name string) (string, error) {
	q, ok := QuoteName(name)
	if !ok {
		return "", fmt.Errorf("mssql: quote %q: %w", name, ErrIdentTooLong)
	}
	return q, nil
}
