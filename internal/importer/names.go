package importer

import (
	"regexp"
	"strconv"
	"strings"
)

// QualifyName returns schema.table, or table when schema is empty.
func QualifyName(schema, table string) string {
	if schema != "" {
		return schema + "." + table
	}
	return table
}

// TranslateDtype maps a dataset dtype name onto the common vocabulary used
// when comparing file columns with table columns: text, number, decimal or
// datetime. Unknown names are returned unchanged.
func TranslateDtype(name string) string {
	l := strings.ToLower(name)
	switch {
	case l == "object" || strings.HasPrefix(l, "str"):
		return "text"
	case strings.HasPrefix(l, "int"), strings.HasPrefix(l, "uint"),
		strings.HasPrefix(l, "longlong"), strings.HasPrefix(l, "ulonglong"):
		return "number"
	case strings.HasPrefix(l, "float"):
		return "decimal"
	case strings.HasPrefix(l, "datetime"):
		return "datetime"
	}
	return name
}

var scaledDecimal = regexp.MustCompile(`^(decimal|numeric)\((\d+)\s*,\s*(\d+)\)$`)

// IsCastExplicit reports whether a value of the translated source type src
// needs an explicit cast to be stored in a column of database type dst.
func IsCastExplicit(src, dst string) bool {
	switch src {
	case "text":
		if strings.Contains(dst, "char") || strings.Contains(dst, "text") {
			return false
		}
	case "number":
		if dst == "int" || strings.HasPrefix(dst, "decimal") || strings.HasPrefix(dst, "numeric") {
			return false
		}
	case "decimal":
		if dst == "float" {
			return false
		}
		if m := scaledDecimal.FindStringSubmatch(dst); m != nil {
			if scale, _ := strconv.Atoi(m[3]); scale > 0 {
				return false
			}
		}
	case "datetime":
		if strings.Contains(dst, "datetime") {
			return false
		}
	}
	return true
}
