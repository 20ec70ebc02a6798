package dialect

import (
	"strings"
	"testing"
)

func TestQuoteName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "[]", true},
		{"]", "[]]]", true},
		{"[", "[[]", true},
		{"][][", "[]][]][]", true},
		{"a", "[a]", true},
		{"[a]", "[[a]]]", true},
		{strings.Repeat("a", 128), "[" + strings.Repeat("a", 128) + "]", true},
		{strings.Repeat("a", 129), "", false},
		{strings.Repeat("é", 128), "[" + strings.Repeat("é", 128) + "]", true},
	}
	for _, tc := range tests {
		got, ok := QuoteName(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("QuoteName(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestQuoteNameRoundTrip(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "]", "[", "][][", "a", "[a]", "Order Details", "x]]y", strings.Repeat("]", 128)} {
		q, ok := QuoteName(in)
		if !ok {
			t.Fatalf("QuoteName(%q) failed", in)
		}
		back, err := ParseQuotedName(q)
		if err != nil {
			t.Fatalf("ParseQuotedName(%q): %v", q, err)
		}
		if back != in {
			t.Fatalf("round trip %q -> %q -> %q", in, q, back)
		}
	}
}

func TestParseQuotedNameRejects(t *testing.T) {
	t.Parallel()

	for _, q := range []string{"", "a", "[a", "a]", "[a]b]"} {
		if _, err := ParseQuotedName(q); err == nil {
			t.Fatalf("ParseQuotedName(%q) succeeded, want error", q)
		}
	}
}
