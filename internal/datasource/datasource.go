// Package datasource abstracts where import data comes from.
package datasource

import (
	"context"
	"io"
)

// Source yields the raw bytes of one dataset.
type Source interface {
	// Open returns the decoded byte stream. The caller closes it.
	Open(ctx context.Context) (io.ReadCloser, error)

	// Name is the logical file name, without any compression suffix. Parsers
	// pick a format from its extension.
	Name() string
}
