// Package file implements a local filesystem-backed data source with
// transparent decompression of .gz, .zst and .xz files.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies how a file is compressed.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
	XZ
)

var suffixes = map[string]Compression{
	".gz":  Gzip,
	".zst": Zstd,
	".xz":  XZ,
}

// DetectCompression returns the compression implied by path's extension.
func DetectCompression(path string) Compression {
	return suffixes[strings.ToLower(filepath.Ext(path))]
}

// Local is a filesystem data source that opens files from the local disk.
type Local struct {
	path        string
	compression Compression
}

// NewLocal returns a Local bound to path. Compression is detected from the
// extension.
func NewLocal(path string) *Local {
	return &Local{path: path, compression: DetectCompression(path)}
}

// Name returns the base name of the file without its compression suffix,
// e.g. "prices.csv" for "/in/prices.csv.gz".
func (l *Local) Name() string {
	base := filepath.Base(l.path)
	if l.compression != None {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base
}

// Open opens the file and, when compressed, wraps it in a decompressor. An
// already canceled ctx is returned without touching the filesystem. Errors
// are wrapped with the path and keep os.ErrNotExist and friends reachable.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)

	rc, err := decompress(f, l.compression)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return rc, nil
}

// readCloser closes the decoder, then the file underneath it.
type readCloser struct {
	io.Reader
	closeFn func() error
	file    *os.File
}

func (r *readCloser) Close() error {
	cerr := r.closeFn()
	if ferr := r.file.Close(); cerr == nil {
		cerr = ferr
	}
	return cerr
}

func decompress(f *os.File, c Compression) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &readCloser{Reader: zr, closeFn: zr.Close, file: f}, nil
	case Zstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return &readCloser{Reader: dec, closeFn: func() error { dec.Close(); return nil }, file: f}, nil
	case XZ:
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("xz: %w", err)
		}
		return &readCloser{Reader: xr, closeFn: func() error { return nil }, file: f}, nil
	}
	return f, nil
}
