// Package fileio opens annotation, depth and variant inputs, transparently
// decompressing gzip (and bgzip) streams.
package fileio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/multierr"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Reader is a buffered input that closes every layer it wraps.
type Reader struct {
	*bufio.Reader
	closers []io.Closer
}

// Open opens path for reading. "-" reads from stdin. Gzip input is detected
// from its magic bytes rather than the file extension.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r.closers = append(r.closers, f)
	return r, nil
}

// NewReader wraps r, decompressing it if it starts with the gzip magic.
// The caller keeps ownership of r.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)

	isGzip, err := hasPrefix(br, gzipMagic)
	if err != nil {
		return nil, err
	}
	if !isGzip {
		return &Reader{Reader: br}, nil
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	return &Reader{
		Reader:  bufio.NewReader(gz),
		closers: []io.Closer{gz},
	}, nil
}

// hasPrefix peeks at b and reports whether it starts with prefix.
// Inputs shorter than the prefix are not an error.
func hasPrefix(b *bufio.Reader, prefix []byte) (bool, error) {
	m, err := b.Peek(len(prefix))
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("peek input: %w", err)
	}
	for i := range prefix {
		if m[i] != prefix[i] {
			return false, nil
		}
	}
	return true, nil
}

// Close closes the decompressor and the underlying file, innermost first.
func (r *Reader) Close() error {
	var err error
	for _, c := range r.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
