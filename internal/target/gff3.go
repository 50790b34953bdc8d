package target

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/covercalc/covercalc/internal/fileio"
)

// gff3GroupKeys is the attribute fallback order used when no GroupBy is set.
var gff3GroupKeys = []string{"gene", "Name", "Parent", "ID"}

// NewGFF3Reader opens a GFF3 file. It shares the GTF reader's line handling
// and differs only in attribute syntax (key=value;key=value).
func NewGFF3Reader(path string, opts GTFOptions) (*GTFReader, error) {
	r, err := fileio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GFF3 file: %w", err)
	}
	return newGFF3Reader(r, opts), nil
}

// NewGFF3ReaderFromReader creates a GFF3 reader over r.
func NewGFF3ReaderFromReader(r io.Reader, opts GTFOptions) (*GTFReader, error) {
	fr, err := fileio.NewReader(r)
	if err != nil {
		return nil, err
	}
	return newGFF3Reader(fr, opts), nil
}

func newGFF3Reader(r *fileio.Reader, opts GTFOptions) *GTFReader {
	g := newGTFReader(r, opts)
	g.parseAttrs = parseGFF3Attributes
	if opts.GroupBy == "" {
		g.groupKeys = gff3GroupKeys
	}
	return g
}

// parseGFF3Attributes parses a GFF3 attribute column. Values are
// percent-decoded; multi-valued attributes (Parent=a,b) keep the first value.
func parseGFF3Attributes(attrStr string) map[string]string {
	attrs := make(map[string]string)
	if attrStr == "." {
		return attrs
	}

	for _, part := range strings.Split(attrStr, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key == "" {
			continue
		}
		value, _, _ = strings.Cut(value, ",")
		if unescaped, err := url.PathUnescape(value); err == nil {
			value = unescaped
		}
		attrs[key] = value
	}

	return attrs
}
