// Package target builds per-group sets of target base positions from
// annotated feature intervals (BED, GTF or GFF3).
package target

import (
	"fmt"
	"strings"
)

// Feature is one annotated interval resolved to a group.
// Coordinates are 1-based and inclusive.
type Feature struct {
	Contig  string
	Start   int64
	End     int64
	GroupID string // gene name, transcript ID or region-file name
}

// FeatureReader is the interface for annotation readers.
// BED, GTF and GFF3 readers implement this interface.
type FeatureReader interface {
	// Next reads the next feature.
	// Returns nil, nil when there are no more features.
	// A malformed line yields a *ParseError; the reader stays usable.
	Next() (*Feature, error)

	// Close closes the reader and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}

// Format identifies an annotation file format.
type Format string

// Supported annotation formats.
const (
	FormatBED  Format = "bed"
	FormatGTF  Format = "gtf"
	FormatGFF3 Format = "gff3"
)

// ParseFormat maps a user-supplied format hint to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "bed":
		return FormatBED, nil
	case "gtf", "gff2":
		return FormatGTF, nil
	case "gff3", "gff":
		return FormatGFF3, nil
	}
	return "", fmt.Errorf("unknown annotation format %q (want bed, gtf or gff3)", s)
}

// ParseError represents a malformed annotation line.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("annotation parse error at line %d: %s", e.Line, e.Message)
}

// OpenFeatureReader opens path with the reader for the given format.
// The format is an external hint; file contents are not sniffed.
func OpenFeatureReader(format Format, path string, opts GTFOptions) (FeatureReader, error) {
	switch format {
	case FormatBED:
		return NewBEDReader(path)
	case FormatGTF:
		return NewGTFReader(path, opts)
	case FormatGFF3:
		return NewGFF3Reader(path, opts)
	}
	return nil, fmt.Errorf("unsupported annotation format %q", format)
}
