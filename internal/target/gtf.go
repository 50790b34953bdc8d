package target

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/covercalc/covercalc/internal/fileio"
)

// GTFOptions controls which GTF/GFF3 records become features and how they
// are grouped.
type GTFOptions struct {
	// FeatureType keeps only records of this type (column 3). Empty keeps all.
	FeatureType string
	// GroupBy names the attribute used as the group ID. Empty selects the
	// format default (gene_name for GTF; gene, Name, Parent, ID for GFF3).
	GroupBy string
}

// DefaultGTFOptions groups exons by gene name.
func DefaultGTFOptions() GTFOptions {
	return GTFOptions{FeatureType: "exon"}
}

// gtfRecord represents a parsed GTF/GFF line.
type gtfRecord struct {
	contig      string
	featureType string
	start       int64
	end         int64
	attributes  map[string]string
}

// GTFReader reads features from a GENCODE/Ensembl style GTF file.
type GTFReader struct {
	r          *fileio.Reader
	lineNumber int
	opts       GTFOptions
	parseAttrs func(string) map[string]string
	groupKeys  []string
	done       bool
}

// fastaDirective starts the sequence section of a GFF3 file.
const fastaDirective = "##FASTA"

// NewGTFReader opens a GTF file.
func NewGTFReader(path string, opts GTFOptions) (*GTFReader, error) {
	r, err := fileio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	return newGTFReader(r, opts), nil
}

// NewGTFReaderFromReader creates a GTF reader over r.
func NewGTFReaderFromReader(r io.Reader, opts GTFOptions) (*GTFReader, error) {
	fr, err := fileio.NewReader(r)
	if err != nil {
		return nil, err
	}
	return newGTFReader(fr, opts), nil
}

func newGTFReader(r *fileio.Reader, opts GTFOptions) *GTFReader {
	keys := []string{"gene_name"}
	if opts.GroupBy != "" {
		keys = []string{opts.GroupBy}
	}
	return &GTFReader{r: r, opts: opts, parseAttrs: parseAttributes, groupKeys: keys}
}

// Next reads the next feature. Records of other feature types are skipped
// before their coordinates are parsed. Reading stops at a GFF3 ##FASTA
// section.
func (g *GTFReader) Next() (*Feature, error) {
	for !g.done {
		line, err := g.r.ReadString('\n')
		if line == "" && err != nil {
			if err == io.EOF {
				g.done = true
				return nil, nil
			}
			return nil, fmt.Errorf("read GTF line: %w", err)
		}
		g.lineNumber++

		line = strings.TrimRight(line, "\r\n")

		if line == fastaDirective {
			g.done = true
			return nil, nil
		}

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 9 {
			return nil, &ParseError{
				Line:    g.lineNumber,
				Message: fmt.Sprintf("expected 9 fields, got %d", len(fields)),
			}
		}
		if g.opts.FeatureType != "" && fields[2] != g.opts.FeatureType {
			continue
		}

		rec, perr := parseRecord(fields, g.parseAttrs)
		if perr != nil {
			return nil, &ParseError{Line: g.lineNumber, Message: perr.Error()}
		}

		group := g.groupID(rec)
		if group == "" {
			return nil, &ParseError{
				Line:    g.lineNumber,
				Message: fmt.Sprintf("%s record has no %s attribute", rec.featureType, strings.Join(g.groupKeys, "/")),
			}
		}

		return &Feature{
			Contig:  rec.contig,
			Start:   rec.start,
			End:     rec.end,
			GroupID: group,
		}, nil
	}
	return nil, nil
}

// groupID returns the first non-empty grouping attribute.
func (g *GTFReader) groupID(rec *gtfRecord) string {
	for _, key := range g.groupKeys {
		v := rec.attributes[key]
		if v == "" {
			continue
		}
		// Strip version suffix for consistent grouping across releases
		if key == "gene_id" || key == "transcript_id" {
			v = stripVersion(v)
		}
		return v
	}
	return ""
}

// LineNumber returns the current line number being processed.
func (g *GTFReader) LineNumber() int {
	return g.lineNumber
}

// Close closes the reader.
func (g *GTFReader) Close() error {
	return g.r.Close()
}

// parseRecord parses the columns of a GTF/GFF line with the given
// attribute parser. fields holds at least 9 columns.
func parseRecord(fields []string, parseAttrs func(string) map[string]string) (*gtfRecord, error) {
	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}

	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	return &gtfRecord{
		contig:      fields[0],
		featureType: fields[2],
		start:       start,
		end:         end,
		attributes:  parseAttrs(fields[8]),
	}, nil
}

// parseAttributes parses GTF attribute column.
// Format: key "value"; key "value"; ...
// Repeated keys (e.g. tag) keep the last value.
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// Find the first space to separate key from value
		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}

		key := part[:idx]
		value := strings.TrimSpace(part[idx+1:])

		// Remove quotes
		value = strings.Trim(value, "\"")

		attrs[key] = value
	}

	return attrs
}

// stripVersion removes the version suffix from an Ensembl ID.
// e.g., "ENST00000456328.2" -> "ENST00000456328"
func stripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}
