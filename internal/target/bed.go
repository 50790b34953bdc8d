package target

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/covercalc/covercalc/internal/fileio"
	"github.com/covercalc/covercalc/internal/genomic"
)

// BEDReader reads features from a BED file. BED intervals are 0-based
// half-open and are converted to 1-based inclusive coordinates.
//
// The group of a line is the name column up to the first ':' (so
// "BRCA1:exon2" belongs to BRCA1). Lines without a name column use the
// reader's default group, which is the file's base name.
type BEDReader struct {
	r            *fileio.Reader
	lineNumber   int
	defaultGroup string
}

// NewBEDReader opens a BED file.
func NewBEDReader(path string) (*BEDReader, error) {
	r, err := fileio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bed file: %w", err)
	}
	return &BEDReader{r: r, defaultGroup: RegionFileGroup(path)}, nil
}

// NewBEDReaderFromReader creates a BED reader over r with the given default group.
func NewBEDReaderFromReader(r io.Reader, defaultGroup string) (*BEDReader, error) {
	fr, err := fileio.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &BEDReader{r: fr, defaultGroup: defaultGroup}, nil
}

// RegionFileGroup derives a group ID from a region file path:
// the base name without compression and format extensions.
func RegionFileGroup(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Next reads the next feature.
func (b *BEDReader) Next() (*Feature, error) {
	for {
		line, err := b.r.ReadString('\n')
		if line == "" && err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read bed line: %w", err)
		}
		b.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if skipBEDLine(line) {
			continue
		}
		return b.parseLine(line)
	}
}

func skipBEDLine(line string) bool {
	return line == "" ||
		strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "track") ||
		strings.HasPrefix(line, "browser")
}

func (b *BEDReader) parseLine(line string) (*Feature, error) {
	region, fields, err := parseBEDFields(line)
	if err != nil {
		return nil, &ParseError{Line: b.lineNumber, Message: err.Error()}
	}

	group := b.defaultGroup
	if len(fields) > 3 && fields[3] != "" && fields[3] != "." {
		group, _, _ = strings.Cut(fields[3], ":")
	}

	return &Feature{
		Contig:  region.Contig,
		Start:   region.Start,
		End:     region.End,
		GroupID: group,
	}, nil
}

// parseBEDFields parses the first three BED columns into a 1-based region.
func parseBEDFields(line string) (genomic.Region, []string, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return genomic.Region{}, nil, fmt.Errorf("expected at least 3 columns, found %d", len(fields))
	}

	start, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return genomic.Region{}, nil, fmt.Errorf("invalid start: %s", fields[1])
	}
	end, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return genomic.Region{}, nil, fmt.Errorf("invalid end: %s", fields[2])
	}
	if start < 0 || end <= start {
		return genomic.Region{}, nil, fmt.Errorf("invalid interval [%d, %d)", start, end)
	}

	return genomic.Region{Contig: fields[0], Start: start + 1, End: end}, fields, nil
}

// ReadRegions reads every interval of a BED file as 1-based regions.
// Malformed lines are returned as an error; regions files are expected clean.
func ReadRegions(path string) ([]genomic.Region, error) {
	r, err := fileio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open regions file: %w", err)
	}
	defer r.Close()
	return readRegions(r)
}

func readRegions(r *fileio.Reader) ([]genomic.Region, error) {
	var regions []genomic.Region
	lineNumber := 0
	for {
		line, err := r.ReadString('\n')
		if line == "" && err != nil {
			if err == io.EOF {
				return regions, nil
			}
			return nil, fmt.Errorf("read regions line: %w", err)
		}
		lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if skipBEDLine(line) {
			continue
		}
		region, _, perr := parseBEDFields(line)
		if perr != nil {
			return nil, &ParseError{Line: lineNumber, Message: perr.Error()}
		}
		regions = append(regions, region)
	}
}

// LineNumber returns the current line number being processed.
func (b *BEDReader) LineNumber() int {
	return b.lineNumber
}

// Close closes the reader.
func (b *BEDReader) Close() error {
	return b.r.Close()
}
