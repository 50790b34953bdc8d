package target

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/covercalc/covercalc/internal/fileio"
)

// ReadGroupList loads group IDs (gene symbols, transcript IDs) from a panel
// list file: one ID per line in the first tab-separated column. Blank lines,
// '#' comments and "nan" entries are skipped. A first line naming a
// gene_name, gene, hgnc_symbol or symbol column is treated as a header.
func ReadGroupList(path string) ([]string, error) {
	r, err := fileio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open group list: %w", err)
	}
	defer r.Close()

	return parseGroupList(r)
}

var groupListHeaders = map[string]bool{
	"gene_name":   true,
	"gene":        true,
	"hgnc_symbol": true,
	"symbol":      true,
}

func parseGroupList(reader io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(reader)
	first := true

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, _, _ := strings.Cut(line, "\t")
		id = strings.TrimSpace(id)
		if first {
			first = false
			if groupListHeaders[strings.ToLower(id)] {
				continue
			}
		}
		if id == "" || id == "nan" {
			continue
		}
		ids = append(ids, id)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan group list: %w", err)
	}

	return ids, nil
}
