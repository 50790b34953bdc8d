package duckdb

import (
	"database/sql"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for an input file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Fingerprint stats path, falling back to a path-only fingerprint for
// stdin ("-") or files that cannot be stat'ed.
func Fingerprint(path string) FileFingerprint {
	if path == "-" {
		return FileFingerprint{Path: path}
	}
	fp, err := StatFile(path)
	if err != nil {
		return FileFingerprint{Path: path}
	}
	return fp
}

// columns returns the values stored for the fingerprint; size and
// modification time are NULL when unknown.
func (f FileFingerprint) columns() (string, any, any) {
	if f.ModTime.IsZero() {
		return f.Path, nil, nil
	}
	return f.Path, f.Size, f.ModTime.UTC()
}

func scanFingerprint(path string, size sql.NullInt64, mtime sql.NullTime) FileFingerprint {
	fp := FileFingerprint{Path: path}
	if size.Valid {
		fp.Size = size.Int64
	}
	if mtime.Valid {
		fp.ModTime = mtime.Time
	}
	return fp
}
