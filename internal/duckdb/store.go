// Package duckdb stores coverage runs in DuckDB so results can be queried
// by sample, group or run after the report files are written.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding coverage results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR PRIMARY KEY,
		started_at TIMESTAMP,
		threshold INTEGER,
		padding INTEGER,
		target_path VARCHAR,
		target_size BIGINT,
		target_mtime TIMESTAMP,
		depth_path VARCHAR,
		depth_size BIGINT,
		depth_mtime TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS coverage_results (
		run_id VARCHAR,
		sample VARCHAR,
		group_id VARCHAR,
		targets BIGINT,
		passed BIGINT,
		percentage DOUBLE,
		PRIMARY KEY (run_id, sample, group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS gap_regions (
		run_id VARCHAR,
		sample VARCHAR,
		group_id VARCHAR,
		chrom VARCHAR,
		start_pos BIGINT,
		end_pos BIGINT
	)`,
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
