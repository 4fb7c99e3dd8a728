// Package store persists scan records to a SQLite database, one row per
// binary path, and runs the canned triage queries over them.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS binaries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT UNIQUE,
	company_name TEXT,
	file_description TEXT,
	file_version TEXT,
	internal_name TEXT,
	legal_copyright TEXT,
	original_filename TEXT,
	product_name TEXT,
	product_version TEXT,
	comments TEXT,
	section_entropy_blob TEXT,
	avg_entropy REAL
)`

// ErrStoreMissing indicates a query was aimed at a database file that does
// not exist, usually because no scan has run yet.
var ErrStoreMissing = errors.New("database does not exist")

// Store is a handle to the scan results database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and ensures the
// schema is in place.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing database %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenExisting opens the database at path for querying. Unlike Open it
// refuses to create a new database: a missing file returns ErrStoreMissing.
func OpenExisting(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrStoreMissing, path)
		}
		return nil, err
	}
	return Open(path)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert writes the record, replacing any existing row with the same path.
// Replacement is total: fields absent from the new record become null even
// if a previous scan had them.
func (s *Store) Upsert(r *Record) error {
	blob, err := r.encodeSectionBlob()
	if err != nil {
		return fmt.Errorf("encoding sections for %s: %w", r.Path, err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO binaries (
			path, company_name, file_description, file_version,
			internal_name, legal_copyright, original_filename,
			product_name, product_version, comments,
			section_entropy_blob, avg_entropy
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Path, r.CompanyName, r.FileDescription, r.FileVersion,
		r.InternalName, r.LegalCopyright, r.OriginalFilename,
		r.ProductName, r.ProductVersion, r.Comments,
		blob, r.AvgEntropy,
	)
	if err != nil {
		return fmt.Errorf("storing record for %s: %w", r.Path, err)
	}
	return nil
}

// Get reads back the record for path, or sql.ErrNoRows if none exists.
func (s *Store) Get(path string) (*Record, error) {
	var r Record
	var blob string
	err := s.db.QueryRow(`
		SELECT path, company_name, file_description, file_version,
		       internal_name, legal_copyright, original_filename,
		       product_name, product_version, comments,
		       section_entropy_blob, avg_entropy
		FROM binaries WHERE path = ?`, path).Scan(
		&r.Path, &r.CompanyName, &r.FileDescription, &r.FileVersion,
		&r.InternalName, &r.LegalCopyright, &r.OriginalFilename,
		&r.ProductName, &r.ProductVersion, &r.Comments,
		&blob, &r.AvgEntropy,
	)
	if err != nil {
		return nil, err
	}
	if err := r.decodeSectionBlob(blob); err != nil {
		return nil, fmt.Errorf("record for %s: %w", path, err)
	}
	return &r, nil
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM binaries`).Scan(&n)
	return n, err
}
