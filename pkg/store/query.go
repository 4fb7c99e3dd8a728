package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrJSONUnsupported indicates the SQLite build backing the store lacks the
// JSON1 functions that the per-section query needs. The other queries work
// regardless.
var ErrJSONUnsupported = errors.New("sqlite build lacks JSON support")

// HighEntropyRow is one result of the high average entropy query.
type HighEntropyRow struct {
	Path        string
	AvgEntropy  float64
	CompanyName *string
	ProductName *string
}

// MissingInfoRow is one result of the missing metadata query.
type MissingInfoRow struct {
	Path       string
	AvgEntropy *float64
}

// SectionEntropyRow is one result of the per-section entropy query.
type SectionEntropyRow struct {
	Path        string
	Entropy     float64
	ProductName *string
}

// HighEntropy returns binaries whose average section entropy exceeds
// threshold, highest first.
func (s *Store) HighEntropy(threshold float64) ([]HighEntropyRow, error) {
	rows, err := s.db.Query(`
		SELECT path, avg_entropy, company_name, product_name
		FROM binaries
		WHERE avg_entropy > ?
		ORDER BY avg_entropy DESC`, threshold)
	if err != nil {
		return nil, fmt.Errorf("high entropy query: %w", err)
	}
	defer rows.Close()

	var out []HighEntropyRow
	for rows.Next() {
		var r HighEntropyRow
		if err := rows.Scan(&r.Path, &r.AvgEntropy, &r.CompanyName, &r.ProductName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MissingInfo returns binaries lacking any of the company name, file
// description, or product name fields, ordered by average entropy
// descending (rows with no entropy sort last).
func (s *Store) MissingInfo() ([]MissingInfoRow, error) {
	rows, err := s.db.Query(`
		SELECT path, avg_entropy
		FROM binaries
		WHERE company_name IS NULL
		   OR file_description IS NULL
		   OR product_name IS NULL
		ORDER BY avg_entropy DESC`)
	if err != nil {
		return nil, fmt.Errorf("missing info query: %w", err)
	}
	defer rows.Close()

	var out []MissingInfoRow
	for rows.Next() {
		var r MissingInfoRow
		if err := rows.Scan(&r.Path, &r.AvgEntropy); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SectionEntropy returns binaries whose named section has entropy above
// threshold, highest first. Records whose blob is an error marker carry no
// section array and never match.
func (s *Store) SectionEntropy(name string, threshold float64) ([]SectionEntropyRow, error) {
	// The CASE keeps json_extract away from error-marker blobs, whose
	// json_each values are plain strings rather than JSON objects.
	rows, err := s.db.Query(`
		SELECT b.path,
		       json_extract(s.value, '$.entropy') AS entropy,
		       b.product_name
		FROM binaries b, json_each(b.section_entropy_blob) s
		WHERE CASE WHEN s.type = 'object'
		      THEN json_extract(s.value, '$.name') = ?
		           AND json_extract(s.value, '$.entropy') > ?
		      ELSE 0 END
		ORDER BY entropy DESC`, name, threshold)
	if err != nil {
		if isNoJSONErr(err) {
			return nil, ErrJSONUnsupported
		}
		return nil, fmt.Errorf("section entropy query: %w", err)
	}
	defer rows.Close()

	var out []SectionEntropyRow
	for rows.Next() {
		var r SectionEntropyRow
		if err := rows.Scan(&r.Path, &r.Entropy, &r.ProductName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// isNoJSONErr recognizes the error SQLite reports when the JSON1 functions
// were compiled out.
func isNoJSONErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table: json_each") ||
		strings.Contains(msg, "no such function: json_")
}
