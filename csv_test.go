package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/petriage/petriage/pkg/store"
)

func strPtr(s string) *string { return &s }

func TestCsvSchemaHeader(t *testing.T) {
	csv := csvSchema{
		keys: map[int]csvHeaderStructMapping{
			0: {"filename", "name"},
			1: {"path", "path"},
		},
		delim: ",",
	}

	expected := []byte("filename,path")
	result := csv.header()

	if !strings.EqualFold(string(result), string(expected)) {
		t.Errorf("expected %s but got %s", string(expected), string(result))
	}
}

func TestParseHappyPath(t *testing.T) {
	csv := csvSchema{
		keys: map[int]csvHeaderStructMapping{
			0: {"filename", "name"},
			1: {"path", "path"},
		},
		delim: ",",
	}

	in := Report{
		Path: "test/path",
		Name: "testfile",
	}

	expected := []byte("testfile,test/path\n")
	result, err := csv.parse(in)

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	if !strings.EqualFold(string(result), string(expected)) {
		t.Errorf("Expected %s but got %s", string(expected), string(result))
	}
}

func TestParseNestedTagPath(t *testing.T) {
	csv := csvSchema{
		keys: map[int]csvHeaderStructMapping{
			0: {"path", "path"},
			1: {"company_name", "record.company_name"},
			2: {"avg_entropy", "record.avg_entropy"},
		},
		delim: ",",
	}

	rec := &store.Record{
		Path:        "test/path",
		CompanyName: strPtr("Initech"),
	}
	rec.SetSections([]store.SectionEntropy{{Name: ".text", Entropy: 4.0}})

	in := &Report{Path: "test/path", Record: rec}

	expected := []byte("test/path,Initech,4.0000\n")
	result, err := csv.parse(in)

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	if !strings.EqualFold(string(result), string(expected)) {
		t.Errorf("Expected %s but got %s", string(expected), string(result))
	}
}

func TestParseNilFieldsAreEmptyCells(t *testing.T) {
	csv := csvSchema{
		keys: map[int]csvHeaderStructMapping{
			0: {"path", "path"},
			1: {"company_name", "record.company_name"},
			2: {"avg_entropy", "record.avg_entropy"},
			3: {"filename", "name"},
		},
		delim: ",",
	}

	// Record with no metadata and error-marked sections: the nil fields
	// must still hold their columns.
	rec := &store.Record{Path: "test/path"}
	rec.SetSectionsError("bad image")
	in := &Report{Path: "test/path", Name: "testfile", Record: rec}

	expected := []byte("test/path,,,testfile\n")
	result, err := csv.parse(in)

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	if !strings.EqualFold(string(result), string(expected)) {
		t.Errorf("Expected %s but got %s", string(expected), string(result))
	}
}

func TestParseUnsupportedType(t *testing.T) {
	csv := csvSchema{
		keys: map[int]csvHeaderStructMapping{
			0: {"filename", "name"},
			1: {"path", "path"},
		},
		delim: ",",
	}

	in := struct {
		Path complex128 `json:"path"`
		Name string     `json:"name"`
	}{
		Path: complex128(1 + 2i),
		Name: "testfile",
	}

	_, err := csv.parse(in)

	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType but got %v", err)
	}
}

func TestParseNilPointer(t *testing.T) {
	csv := csvSchema{
		keys: map[int]csvHeaderStructMapping{
			0: {"filename", "name"},
			1: {"path", "path"},
		},
		delim: ",",
	}

	var in *Report = nil

	_, err := csv.parse(in)

	if !errors.Is(err, ErrNilPointer) {
		t.Errorf("Expected ErrNilPointer but got %v", err)
	}
}

func TestResultsCustomSchema(t *testing.T) {
	results := NewResults()
	results.Add(&Report{
		Path: "test/path",
		Name: "testfile",
	})
	results.csvSchema = csvSchema{
		keys: map[int]csvHeaderStructMapping{
			0: {"filename", "name"},
			1: {"path", "path"},
		},
		delim: ";",
	}

	expected := []byte("filename;path\n" +
		"testfile;test/path\n")
	result, err := results.MarshalCSV()

	if err != nil {
		t.Errorf("\n\nunexpected error:\n %v", err)
	}

	if !strings.EqualFold(string(result), string(expected)) {
		t.Errorf("\n\nexpected:\n"+
			"%s \n"+
			"got: \n"+
			"%s\n\n", string(expected), string(result))
	}
}

func TestResultsAdd(t *testing.T) {
	results := NewResults()
	results.Add(&Report{
		Path: "test/path",
		Name: "testfile",
	})

	if len(results.Reports) != 1 {
		t.Errorf("expected length of 1 but got %d", len(results.Reports))
	}
}

func TestMarshalCSVFullSchema(t *testing.T) {
	rec := &store.Record{
		Path:        "test/path",
		CompanyName: strPtr("Initech"),
		ProductName: strPtr("TPS Reporter"),
	}
	rec.SetSections([]store.SectionEntropy{{Name: ".text", Entropy: 6.5}})

	results := NewResults()
	results.Add(&Report{
		Path:      "test/path",
		Name:      "testfile",
		IsPE:      true,
		Entropy:   6.5,
		Checksums: &Checksums{MD5: "d41d8cd98f00b204e9800998ecf8427e"},
		Record:    rec,
	})

	result, err := results.MarshalCSV()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(result), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}

	headerCols := strings.Split(lines[0], ",")
	rowCols := strings.Split(lines[1], ",")
	if len(headerCols) != len(rowCols) {
		t.Fatalf("header has %d columns, row has %d", len(headerCols), len(rowCols))
	}

	if rowCols[0] != "testfile" || rowCols[1] != "test/path" || rowCols[2] != "true" {
		t.Errorf("unexpected leading columns: %v", rowCols[:3])
	}
	if rowCols[4] != "6.5000" {
		t.Errorf("unexpected avg_entropy column: %q", rowCols[4])
	}
	if rowCols[5] != "Initech" {
		t.Errorf("unexpected company_name column: %q", rowCols[5])
	}
	if rowCols[14] != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("unexpected md5 column: %q", rowCols[14])
	}
}
