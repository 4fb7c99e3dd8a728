package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/petriage/petriage/pkg/store"
)

// runQuery runs one of the canned analytical queries against an existing
// results database. Unlike scanning, querying never creates the database:
// pointing at a missing file is fatal.
func runQuery(name string, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	dbPath := fs.String("db", constStoreNameDefault, "path to the SQLite results database")

	var threshold *float64
	var section *string
	switch name {
	case "high-entropy":
		threshold = fs.Float64("t", constHighEntropyThreshold, "entropy threshold (0.0 to 8.0)")
	case "text-section":
		threshold = fs.Float64("t", constSectionEntropyThreshold, "entropy threshold (0.0 to 8.0)")
		section = fs.String("name", constSectionNameDefault, "section name to inspect")
	}
	_ = fs.Parse(args)

	st, err := store.OpenExisting(*dbPath)
	if err != nil {
		if errors.Is(err, store.ErrStoreMissing) {
			log.Fatalf("database file not found at '%s'; run a scan first or point at one with -db", absPath(*dbPath))
		}
		log.Fatalf("error opening database '%s': %v", *dbPath, err)
	}
	defer func() {
		_ = st.Close()
	}()

	fmt.Printf("--- Querying Database: %s ---\n", absPath(*dbPath))

	switch name {
	case "high-entropy":
		fmt.Printf("[*] Querying for files with avg. entropy > %g...\n", *threshold)
		rows, qerr := st.HighEntropy(*threshold)
		if qerr != nil {
			log.Fatalf("query failed: %v", qerr)
		}
		lines := make([]string, 0, len(rows))
		for _, r := range rows {
			lines = append(lines, fmt.Sprintf("%s  %.4f  %s  %s",
				r.Path, r.AvgEntropy, orNull(r.CompanyName), orNull(r.ProductName)))
		}
		printRows("Path  Avg. Entropy  Company  Product", lines)

	case "missing-info":
		fmt.Println("[*] Querying for files with missing version info...")
		rows, qerr := st.MissingInfo()
		if qerr != nil {
			log.Fatalf("query failed: %v", qerr)
		}
		lines := make([]string, 0, len(rows))
		for _, r := range rows {
			lines = append(lines, fmt.Sprintf("%s  %s", r.Path, orNullFloat(r.AvgEntropy)))
		}
		printRows("Path  Avg. Entropy", lines)

	case "text-section":
		fmt.Printf("[*] Querying for files with %s section entropy > %g...\n", *section, *threshold)
		rows, qerr := st.SectionEntropy(*section, *threshold)
		if errors.Is(qerr, store.ErrJSONUnsupported) {
			log.Fatal("this query needs SQLite's JSON1 functions, which this build lacks")
		}
		if qerr != nil {
			log.Fatalf("query failed: %v", qerr)
		}
		lines := make([]string, 0, len(rows))
		for _, r := range rows {
			lines = append(lines, fmt.Sprintf("%s  %.4f  %s", r.Path, r.Entropy, orNull(r.ProductName)))
		}
		printRows(fmt.Sprintf("Path  %s Entropy  Product", *section), lines)
	}

	fmt.Println("\n--- Query complete ---")
}

func printRows(headers string, lines []string) {
	if len(lines) == 0 {
		fmt.Println("  -> No results found for this query.")
		return
	}
	fmt.Printf("\n  --- Found %d matching files ---\n", len(lines))
	fmt.Println("  " + headers)
	fmt.Println("  " + strings.Repeat("-", 70))
	for _, l := range lines {
		fmt.Println("  " + l)
	}
}

func orNull(s *string) string {
	if s == nil {
		return "NULL"
	}
	return *s
}

func orNullFloat(f *float64) string {
	if f == nil {
		return "NULL"
	}
	return fmt.Sprintf("%.4f", *f)
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
