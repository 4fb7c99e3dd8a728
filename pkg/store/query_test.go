package store

import (
	"testing"
)

// seedQueryFixtures loads a small population covering every query's filter
// and ordering cases.
func seedQueryFixtures(t *testing.T, st *Store) {
	t.Helper()

	packed := &Record{
		Path:            `C:\Windows\packed.exe`,
		CompanyName:     strPtr("ACME"),
		FileDescription: strPtr("packer stub"),
		ProductName:     strPtr("ACME Packer"),
	}
	packed.SetSections([]SectionEntropy{
		{Name: ".text", Entropy: 7.9},
		{Name: ".data", Entropy: 7.7},
	})

	hotter := &Record{
		Path:            `C:\Windows\hotter.exe`,
		CompanyName:     strPtr("ACME"),
		FileDescription: strPtr("loader"),
		ProductName:     strPtr("ACME Loader"),
	}
	hotter.SetSections([]SectionEntropy{{Name: ".text", Entropy: 7.95}})

	plain := &Record{
		Path:            `C:\Windows\plain.exe`,
		CompanyName:     strPtr("Initech"),
		FileDescription: strPtr("TPS tool"),
		ProductName:     strPtr("TPS Reporter"),
	}
	plain.SetSections([]SectionEntropy{
		{Name: ".text", Entropy: 6.0},
		{Name: ".data", Entropy: 2.0},
	})

	anonymous := &Record{Path: `C:\Temp\anonymous.exe`}
	anonymous.SetSections([]SectionEntropy{{Name: ".text", Entropy: 7.2}})

	broken := &Record{Path: `C:\Temp\broken.exe`}
	broken.SetSectionsError("missing PE signature (got 0x00000000)")

	for _, rec := range []*Record{packed, hotter, plain, anonymous, broken} {
		if err := st.Upsert(rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestHighEntropy(t *testing.T) {
	st := tempStore(t)
	seedQueryFixtures(t, st)

	rows, err := st.HighEntropy(7.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// DESC by average entropy: hotter (7.95) before packed (7.8).
	if rows[0].Path != `C:\Windows\hotter.exe` || rows[1].Path != `C:\Windows\packed.exe` {
		t.Errorf("unexpected order: %s, %s", rows[0].Path, rows[1].Path)
	}
	if rows[0].CompanyName == nil || *rows[0].CompanyName != "ACME" {
		t.Errorf("unexpected company: %v", rows[0].CompanyName)
	}

	// A threshold above every record matches nothing.
	rows, err = st.HighEntropy(7.99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestMissingInfo(t *testing.T) {
	st := tempStore(t)
	seedQueryFixtures(t, st)

	rows, err := st.MissingInfo()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// anonymous (all nine fields null) and broken (null fields AND null
	// entropy, which sorts last under DESC).
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Path != `C:\Temp\anonymous.exe` {
		t.Errorf("expected anonymous.exe first, got %s", rows[0].Path)
	}
	if rows[1].Path != `C:\Temp\broken.exe` {
		t.Errorf("expected broken.exe last, got %s", rows[1].Path)
	}
	if rows[1].AvgEntropy != nil {
		t.Errorf("expected nil entropy for broken.exe, got %v", *rows[1].AvgEntropy)
	}
}

func TestSectionEntropy(t *testing.T) {
	st := tempStore(t)
	seedQueryFixtures(t, st)

	rows, err := st.SectionEntropy(".text", 7.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// hotter 7.95, packed 7.9, anonymous 7.2; plain (6.0) is under the
	// threshold and broken has no section array at all.
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	want := []string{`C:\Windows\hotter.exe`, `C:\Windows\packed.exe`, `C:\Temp\anonymous.exe`}
	for i, path := range want {
		if rows[i].Path != path {
			t.Errorf("row %d: expected %s, got %s", i, path, rows[i].Path)
		}
	}
	if rows[2].ProductName != nil {
		t.Errorf("expected nil product for anonymous.exe, got %q", *rows[2].ProductName)
	}

	// Only the named section counts: .data never crosses 7.5.
	rows, err = st.SectionEntropy(".data", 7.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].Path != `C:\Windows\packed.exe` {
		t.Errorf("unexpected .data rows: %+v", rows)
	}
}
