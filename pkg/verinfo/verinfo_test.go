package verinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/petriage/petriage/internal/mkpe"
)

func TestFromBytes(t *testing.T) {
	img := mkpe.New().
		AddSection(".text", []byte{0xc3}).
		WithVersionInfo(0x0409, 0x04b0, map[string]string{
			"CompanyName":     "  Initech  ", // surrounding whitespace gets trimmed
			"ProductName":     "TPS Reporter",
			"FileDescription": "   ", // whitespace-only means absent
		}).
		Bytes()

	got := FromBytes(img)

	if got["CompanyName"] != "Initech" {
		t.Errorf("expected trimmed CompanyName, got %q", got["CompanyName"])
	}
	if got["ProductName"] != "TPS Reporter" {
		t.Errorf("unexpected ProductName: %q", got["ProductName"])
	}
	if _, ok := got["FileDescription"]; ok {
		t.Error("expected whitespace-only FileDescription to be absent")
	}
	if _, ok := got["LegalCopyright"]; ok {
		t.Error("expected undeclared LegalCopyright to be absent")
	}
}

func TestFromBytesNoResource(t *testing.T) {
	img := mkpe.New().AddSection(".text", []byte{0xc3}).Bytes()
	if got := FromBytes(img); len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestFromBytesNotPE(t *testing.T) {
	if got := FromBytes([]byte("not even close")); len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
	if got := FromBytes(nil); len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestFirstTranslationOnly(t *testing.T) {
	// Fields live in the second translation's table only; since lookup
	// uses the first declared translation, nothing is found.
	img := mkpe.New().
		AddSection(".text", []byte{0xc3}).
		WithVersionTables(
			mkpe.StringTable{Lang: 0x0409, Codepage: 0x04b0,
				Fields: map[string]string{"ProductName": "English"}},
			mkpe.StringTable{Lang: 0x0407, Codepage: 0x04b0,
				Fields: map[string]string{"CompanyName": "Initech GmbH"}},
		).
		Bytes()

	got := FromBytes(img)
	if got["ProductName"] != "English" {
		t.Errorf("expected first translation's ProductName, got %q", got["ProductName"])
	}
	if _, ok := got["CompanyName"]; ok {
		t.Error("expected CompanyName from the second translation to be ignored")
	}
}

func TestPortableRead(t *testing.T) {
	img := mkpe.New().
		AddSection(".text", []byte{0xc3}).
		WithVersionInfo(0x0409, 0x04b0, map[string]string{"CompanyName": "Initech"}).
		Bytes()

	path := filepath.Join(t.TempDir(), "tool.exe")
	if err := os.WriteFile(path, img, 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src := Portable{}
	got := src.Read(path)
	if got["CompanyName"] != "Initech" {
		t.Errorf("unexpected CompanyName: %q", got["CompanyName"])
	}

	if got = src.Read(filepath.Join(t.TempDir(), "missing.exe")); len(got) != 0 {
		t.Errorf("expected empty map for missing file, got %v", got)
	}
}
