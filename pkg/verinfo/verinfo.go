// Package verinfo extracts VERSIONINFO string metadata from Windows
// binaries. Extraction is best-effort by design: a missing or malformed
// version resource yields an empty result, never an error, so callers can
// treat metadata as purely optional.
package verinfo

import (
	"strings"

	"github.com/petriage/petriage/pkg/pefile"
)

// Fields lists the string table entries collected from a version resource.
var Fields = []string{
	"CompanyName",
	"FileDescription",
	"FileVersion",
	"InternalName",
	"LegalCopyright",
	"OriginalFilename",
	"ProductName",
	"ProductVersion",
	"Comments",
}

// Source reads version metadata for a binary on disk. Implementations never
// fail: any field that cannot be read is simply absent from the result.
type Source interface {
	Read(path string) map[string]string
}

// Portable extracts metadata by walking the file's resource directory
// directly, with no platform API involved. It works on any OS and is also
// used for images fetched over the network.
type Portable struct{}

func (Portable) Read(path string) map[string]string {
	f, err := pefile.Open(path)
	if err != nil {
		return map[string]string{}
	}
	return fromImage(f)
}

// FromBytes extracts metadata from an in-memory image.
func FromBytes(data []byte) map[string]string {
	f, err := pefile.Parse(data)
	if err != nil {
		return map[string]string{}
	}
	return fromImage(f)
}

// fromImage reads the string table for the binary's first declared
// translation. Binaries with a string table but no translation entry exist
// in the wild; they report no metadata rather than guessing a language.
func fromImage(f *pefile.File) map[string]string {
	out := map[string]string{}

	block, err := f.VersionResource()
	if err != nil {
		return out
	}
	vi, err := pefile.ParseVersionInfo(block)
	if err != nil {
		return out
	}

	trans := vi.Translations()
	if len(trans) == 0 {
		return out
	}
	first := trans[0]

	for _, field := range Fields {
		v, ok := vi.String(first.Lang, first.Codepage, field)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v != "" {
			out[field] = v
		}
	}
	return out
}
