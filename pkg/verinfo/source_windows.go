//go:build windows

package verinfo

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Native reads version metadata through the Windows version APIs, matching
// what Explorer's file properties dialog shows.
type Native struct{}

// NewSource returns the version metadata source for this platform.
func NewSource() Source {
	return Native{}
}

func (Native) Read(path string) map[string]string {
	out := map[string]string{}

	size, err := windows.GetFileVersionInfoSize(path, nil)
	if err != nil || size == 0 {
		return out
	}
	block := make([]byte, size)
	if err := windows.GetFileVersionInfo(path, 0, size, unsafe.Pointer(&block[0])); err != nil {
		return out
	}

	var transPtr unsafe.Pointer
	var transLen uint32
	if err := windows.VerQueryValue(unsafe.Pointer(&block[0]),
		`\VarFileInfo\Translation`, unsafe.Pointer(&transPtr), &transLen); err != nil {
		return out
	}
	if transLen < 4 {
		return out
	}
	pair := unsafe.Slice((*uint16)(transPtr), 2)
	lang, codepage := pair[0], pair[1]

	for _, field := range Fields {
		sub := fmt.Sprintf(`\StringFileInfo\%04x%04x\%s`, lang, codepage, field)
		var valPtr unsafe.Pointer
		var valLen uint32
		if err := windows.VerQueryValue(unsafe.Pointer(&block[0]),
			sub, unsafe.Pointer(&valPtr), &valLen); err != nil {
			continue
		}
		if valLen == 0 {
			continue
		}
		v := strings.TrimSpace(windows.UTF16PtrToString((*uint16)(valPtr)))
		if v != "" {
			out[field] = v
		}
	}
	return out
}
