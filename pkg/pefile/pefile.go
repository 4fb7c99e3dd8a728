// Package pefile reads just enough of the PE container format to enumerate
// sections with their raw data and to locate the embedded VERSIONINFO
// resource block. It deliberately tolerates images with unusual header
// values as long as the section table itself can be located.
package pefile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	// "MZ"
	dosMagic = 0x5a4d
	// "PE\0\0"
	ntSignature = 0x00004550

	optMagicPE32     = 0x10b
	optMagicPE32Plus = 0x20b

	sizeOfDosHeader     = 64
	sizeOfFileHeader    = 20
	sizeOfSectionHeader = 40

	// Data directory slot of the resource table.
	dirEntryResource = 2

	// Max file size accepted for parsing is 2GB.
	maxImageSize = 2147483648
)

// ParseError describes a structural violation that prevented the section
// table (or part of it) from being read. It is recoverable per file: callers
// record the cause and move on.
type ParseError struct {
	Path  string
	Cause string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return e.Cause
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Cause)
}

func newParseError(path, format string, args ...any) *ParseError {
	return &ParseError{Path: path, Cause: fmt.Sprintf(format, args...)}
}

type dosHeader struct {
	Magic    uint16
	Cblp     uint16
	Cp       uint16
	Crlc     uint16
	Cparhdr  uint16
	Minalloc uint16
	Maxalloc uint16
	SS       uint16
	SP       uint16
	Csum     uint16
	IP       uint16
	CS       uint16
	Lfarlc   uint16
	Ovno     uint16
	Res      [4]uint16
	Oemid    uint16
	Oeminfo  uint16
	Res2     [10]uint16
	Lfanew   uint32
}

type fileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

type sectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

type dataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

// Section is one section table entry together with its raw file data.
type Section struct {
	Name string
	Data []byte

	virtualAddress uint32
	virtualSize    uint32
	rawSize        uint32
	rawPointer     uint32
}

// File is a minimally parsed PE image.
type File struct {
	Machine  uint16
	Is64     bool
	Sections []Section

	data        []byte
	resourceDir dataDirectory
}

// Open reads and parses the PE image at path.
func Open(path string) (*File, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, newParseError(path, "not a regular file")
	}
	if fi.Size() > maxImageSize {
		return nil, newParseError(path, "file too large to parse (%d bytes)", fi.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	return f, nil
}

// Parse parses an in-memory PE image. The returned File keeps a reference
// to data; section Data fields are subslices of it.
func Parse(data []byte) (*File, error) {
	if len(data) < sizeOfDosHeader {
		return nil, newParseError("", "file too small for a DOS header (%d bytes)", len(data))
	}

	r := bytes.NewReader(data)
	var dos dosHeader
	if err := binary.Read(r, binary.LittleEndian, &dos); err != nil {
		return nil, newParseError("", "reading DOS header: %v", err)
	}
	if dos.Magic != dosMagic {
		return nil, newParseError("", "missing MZ magic (got 0x%04x)", dos.Magic)
	}

	peOff := int64(dos.Lfanew)
	if peOff < sizeOfDosHeader || peOff+4+sizeOfFileHeader > int64(len(data)) {
		return nil, newParseError("", "PE header offset 0x%x outside file bounds", dos.Lfanew)
	}

	var sig uint32
	seek(r, peOff)
	if err := binary.Read(r, binary.LittleEndian, &sig); err != nil {
		return nil, newParseError("", "reading PE signature: %v", err)
	}
	if sig != ntSignature {
		return nil, newParseError("", "missing PE signature (got 0x%08x)", sig)
	}

	var fh fileHeader
	if err := binary.Read(r, binary.LittleEndian, &fh); err != nil {
		return nil, newParseError("", "reading file header: %v", err)
	}

	f := &File{Machine: fh.Machine, data: data}

	optOff := peOff + 4 + sizeOfFileHeader
	optSize := int64(fh.SizeOfOptionalHeader)
	if optOff+optSize > int64(len(data)) {
		return nil, newParseError("", "optional header extends past end of file")
	}
	f.parseOptionalDirectories(data[optOff : optOff+optSize])

	secOff := optOff + optSize
	f.Sections = make([]Section, 0, fh.NumberOfSections)
	for i := 0; i < int(fh.NumberOfSections); i++ {
		var raw sectionHeader
		seek(r, secOff+int64(i)*sizeOfSectionHeader)
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return nil, newParseError("", "section table truncated at entry %d", i)
		}

		sec := Section{
			Name:           strings.TrimRight(string(raw.Name[:]), "\x00"),
			virtualAddress: raw.VirtualAddress,
			virtualSize:    raw.VirtualSize,
			rawSize:        raw.SizeOfRawData,
			rawPointer:     raw.PointerToRawData,
		}

		if raw.SizeOfRawData > 0 {
			start := uint64(raw.PointerToRawData)
			end := start + uint64(raw.SizeOfRawData)
			if end > uint64(len(data)) {
				return nil, newParseError("", "section %q raw data [0x%x:0x%x] extends past end of file",
					sec.Name, start, end)
			}
			sec.Data = data[start:end]
		} else {
			sec.Data = []byte{}
		}

		f.Sections = append(f.Sections, sec)
	}

	return f, nil
}

// parseOptionalDirectories pulls the resource data directory out of the
// optional header when present. Anything short or odd is simply ignored;
// resource lookup is best-effort and section reading does not need it.
func (f *File) parseOptionalDirectories(opt []byte) {
	if len(opt) < 2 {
		return
	}
	magic := binary.LittleEndian.Uint16(opt)

	var numOff, dirOff int
	switch magic {
	case optMagicPE32:
		numOff, dirOff = 92, 96
	case optMagicPE32Plus:
		f.Is64 = true
		numOff, dirOff = 108, 112
	default:
		return
	}

	if len(opt) < numOff+4 {
		return
	}
	numDirs := binary.LittleEndian.Uint32(opt[numOff:])
	if numDirs <= dirEntryResource {
		return
	}

	entryOff := dirOff + dirEntryResource*8
	if len(opt) < entryOff+8 {
		return
	}
	f.resourceDir.VirtualAddress = binary.LittleEndian.Uint32(opt[entryOff:])
	f.resourceDir.Size = binary.LittleEndian.Uint32(opt[entryOff+4:])
}

// offsetForRVA maps a relative virtual address to a file offset through the
// section table.
func (f *File) offsetForRVA(rva uint32) (int64, error) {
	for i := range f.Sections {
		sec := &f.Sections[i]
		size := sec.virtualSize
		if sec.rawSize > size {
			size = sec.rawSize
		}
		if sec.virtualAddress <= rva && rva < sec.virtualAddress+size {
			return int64(sec.rawPointer) + int64(rva-sec.virtualAddress), nil
		}
	}
	return 0, fmt.Errorf("no section maps RVA 0x%x", rva)
}

func seek(r *bytes.Reader, off int64) {
	_, _ = r.Seek(off, 0)
}
