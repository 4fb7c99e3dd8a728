// Package mkpe builds small synthetic PE images in memory. It exists for
// tests: real Windows binaries are too large and too licensed to check in,
// and hand-maintained binary fixtures rot. Images produced here carry a DOS
// header, a PE32 optional header, a section table with caller-chosen raw
// data, and optionally a resource section with a version resource.
package mkpe

import (
	"bytes"
	"encoding/binary"
	"sort"
	"unicode/utf16"
)

const (
	dosHeaderSize   = 64
	fileHeaderSize  = 20
	optHeaderSize   = 224 // PE32 with all 16 data directories
	sectionHdrSize  = 40
	fileAlignment   = 512
	sectionAlignRVA = 0x1000
)

type section struct {
	name string
	data []byte
}

// Image accumulates sections and optional version metadata, then renders
// the PE file bytes.
type Image struct {
	sections []section
	verBlock []byte
}

func New() *Image {
	return &Image{}
}

// AddSection appends a section with the given raw data. Names longer than
// 8 bytes are truncated the way a linker would.
func (im *Image) AddSection(name string, data []byte) *Image {
	if len(name) > 8 {
		name = name[:8]
	}
	im.sections = append(im.sections, section{name: name, data: data})
	return im
}

// StringTable is one translation's worth of version metadata.
type StringTable struct {
	Lang     uint16
	Codepage uint16
	Fields   map[string]string
}

// WithVersionInfo appends an .rsrc section holding a VS_VERSIONINFO
// resource with the given string fields, declared for one translation.
func (im *Image) WithVersionInfo(lang, codepage uint16, fields map[string]string) *Image {
	return im.WithVersionTables(StringTable{Lang: lang, Codepage: codepage, Fields: fields})
}

// WithVersionTables builds a version resource with one string table per
// entry; the translation list declares them in the given order.
func (im *Image) WithVersionTables(tables ...StringTable) *Image {
	im.verBlock = buildVersionInfo(tables)
	return im
}

// WithRawVersionInfo appends an .rsrc section wrapping an arbitrary byte
// blob as the version resource, for malformed-resource tests.
func (im *Image) WithRawVersionInfo(block []byte) *Image {
	im.verBlock = block
	return im
}

// Bytes renders the image.
func (im *Image) Bytes() []byte {
	sections := im.sections
	var rsrc []byte
	rsrcIndex := -1
	if im.verBlock != nil {
		rsrcIndex = len(sections)
		// Resource directory RVAs depend on the section's own RVA,
		// which depends only on its index.
		rsrcRVA := uint32(sectionAlignRVA * (rsrcIndex + 1))
		rsrc = buildResourceSection(rsrcRVA, im.verBlock)
		sections = append(sections, section{name: ".rsrc", data: rsrc})
	}

	headersEnd := dosHeaderSize + 4 + fileHeaderSize + optHeaderSize +
		len(sections)*sectionHdrSize
	rawStart := alignUp(headersEnd, fileAlignment)

	total := rawStart
	for _, sec := range sections {
		total = alignUp(total+len(sec.data), fileAlignment)
	}
	buf := make([]byte, total)

	// DOS header: magic and e_lfanew are all that matters.
	binary.LittleEndian.PutUint16(buf[0:], 0x5a4d)
	binary.LittleEndian.PutUint32(buf[60:], dosHeaderSize)

	// PE signature and COFF file header.
	peOff := dosHeaderSize
	binary.LittleEndian.PutUint32(buf[peOff:], 0x00004550)
	fh := buf[peOff+4:]
	binary.LittleEndian.PutUint16(fh[0:], 0x014c) // i386
	binary.LittleEndian.PutUint16(fh[2:], uint16(len(sections)))
	binary.LittleEndian.PutUint16(fh[16:], optHeaderSize)
	binary.LittleEndian.PutUint16(fh[18:], 0x0102) // executable, 32-bit

	// PE32 optional header. Only the magic, the directory count, and the
	// resource directory entry are populated.
	opt := buf[peOff+4+fileHeaderSize:]
	binary.LittleEndian.PutUint16(opt[0:], 0x10b)
	binary.LittleEndian.PutUint32(opt[92:], 16) // NumberOfRvaAndSizes
	if rsrcIndex >= 0 {
		rsrcRVA := uint32(sectionAlignRVA * (rsrcIndex + 1))
		binary.LittleEndian.PutUint32(opt[96+2*8:], rsrcRVA)
		binary.LittleEndian.PutUint32(opt[96+2*8+4:], uint32(len(rsrc)))
	}

	// Section table, with raw data laid out in table order.
	tbl := buf[peOff+4+fileHeaderSize+optHeaderSize:]
	rawOff := rawStart
	for i, sec := range sections {
		hdr := tbl[i*sectionHdrSize:]
		copy(hdr[0:8], sec.name)
		binary.LittleEndian.PutUint32(hdr[8:], uint32(len(sec.data)))          // VirtualSize
		binary.LittleEndian.PutUint32(hdr[12:], uint32(sectionAlignRVA*(i+1))) // VirtualAddress
		binary.LittleEndian.PutUint32(hdr[16:], uint32(len(sec.data)))         // SizeOfRawData
		binary.LittleEndian.PutUint32(hdr[20:], uint32(rawOff))                // PointerToRawData
		copy(buf[rawOff:], sec.data)
		rawOff = alignUp(rawOff+len(sec.data), fileAlignment)
	}

	return buf
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

// Truncated renders the image and cuts it short by n bytes, producing a
// file whose last section's raw range runs past EOF.
func (im *Image) Truncated(n int) []byte {
	b := im.Bytes()
	if n >= len(b) {
		return nil
	}
	return b[:len(b)-n]
}

// buildResourceSection lays out a minimal three-level resource directory
// (type RT_VERSION -> name 1 -> language 0x409) followed by the version
// block itself. All offsets are relative to the section start; data RVAs
// are absolute, hence the section RVA parameter.
func buildResourceSection(sectionRVA uint32, block []byte) []byte {
	const (
		rootOff  = 0
		typeOff  = 24 // root dir (16) + 1 entry (8)
		langOff  = 48
		dataOff  = 72
		blockOff = 88
	)

	out := make([]byte, blockOff+len(block))

	putDir := func(off int, entryID uint32, target uint32, subdir bool) {
		binary.LittleEndian.PutUint16(out[off+14:], 1) // NumberOfIdEntries
		entry := out[off+16:]
		binary.LittleEndian.PutUint32(entry[0:], entryID)
		if subdir {
			target |= 0x80000000
		}
		binary.LittleEndian.PutUint32(entry[4:], target)
	}

	putDir(rootOff, 16, typeOff, true) // RT_VERSION
	putDir(typeOff, 1, langOff, true)
	putDir(langOff, 0x0409, dataOff, false)

	binary.LittleEndian.PutUint32(out[dataOff:], sectionRVA+blockOff)
	binary.LittleEndian.PutUint32(out[dataOff+4:], uint32(len(block)))

	copy(out[blockOff:], block)
	return out
}

// buildVersionInfo renders a VS_VERSIONINFO block: fixed file info, one
// StringFileInfo table per translation, and a VarFileInfo declaring them.
func buildVersionInfo(tables []StringTable) []byte {
	tbls := make([][]byte, 0, len(tables))
	transVal := make([]byte, 4*len(tables))
	for i, tbl := range tables {
		names := make([]string, 0, len(tbl.Fields))
		for name := range tbl.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		strs := make([][]byte, 0, len(names))
		for _, name := range names {
			strs = append(strs, verNode(name, utf16z(tbl.Fields[name]), true))
		}
		tbls = append(tbls, verNode(tableKey(tbl.Lang, tbl.Codepage), nil, true, strs...))

		binary.LittleEndian.PutUint16(transVal[i*4:], tbl.Lang)
		binary.LittleEndian.PutUint16(transVal[i*4+2:], tbl.Codepage)
	}

	strInfo := verNode("StringFileInfo", nil, true, tbls...)
	trans := verNode("Translation", transVal, false)
	varInfo := verNode("VarFileInfo", nil, true, trans)

	fixed := make([]byte, 52)
	binary.LittleEndian.PutUint32(fixed[0:], 0xFEEF04BD) // VS_FFI_SIGNATURE
	return verNode("VS_VERSION_INFO", fixed, false, strInfo, varInfo)
}

func tableKey(lang, codepage uint16) string {
	const hex = "0123456789abcdef"
	k := make([]byte, 8)
	for i, v := range []uint16{lang, codepage} {
		k[i*4+0] = hex[v>>12&0xf]
		k[i*4+1] = hex[v>>8&0xf]
		k[i*4+2] = hex[v>>4&0xf]
		k[i*4+3] = hex[v&0xf]
	}
	return string(k)
}

// verNode renders one VS_VERSIONINFO node: wLength, wValueLength, wType,
// UTF-16 key, padding, value, padding, children at 32-bit offsets.
func verNode(key string, value []byte, text bool, children ...[]byte) []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, 6)) // patched below
	buf.Write(utf16z(key))
	pad4(&buf)
	buf.Write(value)
	if len(children) > 0 {
		pad4(&buf)
	}
	for i, child := range children {
		if i > 0 {
			pad4(&buf)
		}
		buf.Write(child)
	}

	out := buf.Bytes()
	valueLen := len(value)
	typ := uint16(0)
	if text {
		typ = 1
		valueLen /= 2 // text value lengths are in 16-bit words
	}
	binary.LittleEndian.PutUint16(out[0:], uint16(len(out)))
	binary.LittleEndian.PutUint16(out[2:], uint16(valueLen))
	binary.LittleEndian.PutUint16(out[4:], typ)
	return out
}

// utf16z encodes s as UTF-16LE with a NUL terminator.
func utf16z(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, (len(units)+1)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[i*2:], u)
	}
	return out
}

func pad4(buf *bytes.Buffer) {
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
}
