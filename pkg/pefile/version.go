package pefile

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"
)

// VersionInfo is a parsed VS_VERSIONINFO resource block.
type VersionInfo struct {
	root verBlock
}

// Translation is one (language, codepage) pair from the resource's
// VarFileInfo\Translation table.
type Translation struct {
	Lang     uint16
	Codepage uint16
}

// verBlock is the recurring node structure of a VS_VERSIONINFO resource:
// a length-prefixed header, a UTF-16 key, an optional value, and child
// blocks padded to 32-bit boundaries.
type verBlock struct {
	key      string
	value    []byte
	text     bool
	children []verBlock
}

// ParseVersionInfo parses a raw VS_VERSIONINFO block as returned by
// VersionResource. The root key must be "VS_VERSION_INFO".
func ParseVersionInfo(block []byte) (*VersionInfo, error) {
	root, _, err := parseVerBlock(block)
	if err != nil {
		return nil, fmt.Errorf("version resource: %w", err)
	}
	if !strings.EqualFold(root.key, "VS_VERSION_INFO") {
		return nil, fmt.Errorf("version resource: unexpected root key %q", root.key)
	}
	return &VersionInfo{root: root}, nil
}

// Translations returns the (language, codepage) pairs declared under
// VarFileInfo\Translation, in declaration order.
func (v *VersionInfo) Translations() []Translation {
	varInfo := v.root.child("VarFileInfo")
	if varInfo == nil {
		return nil
	}
	trans := varInfo.child("Translation")
	if trans == nil {
		return nil
	}

	pairs := make([]Translation, 0, len(trans.value)/4)
	for i := 0; i+4 <= len(trans.value); i += 4 {
		pairs = append(pairs, Translation{
			Lang:     binary.LittleEndian.Uint16(trans.value[i:]),
			Codepage: binary.LittleEndian.Uint16(trans.value[i+2:]),
		})
	}
	return pairs
}

// String looks up a named string value in the StringFileInfo table for the
// given translation. The second return is false when the table or the field
// is absent.
func (v *VersionInfo) String(lang, codepage uint16, field string) (string, bool) {
	strInfo := v.root.child("StringFileInfo")
	if strInfo == nil {
		return "", false
	}
	table := strInfo.child(fmt.Sprintf("%04x%04x", lang, codepage))
	if table == nil {
		return "", false
	}
	entry := table.child(field)
	if entry == nil {
		return "", false
	}
	return decodeUTF16(entry.value), true
}

// child finds a direct child block by key, case-insensitively. Keys in the
// wild vary in case between linkers.
func (b *verBlock) child(key string) *verBlock {
	for i := range b.children {
		if strings.EqualFold(b.children[i].key, key) {
			return &b.children[i]
		}
	}
	return nil
}

// parseVerBlock parses one block from the front of buf and returns it along
// with the number of bytes consumed (padded to the next 32-bit boundary).
func parseVerBlock(buf []byte) (verBlock, int, error) {
	if len(buf) < 6 {
		return verBlock{}, 0, fmt.Errorf("block header truncated (%d bytes)", len(buf))
	}

	length := int(binary.LittleEndian.Uint16(buf[0:]))
	valueLen := int(binary.LittleEndian.Uint16(buf[2:]))
	blockType := binary.LittleEndian.Uint16(buf[4:])

	if length == 0 {
		return verBlock{}, 0, fmt.Errorf("block with zero length")
	}
	if length > len(buf) {
		length = len(buf)
	}

	key, keyEnd, err := readUTF16Z(buf[:length], 6)
	if err != nil {
		return verBlock{}, 0, err
	}

	blk := verBlock{key: key, text: blockType == 1}

	// Value starts at the next 32-bit boundary after the key.
	pos := align4(keyEnd)
	valueBytes := valueLen
	if blockType == 1 {
		// Text values count wValueLength in 16-bit words.
		valueBytes = valueLen * 2
	}
	if valueBytes > 0 {
		end := pos + valueBytes
		// Some linkers write a value length that overruns the block.
		if end > length {
			end = length
		}
		if pos < end {
			blk.value = buf[pos:end]
		}
		pos = align4(end)
	}

	// Trailing bytes too short to hold a child header are padding.
	for pos+6 <= length {
		child, n, err := parseVerBlock(buf[pos:length])
		if err != nil {
			return verBlock{}, 0, err
		}
		blk.children = append(blk.children, child)
		pos += n
	}

	return blk, align4(length), nil
}

// readUTF16Z decodes a NUL-terminated UTF-16LE string starting at off and
// returns it with the offset just past the terminator.
func readUTF16Z(buf []byte, off int) (string, int, error) {
	var units []uint16
	for i := off; i+2 <= len(buf); i += 2 {
		u := binary.LittleEndian.Uint16(buf[i:])
		if u == 0 {
			return string(utf16.Decode(units)), i + 2, nil
		}
		units = append(units, u)
	}
	return "", 0, fmt.Errorf("unterminated key string at offset %d", off)
}

// decodeUTF16 decodes a UTF-16LE buffer, stopping at the first NUL.
func decodeUTF16(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+2 <= len(b); i += 2 {
		u := binary.LittleEndian.Uint16(b[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

func align4(n int) int {
	return (n + 3) &^ 3
}
