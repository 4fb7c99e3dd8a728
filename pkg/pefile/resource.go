package pefile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Resource type id of VERSIONINFO blocks (RT_VERSION).
const resourceTypeVersion = 16

const (
	sizeOfResourceDir      = 16
	sizeOfResourceDirEntry = 8
	sizeOfResourceData     = 16

	// High bit of a directory entry offset marks a subdirectory.
	resourceSubdirFlag = 0x80000000
)

var errNoVersionResource = errors.New("image has no version resource")

// VersionResource returns the raw VS_VERSIONINFO block embedded in the
// image's resource directory, or an error if the image carries none (or the
// directory is malformed). The traversal follows the usual three-level
// layout: type -> name -> language, taking the first entry at the name and
// language levels.
func (f *File) VersionResource() ([]byte, error) {
	if f.resourceDir.VirtualAddress == 0 {
		return nil, errNoVersionResource
	}
	base, err := f.offsetForRVA(f.resourceDir.VirtualAddress)
	if err != nil {
		return nil, fmt.Errorf("resource directory: %w", err)
	}

	typeEntries, err := f.resourceEntries(base, 0)
	if err != nil {
		return nil, err
	}

	for _, entry := range typeEntries {
		if entry.id != resourceTypeVersion || entry.isName {
			continue
		}
		if !entry.isDir {
			break
		}

		nameEntries, err := f.resourceEntries(base, entry.offset)
		if err != nil {
			return nil, err
		}
		if len(nameEntries) == 0 || !nameEntries[0].isDir {
			break
		}

		langEntries, err := f.resourceEntries(base, nameEntries[0].offset)
		if err != nil {
			return nil, err
		}
		if len(langEntries) == 0 || langEntries[0].isDir {
			break
		}

		return f.resourceData(base, langEntries[0].offset)
	}

	return nil, errNoVersionResource
}

type resourceEntry struct {
	id     uint32
	isName bool
	isDir  bool
	offset uint32 // relative to the resource directory base
}

// resourceEntries reads one IMAGE_RESOURCE_DIRECTORY and its entry list.
func (f *File) resourceEntries(base int64, dirOffset uint32) ([]resourceEntry, error) {
	off := base + int64(dirOffset)
	if off+sizeOfResourceDir > int64(len(f.data)) {
		return nil, fmt.Errorf("resource directory at 0x%x truncated", off)
	}

	named := binary.LittleEndian.Uint16(f.data[off+12:])
	ids := binary.LittleEndian.Uint16(f.data[off+14:])
	count := int(named) + int(ids)

	entries := make([]resourceEntry, 0, count)
	cur := off + sizeOfResourceDir
	for i := 0; i < count; i++ {
		if cur+sizeOfResourceDirEntry > int64(len(f.data)) {
			return nil, fmt.Errorf("resource directory entry %d truncated", i)
		}
		name := binary.LittleEndian.Uint32(f.data[cur:])
		data := binary.LittleEndian.Uint32(f.data[cur+4:])
		entries = append(entries, resourceEntry{
			id:     name &^ resourceSubdirFlag,
			isName: name&resourceSubdirFlag != 0,
			isDir:  data&resourceSubdirFlag != 0,
			offset: data &^ resourceSubdirFlag,
		})
		cur += sizeOfResourceDirEntry
	}
	return entries, nil
}

// resourceData resolves an IMAGE_RESOURCE_DATA_ENTRY to its raw bytes.
func (f *File) resourceData(base int64, entryOffset uint32) ([]byte, error) {
	off := base + int64(entryOffset)
	if off+sizeOfResourceData > int64(len(f.data)) {
		return nil, fmt.Errorf("resource data entry at 0x%x truncated", off)
	}

	dataRVA := binary.LittleEndian.Uint32(f.data[off:])
	size := binary.LittleEndian.Uint32(f.data[off+4:])

	start, err := f.offsetForRVA(dataRVA)
	if err != nil {
		return nil, fmt.Errorf("resource data: %w", err)
	}
	end := start + int64(size)
	if end > int64(len(f.data)) {
		return nil, fmt.Errorf("resource data [0x%x:0x%x] extends past end of file", start, end)
	}
	return f.data[start:end], nil
}
