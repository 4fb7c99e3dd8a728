package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/petriage/petriage/pkg/entropy"
)

const (
	// Max file size for entropy and checksums is 2GB
	constMaxFileSize = 2147483648
	// Need 2 bytes to check for the DOS stub magic
	constMagicNumRead = 2
)

// peMagic is the DOS header magic ("MZ") every PE image starts with.
var peMagic = []byte{0x4d, 0x5a}

type ErrNotRegularFile struct {
	Path string
}

func (e *ErrNotRegularFile) Error() string {
	return fmt.Sprintf("file '%s' is not a regular file", e.Path)
}

func NewErrNotRegularFile(path string) *ErrNotRegularFile {
	return &ErrNotRegularFile{Path: path}
}

type ErrFileTooLarge struct {
	Path string
	Size int64
	Max  int64
}

func (e *ErrFileTooLarge) Error() string {
	return fmt.Sprintf("file size of '%s' is too large (%d bytes) to analyze (max allowed: %d bytes)",
		e.Path, e.Size, e.Max)
}

func NewErrFileTooLarge(path string, size int64) *ErrFileTooLarge {
	return &ErrFileTooLarge{Path: path, Size: size, Max: constMaxFileSize}
}

var ErrNoPath = fmt.Errorf("no path provided")

func preCheckFilepath(path string) (*os.File, int64, error) {
	if path == "" {
		return nil, 0, ErrNoPath
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't open '%s': %w", path, err)
	}

	fStat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}

	if !fStat.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, NewErrNotRegularFile(path)
	}

	if fStat.Size() == 0 {
		_ = f.Close()
		return nil, fStat.Size(), fmt.Errorf("file '%s' is zero size", path)
	}

	return f, fStat.Size(), nil
}

// IsFilePE reads the magic bytes from the passed file and reports whether
// it looks like a PE image.
func IsFilePE(path string) (isPE bool, err error) {
	var f *os.File
	var fSize int64

	if f, fSize, err = preCheckFilepath(path); err != nil {
		return false, err
	}

	defer func() {
		_ = f.Close()
	}()

	// Too small to be PE
	if fSize < constMagicNumRead {
		return false, nil
	}

	var magic [constMagicNumRead]byte
	var n int
	if n, err = f.Read(magic[:]); err != nil {
		return false, fmt.Errorf("read failure during PE check: %w", err)
	}
	if n != constMagicNumRead {
		return false, fmt.Errorf("%w: undersized read during PE check", io.ErrUnexpectedEOF)
	}

	return bytes.Equal(magic[:], peMagic), nil
}

// IsPE reports whether the in-memory image looks like a PE image.
func IsPE(data []byte) bool {
	return len(data) >= constMagicNumRead && bytes.Equal(data[:constMagicNumRead], peMagic)
}

// FileEntropy calculates the Shannon entropy of a whole file by streaming
// it through an accumulator.
func FileEntropy(path string) (float64, error) {
	f, size, err := preCheckFilepath(path)
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = f.Close()
	}()

	if size > int64(constMaxFileSize) {
		return 0, NewErrFileTooLarge(path, size)
	}

	acc := new(entropy.Accumulator)
	if _, err = io.Copy(acc, f); err != nil {
		return 0, fmt.Errorf("couldn't read '%s' to calculate entropy: %w", path, err)
	}

	return acc.Sum(), nil
}
