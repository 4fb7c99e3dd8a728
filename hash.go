package main

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"sync"
)

type HashType uint8

const (
	HashNull HashType = iota
	HashTypeMD5
	HashTypeSHA1
	HashTypeSHA256
	HashTypeSHA512
)

func (ht HashType) String() string {
	switch ht {
	case HashTypeMD5:
		return "md5"
	case HashTypeSHA1:
		return "sha1"
	case HashTypeSHA256:
		return "sha256"
	case HashTypeSHA512:
		return "sha512"
	default:
		return "unknown"
	}
}

var HashFuncs = map[HashType]func() hash.Hash{
	HashTypeMD5:    md5.New,
	HashTypeSHA1:   sha1.New,
	HashTypeSHA256: sha256.New,
	HashTypeSHA512: sha512.New,
}

// hashFile calculates the named checksum of a file.
func hashFile(path string, ht HashType) (string, error) {
	newHash, ok := HashFuncs[ht]
	if !ok {
		return "", fmt.Errorf("hash type (%d) not supported", ht)
	}

	f, fSize, err := preCheckFilepath(path)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	if fSize > int64(constMaxFileSize) {
		return "", NewErrFileTooLarge(path, fSize)
	}

	h := newHash()
	if _, err = io.Copy(h, f); err != nil {
		return "", fmt.Errorf("couldn't read '%s' to get %s hash: %w", path, ht.String(), err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashData calculates the named checksum of an in-memory image.
func hashData(data []byte, ht HashType) string {
	newHash, ok := HashFuncs[ht]
	if !ok {
		return ""
	}
	h := newHash()
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// runEnabledHashers computes every configured checksum of the report's
// file, one goroutine per hash.
func (cfg *config) runEnabledHashers(rep *Report) error {
	if len(cfg.hashers) == 0 {
		return nil
	}
	if rep.Checksums == nil {
		rep.Checksums = new(Checksums)
	}

	wg := new(sync.WaitGroup)
	wg.Add(len(cfg.hashers))
	var errs = make(chan error, len(cfg.hashers))

	for _, ht := range cfg.hashers {
		go func(ht HashType) {
			defer wg.Done()
			res, err := hashFile(rep.Path, ht)
			if err != nil {
				errs <- fmt.Errorf("error calculating %s checksum for file (%s): %w", ht.String(), rep.Path, err)
				return
			}
			rep.Checksums.Set(ht, res)
		}(ht)
	}

	wg.Wait()
	close(errs)

	var errsSlice = make([]error, 0, len(cfg.hashers))
	for e := range errs {
		if e != nil {
			errsSlice = append(errsSlice, e)
		}
	}
	return errors.Join(errsSlice...)
}
