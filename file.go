package main

import "github.com/petriage/petriage/pkg/store"

// Reports is a slice of [Report] pointers.
type Reports []*Report

// Report is the full result of scanning one binary: the persisted record
// plus scan-time enrichment (magic check, whole-file entropy, checksums)
// that is shown and exported but not stored.
type Report struct {
	Path      string        `json:"path"`
	Name      string        `json:"name"`
	IsPE      bool          `json:"pe"`
	Entropy   float64       `json:"entropy"`
	Checksums *Checksums    `json:"checksums"`
	Record    *store.Record `json:"record"`
}
