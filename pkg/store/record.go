package store

import (
	"encoding/json"
	"fmt"
)

// SectionEntropy is one section's name and Shannon entropy as persisted in
// the section entropy blob.
type SectionEntropy struct {
	Name    string  `json:"name"`
	Entropy float64 `json:"entropy"`
}

// Record is one scanned binary: its path, the version resource string
// fields (nil when absent), and the per-section entropy results. When the
// sections could not be read, SectionsErr holds the cause and AvgEntropy is
// nil; the record is still persisted.
type Record struct {
	Path             string            `json:"path" csv:"path"`
	CompanyName      *string           `json:"company_name" csv:"company_name"`
	FileDescription  *string           `json:"file_description" csv:"file_description"`
	FileVersion      *string           `json:"file_version" csv:"file_version"`
	InternalName     *string           `json:"internal_name" csv:"internal_name"`
	LegalCopyright   *string           `json:"legal_copyright" csv:"legal_copyright"`
	OriginalFilename *string           `json:"original_filename" csv:"original_filename"`
	ProductName      *string           `json:"product_name" csv:"product_name"`
	ProductVersion   *string           `json:"product_version" csv:"product_version"`
	Comments         *string           `json:"comments" csv:"comments"`
	Sections         []SectionEntropy  `json:"sections,omitempty" csv:"-"`
	SectionsErr      string            `json:"sections_error,omitempty" csv:"sections_error"`
	AvgEntropy       *float64          `json:"avg_entropy" csv:"avg_entropy"`
}

// metadataFields maps version resource field names to their Record slots.
func (r *Record) metadataFields() map[string]**string {
	return map[string]**string{
		"CompanyName":      &r.CompanyName,
		"FileDescription":  &r.FileDescription,
		"FileVersion":      &r.FileVersion,
		"InternalName":     &r.InternalName,
		"LegalCopyright":   &r.LegalCopyright,
		"OriginalFilename": &r.OriginalFilename,
		"ProductName":      &r.ProductName,
		"ProductVersion":   &r.ProductVersion,
		"Comments":         &r.Comments,
	}
}

// ApplyVersionInfo fills the metadata fields from an extracted version
// resource map. Fields absent from the map stay nil.
func (r *Record) ApplyVersionInfo(info map[string]string) {
	for name, slot := range r.metadataFields() {
		if v, ok := info[name]; ok {
			val := v
			*slot = &val
		}
	}
}

// SetSections records per-section entropies and their arithmetic mean. An
// empty section list leaves AvgEntropy nil.
func (r *Record) SetSections(sections []SectionEntropy) {
	r.Sections = sections
	r.SectionsErr = ""
	r.AvgEntropy = nil
	if len(sections) == 0 {
		return
	}
	var sum float64
	for _, s := range sections {
		sum += s.Entropy
	}
	avg := sum / float64(len(sections))
	r.AvgEntropy = &avg
}

// SetSectionsError marks the record as having failed section analysis.
func (r *Record) SetSectionsError(cause string) {
	r.Sections = nil
	r.SectionsErr = cause
	r.AvgEntropy = nil
}

// sectionErrBlob is the persisted shape of a failed section read.
type sectionErrBlob struct {
	Error string `json:"error"`
}

// encodeSectionBlob serializes the section results for storage: a JSON
// array of name/entropy objects, or an error object when the read failed.
func (r *Record) encodeSectionBlob() (string, error) {
	if r.SectionsErr != "" {
		b, err := json.Marshal(sectionErrBlob{Error: r.SectionsErr})
		return string(b), err
	}
	sections := r.Sections
	if sections == nil {
		sections = []SectionEntropy{}
	}
	b, err := json.Marshal(sections)
	return string(b), err
}

// decodeSectionBlob restores section results from their stored form.
func (r *Record) decodeSectionBlob(blob string) error {
	if len(blob) > 0 && blob[0] == '{' {
		var e sectionErrBlob
		if err := json.Unmarshal([]byte(blob), &e); err != nil {
			return fmt.Errorf("decoding section blob: %w", err)
		}
		r.SectionsErr = e.Error
		return nil
	}
	if err := json.Unmarshal([]byte(blob), &r.Sections); err != nil {
		return fmt.Errorf("decoding section blob: %w", err)
	}
	return nil
}
