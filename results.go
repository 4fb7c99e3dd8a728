package main

import "bytes"

// Results holds the reports of one scan run. It contains a slice of
// [Report] and a [csvSchema].
type Results struct {
	Reports
	csvSchema csvSchema
}

// NewResults creates a new [Results] struct with an empty slice of [Report]
// and the default [csvSchema].
func NewResults() *Results {
	return &Results{Reports: make(Reports, 0), csvSchema: defCSVHeader}
}

// WithDelimiter sets the delimiter for the [Results] struct for purposes of
// CSV marshalling.
func (r *Results) WithDelimiter(delim string) *Results {
	r.csvSchema.delim = delim
	return r
}

// Add adds a [Report] to the [Results] struct.
func (r *Results) Add(rep *Report) {
	r.Reports = append(r.Reports, rep)
}

// MarshalCSV marshals the [Results] struct to CSV format using the
// [r.csvSchema].
func (r *Results) MarshalCSV() ([]byte, error) {
	buf := new(bytes.Buffer)
	write := func(data []byte) { _, _ = buf.Write(data) }
	write(r.csvSchema.header())
	write([]byte("\n"))
	for _, rep := range r.Reports {
		entry, err := r.csvSchema.parse(rep)
		if err != nil {
			return nil, err
		}
		write(entry)
	}
	return buf.Bytes(), nil
}
