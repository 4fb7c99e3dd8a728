package main

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type csvHeaderStructMapping struct {
	header    string // key in CSV header
	structTag string // dotted path of JSON struct tags
}

type csvSchema struct {
	keys  map[int]csvHeaderStructMapping
	delim string
}

func (csv csvSchema) header() []byte {
	var buf = new(bytes.Buffer)
	for i := 0; i < len(csv.keys); i++ {
		_, _ = buf.WriteString(csv.keys[i].header)
		if i < len(csv.keys)-1 {
			_, _ = buf.WriteString(csv.delim)
		}
	}
	return buf.Bytes()
}

var (
	// ErrUnsupportedType is returned when a type is not supported during CSV reflection.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrNilPointer is returned when a pointer is nil during CSV reflection.
	ErrNilPointer = errors.New("nil pointer")
)

// fieldByTagPath resolves a dotted JSON-tag path ("record.avg_entropy")
// against a struct value, dereferencing pointers along the way. The zero
// Value is returned when any element of the path is missing or nil.
func fieldByTagPath(ref reflect.Value, path string) reflect.Value {
	for _, tag := range strings.Split(path, ".") {
		for ref.Kind() == reflect.Ptr {
			if ref.IsNil() {
				return reflect.Value{}
			}
			ref = ref.Elem()
		}
		if ref.Kind() != reflect.Struct {
			return reflect.Value{}
		}

		found := false
		for j := 0; j < ref.NumField(); j++ {
			structTag := ref.Type().Field(j).Tag.Get("json")
			if idx := strings.Index(structTag, ","); idx >= 0 {
				structTag = structTag[:idx]
			}
			if structTag == tag {
				ref = ref.Field(j)
				found = true
				break
			}
		}
		if !found {
			return reflect.Value{}
		}
	}
	return ref
}

func (csv csvSchema) parse(in any) ([]byte, error) {
	var buf = new(bytes.Buffer)
	write := func(s string) { _, _ = buf.WriteString(s) }
	ref := reflect.ValueOf(in)
	if ref.Kind() == reflect.Ptr && ref.IsNil() {
		return nil, ErrNilPointer
	}

	var finErr error

	for i := 0; i < len(csv.keys); i++ {
		field := fieldByTagPath(ref, csv.keys[i].structTag)
		if field.Kind() == reflect.Ptr && !field.IsNil() {
			field = field.Elem()
		}

		switch {
		// Missing fields and nil pointers become empty cells.
		case !field.IsValid():
		case field.Kind() == reflect.Ptr || field.Kind() == reflect.Interface:
		default:
			switch field.Kind() {
			case reflect.String:
				write(field.String())
			case reflect.Float64, reflect.Float32:
				write(strconv.FormatFloat(field.Float(), 'f', 4, 64))
			case reflect.Bool:
				write(strconv.FormatBool(field.Bool()))
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				write(strconv.Itoa(int(field.Int())))
			default:
				finErr = fmt.Errorf("csv: %w: %s", ErrUnsupportedType, field.Kind().String())
			}
		}

		if i < len(csv.keys)-1 {
			write(csv.delim)
		}

		if i == len(csv.keys)-1 {
			write("\n")
		}

		if finErr != nil {
			break
		}
	}

	return buf.Bytes(), finErr
}

var defCSVHeader = csvSchema{
	keys: map[int]csvHeaderStructMapping{
		0:  {"filename", "name"},
		1:  {"path", "path"},
		2:  {"pe_file", "pe"},
		3:  {"entropy", "entropy"},
		4:  {"avg_entropy", "record.avg_entropy"},
		5:  {"company_name", "record.company_name"},
		6:  {"file_description", "record.file_description"},
		7:  {"file_version", "record.file_version"},
		8:  {"internal_name", "record.internal_name"},
		9:  {"legal_copyright", "record.legal_copyright"},
		10: {"original_filename", "record.original_filename"},
		11: {"product_name", "record.product_name"},
		12: {"product_version", "record.product_version"},
		13: {"comments", "record.comments"},
		14: {"md5", "checksums.md5"},
		15: {"sha1", "checksums.sha1"},
		16: {"sha256", "checksums.sha256"},
		17: {"sha512", "checksums.sha512"},
	},
	delim: constDelimeterDefault,
}
