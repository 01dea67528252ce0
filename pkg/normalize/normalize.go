// Package normalize parses raw page bodies into flat records and
// pagination metadata.
package normalize

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Record is one normalized row. Values carry the decoded JSON types:
// string, float64, bool, nil, nested map, or slice.
type Record = map[string]any

// FieldMap names the envelope fields an endpoint uses for pagination
// metadata. Different APIs name them differently, so these are
// configuration, not hard-coded.
type FieldMap struct {
	// PageField is the key holding the current page number.
	PageField string

	// PagesField is the key holding the total page count.
	PagesField string

	// CountField is the key holding the total record count.
	CountField string

	// SizeField is the key holding the page size.
	SizeField string

	// RecordsField is the gjson path of the record list inside the
	// envelope. Empty means the body is a bare JSON array with no
	// envelope, treated as a single unpaged page.
	RecordsField string
}

// DefaultFieldMap returns the most common envelope convention.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		PageField:    "page",
		PagesField:   "pages",
		CountField:   "count",
		SizeField:    "per_page",
		RecordsField: "records",
	}
}

// PageMetadata is the pagination state reported by one page.
type PageMetadata struct {
	CurrentPage  int
	TotalPages   int
	TotalRecords int
	PageSize     int
}

// MalformedError indicates the body does not match the expected shape.
// It is not retryable: it signals a config error or an incompatible endpoint.
type MalformedError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed response: %s", e.Reason)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *MalformedError) Unwrap() error {
	return e.Err
}

// DefaultSeparator joins parent and child keys when flattening.
const DefaultSeparator = "."

// Normalizer converts raw page bodies into records and metadata.
type Normalizer struct {
	fields    FieldMap
	separator string
}

// New creates a normalizer for the given field mapping.
// An empty separator falls back to DefaultSeparator.
func New(fields FieldMap, separator string) *Normalizer {
	if separator == "" {
		separator = DefaultSeparator
	}
	return &Normalizer{
		fields:    fields,
		separator: separator,
	}
}

// Normalize parses a raw body into a flat record sequence plus the page's
// pagination metadata. A page with zero records is legal and returns an
// empty slice with metadata indicating no further pages.
func (n *Normalizer) Normalize(body []byte) ([]Record, PageMetadata, error) {
	if !gjson.ValidBytes(body) {
		return nil, PageMetadata{}, &MalformedError{Reason: "body is not valid JSON"}
	}

	root := gjson.ParseBytes(body)

	// Bare array mode: the whole body is the record list, one unpaged page.
	if n.fields.RecordsField == "" {
		if !root.IsArray() {
			return nil, PageMetadata{}, &MalformedError{
				Reason: "expected a JSON array body (no records field configured)",
			}
		}
		records := n.flattenAll(root.Array())
		return records, PageMetadata{
			CurrentPage: 1,
			TotalPages:  1,
			PageSize:    len(records),
		}, nil
	}

	list := root.Get(n.fields.RecordsField)
	if !list.Exists() {
		return nil, PageMetadata{}, &MalformedError{
			Reason: fmt.Sprintf("record list field %q not found", n.fields.RecordsField),
		}
	}
	if !list.IsArray() {
		return nil, PageMetadata{}, &MalformedError{
			Reason: fmt.Sprintf("record list field %q is not an array", n.fields.RecordsField),
		}
	}

	meta := PageMetadata{}
	foundMeta := false

	if n.fields.PageField != "" {
		if v := root.Get(n.fields.PageField); v.Exists() {
			meta.CurrentPage = int(v.Int())
			foundMeta = true
		}
	}
	if n.fields.PagesField != "" {
		if v := root.Get(n.fields.PagesField); v.Exists() {
			meta.TotalPages = int(v.Int())
			foundMeta = true
		}
	}
	if n.fields.CountField != "" {
		if v := root.Get(n.fields.CountField); v.Exists() {
			meta.TotalRecords = int(v.Int())
			foundMeta = true
		}
	}
	if n.fields.SizeField != "" {
		if v := root.Get(n.fields.SizeField); v.Exists() {
			meta.PageSize = int(v.Int())
		}
	}

	if !foundMeta {
		return nil, PageMetadata{}, &MalformedError{
			Reason: "no pagination metadata field found in envelope",
		}
	}

	records := n.flattenAll(list.Array())
	if meta.PageSize == 0 {
		meta.PageSize = len(records)
	}

	return records, meta, nil
}

// flattenAll normalizes every element of a record list, preserving order.
func (n *Normalizer) flattenAll(elems []gjson.Result) []Record {
	records := make([]Record, 0, len(elems))
	for _, elem := range elems {
		records = append(records, n.flatten(elem))
	}
	return records
}

// flatten lifts one level of object nesting into prefixed top-level keys.
// Arrays are kept as-is, and objects nested deeper than one level stay as
// decoded values under the flattened key. Flattening is intentionally
// shallow to keep field names predictable.
func (n *Normalizer) flatten(elem gjson.Result) Record {
	if !elem.IsObject() {
		// Scalar or array element: wrap so every row stays a mapping.
		return Record{"value": elem.Value()}
	}

	obj := elem.Map()
	rec := make(Record, len(obj))
	for key, val := range obj {
		if val.IsObject() {
			for childKey, childVal := range val.Map() {
				rec[key+n.separator+childKey] = childVal.Value()
			}
			continue
		}
		rec[key] = val.Value()
	}
	return rec
}
