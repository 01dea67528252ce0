package normalize

import (
	"errors"
	"testing"
)

func TestNormalize_Envelope(t *testing.T) {
	n := New(DefaultFieldMap(), "")

	body := []byte(`{
		"page": 1,
		"pages": 3,
		"count": 25,
		"per_page": 10,
		"records": [
			{"id": 1, "name": "alpha"},
			{"id": 2, "name": "beta"}
		]
	}`)

	records, meta, err := n.Normalize(body)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0]["id"] != float64(1) || records[0]["name"] != "alpha" {
		t.Errorf("records[0] = %v, want id=1 name=alpha", records[0])
	}
	if records[1]["id"] != float64(2) {
		t.Errorf("records[1] = %v, want id=2", records[1])
	}

	if meta.CurrentPage != 1 {
		t.Errorf("CurrentPage = %d, want 1", meta.CurrentPage)
	}
	if meta.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", meta.TotalPages)
	}
	if meta.TotalRecords != 25 {
		t.Errorf("TotalRecords = %d, want 25", meta.TotalRecords)
	}
	if meta.PageSize != 10 {
		t.Errorf("PageSize = %d, want 10", meta.PageSize)
	}
}

func TestNormalize_FlattenOneLevel(t *testing.T) {
	n := New(DefaultFieldMap(), "")

	body := []byte(`{
		"pages": 1,
		"records": [
			{
				"id": 7,
				"meta": {"lang": "en", "source": {"name": "api"}},
				"tags": ["a", "b"]
			}
		]
	}`)

	records, _, err := n.Normalize(body)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	rec := records[0]

	// One level of nesting is lifted with the parent prefix
	if rec["meta.lang"] != "en" {
		t.Errorf("rec[meta.lang] = %v, want en", rec["meta.lang"])
	}
	if _, exists := rec["meta"]; exists {
		t.Error("Parent key 'meta' should be replaced by flattened keys")
	}

	// Deeper objects stay as decoded values under the flattened key
	source, ok := rec["meta.source"].(map[string]any)
	if !ok {
		t.Fatalf("rec[meta.source] = %T, want map", rec["meta.source"])
	}
	if source["name"] != "api" {
		t.Errorf("meta.source.name = %v, want api", source["name"])
	}

	// Arrays are kept as-is, not flattened
	tags, ok := rec["tags"].([]any)
	if !ok {
		t.Fatalf("rec[tags] = %T, want slice", rec["tags"])
	}
	if len(tags) != 2 || tags[0] != "a" {
		t.Errorf("tags = %v, want [a b]", tags)
	}
}

func TestNormalize_CustomSeparatorAndFields(t *testing.T) {
	n := New(FieldMap{
		PagesField:   "meta.total_pages",
		CountField:   "meta.total",
		RecordsField: "data.items",
	}, "_")

	body := []byte(`{
		"meta": {"total_pages": 2, "total": 12},
		"data": {"items": [{"user": {"id": 9}}]}
	}`)

	records, meta, err := n.Normalize(body)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if meta.TotalPages != 2 || meta.TotalRecords != 12 {
		t.Errorf("meta = %+v, want TotalPages=2 TotalRecords=12", meta)
	}
	if records[0]["user_id"] != float64(9) {
		t.Errorf("records[0] = %v, want user_id=9", records[0])
	}
}

func TestNormalize_EmptyPage(t *testing.T) {
	n := New(DefaultFieldMap(), "")

	body := []byte(`{"page": 1, "pages": 0, "count": 0, "records": []}`)

	records, meta, err := n.Normalize(body)
	if err != nil {
		t.Fatalf("Normalize failed on empty page: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
	if meta.TotalPages != 0 || meta.TotalRecords != 0 {
		t.Errorf("meta = %+v, want zero totals", meta)
	}
}

func TestNormalize_BareArray(t *testing.T) {
	n := New(FieldMap{}, "")

	body := []byte(`[{"id": 1}, {"id": 2}, {"id": 3}]`)

	records, meta, err := n.Normalize(body)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("len(records) = %d, want 3", len(records))
	}
	if meta.CurrentPage != 1 || meta.TotalPages != 1 {
		t.Errorf("meta = %+v, want single page", meta)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		fields FieldMap
		body   string
	}{
		{
			name:   "invalid JSON",
			fields: DefaultFieldMap(),
			body:   `{"records": [`,
		},
		{
			name:   "missing record list",
			fields: DefaultFieldMap(),
			body:   `{"pages": 3}`,
		},
		{
			name:   "record list not an array",
			fields: DefaultFieldMap(),
			body:   `{"pages": 3, "records": {"id": 1}}`,
		},
		{
			name:   "no pagination metadata",
			fields: DefaultFieldMap(),
			body:   `{"records": [{"id": 1}]}`,
		},
		{
			name:   "bare array mode given object",
			fields: FieldMap{},
			body:   `{"id": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(tt.fields, "")
			_, _, err := n.Normalize([]byte(tt.body))

			var malformed *MalformedError
			if !errors.As(err, &malformed) {
				t.Errorf("Error = %v, want *MalformedError", err)
			}
		})
	}
}

func TestNormalize_ScalarElements(t *testing.T) {
	n := New(FieldMap{}, "")

	records, _, err := n.Normalize([]byte(`["x", 3, true]`))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if records[0]["value"] != "x" {
		t.Errorf("records[0] = %v, want value=x", records[0])
	}
	if records[1]["value"] != float64(3) {
		t.Errorf("records[1] = %v, want value=3", records[1])
	}
	if records[2]["value"] != true {
		t.Errorf("records[2] = %v, want value=true", records[2])
	}
}
