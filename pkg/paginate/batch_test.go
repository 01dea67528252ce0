package paginate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Sternrassler/rest-pager/pkg/fetch"
)

func TestBatchCollect_AssemblesInPageOrder(t *testing.T) {
	const totalPages = 8

	pages := make(map[int]stubPage, totalPages)
	for p := 1; p <= totalPages; p++ {
		pages[p] = stubPage{body: fmt.Sprintf(`{"page": %d, "pages": %d, "records": [{"id": %d}]}`, p, totalPages, p)}
	}
	fetcher := &stubFetcher{pages: pages}

	bc := NewBatchCollector(fetcher, Options{}, BatchConfig{MaxConcurrency: 3})
	result, err := bc.Collect(context.Background(), "https://api.example.org", []string{"items"}, nil)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	ids := recordIDs(result.Records)
	if len(ids) != totalPages {
		t.Fatalf("len(Records) = %d, want %d", len(ids), totalPages)
	}
	for i, id := range ids {
		if id != i+1 {
			t.Errorf("Records[%d] id = %d, want %d (page order must survive parallel fetch)", i, id, i+1)
		}
	}
	if result.Pages != totalPages {
		t.Errorf("Pages = %d, want %d", result.Pages, totalPages)
	}
	if result.Stop != StopCompleted {
		t.Errorf("Stop = %q, want completed", result.Stop)
	}
}

func TestBatchCollect_SinglePage(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]stubPage{
		1: {body: `{"page": 1, "pages": 1, "records": [{"id": 1}, {"id": 2}]}`},
	}}

	bc := NewBatchCollector(fetcher, Options{}, DefaultBatchConfig())
	result, err := bc.Collect(context.Background(), "https://api.example.org", nil, nil)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if fetcher.callCount() != 1 {
		t.Errorf("Fetch calls = %d, want 1", fetcher.callCount())
	}
	if len(result.Records) != 2 {
		t.Errorf("len(Records) = %d, want 2", len(result.Records))
	}
}

func TestBatchCollect_PartialOnPageFailure(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]stubPage{
		1: {body: `{"pages": 4, "records": [{"id": 1}]}`},
		2: {body: `{"pages": 4, "records": [{"id": 2}]}`},
		3: {err: &fetch.RemoteError{StatusCode: 503, ErrorClass: fetch.ErrorClassServer, Message: "unavailable"}},
		4: {body: `{"pages": 4, "records": [{"id": 4}]}`},
	}}

	// Serial workers make the contiguous prefix deterministic.
	bc := NewBatchCollector(fetcher, Options{}, BatchConfig{MaxConcurrency: 1})
	result, err := bc.Collect(context.Background(), "https://api.example.org", nil, nil)
	if err == nil {
		t.Fatal("Expected error but got nil")
	}

	var partial *PartialError
	if !errors.As(err, &partial) {
		t.Fatalf("Error = %T, want *PartialError", err)
	}

	ids := recordIDs(result.Records)
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("Partial records = %v, want contiguous prefix [1 2]", ids)
	}
	if result.Stop != StopFailed {
		t.Errorf("Stop = %q, want failed", result.Stop)
	}
}

func TestBatchCollect_MaxPagesBound(t *testing.T) {
	pages := make(map[int]stubPage)
	for p := 1; p <= 20; p++ {
		pages[p] = stubPage{body: fmt.Sprintf(`{"pages": 20, "records": [{"id": %d}]}`, p)}
	}
	fetcher := &stubFetcher{pages: pages}

	bc := NewBatchCollector(fetcher, Options{MaxPages: 5}, BatchConfig{MaxConcurrency: 2})
	result, err := bc.Collect(context.Background(), "https://api.example.org", nil, nil)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if result.Pages != 5 {
		t.Errorf("Pages = %d, want 5", result.Pages)
	}
	if result.Stop != StopBoundReached {
		t.Errorf("Stop = %q, want bound_reached", result.Stop)
	}
}

func TestBatchCollect_DerivesPagesFromTotalRecords(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]stubPage{
		1: {body: `{"count": 5, "records": [{"id": 1}, {"id": 2}]}`},
		2: {body: `{"count": 5, "records": [{"id": 3}, {"id": 4}]}`},
		3: {body: `{"count": 5, "records": [{"id": 5}]}`},
	}}

	bc := NewBatchCollector(fetcher, Options{}, BatchConfig{MaxConcurrency: 2})
	result, err := bc.Collect(context.Background(), "https://api.example.org", nil, nil)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(result.Records) != 5 {
		t.Errorf("len(Records) = %d, want 5", len(result.Records))
	}
	ids := recordIDs(result.Records)
	for i, id := range ids {
		if id != i+1 {
			t.Errorf("Records[%d] id = %d, want %d", i, id, i+1)
		}
	}
}

func TestBatchCollect_InvalidInput(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]stubPage{}}

	bc := NewBatchCollector(fetcher, Options{}, DefaultBatchConfig())
	_, err := bc.Collect(context.Background(), "https://api.example.org?page=1", nil, nil)
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
	if fetcher.callCount() != 0 {
		t.Errorf("Fetch calls = %d, want 0", fetcher.callCount())
	}
}
