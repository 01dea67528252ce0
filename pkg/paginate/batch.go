package paginate

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/rest-pager/pkg/fetch"
	"github.com/Sternrassler/rest-pager/pkg/normalize"
	"github.com/Sternrassler/rest-pager/pkg/request"
)

// BatchConfig holds batch collector configuration.
type BatchConfig struct {
	// MaxConcurrency is the maximum number of parallel page fetches.
	MaxConcurrency int

	// Timeout per page fetch.
	Timeout time.Duration
}

// DefaultBatchConfig returns a safe default configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 10,
		Timeout:        15 * time.Second,
	}
}

// BatchCollector fetches the remaining pages of an endpoint in parallel
// once page 1 has revealed the total page count. The final record set is
// assembled in page order, so the ordering invariant of the sequential
// controller still holds.
type BatchCollector struct {
	fetcher    fetch.Fetcher
	normalizer *normalize.Normalizer
	opts       Options
	config     BatchConfig
}

// pageOutcome carries one worker's normalized page.
type pageOutcome struct {
	page    int
	records []normalize.Record
	err     error
}

// NewBatchCollector creates a batch collector around an injected fetcher.
func NewBatchCollector(fetcher fetch.Fetcher, opts Options, config BatchConfig) *BatchCollector {
	if opts.PageParam == "" {
		opts.PageParam = "page"
	}
	if isZeroFieldMap(opts.Fields) && !opts.BareArray {
		opts.Fields = normalize.DefaultFieldMap()
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &BatchCollector{
		fetcher:    fetcher,
		normalizer: normalize.New(opts.Fields, opts.Separator),
		opts:       opts,
		config:     config,
	}
}

// Collect fetches all pages, parallelizing pages 2..N.
// A failed page fails the run, but the contiguous prefix of pages fetched
// before the gap is returned as a partial result in page order.
func (bc *BatchCollector) Collect(ctx context.Context, baseURL string, segments []string, params map[string]string) (*Result, error) {
	base, err := request.Build(baseURL, segments, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{Stop: StopCompleted}

	// Fetch first page sequentially to learn the total page count.
	records, meta, err := bc.fetchPage(ctx, base, 1)
	if err != nil {
		result.Stop = StopFailed
		return result, &PartialError{Partial: result, Err: err}
	}
	result.Pages = 1
	result.Records = append(result.Records, records...)
	result.Meta = meta
	pagesFetchedTotal.Inc()

	totalPages := meta.TotalPages
	if totalPages == 0 && meta.TotalRecords > 0 && len(records) > 0 {
		// Derive the page count when the endpoint only reports a total.
		totalPages = (meta.TotalRecords + len(records) - 1) / len(records)
	}
	if bc.opts.MaxPages > 0 && totalPages > bc.opts.MaxPages {
		totalPages = bc.opts.MaxPages
		result.Stop = StopBoundReached
	}

	log.Info().
		Str("base_url", baseURL).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	// Single page optimization
	if totalPages <= 1 {
		runsTotal.WithLabelValues(string(result.Stop)).Inc()
		log.Info().
			Str("base_url", baseURL).
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Batch collect complete (single page)")
		return result, nil
	}

	byPage := make(map[int][]normalize.Record)
	var firstErr error
	var mu sync.Mutex

	pageQueue := make(chan int, totalPages)
	for page := 2; page <= totalPages; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	var wg sync.WaitGroup
	for i := 0; i < bc.config.MaxConcurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			bc.worker(ctx, base, pageQueue, &mu, byPage, &firstErr, workerID)
		}(i)
	}
	wg.Wait()

	// Assemble in page order; stop at the first gap so a mid-run failure
	// never produces out-of-order or holey results.
	for page := 2; page <= totalPages; page++ {
		records, ok := byPage[page]
		if !ok {
			break
		}
		result.Records = append(result.Records, records...)
		result.Pages++
	}

	if firstErr != nil {
		result.Stop = StopFailed
		runsTotal.WithLabelValues(string(StopFailed)).Inc()
		log.Warn().
			Err(firstErr).
			Int("pages_assembled", result.Pages).
			Int("total_pages", totalPages).
			Msg("Batch collect failed - returning partial result")
		return result, &PartialError{Partial: result, Err: firstErr}
	}

	runsTotal.WithLabelValues(string(result.Stop)).Inc()
	log.Info().
		Str("base_url", baseURL).
		Int("pages", result.Pages).
		Int("records", len(result.Records)).
		Dur("duration", time.Since(start)).
		Msg("Batch collect complete")

	return result, nil
}

// worker processes pages from the queue until it drains, an error is
// recorded, or the context is cancelled.
func (bc *BatchCollector) worker(ctx context.Context, base request.Descriptor, pageQueue <-chan int, mu *sync.Mutex, byPage map[int][]normalize.Record, firstErr *error, workerID int) {
	pagesProcessed := 0

	for page := range pageQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		mu.Lock()
		stop := *firstErr != nil
		mu.Unlock()
		if stop {
			return
		}

		pageCtx, cancel := context.WithTimeout(ctx, bc.config.Timeout)
		records, _, err := bc.fetchPage(pageCtx, base, page)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("page", page).
				Msg("Page fetch failed")

			mu.Lock()
			if *firstErr == nil {
				*firstErr = err
			}
			mu.Unlock()
			return
		}

		mu.Lock()
		byPage[page] = records
		mu.Unlock()
		pagesFetchedTotal.Inc()
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}

// fetchPage fetches and normalizes a single page.
func (bc *BatchCollector) fetchPage(ctx context.Context, base request.Descriptor, page int) ([]normalize.Record, normalize.PageMetadata, error) {
	desc := base.WithParam(bc.opts.PageParam, strconv.Itoa(page))

	raw, err := bc.fetcher.Fetch(ctx, desc)
	if err != nil {
		return nil, normalize.PageMetadata{}, err
	}

	records, meta, err := bc.normalizer.Normalize(raw.Body)
	if err != nil {
		return nil, normalize.PageMetadata{}, err
	}
	if meta.CurrentPage == 0 {
		meta.CurrentPage = page
	}
	return records, meta, nil
}
