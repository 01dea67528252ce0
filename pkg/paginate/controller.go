package paginate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/rest-pager/pkg/fetch"
	"github.com/Sternrassler/rest-pager/pkg/normalize"
	"github.com/Sternrassler/rest-pager/pkg/request"
)

// Prometheus metrics for pagination runs.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pager_pages_fetched_total",
		Help: "Total pages fetched across all pagination runs",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pager_pagination_runs_total",
		Help: "Total pagination runs by stop reason",
	}, []string{"stop"})
)

// StopReason records why a pagination run ended.
type StopReason string

const (
	// StopCompleted means the endpoint reported no further pages.
	StopCompleted StopReason = "completed"

	// StopBoundReached means a caller-supplied page or record cap was hit.
	StopBoundReached StopReason = "bound_reached"

	// StopFailed means the run aborted on an error; the result is partial.
	StopFailed StopReason = "failed"
)

// Policy decides whether another page should be fetched after the current
// one. page is the 1-based page just processed, accumulated the total
// record count so far, pageRecords the count on the current page.
type Policy func(meta normalize.PageMetadata, page, accumulated, pageRecords int) bool

// MetadataPolicy continues while the envelope's explicit totals say more
// pages remain. Total pages win over total records when both are present.
// An envelope reporting neither (or zero totals) terminates immediately,
// so a single empty page never loops.
func MetadataPolicy(meta normalize.PageMetadata, page, accumulated, pageRecords int) bool {
	if meta.TotalPages > 0 {
		return page < meta.TotalPages
	}
	if meta.TotalRecords > 0 {
		return accumulated < meta.TotalRecords
	}
	return false
}

// EmptyPagePolicy continues until the first page with zero records, for
// endpoints that signal completion implicitly instead of reporting totals.
// Pair it with MaxPages against endpoints that never return an empty page.
func EmptyPagePolicy(meta normalize.PageMetadata, page, accumulated, pageRecords int) bool {
	return pageRecords > 0
}

// Options configures a pagination run.
type Options struct {
	// PageParam is the query key carrying the 1-based page cursor.
	// Default: "page".
	PageParam string

	// MaxPages caps the number of fetch calls (0 = unbounded). A
	// misbehaving endpoint that always reports more pages stops here.
	MaxPages int

	// MaxRecords caps the accumulated record count (0 = unbounded),
	// checked once per page boundary.
	MaxRecords int

	// Fields names the envelope's pagination metadata keys.
	// The zero value falls back to normalize.DefaultFieldMap.
	Fields normalize.FieldMap

	// BareArray marks endpoints whose body is a plain JSON array with no
	// envelope. Implies a single page unless Policy says otherwise.
	BareArray bool

	// Separator joins parent and child keys when flattening records.
	Separator string

	// Policy is the termination rule. Default: MetadataPolicy.
	Policy Policy
}

// Result is the accumulated outcome of one pagination run. It is handed to
// the caller as a snapshot once the run ends and is not modified afterwards.
type Result struct {
	// Records in arrival order: page N's records precede page N+1's.
	Records []normalize.Record

	// Meta is the metadata of the last successfully normalized page.
	Meta normalize.PageMetadata

	// Pages is the number of fetch calls performed.
	Pages int

	// Stop records why the run ended.
	Stop StopReason
}

// PartialError wraps a failed run together with the records collected
// before the failure, so successfully fetched data is never silently lost.
type PartialError struct {
	Partial *Result
	Err     error
}

// Error implements the error interface.
func (e *PartialError) Error() string {
	return fmt.Sprintf("pagination failed after %d pages (%d records collected): %v",
		e.Partial.Pages, len(e.Partial.Records), e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PartialError) Unwrap() error {
	return e.Err
}

// Controller drives the build → fetch → normalize → accumulate cycle.
type Controller struct {
	fetcher    fetch.Fetcher
	normalizer *normalize.Normalizer
	opts       Options
	logger     zerolog.Logger
}

// NewController creates a controller around an injected fetcher.
func NewController(fetcher fetch.Fetcher, opts Options) *Controller {
	if opts.PageParam == "" {
		opts.PageParam = "page"
	}
	if isZeroFieldMap(opts.Fields) && !opts.BareArray {
		opts.Fields = normalize.DefaultFieldMap()
	}
	if opts.Policy == nil {
		opts.Policy = MetadataPolicy
	}

	return &Controller{
		fetcher:    fetcher,
		normalizer: normalize.New(opts.Fields, opts.Separator),
		opts:       opts,
		logger:     log.With().Str("component", "paginator").Logger(),
	}
}

// Paginate runs a single pagination with default options plus the given
// caps. It is a convenience wrapper around NewController(...).Run(...).
func Paginate(ctx context.Context, fetcher fetch.Fetcher, baseURL string, segments []string, params map[string]string, maxPages int) (*Result, error) {
	c := NewController(fetcher, Options{MaxPages: maxPages})
	return c.Run(ctx, baseURL, segments, params)
}

// Run paginates the endpoint to completion, a bound, or a failure.
// On failure the returned error is a *PartialError carrying the same
// (partial) Result that is also returned directly.
func (c *Controller) Run(ctx context.Context, baseURL string, segments []string, params map[string]string) (*Result, error) {
	// Initializing: validate inputs before any network activity.
	base, err := request.Build(baseURL, segments, params)
	if err != nil {
		return nil, err
	}

	result := &Result{Stop: StopCompleted}

	c.logger.Debug().
		Str("base_url", baseURL).
		Int("max_pages", c.opts.MaxPages).
		Msg("Starting pagination run")

	// Fetching: loop until the policy, a bound, or an error stops us.
	for page := 1; ; page++ {
		if c.opts.MaxPages > 0 && result.Pages >= c.opts.MaxPages {
			result.Stop = StopBoundReached
			break
		}
		if c.opts.MaxRecords > 0 && len(result.Records) >= c.opts.MaxRecords {
			result.Stop = StopBoundReached
			break
		}

		desc := base.WithParam(c.opts.PageParam, strconv.Itoa(page))

		raw, err := c.fetcher.Fetch(ctx, desc)
		if err != nil {
			return c.fail(result, page, err)
		}
		result.Pages++
		pagesFetchedTotal.Inc()

		records, meta, err := c.normalizer.Normalize(raw.Body)
		if err != nil {
			return c.fail(result, page, err)
		}
		if meta.CurrentPage == 0 {
			meta.CurrentPage = page
		}

		result.Records = append(result.Records, records...)
		result.Meta = meta

		// Progress logging every 50 pages
		if result.Pages%50 == 0 {
			c.logger.Info().
				Int("pages", result.Pages).
				Int("records", len(result.Records)).
				Msg("Pagination progress")
		}

		if !c.opts.Policy(meta, page, len(result.Records), len(records)) {
			break
		}
	}

	// Done.
	runsTotal.WithLabelValues(string(result.Stop)).Inc()
	c.logger.Info().
		Str("base_url", baseURL).
		Int("pages", result.Pages).
		Int("records", len(result.Records)).
		Str("stop", string(result.Stop)).
		Msg("Pagination run complete")

	return result, nil
}

// fail finalizes a run that died on the given page, returning the partial
// result both directly and wrapped in the error.
func (c *Controller) fail(result *Result, page int, err error) (*Result, error) {
	result.Stop = StopFailed
	runsTotal.WithLabelValues(string(StopFailed)).Inc()

	c.logger.Warn().
		Err(err).
		Int("page", page).
		Int("pages_fetched", result.Pages).
		Int("records", len(result.Records)).
		Msg("Pagination run failed - returning partial result")

	return result, &PartialError{Partial: result, Err: err}
}

// isZeroFieldMap reports whether no envelope field is configured.
func isZeroFieldMap(f normalize.FieldMap) bool {
	return f == (normalize.FieldMap{})
}
