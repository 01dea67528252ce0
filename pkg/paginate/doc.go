// Package paginate drives page-numbered REST endpoints to completion and
// accumulates normalized records in arrival order.
//
// The Controller is strictly sequential: each page's continuation decision
// depends on the previous page's metadata. The BatchCollector trades that
// for parallelism when the first page already reveals the total page count,
// while still assembling the final record set in page order.
//
// Both return partial results on failure: a run that dies on page N hands
// back everything from pages 1..N-1 wrapped in a *PartialError, so callers
// can decide whether partial data is usable.
package paginate
