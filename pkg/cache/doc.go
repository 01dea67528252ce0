// Package cache provides a Redis-backed response cache for fetched pages.
//
// Cached entries are keyed by the deterministic string form of a request
// descriptor (see pkg/request), so two fetchers asking for the same page of
// the same endpoint share one entry. Entry lifetime comes from the
// endpoint's Expires header when present, otherwise from the fetcher's
// configured fallback TTL. Expired entries are deleted on read.
//
// Usage:
//
//	manager := cache.NewManager(redisClient)
//	entry, err := manager.Get(ctx, descriptor.String())
//	if err == cache.ErrCacheMiss {
//		// fetch from the network, then:
//		entry = cache.EntryFromResponse(status, header, body, 60*time.Second)
//		_ = manager.Set(ctx, descriptor.String(), entry)
//	}
package cache
