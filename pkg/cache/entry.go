package cache

import (
	"net/http"
	"time"
)

// Entry represents a cached page response.
type Entry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Header are the response headers
	Header http.Header `json:"header"`

	// Expires is when the cache entry becomes stale
	Expires time.Time `json:"expires"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// EntryFromResponse builds a cache entry from a fetched response.
// The endpoint's Expires header wins when it parses and lies in the future;
// otherwise the entry expires after defaultTTL.
func EntryFromResponse(statusCode int, header http.Header, body []byte, defaultTTL time.Duration) *Entry {
	now := time.Now()
	expires := now.Add(defaultTTL)

	if expiresStr := header.Get("Expires"); expiresStr != "" {
		if parsed, err := http.ParseTime(expiresStr); err == nil && parsed.After(now) {
			expires = parsed
		}
	}

	return &Entry{
		Data:       body,
		StatusCode: statusCode,
		Header:     header,
		Expires:    expires,
		CachedAt:   now,
	}
}
