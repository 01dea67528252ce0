// Package request builds deterministic request descriptors for paginated
// REST endpoints.
package request

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrInvalidInput is returned when a descriptor cannot be built from the
// caller-supplied arguments.
var ErrInvalidInput = errors.New("invalid request input")

// Descriptor is a fully specified, value-comparable request.
type Descriptor struct {
	// BaseURL is the scheme+host (and optional root path) of the endpoint.
	BaseURL string

	// PathSegments are appended to BaseURL in order, each URL-escaped.
	PathSegments []string

	// QueryParams are the query parameters. Keys are unique; assigning a
	// key twice before Build keeps the later value.
	QueryParams map[string]string
}

// Build assembles a Descriptor from its parts.
// It is pure: identical inputs always yield an identical descriptor.
func Build(baseURL string, segments []string, params map[string]string) (Descriptor, error) {
	if baseURL == "" {
		return Descriptor{}, fmt.Errorf("%w: base URL is empty", ErrInvalidInput)
	}
	if strings.Contains(baseURL, "?") {
		return Descriptor{}, fmt.Errorf("%w: base URL %q already contains a query component", ErrInvalidInput, baseURL)
	}
	if _, err := url.Parse(baseURL); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	d := Descriptor{BaseURL: strings.TrimRight(baseURL, "/")}

	if len(segments) > 0 {
		d.PathSegments = make([]string, len(segments))
		copy(d.PathSegments, segments)
	}

	if len(params) > 0 {
		d.QueryParams = make(map[string]string, len(params))
		for k, v := range params {
			d.QueryParams[k] = v
		}
	}

	return d, nil
}

// WithParam returns a copy of the descriptor with one query parameter set,
// overwriting any earlier value for the same key. The receiver is not
// modified, so a controller can derive per-page descriptors from one base.
func (d Descriptor) WithParam(key, value string) Descriptor {
	params := make(map[string]string, len(d.QueryParams)+1)
	for k, v := range d.QueryParams {
		params[k] = v
	}
	params[key] = value
	d.QueryParams = params
	return d
}

// URL renders the descriptor as a fully-qualified URL string.
// Query parameters are sorted by key so that equal descriptors always
// render to byte-identical URLs.
func (d Descriptor) URL() string {
	var b strings.Builder
	b.WriteString(d.BaseURL)

	for _, seg := range d.PathSegments {
		b.WriteString("/")
		b.WriteString(url.PathEscape(seg))
	}

	if len(d.QueryParams) > 0 {
		keys := make([]string, 0, len(d.QueryParams))
		for k := range d.QueryParams {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("?")
		for i, k := range keys {
			if i > 0 {
				b.WriteString("&")
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteString("=")
			b.WriteString(url.QueryEscape(d.QueryParams[k]))
		}
	}

	return b.String()
}

// String generates a deterministic key form of the descriptor.
// Format: pager:host/path:param1=val1:param2=val2
//
// Example:
//
//	pager:api.example.org/v2/surveys:page=1:per_page=100
func (d Descriptor) String() string {
	parts := []string{"pager"}

	endpoint := strings.TrimPrefix(d.BaseURL, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.Trim(endpoint, "/")
	for _, seg := range d.PathSegments {
		endpoint += "/" + url.PathEscape(seg)
	}
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(d.QueryParams) > 0 {
		keys := make([]string, 0, len(d.QueryParams))
		for k := range d.QueryParams {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, d.QueryParams[k]))
		}
	}

	return strings.Join(parts, ":")
}
