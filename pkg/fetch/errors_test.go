package fetch

import (
	"errors"
	"io"
	"testing"
)

func TestRemoteError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *RemoteError
		want string
	}{
		{
			name: "without wrapped error",
			err: &RemoteError{
				StatusCode: 500,
				ErrorClass: ErrorClassServer,
				Message:    "Internal Server Error",
			},
			want: "remote server error (status 500): Internal Server Error",
		},
		{
			name: "with wrapped error",
			err: &RemoteError{
				StatusCode: 429,
				ErrorClass: ErrorClassRateLimit,
				Message:    "Too Many Requests",
				Err:        io.EOF,
			},
			want: "remote rate_limit error (status 429): Too Many Requests: EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRemoteError_Unwrap(t *testing.T) {
	inner := io.EOF
	err := &RemoteError{StatusCode: 500, ErrorClass: ErrorClassServer, Err: inner}

	if !errors.Is(err, io.EOF) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &NetworkError{Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  bool
	}{
		{ErrorClassClient, false},
		{ErrorClassServer, true},
		{ErrorClassRateLimit, true},
		{ErrorClassNetwork, true},
		{ErrorClass(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			if got := shouldRetry(tt.class); got != tt.want {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.class, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        error
		want       ErrorClass
	}{
		{name: "network error", err: io.EOF, want: ErrorClassNetwork},
		{name: "rate limit", statusCode: 429, want: ErrorClassRateLimit},
		{name: "not found", statusCode: 404, want: ErrorClassClient},
		{name: "server error", statusCode: 500, want: ErrorClassServer},
		{name: "bad gateway", statusCode: 502, want: ErrorClassServer},
		{name: "success", statusCode: 200, want: ErrorClass("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.statusCode, tt.err); got != tt.want {
				t.Errorf("classify(%d, %v) = %q, want %q", tt.statusCode, tt.err, got, tt.want)
			}
		})
	}
}
