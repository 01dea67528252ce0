package fetch

import (
	"errors"
	"fmt"
)

// Common errors returned by fetchers.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of fetch errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (except 429).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// RemoteError represents a non-2xx response from the endpoint.
type RemoteError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("remote %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NetworkError represents a connection-level failure (timeout, DNS,
// connection refused) before any response was received.
type NetworkError struct {
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors indicate a caller mistake and should NOT be retried
		return false
	case ErrorClassServer:
		// 5xx server errors should be retried
		return true
	case ErrorClassRateLimit:
		// 429 rate limit responses should be retried after backoff
		return true
	case ErrorClassNetwork:
		// Network errors should be retried
		return true
	default:
		return false
	}
}

// classify categorizes a response status code or transport error.
func classify(statusCode int, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case statusCode == 429:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
