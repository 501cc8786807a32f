package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrInvalidPage is returned for a page number or page size below 1.
	ErrInvalidPage = errors.New("page and limit must be >= 1")

	// ErrMissingTotalCount is returned when the count response carries no
	// usable X-Total-Count header.
	ErrMissingTotalCount = errors.New("missing or invalid X-Total-Count header")

	// ErrRateLimited is returned when the rate limit tracker blocks a request.
	ErrRateLimited = errors.New("request blocked: rate limit critical")
)

// ErrorClass represents a classification of fetch errors.
type ErrorClass string

const (
	// ErrorClassTransport represents network failures (no response).
	ErrorClassTransport ErrorClass = "transport"

	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassDecode represents a 2xx response whose body or headers could
	// not be interpreted.
	ErrorClassDecode ErrorClass = "decode"
)

// FetchError is returned for every failed request to the blog API.
type FetchError struct {
	Class      ErrorClass
	StatusCode int
	URL        string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("fetch %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a network failure.
func IsTransport(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Class == ErrorClassTransport
}

// IsResponse reports whether err came from a response the client could not
// accept: a non-success status or an undecodable body.
func IsResponse(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Class != ErrorClassTransport
}

// classOf returns the error class of err, or "" if err is not a FetchError.
func classOf(err error) ErrorClass {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ""
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassTransport:
		return true
	default:
		// 4xx and decode errors repeat identically.
		return false
	}
}
