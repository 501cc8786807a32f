package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{
			name:       "client error should not retry",
			errorClass: ErrorClassClient,
			expected:   false,
		},
		{
			name:       "server error should retry",
			errorClass: ErrorClassServer,
			expected:   true,
		},
		{
			name:       "rate limit should retry",
			errorClass: ErrorClassRateLimit,
			expected:   true,
		},
		{
			name:       "transport error should retry",
			errorClass: ErrorClassTransport,
			expected:   true,
		},
		{
			name:       "decode error should not retry",
			errorClass: ErrorClassDecode,
			expected:   false,
		},
		{
			name:       "empty error class should not retry",
			errorClass: "",
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *FetchError
		expected string
	}{
		{
			name: "error with wrapped error",
			err: &FetchError{
				Class:   ErrorClassTransport,
				Message: "request failed",
				Err:     errors.New("connection refused"),
			},
			expected: "fetch transport error (status 0): request failed: connection refused",
		},
		{
			name: "error without wrapped error",
			err: &FetchError{
				StatusCode: 404,
				Class:      ErrorClassClient,
				Message:    "404 Not Found",
			},
			expected: "fetch client error (status 404): 404 Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := fmt.Errorf("list posts page 1: %w", &FetchError{Class: ErrorClassDecode, Err: inner})

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatal("errors.As should find the FetchError")
	}
	if fe.Class != ErrorClassDecode {
		t.Errorf("Class = %q, want %q", fe.Class, ErrorClassDecode)
	}
}

func TestIsTransportIsResponse(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransport bool
		wantResponse  bool
	}{
		{name: "transport", err: &FetchError{Class: ErrorClassTransport}, wantTransport: true},
		{name: "server", err: &FetchError{Class: ErrorClassServer}, wantResponse: true},
		{name: "client", err: &FetchError{Class: ErrorClassClient}, wantResponse: true},
		{name: "decode", err: &FetchError{Class: ErrorClassDecode}, wantResponse: true},
		{name: "plain error", err: errors.New("boom")},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransport(tt.err); got != tt.wantTransport {
				t.Errorf("IsTransport() = %v, want %v", got, tt.wantTransport)
			}
			if got := IsResponse(tt.err); got != tt.wantResponse {
				t.Errorf("IsResponse() = %v, want %v", got, tt.wantResponse)
			}
		})
	}
}
