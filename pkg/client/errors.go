package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrUnauthorized matches any APIError caused by an invalid or expired session.
	ErrUnauthorized = errors.New("session unauthorized")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// APIError represents a failed Skilly API call with its classification.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string

	// Detail is the "message" field of the response body, if the backend sent one.
	Detail string

	// RetryAfter is set when a local backoff window refused the request.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		return fmt.Sprintf("skilly %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, msg, e.Err)
	}
	return fmt.Sprintf("skilly %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, msg)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports unauthorized API errors as ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.ErrorClass == ErrorClassUnauthorized
}

// RedirectError is the backend's 307 instruction to move the user elsewhere.
// It is not a failure: callers navigate to Path instead of reporting it.
type RedirectError struct {
	Path string
}

func (e *RedirectError) Error() string {
	return "redirect to " + e.Path
}

// IsUnauthorized reports whether err was caused by session loss.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// AsRedirect extracts the redirect path from err, if any.
func AsRedirect(err error) (string, bool) {
	var re *RedirectError
	if errors.As(err, &re) {
		return re.Path, true
	}
	return "", false
}

// ClassOf returns the error class carried by err, or "" for foreign errors.
func ClassOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	if _, ok := AsRedirect(err); ok {
		return ErrorClassRedirect
	}
	return ""
}

// UserMessage returns the server supplied message for err when the backend
// sent one, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// unauthorized, redirect and 4xx are final answers
		return false
	}
}
