package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfigForErrorClass(t *testing.T) {
	tests := []struct {
		name            string
		errorClass      ErrorClass
		expectedInitial time.Duration
		expectedMax     time.Duration
	}{
		{"server error config", ErrorClassServer, 1 * time.Second, 10 * time.Second},
		{"rate limit config", ErrorClassRateLimit, 5 * time.Second, 60 * time.Second},
		{"network error config", ErrorClassNetwork, 2 * time.Second, 30 * time.Second},
		{"unknown error class uses default", "", 1 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := RetryConfigForErrorClass(tt.errorClass)
			if config.InitialBackoff != tt.expectedInitial {
				t.Errorf("InitialBackoff = %v, want %v", config.InitialBackoff, tt.expectedInitial)
			}
			if config.MaxBackoff != tt.expectedMax {
				t.Errorf("MaxBackoff = %v, want %v", config.MaxBackoff, tt.expectedMax)
			}
			if config.MaxAttempts != 3 {
				t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
			}
		})
	}
}

// fastRetry keeps the per-class attempts but shrinks the waits.
func fastRetry(attempts int) func(ErrorClass) RetryConfig {
	return func(ErrorClass) RetryConfig {
		return RetryConfig{
			MaxAttempts:       attempts,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        5 * time.Millisecond,
			BackoffMultiplier: 2.0,
		}
	}
}

func TestRetryWithBackoff_SucceedsAfterTransientErrors(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(context.Background(), fastRetry(3), func() error {
		attempts++
		if attempts < 3 {
			return &APIError{StatusCode: 503, ErrorClass: ErrorClassServer}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("retryWithBackoff() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryWithBackoff_DoesNotRetryFinalAnswers(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"client error", &APIError{StatusCode: 404, ErrorClass: ErrorClassClient}},
		{"unauthorized", &APIError{StatusCode: 401, ErrorClass: ErrorClassUnauthorized}},
		{"redirect", &RedirectError{Path: "/profile/fill"}},
		{"unclassified", errors.New("encode request")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := retryWithBackoff(context.Background(), fastRetry(3), func() error {
				attempts++
				return tt.err
			})
			if attempts != 1 {
				t.Errorf("attempts = %d, want 1", attempts)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("error = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	attempts := 0
	serverErr := &APIError{StatusCode: 500, ErrorClass: ErrorClassServer}
	err := retryWithBackoff(context.Background(), fastRetry(2), func() error {
		attempts++
		return serverErr
	})

	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
		t.Errorf("last APIError not preserved in %v", err)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := func(ErrorClass) RetryConfig {
		return RetryConfig{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour, BackoffMultiplier: 2}
	}

	attempts := 0
	err := retryWithBackoff(ctx, slow, func() error {
		attempts++
		cancel()
		return &APIError{ErrorClass: ErrorClassNetwork}
	})

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("error = %v, want ErrContextCancelled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
}

func TestRetryWithBackoff_HonoursBackoffWindow(t *testing.T) {
	window := 30 * time.Millisecond
	attempts := 0
	start := time.Now()
	err := retryWithBackoff(context.Background(), fastRetry(2), func() error {
		attempts++
		if attempts == 1 {
			return &APIError{ErrorClass: ErrorClassRateLimit, RetryAfter: window}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < window {
		t.Errorf("retried after %s, want at least %s", elapsed, window)
	}
}
