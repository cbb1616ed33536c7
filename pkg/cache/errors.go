package cache

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for cache backends.
var (
	// ErrNotFound reports that a requested item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNetwork reports a backend failure (timeout, connection error).
	ErrNetwork = errors.New("network error")

	// ErrCacheMiss reports that a key was absent from the cache.
	ErrCacheMiss = errors.New("cache miss")
)

// RetryableError marks an error as transient. Backends wrap network
// failures with it so callers can distinguish "try again" from "give up".
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as transient. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is marked transient anywhere in its chain.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// retryAttempts bounds RetryWithBackoff; the delay doubles between tries.
const retryAttempts = 3

// RetryWithBackoff runs fn until it succeeds, fails permanently, or the
// attempt budget is exhausted. Only errors marked with Retryable are
// retried. Context cancellation aborts the wait between attempts.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := time.Second

	for attempt := 0; attempt < retryAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		if attempt == retryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return lastErr
}
