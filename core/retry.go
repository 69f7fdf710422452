package core

import (
	"context"
	"time"
)

var (
	RetryAttempts = 3
	RetryBackoff  = 20 * time.Millisecond // waits backoff*attempt between attempts
)

// Retry calls fn until it succeeds, fails with a non transient error or RetryAttempts is reached.
func Retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= RetryAttempts; attempt++ {
		if err = fn(); err == nil || !IsTransient(err) {
			return err
		}
		if attempt == RetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * RetryBackoff):
		}
	}
	return err
}
