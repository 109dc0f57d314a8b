// Package retry runs an operation with exponential backoff and jitter until it
// succeeds, returns a non-retryable error, or exhausts its attempt or time
// budget.
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
//	    return pool.Ping(ctx)
//	})
//
// HTTP calls should use internal/platform/httpclient instead, which also
// understands status codes and Retry-After.
package retry
