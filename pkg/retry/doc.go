// Package retry provides minimal exponential backoff retry logic.
//
// The package is intentionally small: no circuit breakers, no metrics
// collection, no error classification. The caller decides what to retry,
// optionally marking errors with NonRetryable to fail fast.
//
// Basic usage:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Connect()
//	})
//
// With a result:
//
//	stream, err := retry.DoWithResult(ctx, retry.Quick(), func() (jetstream.Stream, error) {
//	    return js.Stream(ctx, name)
//	})
//
// All operations respect context cancellation, both during execution and
// during backoff delays. The jitter mechanism uses a thread-safe random
// source; all functions are safe for concurrent use.
package retry
