// Package errors provides classified error handling for the detector pipeline.
//
// # Overview
//
// The package implements a three-class error classification system for the
// streaming pipeline: Transient (temporary, retryable), Invalid (malformed
// input, non-retryable), and Fatal (unrecoverable, operator attention).
//
// Classification lets the orchestrator route every failure through its state
// machine without string matching at call sites: transient failures are
// retried with backoff, invalid ones are dead-lettered immediately, and
// fatal ones are dead-lettered and flagged.
//
// # Quick start
//
// Wrap errors with component context:
//
//	if err := engine.Predict(ctx, req); err != nil {
//	    return errors.WrapTransient(err, "InferenceEngine", "Predict", "run session")
//	}
//
// Check classification for retry logic:
//
//	if errors.IsTransient(err) {
//	    delay := cfg.BackoffDelay(attempt)
//	    // retry after delay
//	}
//
// All wrapping follows the "component.method: action failed: %w" format and
// preserves classification through errors.Is/As chains. Context errors
// (context.DeadlineExceeded, context.Canceled) classify as Transient.
package errors
