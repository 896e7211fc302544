// Package orchestrator drives the analysis pipeline: consume events
// from the stream, score them with the inference engine, derive a
// verdict through rule evaluation, and publish the result.
//
// Each event moves through decoding, inferring, deriving, encoding,
// and publishing. Failures are classified per stage: invalid failures
// are dead lettered immediately, transient ones are retried with
// exponential backoff until the attempt budget is spent. Results carry
// a deduplication message ID derived from the content hash, so a
// redelivered event that already published is suppressed by the
// broker's duplicate window.
//
// Concurrency is bounded by a work slot pool. An event that cannot
// acquire a slot within the configured wait is left unacknowledged and
// comes back through broker redelivery, which keeps backpressure at
// the broker instead of in process memory.
package orchestrator
