// Package detector is the root of the NSAI disinformation detector, a
// neuro-symbolic stream processor that pairs ML inference with
// rule-based reasoning.
//
// Events arrive on a durable JetStream consumer, one content item per
// message. Each item is scored by an ONNX model (fakeness, emotional
// manipulation, visual artifacts), the scores are discretized into
// ground facts, and a Datalog program derives a verdict: DISINFO,
// SUSPICIOUS, or SAFE. Results are republished with deduplication
// message IDs so redelivered events cannot produce duplicate results.
//
// Package layout:
//
//   - cmd/detector: the service binary
//   - orchestrator: the consume, infer, derive, publish pipeline
//   - inference: ONNX model scoring
//   - rules: the Datalog evaluator and the verdict program
//   - message: wire payloads and their JSON codec
//   - natsclient: managed NATS connection and JetStream helpers
//   - metric: Prometheus metrics, the scrape endpoint, and the
//     non-blocking sample sink
//   - config: JSON configuration
//   - errors: classified errors shared across packages
//   - pkg/retry: generic retry with exponential backoff
package detector
