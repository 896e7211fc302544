// Package metric provides Prometheus metrics for the detector pipeline.
//
// The package has three pieces:
//
//   - MetricsRegistry: a private Prometheus registry pre-populated with the
//     core pipeline metric set (Metrics) plus Go runtime collectors.
//     Components register their own collectors through Register with a
//     (service, metric) key that prevents double registration.
//
//   - Server: the HTTP exposition endpoint (promhttp) with /metrics,
//     /health, and an index page.
//
//   - Sink: the fire-and-forget recording path used on the hot path of the
//     pipeline. Record never blocks beyond a bounded enqueue; when the
//     buffer is full the sample is dropped and counted. The drain goroutine
//     dispatches known sample names onto the core Metrics instruments.
//
// The orchestrator only sees the Sink, which keeps metric emission from
// ever propagating backpressure into event processing.
package metric
