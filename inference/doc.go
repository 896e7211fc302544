// Package inference scores content items for disinformation signals
// using an ONNX model.
//
// The ONNXEngine wraps a single onnxruntime session behind a bounded
// slot pool so concurrent callers cannot oversubscribe the model. Each
// Predict call featurizes the text deterministically, runs one forward
// pass, and returns fakeness, emotion, and visual artifact scores.
//
// Failures carry an ErrorKind so the pipeline can distinguish retryable
// conditions (timeout, model unavailable) from permanent ones (invalid
// input).
package inference
