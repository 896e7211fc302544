package message

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeError indicates a payload that cannot be interpreted. Decode
// failures are permanent for a given payload and must not be retried.
type DecodeError struct {
	Reason string
	Err    error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode: %s", e.Reason)
}

// Unwrap returns the underlying error
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError indicates a result that cannot be serialized.
type EncodeError struct {
	Reason string
	Err    error
}

// Error implements the error interface
func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encode: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("encode: %s", e.Reason)
}

// Unwrap returns the underlying error
func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DecodeInput parses an AnalysisInput from its JSON wire form. Unknown
// fields are rejected so that schema drift surfaces as a decode failure
// instead of silently dropped data.
func DecodeInput(data []byte) (*AnalysisInput, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Reason: "empty payload"}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var input AnalysisInput
	if err := dec.Decode(&input); err != nil {
		return nil, &DecodeError{Reason: "malformed JSON", Err: err}
	}

	if err := input.Validate(); err != nil {
		return nil, &DecodeError{Reason: "invalid input", Err: err}
	}

	return &input, nil
}

// EncodeResult serializes an AnalysisResult to its JSON wire form
func EncodeResult(result *AnalysisResult) ([]byte, error) {
	if result == nil {
		return nil, &EncodeError{Reason: "nil result"}
	}
	if result.ContentHash == "" {
		return nil, &EncodeError{Reason: "missing content_hash"}
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, &EncodeError{Reason: "marshal failed", Err: err}
	}
	return data, nil
}

// DecodeResult parses an AnalysisResult, used by downstream consumers
// and tests.
func DecodeResult(data []byte) (*AnalysisResult, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Reason: "empty payload"}
	}

	var result AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &DecodeError{Reason: "malformed JSON", Err: err}
	}
	return &result, nil
}
