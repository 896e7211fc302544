package orchestrator

import (
	"errors"

	"github.com/hyperpolymath/disinfo-nsai-detector/inference"
	"github.com/hyperpolymath/disinfo-nsai-detector/message"
	"github.com/hyperpolymath/disinfo-nsai-detector/rules"
)

// Stage names the pipeline step an event is in
type Stage int

// Pipeline stages in processing order
const (
	StageDecoding Stage = iota
	StageInferring
	StageDeriving
	StageEncoding
	StagePublishing
)

// String returns the stage label used in metrics and dead letters
func (s Stage) String() string {
	switch s {
	case StageDecoding:
		return "decoding"
	case StageInferring:
		return "inferring"
	case StageDeriving:
		return "deriving"
	case StageEncoding:
		return "encoding"
	case StagePublishing:
		return "publishing"
	default:
		return "unknown"
	}
}

// failureClass decides how a stage failure is handled
type failureClass int

const (
	// classTransient failures are retried until the attempt budget is
	// spent, then dead lettered.
	classTransient failureClass = iota

	// classInvalid failures can never succeed for this payload and are
	// dead lettered immediately.
	classInvalid

	// classContract failures mean the pipeline produced an internally
	// inconsistent result. Dead lettered immediately and logged loudly.
	classContract

	// classUnknown failures come from errors no adapter classified.
	// Retried once, then dead lettered.
	classUnknown
)

// String returns the class label used in dead letters
func (c failureClass) String() string {
	switch c {
	case classInvalid:
		return "invalid"
	case classContract:
		return "contract"
	case classUnknown:
		return "unknown"
	default:
		return "transient"
	}
}

// terminal reports whether the class dead letters without retrying
func (c failureClass) terminal() bool {
	return c == classInvalid || c == classContract
}

// attemptBudget returns how many attempts the class allows out of the
// configured maximum
func (c failureClass) attemptBudget(maxAttempts int) int {
	if c == classUnknown && maxAttempts > 2 {
		return 2
	}
	return maxAttempts
}

// classifyFailure maps a stage failure to its handling class. The
// mapping depends only on the stage and the error, never on attempt
// count or timing, so a redelivered event is classified identically.
func classifyFailure(stage Stage, err error) failureClass {
	switch stage {
	case StageDecoding:
		// Decode failures are a property of the payload.
		return classInvalid

	case StageEncoding:
		// The result being encoded was produced internally, so an
		// encode failure is a contract violation, not a data error.
		return classContract

	case StageInferring:
		if inference.IsInvalidInput(err) {
			return classInvalid
		}
		var infErr *inference.InferenceError
		if errors.As(err, &infErr) {
			return classTransient
		}
		return classUnknown

	case StageDeriving:
		if rules.IsMalformedFacts(err) {
			return classInvalid
		}
		var ruleErr *rules.RuleError
		if errors.As(err, &ruleErr) {
			return classTransient
		}
		return classUnknown

	case StagePublishing:
		var encodeErr *message.EncodeError
		if errors.As(err, &encodeErr) {
			return classContract
		}
		// Broker errors carry no adapter type; treat them all as
		// transient since publish is idempotent under the dedup ID.
		return classTransient

	default:
		return classUnknown
	}
}
