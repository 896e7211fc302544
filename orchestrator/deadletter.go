package orchestrator

import (
	"encoding/json"
	"time"
)

// DeadLetter is the record published for an event that processing gave
// up on. The original payload is carried so operators can replay it
// after fixing the underlying problem.
type DeadLetter struct {
	// ContentHash identifies the event when the payload decoded far
	// enough to know it. Empty for undecodable payloads.
	ContentHash string `json:"content_hash,omitempty"`

	// Subject is the subject the event arrived on.
	Subject string `json:"subject"`

	// Stage names the pipeline step that failed.
	Stage string `json:"stage"`

	// Class is "invalid" or "transient".
	Class string `json:"class"`

	// Reason is the final failure message.
	Reason string `json:"reason"`

	// Attempts is how many processing attempts were made.
	Attempts int `json:"attempts"`

	// Payload is the original event payload, base64 in the JSON form.
	Payload []byte `json:"payload"`

	FailedAt time.Time `json:"failed_at"`
}

// encode serializes the record. json.Marshal cannot fail for this
// shape, but the error is surfaced anyway.
func (d *DeadLetter) encode() ([]byte, error) {
	return json.Marshal(d)
}

// DecodeDeadLetter parses a dead letter record, used by replay tooling
// and tests.
func DecodeDeadLetter(data []byte) (*DeadLetter, error) {
	var record DeadLetter
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
