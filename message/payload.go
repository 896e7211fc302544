// Package message defines the wire payloads exchanged over the
// analysis stream and their JSON codec.
package message

import (
	"fmt"
	"strings"
	"time"
)

// AnalysisInput is a content item submitted for disinformation analysis.
type AnalysisInput struct {
	// ContentHash uniquely identifies the content item. It doubles as the
	// idempotency key for result publishing.
	ContentHash string `json:"content_hash"`

	// ContentText is the text to analyze.
	ContentText string `json:"content_text"`

	// SourceID identifies the origin of the content, used to look up
	// source trust facts during rule evaluation.
	SourceID string `json:"source_id"`

	// ImageURL optionally points at an attached image for visual
	// artifact scoring.
	ImageURL string `json:"image_url,omitempty"`
}

// Validate checks that required fields are present
func (a *AnalysisInput) Validate() error {
	var missing []string
	if a.ContentHash == "" {
		missing = append(missing, "content_hash")
	}
	if a.ContentText == "" {
		missing = append(missing, "content_text")
	}
	if a.SourceID == "" {
		missing = append(missing, "source_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Verdict values assigned by rule evaluation
const (
	VerdictDisinfo    = "DISINFO"
	VerdictSuspicious = "SUSPICIOUS"
	VerdictSafe       = "SAFE"
)

// Scores holds the raw model outputs for a content item
type Scores struct {
	Fakeness       float32 `json:"fakeness_score"`
	Emotion        float32 `json:"emotion_score"`
	VisualArtifact float32 `json:"visual_artifact_score"`
}

// AnalysisResult is the published outcome of analyzing one content item.
type AnalysisResult struct {
	ContentHash string `json:"content_hash"`
	SourceID    string `json:"source_id"`

	// Verdict is one of DISINFO, SUSPICIOUS, or SAFE.
	Verdict string `json:"verdict"`

	// Explanation summarizes why the verdict was reached.
	Explanation string `json:"explanation,omitempty"`

	Scores Scores `json:"scores"`

	// DerivedFacts lists the atoms derived during rule evaluation, in
	// canonical sorted order.
	DerivedFacts []string `json:"derived_facts,omitempty"`

	InferenceLatencyMS int64     `json:"inference_latency_ms"`
	ProcessedAt        time.Time `json:"processed_at"`
}
