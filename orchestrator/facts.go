package orchestrator

import (
	"fmt"
	"strings"

	"github.com/hyperpolymath/disinfo-nsai-detector/inference"
	"github.com/hyperpolymath/disinfo-nsai-detector/message"
	"github.com/hyperpolymath/disinfo-nsai-detector/rules"
)

// buildFacts discretizes model scores into ground atoms and merges in
// the source context facts. A score above the high threshold also sets
// the elevated fact because high implies elevated.
func buildFacts(
	input *message.AnalysisInput,
	scores *inference.Result,
	sourceFacts []rules.Atom,
	th Thresholds,
) (*rules.FactSet, error) {
	facts := rules.NewFactSet()
	facts.AddGround(rules.PredSource, input.SourceID)

	if scores.Fakeness > th.FakenessHigh {
		facts.AddGround(rules.PredFakeness, rules.LevelHigh)
	}
	if scores.Fakeness > th.FakenessElevated {
		facts.AddGround(rules.PredFakeness, rules.LevelElevated)
	}
	if scores.Emotion > th.EmotionHigh {
		facts.AddGround(rules.PredEmotion, rules.LevelHigh)
	}
	if scores.VisualArtifact > th.VisualArtifact {
		facts.AddGround(rules.PredVisual, rules.LevelArtifact)
	}

	for _, atom := range sourceFacts {
		if err := facts.Add(atom); err != nil {
			return nil, err
		}
	}
	return facts, nil
}

// resolveVerdict maps the derived atoms to a published verdict with an
// explanation. DISINFO takes precedence over SUSPICIOUS; deriving
// neither means the content is SAFE.
func resolveVerdict(input *message.AnalysisInput, derived *rules.FactSet) (string, string) {
	switch {
	case derived.Contains(rules.PredVerdict, rules.VerdictDisinfo):
		return message.VerdictDisinfo,
			fmt.Sprintf("disinformation indicators derived for source %s: %s",
				input.SourceID, strings.Join(derived.Strings(), ", "))
	case derived.Contains(rules.PredVerdict, rules.VerdictSuspicious):
		return message.VerdictSuspicious,
			fmt.Sprintf("suspicious indicators derived: %s",
				strings.Join(derived.Strings(), ", "))
	default:
		return message.VerdictSafe, "no disinformation indicators derived"
	}
}
