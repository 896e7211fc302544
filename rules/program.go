package rules

// Fact predicates fed into evaluation for each event
const (
	PredFakeness  = "fakeness"
	PredEmotion   = "emotion"
	PredVisual    = "visual"
	PredSource    = "source"
	PredTrusted   = "trusted"
	PredUntrusted = "untrusted"
	PredVerdict   = "verdict"
)

// Discretized score levels used as fact arguments
const (
	LevelHigh     = "high"
	LevelElevated = "elevated"
	LevelArtifact = "artifact"
)

// Verdict constants as they appear in derived verdict atoms
const (
	VerdictDisinfo    = "disinfo"
	VerdictSuspicious = "suspicious"
)

// DefaultProgram is the shipped verdict ruleset. A high fakeness score
// from an untrusted source is disinformation outright; elevated
// fakeness, or emotional manipulation paired with visual artifacts, is
// suspicious. The absence of any verdict atom means the content is
// safe.
const DefaultProgram = `
% High fakeness from an untrusted source is disinformation.
verdict(disinfo) :- fakeness(high), source(S), untrusted(S).

% High fakeness with emotional manipulation and image artifacts is
% disinformation even from a trusted source.
verdict(disinfo) :- fakeness(high), emotion(high), visual(artifact).

% Elevated fakeness alone is suspicious.
verdict(suspicious) :- fakeness(elevated).

% Emotional manipulation with image artifacts is suspicious.
verdict(suspicious) :- emotion(high), visual(artifact).
`

// NewDefaultEngine creates an engine over DefaultProgram
func NewDefaultEngine() (*Engine, error) {
	return NewEngineFromSource(DefaultProgram)
}
