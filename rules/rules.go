package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies a rule evaluation failure
type ErrorKind int

// Rule evaluation failure kinds
const (
	// KindEvaluationTimeout means the fixpoint did not converge within
	// the deadline. Retryable.
	KindEvaluationTimeout ErrorKind = iota

	// KindMalformedFacts means the input facts or program are invalid.
	// Not retryable.
	KindMalformedFacts
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindEvaluationTimeout:
		return "evaluation_timeout"
	case KindMalformedFacts:
		return "malformed_facts"
	default:
		return "unknown"
	}
}

// RuleError wraps a failure from rule evaluation with its retry class
type RuleError struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface
func (e *RuleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rules %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("rules %s", e.Kind)
}

// Unwrap returns the underlying error
func (e *RuleError) Unwrap() error {
	return e.Err
}

// IsEvaluationTimeout reports whether err is an evaluation timeout
func IsEvaluationTimeout(err error) bool {
	var ruleErr *RuleError
	return errors.As(err, &ruleErr) && ruleErr.Kind == KindEvaluationTimeout
}

// IsMalformedFacts reports whether err is a permanent input failure
func IsMalformedFacts(err error) bool {
	var ruleErr *RuleError
	return errors.As(err, &ruleErr) && ruleErr.Kind == KindMalformedFacts
}

// Term is a constant or a variable inside an atom. Variables start with
// an uppercase letter, constants with anything else.
type Term struct {
	Value      string
	IsVariable bool
}

// String returns the term's source form
func (t Term) String() string {
	return t.Value
}

// Atom is a predicate applied to terms, such as source(feed7) or
// verdict(disinfo). Zero-argument atoms are allowed.
type Atom struct {
	Predicate string
	Args      []Term
}

// String returns the atom's source form
func (a Atom) String() string {
	if len(a.Args) == 0 {
		return a.Predicate
	}
	parts := make([]string, len(a.Args))
	for i, arg := range a.Args {
		parts[i] = arg.Value
	}
	return fmt.Sprintf("%s(%s)", a.Predicate, strings.Join(parts, ","))
}

// IsGround reports whether the atom contains no variables
func (a Atom) IsGround() bool {
	for _, arg := range a.Args {
		if arg.IsVariable {
			return false
		}
	}
	return true
}

// Rule derives its head when every body atom is satisfied
type Rule struct {
	Head Atom
	Body []Atom
}

// String returns the rule's source form
func (r Rule) String() string {
	parts := make([]string, len(r.Body))
	for i, atom := range r.Body {
		parts[i] = atom.String()
	}
	return fmt.Sprintf("%s :- %s.", r.Head.String(), strings.Join(parts, ", "))
}

// validate enforces range restriction: every head variable must appear
// in the body, so derived facts are always ground.
func (r Rule) validate() error {
	if len(r.Body) == 0 {
		return fmt.Errorf("rule %s has an empty body", r.Head.String())
	}

	bodyVars := make(map[string]bool)
	for _, atom := range r.Body {
		for _, arg := range atom.Args {
			if arg.IsVariable {
				bodyVars[arg.Value] = true
			}
		}
	}

	for _, arg := range r.Head.Args {
		if arg.IsVariable && !bodyVars[arg.Value] {
			return fmt.Errorf("rule %s: head variable %s not bound in body",
				r.Head.String(), arg.Value)
		}
	}
	return nil
}

// Program is a parsed set of base facts and rules
type Program struct {
	Facts []Atom
	Rules []Rule
}

// FactSet is a collection of ground atoms keyed by canonical form
type FactSet struct {
	atoms map[string]Atom
}

// NewFactSet creates an empty fact set
func NewFactSet() *FactSet {
	return &FactSet{atoms: make(map[string]Atom)}
}

// Add inserts a ground atom. Non-ground atoms are rejected.
func (fs *FactSet) Add(atom Atom) error {
	if !atom.IsGround() {
		return &RuleError{
			Kind: KindMalformedFacts,
			Err:  fmt.Errorf("fact %s contains variables", atom.String()),
		}
	}
	fs.atoms[atom.String()] = atom
	return nil
}

// AddGround inserts a fact from a predicate and constant arguments
func (fs *FactSet) AddGround(predicate string, args ...string) {
	terms := make([]Term, len(args))
	for i, arg := range args {
		terms[i] = Term{Value: arg}
	}
	fs.atoms[Atom{Predicate: predicate, Args: terms}.String()] = Atom{
		Predicate: predicate, Args: terms,
	}
}

// Contains reports whether the set holds the given ground atom
func (fs *FactSet) Contains(predicate string, args ...string) bool {
	terms := make([]Term, len(args))
	for i, arg := range args {
		terms[i] = Term{Value: arg}
	}
	_, ok := fs.atoms[Atom{Predicate: predicate, Args: terms}.String()]
	return ok
}

// Len returns the number of facts
func (fs *FactSet) Len() int {
	return len(fs.atoms)
}

// Atoms returns all facts in canonical sorted order
func (fs *FactSet) Atoms() []Atom {
	keys := make([]string, 0, len(fs.atoms))
	for key := range fs.atoms {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	atoms := make([]Atom, len(keys))
	for i, key := range keys {
		atoms[i] = fs.atoms[key]
	}
	return atoms
}

// Strings returns all facts as canonical sorted strings
func (fs *FactSet) Strings() []string {
	atoms := fs.Atoms()
	out := make([]string, len(atoms))
	for i, atom := range atoms {
		out[i] = atom.String()
	}
	return out
}
