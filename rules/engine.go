package rules

import (
	"context"
	"fmt"
)

// maxRounds bounds fixpoint iteration against pathological programs
const maxRounds = 1000

// Evaluator derives facts from a fact set. Implementations must be
// safe for concurrent use and deterministic: the same input facts
// always produce the same derived set.
type Evaluator interface {
	Evaluate(ctx context.Context, facts *FactSet) (*FactSet, error)
}

// Engine evaluates a fixed Datalog program using semi-naive iteration
type Engine struct {
	program *Program
}

// NewEngine creates an engine for a parsed program
func NewEngine(program *Program) (*Engine, error) {
	if program == nil {
		return nil, &RuleError{
			Kind: KindMalformedFacts,
			Err:  fmt.Errorf("nil program"),
		}
	}
	for _, rule := range program.Rules {
		if err := rule.validate(); err != nil {
			return nil, &RuleError{Kind: KindMalformedFacts, Err: err}
		}
	}
	return &Engine{program: program}, nil
}

// NewEngineFromSource parses Datalog source and creates an engine
func NewEngineFromSource(src string) (*Engine, error) {
	program, err := ParseProgram(src)
	if err != nil {
		return nil, err
	}
	return NewEngine(program)
}

// Rules returns the number of rules in the program
func (e *Engine) Rules() int {
	return len(e.program.Rules)
}

// Evaluate runs the program to fixpoint over the input facts and the
// program's base facts, returning only the newly derived atoms in
// canonical order. The input set is not modified.
func (e *Engine) Evaluate(ctx context.Context, facts *FactSet) (*FactSet, error) {
	if facts == nil {
		return nil, &RuleError{
			Kind: KindMalformedFacts,
			Err:  fmt.Errorf("nil fact set"),
		}
	}

	total := make(map[string]Atom, facts.Len()+len(e.program.Facts))
	for _, atom := range facts.Atoms() {
		total[atom.String()] = atom
	}
	for _, atom := range e.program.Facts {
		total[atom.String()] = atom
	}

	base := make(map[string]bool, len(total))
	for key := range total {
		base[key] = true
	}

	// Semi-naive iteration: each round only considers derivations that
	// use at least one fact from the previous round's delta.
	delta := make(map[string]Atom, len(total))
	for key, atom := range total {
		delta[key] = atom
	}

	for round := 0; len(delta) > 0; round++ {
		if round >= maxRounds {
			return nil, &RuleError{
				Kind: KindEvaluationTimeout,
				Err:  fmt.Errorf("no fixpoint after %d rounds", maxRounds),
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, &RuleError{
				Kind: KindEvaluationTimeout,
				Err:  fmt.Errorf("evaluation interrupted in round %d: %w", round, err),
			}
		}

		next := make(map[string]Atom)
		for _, rule := range e.program.Rules {
			e.deriveRule(rule, total, delta, next)
		}

		delta = make(map[string]Atom)
		for key, atom := range next {
			if _, seen := total[key]; !seen {
				total[key] = atom
				delta[key] = atom
			}
		}
	}

	derived := NewFactSet()
	for key, atom := range total {
		if !base[key] {
			derived.atoms[key] = atom
		}
	}
	return derived, nil
}

// deriveRule emits every head instance the rule can derive where at
// least one body atom is satisfied by the delta set.
func (e *Engine) deriveRule(rule Rule, total, delta map[string]Atom, out map[string]Atom) {
	e.joinBody(rule, 0, false, map[string]string{}, total, delta, out)
}

// joinBody recursively matches body atoms, threading the substitution.
// usedDelta tracks whether any matched atom came from the delta set.
func (e *Engine) joinBody(
	rule Rule, idx int, usedDelta bool,
	bindings map[string]string,
	total, delta map[string]Atom,
	out map[string]Atom,
) {
	if idx == len(rule.Body) {
		if !usedDelta {
			return
		}
		head := substitute(rule.Head, bindings)
		out[head.String()] = head
		return
	}

	pattern := rule.Body[idx]
	for key, fact := range total {
		newBindings, ok := unify(pattern, fact, bindings)
		if !ok {
			continue
		}
		_, fromDelta := delta[key]
		e.joinBody(rule, idx+1, usedDelta || fromDelta, newBindings, total, delta, out)
	}
}

// unify matches a pattern atom against a ground fact under existing
// bindings, returning extended bindings on success.
func unify(pattern, fact Atom, bindings map[string]string) (map[string]string, bool) {
	if pattern.Predicate != fact.Predicate || len(pattern.Args) != len(fact.Args) {
		return nil, false
	}

	result := bindings
	copied := false
	for i, arg := range pattern.Args {
		factValue := fact.Args[i].Value
		if !arg.IsVariable {
			if arg.Value != factValue {
				return nil, false
			}
			continue
		}
		if bound, ok := result[arg.Value]; ok {
			if bound != factValue {
				return nil, false
			}
			continue
		}
		if !copied {
			extended := make(map[string]string, len(result)+1)
			for k, v := range result {
				extended[k] = v
			}
			result = extended
			copied = true
		}
		result[arg.Value] = factValue
	}
	return result, true
}

// substitute applies bindings to an atom's variables
func substitute(atom Atom, bindings map[string]string) Atom {
	if atom.IsGround() {
		return atom
	}
	args := make([]Term, len(atom.Args))
	for i, arg := range atom.Args {
		if arg.IsVariable {
			args[i] = Term{Value: bindings[arg.Value]}
		} else {
			args[i] = arg
		}
	}
	return Atom{Predicate: atom.Predicate, Args: args}
}
