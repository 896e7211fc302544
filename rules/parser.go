package rules

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseProgram parses Datalog source into facts and rules.
//
// Grammar, one clause per statement, each terminated by a period:
//
//	% comment to end of line
//	source(feed7).                  fact
//	verdict(disinfo) :- fakeness(high), untrusted(S), source(S).
//
// Identifiers starting with an uppercase letter are variables,
// everything else is a constant. Facts must be ground.
func ParseProgram(src string) (*Program, error) {
	program := &Program{}

	for lineNum, clause := range splitClauses(src) {
		head, body, err := parseClause(clause)
		if err != nil {
			return nil, &RuleError{
				Kind: KindMalformedFacts,
				Err:  fmt.Errorf("clause %d: %w", lineNum+1, err),
			}
		}

		if body == nil {
			if !head.IsGround() {
				return nil, &RuleError{
					Kind: KindMalformedFacts,
					Err:  fmt.Errorf("clause %d: fact %s contains variables", lineNum+1, head.String()),
				}
			}
			program.Facts = append(program.Facts, head)
			continue
		}

		rule := Rule{Head: head, Body: body}
		if err := rule.validate(); err != nil {
			return nil, &RuleError{
				Kind: KindMalformedFacts,
				Err:  fmt.Errorf("clause %d: %w", lineNum+1, err),
			}
		}
		program.Rules = append(program.Rules, rule)
	}

	return program, nil
}

// splitClauses strips comments and splits the source on terminating
// periods, returning non-empty clause texts.
func splitClauses(src string) []string {
	var stripped strings.Builder
	for _, line := range strings.Split(src, "\n") {
		if idx := strings.Index(line, "%"); idx >= 0 {
			line = line[:idx]
		}
		stripped.WriteString(line)
		stripped.WriteString("\n")
	}

	var clauses []string
	for _, part := range strings.Split(stripped.String(), ".") {
		part = strings.TrimSpace(part)
		if part != "" {
			clauses = append(clauses, part)
		}
	}
	return clauses
}

// parseClause parses one clause into a head atom and an optional body
func parseClause(clause string) (Atom, []Atom, error) {
	headText, bodyText, isRule := strings.Cut(clause, ":-")

	head, err := parseAtom(strings.TrimSpace(headText))
	if err != nil {
		return Atom{}, nil, err
	}

	if !isRule {
		return head, nil, nil
	}

	bodyParts := splitBody(bodyText)
	if len(bodyParts) == 0 {
		return Atom{}, nil, fmt.Errorf("rule %s has an empty body", head.String())
	}

	body := make([]Atom, 0, len(bodyParts))
	for _, part := range bodyParts {
		atom, err := parseAtom(part)
		if err != nil {
			return Atom{}, nil, err
		}
		body = append(body, atom)
	}
	return head, body, nil
}

// splitBody splits body atoms on commas outside parentheses
func splitBody(body string) []string {
	var parts []string
	var current strings.Builder
	depth := 0

	for _, r := range body {
		switch r {
		case '(':
			depth++
			current.WriteRune(r)
		case ')':
			depth--
			current.WriteRune(r)
		case ',':
			if depth == 0 {
				if text := strings.TrimSpace(current.String()); text != "" {
					parts = append(parts, text)
				}
				current.Reset()
			} else {
				current.WriteRune(r)
			}
		default:
			current.WriteRune(r)
		}
	}
	if text := strings.TrimSpace(current.String()); text != "" {
		parts = append(parts, text)
	}
	return parts
}

// parseAtom parses "pred" or "pred(arg1, arg2)"
func parseAtom(text string) (Atom, error) {
	if text == "" {
		return Atom{}, fmt.Errorf("empty atom")
	}

	open := strings.Index(text, "(")
	if open < 0 {
		if err := validateIdentifier(text); err != nil {
			return Atom{}, err
		}
		return Atom{Predicate: text}, nil
	}

	if !strings.HasSuffix(text, ")") {
		return Atom{}, fmt.Errorf("atom %q: unbalanced parentheses", text)
	}

	predicate := strings.TrimSpace(text[:open])
	if err := validateIdentifier(predicate); err != nil {
		return Atom{}, err
	}

	argsText := text[open+1 : len(text)-1]
	if strings.TrimSpace(argsText) == "" {
		return Atom{}, fmt.Errorf("atom %q: empty argument list", text)
	}

	var args []Term
	for _, argText := range strings.Split(argsText, ",") {
		argText = strings.TrimSpace(argText)
		if err := validateIdentifier(argText); err != nil {
			return Atom{}, fmt.Errorf("atom %q: %w", text, err)
		}
		args = append(args, Term{
			Value:      argText,
			IsVariable: isVariable(argText),
		})
	}

	return Atom{Predicate: predicate, Args: args}, nil
}

// isVariable reports whether an identifier names a variable
func isVariable(ident string) bool {
	for _, r := range ident {
		return unicode.IsUpper(r)
	}
	return false
}

// validateIdentifier checks that an identifier is well formed
func validateIdentifier(ident string) error {
	if ident == "" {
		return fmt.Errorf("empty identifier")
	}
	for _, r := range ident {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_' && r != '-' && r != '.' {
			return fmt.Errorf("identifier %q contains invalid character %q", ident, r)
		}
	}
	return nil
}
