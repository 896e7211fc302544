// Package rules implements a small Datalog evaluator for verdict
// derivation.
//
// A Program is a set of ground facts and range-restricted rules. The
// Engine runs semi-naive fixpoint iteration: each round only explores
// derivations that use at least one fact discovered in the previous
// round, so evaluation cost tracks the number of new facts rather than
// the full database.
//
// Evaluation is deterministic. Derived facts come back in canonical
// sorted order regardless of rule or fact ordering, which keeps
// published results and their deduplication IDs stable across
// redeliveries.
//
// The language has no negation. Conditions that would need it, such as
// a source not being trusted, are supplied as explicit facts by the
// caller.
package rules
