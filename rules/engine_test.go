package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProgram(t *testing.T) {
	t.Run("facts and rules", func(t *testing.T) {
		program, err := ParseProgram(`
			% trusted wire services
			trusted(reuters).
			trusted(apnews).

			verdict(disinfo) :- fakeness(high), source(S), untrusted(S).
		`)
		require.NoError(t, err)
		assert.Len(t, program.Facts, 2)
		require.Len(t, program.Rules, 1)

		rule := program.Rules[0]
		assert.Equal(t, "verdict(disinfo)", rule.Head.String())
		require.Len(t, rule.Body, 3)
		assert.Equal(t, "untrusted(S)", rule.Body[2].String())
		assert.True(t, rule.Body[2].Args[0].IsVariable)
	})

	t.Run("zero argument atoms", func(t *testing.T) {
		program, err := ParseProgram(`alarm :- breach.`)
		require.NoError(t, err)
		require.Len(t, program.Rules, 1)
		assert.Equal(t, "alarm", program.Rules[0].Head.String())
	})

	t.Run("non-ground fact rejected", func(t *testing.T) {
		_, err := ParseProgram(`trusted(X).`)
		require.Error(t, err)
		assert.True(t, IsMalformedFacts(err))
	})

	t.Run("unsafe head variable rejected", func(t *testing.T) {
		_, err := ParseProgram(`bad(X) :- fakeness(high).`)
		require.Error(t, err)
		assert.True(t, IsMalformedFacts(err))
		assert.Contains(t, err.Error(), "not bound in body")
	})

	t.Run("unbalanced parentheses rejected", func(t *testing.T) {
		_, err := ParseProgram(`trusted(reuters :- source(reuters).`)
		require.Error(t, err)
		assert.True(t, IsMalformedFacts(err))
	})

	t.Run("empty argument list rejected", func(t *testing.T) {
		_, err := ParseProgram(`trusted().`)
		require.Error(t, err)
		assert.True(t, IsMalformedFacts(err))
	})
}

func TestFactSet(t *testing.T) {
	fs := NewFactSet()
	fs.AddGround("source", "feed7")
	fs.AddGround("fakeness", "high")
	fs.AddGround("source", "feed7") // duplicate

	assert.Equal(t, 2, fs.Len())
	assert.True(t, fs.Contains("source", "feed7"))
	assert.False(t, fs.Contains("source", "feed8"))
	assert.Equal(t, []string{"fakeness(high)", "source(feed7)"}, fs.Strings())

	err := fs.Add(Atom{Predicate: "bad", Args: []Term{{Value: "X", IsVariable: true}}})
	require.Error(t, err)
	assert.True(t, IsMalformedFacts(err))
}

func TestEvaluate(t *testing.T) {
	t.Run("derives disinfo verdict", func(t *testing.T) {
		engine, err := NewDefaultEngine()
		require.NoError(t, err)

		facts := NewFactSet()
		facts.AddGround(PredFakeness, LevelHigh)
		facts.AddGround(PredFakeness, LevelElevated)
		facts.AddGround(PredSource, "feed7")
		facts.AddGround(PredUntrusted, "feed7")

		derived, err := engine.Evaluate(context.Background(), facts)
		require.NoError(t, err)
		assert.True(t, derived.Contains(PredVerdict, VerdictDisinfo))
		assert.True(t, derived.Contains(PredVerdict, VerdictSuspicious))
	})

	t.Run("trusted source with high fakeness is only suspicious", func(t *testing.T) {
		engine, err := NewDefaultEngine()
		require.NoError(t, err)

		facts := NewFactSet()
		facts.AddGround(PredFakeness, LevelHigh)
		facts.AddGround(PredFakeness, LevelElevated)
		facts.AddGround(PredSource, "reuters")
		facts.AddGround(PredTrusted, "reuters")

		derived, err := engine.Evaluate(context.Background(), facts)
		require.NoError(t, err)
		assert.False(t, derived.Contains(PredVerdict, VerdictDisinfo))
		assert.True(t, derived.Contains(PredVerdict, VerdictSuspicious))
	})

	t.Run("no signals derives nothing", func(t *testing.T) {
		engine, err := NewDefaultEngine()
		require.NoError(t, err)

		facts := NewFactSet()
		facts.AddGround(PredSource, "reuters")
		facts.AddGround(PredTrusted, "reuters")

		derived, err := engine.Evaluate(context.Background(), facts)
		require.NoError(t, err)
		assert.Equal(t, 0, derived.Len())
	})

	t.Run("input set is not modified", func(t *testing.T) {
		engine, err := NewDefaultEngine()
		require.NoError(t, err)

		facts := NewFactSet()
		facts.AddGround(PredFakeness, LevelElevated)
		before := facts.Len()

		_, err = engine.Evaluate(context.Background(), facts)
		require.NoError(t, err)
		assert.Equal(t, before, facts.Len())
	})

	t.Run("deterministic output order", func(t *testing.T) {
		engine, err := NewEngineFromSource(`
			flag(a) :- seen(X), pair(X, Y).
			flag(b) :- seen(X), pair(X, Y).
			linked(Y) :- pair(X, Y).
		`)
		require.NoError(t, err)

		var first []string
		for i := 0; i < 20; i++ {
			facts := NewFactSet()
			facts.AddGround("seen", "n1")
			facts.AddGround("pair", "n1", "n2")
			facts.AddGround("pair", "n1", "n3")

			derived, err := engine.Evaluate(context.Background(), facts)
			require.NoError(t, err)
			if first == nil {
				first = derived.Strings()
				continue
			}
			assert.Equal(t, first, derived.Strings())
		}
		assert.Equal(t, []string{"flag(a)", "flag(b)", "linked(n2)", "linked(n3)"}, first)
	})

	t.Run("transitive closure", func(t *testing.T) {
		engine, err := NewEngineFromSource(`
			reach(X, Y) :- edge(X, Y).
			reach(X, Z) :- reach(X, Y), edge(Y, Z).
		`)
		require.NoError(t, err)

		facts := NewFactSet()
		facts.AddGround("edge", "a", "b")
		facts.AddGround("edge", "b", "c")
		facts.AddGround("edge", "c", "d")

		derived, err := engine.Evaluate(context.Background(), facts)
		require.NoError(t, err)
		assert.True(t, derived.Contains("reach", "a", "d"))
		assert.Equal(t, 6, derived.Len())
	})

	t.Run("program base facts participate", func(t *testing.T) {
		engine, err := NewEngineFromSource(`
			trusted(reuters).
			ok(S) :- source(S), trusted(S).
		`)
		require.NoError(t, err)

		facts := NewFactSet()
		facts.AddGround("source", "reuters")

		derived, err := engine.Evaluate(context.Background(), facts)
		require.NoError(t, err)
		assert.True(t, derived.Contains("ok", "reuters"))
		// program facts are base facts, not derivations
		assert.False(t, derived.Contains("trusted", "reuters"))
	})

	t.Run("cancelled context times out", func(t *testing.T) {
		engine, err := NewDefaultEngine()
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		facts := NewFactSet()
		facts.AddGround(PredFakeness, LevelElevated)

		_, err = engine.Evaluate(ctx, facts)
		require.Error(t, err)
		assert.True(t, IsEvaluationTimeout(err))
		assert.False(t, IsMalformedFacts(err))
	})

	t.Run("nil fact set rejected", func(t *testing.T) {
		engine, err := NewDefaultEngine()
		require.NoError(t, err)

		_, err = engine.Evaluate(context.Background(), nil)
		require.Error(t, err)
		assert.True(t, IsMalformedFacts(err))
	})
}

func TestEvaluateCompletesQuickly(t *testing.T) {
	engine, err := NewDefaultEngine()
	require.NoError(t, err)

	facts := NewFactSet()
	facts.AddGround(PredFakeness, LevelHigh)
	facts.AddGround(PredFakeness, LevelElevated)
	facts.AddGround(PredEmotion, LevelHigh)
	facts.AddGround(PredVisual, LevelArtifact)
	facts.AddGround(PredSource, "feed7")
	facts.AddGround(PredUntrusted, "feed7")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	derived, err := engine.Evaluate(ctx, facts)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.True(t, derived.Contains(PredVerdict, VerdictDisinfo))
}

func TestRuleString(t *testing.T) {
	program, err := ParseProgram(`verdict(disinfo) :- fakeness(high), source(S), untrusted(S).`)
	require.NoError(t, err)
	assert.Equal(t,
		"verdict(disinfo) :- fakeness(high), source(S), untrusted(S).",
		program.Rules[0].String())
}
