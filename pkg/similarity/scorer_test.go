package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_ExactMatch(t *testing.T) {
	s := NewScorer()

	t.Run("identical strings", func(t *testing.T) {
		result := s.Score("有機牛奶", "有機牛奶")
		assert.Equal(t, 1.0, result.Score)
		assert.Equal(t, MethodExact, result.Method)
	})

	t.Run("case and whitespace are normalized", func(t *testing.T) {
		result := s.Score("  Whole Milk ", "whole milk")
		assert.Equal(t, 1.0, result.Score)
		assert.Equal(t, MethodExact, result.Method)
	})
}

func TestScorer_Containment(t *testing.T) {
	s := NewScorer()

	t.Run("input contained in target", func(t *testing.T) {
		result := s.Score("milk", "whole milk")
		assert.Equal(t, MethodContains, result.Method)
		assert.InDelta(t, 0.88, result.Score, 1e-9)
	})

	t.Run("target contained in input", func(t *testing.T) {
		result := s.Score("whole milk", "milk")
		assert.Equal(t, MethodContains, result.Method)
		assert.InDelta(t, 0.88, result.Score, 1e-9)
	})

	t.Run("cjk lengths are counted in runes", func(t *testing.T) {
		result := s.Score("牛奶", "有機牛奶")
		assert.Equal(t, MethodContains, result.Method)
		assert.InDelta(t, 0.9, result.Score, 1e-9)
	})

	t.Run("near equal lengths score close to one", func(t *testing.T) {
		result := s.Score("bottled water", "bottled waters")
		assert.Equal(t, MethodContains, result.Method)
		assert.Greater(t, result.Score, 0.98)
	})
}

func TestScorer_Dice(t *testing.T) {
	s := NewScorer()

	t.Run("high bigram overlap without containment", func(t *testing.T) {
		result := s.Score("healed", "sealed")
		assert.Equal(t, MethodDice, result.Method)
		assert.InDelta(t, 0.8, result.Score, 1e-9)
	})

	t.Run("low overlap falls through to word overlap", func(t *testing.T) {
		result := s.Score("apple juice", "fresh juice drink")
		assert.Equal(t, MethodWordMatch, result.Method)
		assert.InDelta(t, 0.7/3.0, result.Score, 1e-9)
	})

	t.Run("no common words falls back to raw dice", func(t *testing.T) {
		result := s.Score("abc", "xyz")
		assert.Equal(t, MethodDice, result.Method)
		assert.Equal(t, 0.0, result.Score)
	})
}

func TestDiceCoefficient(t *testing.T) {
	s := NewScorer()

	t.Run("equal strings", func(t *testing.T) {
		assert.Equal(t, 1.0, s.DiceCoefficient("牛奶", "牛奶"))
	})

	t.Run("too short to form bigrams", func(t *testing.T) {
		assert.Equal(t, 0.0, s.DiceCoefficient("a", "ab"))
		assert.Equal(t, 0.0, s.DiceCoefficient("ab", "x"))
	})

	t.Run("repeated bigrams count as a multiset", func(t *testing.T) {
		// "aaaa" has three "aa" bigrams, "aa" has one
		assert.InDelta(t, 0.5, s.DiceCoefficient("aaaa", "aa"), 1e-9)
	})

	t.Run("disjoint strings", func(t *testing.T) {
		assert.Equal(t, 0.0, s.DiceCoefficient("abcd", "wxyz"))
	})

	t.Run("partial overlap", func(t *testing.T) {
		// night/nacht share only the "ht" bigram
		assert.InDelta(t, 0.25, s.DiceCoefficient("night", "nacht"), 1e-9)
	})
}
