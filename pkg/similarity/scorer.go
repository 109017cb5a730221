// Package similarity implements the string comparison strategies used to
// match free-text invoice product names against certified carbon labels.
package similarity

import (
	"strings"
)

// Match methods, in the priority order the scorer evaluates them.
const (
	MethodExact     = "exact"
	MethodContains  = "contains"
	MethodDice      = "dice"
	MethodWordMatch = "word_match"
)

// Result is the outcome of scoring one candidate against a query.
type Result struct {
	Score  float64 `json:"score"`
	Method string  `json:"method"`
}

// diceThreshold is the minimum bigram coefficient that lets the dice rule
// win outright before the word-overlap fallback is consulted.
const diceThreshold = 0.6

// Scorer provides the string comparison algorithms for product matching.
type Scorer struct{}

// NewScorer creates a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score compares a queried product name against a candidate label name.
// Strategies are tried in a fixed priority order and the first applicable
// rule wins: exact match, substring containment, bigram (Dice) similarity
// above the threshold, then word overlap. When nothing qualifies the raw
// Dice coefficient is returned so callers always get a usable score.
// The function is pure and total; it never fails, only scores low.
func (s *Scorer) Score(input, target string) Result {
	inputNorm := normalize(input)
	targetNorm := normalize(target)

	if inputNorm == targetNorm {
		return Result{Score: 1.0, Method: MethodExact}
	}

	if strings.Contains(targetNorm, inputNorm) || strings.Contains(inputNorm, targetNorm) {
		return Result{Score: containsScore(inputNorm, targetNorm), Method: MethodContains}
	}

	diceScore := s.DiceCoefficient(inputNorm, targetNorm)
	if diceScore > diceThreshold {
		return Result{Score: diceScore, Method: MethodDice}
	}

	if wordScore, ok := wordOverlapScore(inputNorm, targetNorm); ok {
		return Result{Score: wordScore, Method: MethodWordMatch}
	}

	return Result{Score: diceScore, Method: MethodDice}
}

// containsScore rewards near-equal-length containment over one string being
// a tiny fragment of a much longer one. Lengths are counted in runes so CJK
// product names score the same as ASCII ones.
func containsScore(a, b string) float64 {
	alen := len([]rune(a))
	blen := len([]rune(b))
	shorter, longer := alen, blen
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if longer == 0 {
		return 1.0
	}
	return 0.8 + (float64(shorter)/float64(longer))*0.2
}

// DiceCoefficient computes the Sørensen–Dice coefficient over character
// bigrams: 2*|A∩B| / (|A|+|B|). Bigrams are counted as a multiset so
// repeated pairs only match as often as they occur in both strings.
func (s *Scorer) DiceCoefficient(a, b string) float64 {
	if a == b {
		return 1.0
	}

	aRunes := []rune(a)
	bRunes := []rune(b)
	if len(aRunes) < 2 || len(bRunes) < 2 {
		return 0.0
	}

	bigrams := make(map[string]int, len(aRunes)-1)
	for i := 0; i < len(aRunes)-1; i++ {
		bigrams[string(aRunes[i:i+2])]++
	}

	intersection := 0
	for i := 0; i < len(bRunes)-1; i++ {
		gram := string(bRunes[i : i+2])
		if bigrams[gram] > 0 {
			bigrams[gram]--
			intersection++
		}
	}

	return 2.0 * float64(intersection) / float64(len(aRunes)-1+len(bRunes)-1)
}

// wordOverlapScore splits both strings on whitespace and counts input words
// that share a containment relation with any target word. Returns false when
// no word is common, so the caller can fall through to the raw dice score.
func wordOverlapScore(a, b string) (float64, bool) {
	aWords := strings.Fields(a)
	bWords := strings.Fields(b)

	common := 0
	for _, aw := range aWords {
		for _, bw := range bWords {
			if strings.Contains(bw, aw) || strings.Contains(aw, bw) {
				common++
				break
			}
		}
	}

	if common == 0 {
		return 0, false
	}

	maxWords := len(aWords)
	if len(bWords) > maxWords {
		maxWords = len(bWords)
	}

	return (float64(common) / float64(maxWords)) * 0.7, true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
