package matching

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// StringSimilarity scores two normalized strings between 0 (no similarity)
// and 100 (identical). Implementations must be safe for concurrent use.
type StringSimilarity interface {
	Score(a, b string) float64
}

// Ratio scores strings by normalized edit distance
type Ratio struct{}

func (Ratio) Score(a, b string) float64 {
	return ratio(a, b)
}

// TokenSortRatio splits both strings into tokens, sorts them, and scores the
// rejoined strings. Word order differences do not lower the score.
type TokenSortRatio struct{}

func (TokenSortRatio) Score(a, b string) float64 {
	return ratio(sortTokens(a), sortTokens(b))
}

// TokenSetRatio compares the shared token set against each side's remainder
// and takes the best pairing. Useful for addresses, where one side often
// carries extra components.
type TokenSetRatio struct{}

func (TokenSetRatio) Score(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	var common, restA, restB []string
	for token := range tokensA {
		if tokensB[token] {
			common = append(common, token)
		} else {
			restA = append(restA, token)
		}
	}
	for token := range tokensB {
		if !tokensA[token] {
			restB = append(restB, token)
		}
	}
	sort.Strings(common)
	sort.Strings(restA)
	sort.Strings(restB)

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(restA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(restB, " "))

	best := ratio(withA, withB)
	if base != "" {
		if score := ratio(base, withA); score > best {
			best = score
		}
		if score := ratio(base, withB); score > best {
			best = score
		}
	}
	return best
}

// ratio returns 100 * (1 - levenshtein/maxLen) over runes
func ratio(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	distance := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if lb := len([]rune(b)); lb > maxLen {
		maxLen = lb
	}
	return 100 * (1 - float64(distance)/float64(maxLen))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(s) {
		set[token] = true
	}
	return set
}
