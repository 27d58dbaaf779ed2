package matching

import (
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// ComparableFields are the record fields that participate in fuzzy scoring,
// in weight order
var ComparableFields = []string{"name", "raw_address", "phone_number", "email", "website"}

// Scorer computes per-field similarity between two records using a
// configurable backend per free-text field. Phone and email use fixed
// strategies: digit-sequence comparison and casefolded exact-or-zero.
type Scorer struct {
	name    StringSimilarity
	address StringSimilarity
	website StringSimilarity
}

// NewScorer creates a Scorer with the default token-based backends:
// token-sort for names, token-set for addresses, plain ratio for websites
func NewScorer() *Scorer {
	return &Scorer{
		name:    TokenSortRatio{},
		address: TokenSetRatio{},
		website: Ratio{},
	}
}

// NewScorerWithBackends creates a Scorer with explicit backends
func NewScorerWithBackends(name, address, website StringSimilarity) *Scorer {
	return &Scorer{name: name, address: address, website: website}
}

// FieldSimilarity scores two already-normalized values for a field.
// Similarity against an empty value is always 0, never coincidentally equal.
func (s *Scorer) FieldSimilarity(field, a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	switch field {
	case "name":
		return s.name.Score(a, b)
	case "raw_address":
		return s.address.Score(a, b)
	case "phone_number":
		// Values are digit sequences after normalization; equal sequences
		// were caught above, near-misses score by edit distance
		return ratio(a, b)
	case "email":
		// Email comparison is exact-insensitive, not fuzzy-lenient
		return 0
	case "website":
		return s.website.Score(a, b)
	default:
		return ratio(a, b)
	}
}

// WeightedScore combines per-field scores into one 0-100 score,
// re-normalized by the sum of the weights actually used. Fields absent on
// either side are excluded so missing data neither inflates nor deflates
// the result.
func (s *Scorer) WeightedScore(scores map[string]float64, weights map[string]float64) float64 {
	var totalWeight float64
	var weightedSum float64

	for field, score := range scores {
		weight, ok := weights[field]
		if !ok {
			continue
		}
		weightedSum += score * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// normalizedFields precomputes the comparison form of every comparable field
// so the O(n²) scan normalizes each record once
func normalizedFields(name, address, phone, email, website string) map[string]string {
	return map[string]string{
		"name":         normalizers.NormalizeName(name),
		"raw_address":  normalizers.NormalizeAddress(address),
		"phone_number": normalizers.NormalizePhone(phone),
		"email":        normalizers.NormalizeEmail(email),
		"website":      normalizers.NormalizeWebsite(website),
	}
}
