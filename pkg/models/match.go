package models

// DuplicateType classifies how a duplicate pair was detected
type DuplicateType string

const (
	// DuplicateTypeExact means the normalized identity fields hash identically
	DuplicateTypeExact DuplicateType = "exact"
	// DuplicateTypeFuzzy means the weighted similarity cleared the threshold
	DuplicateTypeFuzzy DuplicateType = "fuzzy"
)

// ConfidenceLevel is a four-way classification of a match's overall score
type ConfidenceLevel string

const (
	ConfidenceLevelHigh   ConfidenceLevel = "high"   // 90-100
	ConfidenceLevelMedium ConfidenceLevel = "medium" // 70-89
	ConfidenceLevelLow    ConfidenceLevel = "low"    // 50-69
	ConfidenceLevelNone   ConfidenceLevel = "none"   // <50
)

// ConfidenceFromScore maps a 0-100 similarity score to a confidence level
func ConfidenceFromScore(score float64) ConfidenceLevel {
	switch {
	case score >= 90:
		return ConfidenceLevelHigh
	case score >= 70:
		return ConfidenceLevelMedium
	case score >= 50:
		return ConfidenceLevelLow
	default:
		return ConfidenceLevelNone
	}
}

// DuplicateMatch is the result of comparing two records. RecordA and RecordB
// are indexes into the batch handed to the engine; each unordered pair yields
// at most one match, with RecordA < RecordB.
type DuplicateMatch struct {
	RecordA          int                `json:"record_a"`
	RecordB          int                `json:"record_b"`
	DuplicateType    DuplicateType      `json:"duplicate_type"`
	ConfidenceScore  float64            `json:"confidence_score"`
	ConfidenceLevel  ConfidenceLevel    `json:"confidence_level"`
	MatchingFields   []string           `json:"matching_fields"`
	SimilarityScores map[string]float64 `json:"similarity_scores"`
}

// RequiresManualReview reports whether the match is too uncertain to merge
// automatically. Only MEDIUM fuzzy matches land in the review queue; anything
// below that never clears the detection threshold in the first place.
func (m *DuplicateMatch) RequiresManualReview() bool {
	return m.ConfidenceLevel == ConfidenceLevelMedium
}
