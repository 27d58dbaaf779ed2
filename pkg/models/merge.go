package models

// MergeStrategyType defines how a merge decision is executed
type MergeStrategyType string

const (
	// MergeStrategyAutomatic folds the pair into one record without review
	MergeStrategyAutomatic MergeStrategyType = "automatic"
	// MergeStrategyReviewRequired surfaces the pair to a human before merging
	MergeStrategyReviewRequired MergeStrategyType = "review_required"
)

// MergeDecision is a proposed resolution for one duplicate match. Primary
// and Secondary are batch indexes; the primary is the more complete record.
type MergeDecision struct {
	Primary         int               `json:"primary"`
	Secondary       int               `json:"secondary"`
	Merged          BusinessRecord    `json:"merged"`
	Strategy        MergeStrategyType `json:"strategy"`
	ConfidenceScore float64           `json:"confidence_score"`
}

// RunJobRequest is the optional tuning for a single dedup job run
type RunJobRequest struct {
	FuzzyThreshold *float64 `json:"fuzzy_threshold,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// DedupResult is the outcome of a full deduplication batch
type DedupResult struct {
	Records      []BusinessRecord `json:"records"`
	ReviewQueue  []DuplicateMatch `json:"review_queue"`
	Decisions    []MergeDecision  `json:"-"`
	InputCount   int              `json:"input_count"`
	MergedCount  int              `json:"merged_count"`
	FuzzyEnabled bool             `json:"fuzzy_enabled"`
}
