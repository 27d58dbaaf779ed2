package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
)

// ReviewStatus is the lifecycle status of a review queue item
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusAccepted ReviewStatus = "accepted"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// ReviewItem is a persisted manual review queue entry. It references the two
// stored records of a medium-confidence fuzzy match awaiting adjudication.
type ReviewItem struct {
	ID               string                             `json:"id" db:"id"`
	JobID            string                             `json:"job_id" db:"job_id"`
	RecordAID        string                             `json:"record_a_id" db:"record_a_id"`
	RecordBID        string                             `json:"record_b_id" db:"record_b_id"`
	ConfidenceScore  float64                            `json:"confidence_score" db:"confidence_score"`
	MatchingFields   pq.StringArray                     `json:"matching_fields" db:"matching_fields"`
	SimilarityScores database.JSONB[map[string]float64] `json:"similarity_scores" db:"similarity_scores"`
	Status           ReviewStatus                       `json:"status" db:"status"`
	CreatedAt        time.Time                          `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time                          `json:"updated_at" db:"updated_at"`
	ResolvedAt       *time.Time                         `json:"resolved_at,omitempty" db:"resolved_at"`
}

// ResolveReviewRequest resolves a pending review item
type ResolveReviewRequest struct {
	Status ReviewStatus `json:"status" validate:"required,oneof=accepted rejected"`
}
