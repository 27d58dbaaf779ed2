// Package dedup orchestrates the end-to-end deduplication batch
package dedup

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Pipeline runs the full dedup flow: exact and fuzzy detection, merge
// decisions, automatic folding, and the manual review queue. It is a pure
// in-memory batch computation; persistence belongs to the caller.
type Pipeline struct {
	logger      ectologger.Logger
	matchEngine *matching.Engine
	mergeEngine *merging.Engine
}

// NewPipeline creates a dedup pipeline
func NewPipeline(logger ectologger.Logger, matchEngine *matching.Engine, mergeEngine *merging.Engine) *Pipeline {
	return &Pipeline{
		logger:      logger,
		matchEngine: matchEngine,
		mergeEngine: mergeEngine,
	}
}

// WithFuzzyThreshold returns a pipeline whose match engine uses the given
// overall fuzzy gate, leaving the receiver untouched
func (p *Pipeline) WithFuzzyThreshold(threshold float64) (*Pipeline, error) {
	matchEngine, err := p.matchEngine.WithFuzzyThreshold(threshold)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		logger:      p.logger,
		matchEngine: matchEngine,
		mergeEngine: p.mergeEngine,
	}, nil
}

// FindDuplicates exposes the detection phase on its own
func (p *Pipeline) FindDuplicates(ctx context.Context, records []models.BusinessRecord) ([]models.DuplicateMatch, error) {
	return p.matchEngine.FindDuplicates(ctx, records)
}

// CreateMergeDecisions exposes the decision phase on its own
func (p *Pipeline) CreateMergeDecisions(ctx context.Context, records []models.BusinessRecord, matches []models.DuplicateMatch) ([]models.MergeDecision, error) {
	return p.mergeEngine.CreateDecisions(ctx, records, matches)
}

// ManualReviewQueue filters matches that need human adjudication, sorted by
// confidence score descending. Ties keep pair order so the queue is stable.
func (p *Pipeline) ManualReviewQueue(matches []models.DuplicateMatch) []models.DuplicateMatch {
	queue := make([]models.DuplicateMatch, 0)
	for i := range matches {
		if matches[i].RequiresManualReview() {
			queue = append(queue, matches[i])
		}
	}

	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].ConfidenceScore > queue[j].ConfidenceScore
	})

	return queue
}

// Deduplicate runs the complete workflow and returns the deduplicated
// records plus the manual review queue. Pairs awaiting review stay unmerged:
// both records remain in the output until a human resolves the item.
func (p *Pipeline) Deduplicate(ctx context.Context, records []models.BusinessRecord) (*models.DedupResult, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Pipeline.Deduplicate")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"record_count": len(records),
	})

	result := &models.DedupResult{
		Records:      records,
		ReviewQueue:  []models.DuplicateMatch{},
		InputCount:   len(records),
		FuzzyEnabled: p.matchEngine.FuzzyEnabled(),
	}

	if len(records) < 2 {
		return result, nil
	}

	log.Info("Starting deduplication batch")

	matches, err := p.matchEngine.FindDuplicates(ctx, records)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		log.Info("No duplicates found")
		return result, nil
	}

	decisions, err := p.mergeEngine.CreateDecisions(ctx, records, matches)
	if err != nil {
		return nil, err
	}

	result.Decisions = decisions
	result.Records = p.mergeEngine.FoldAutomatic(ctx, records, decisions)
	result.ReviewQueue = p.ManualReviewQueue(matches)
	result.MergedCount = len(records) - len(result.Records)

	log.WithFields(map[string]any{
		"match_count":  len(matches),
		"merged_count": result.MergedCount,
		"review_count": len(result.ReviewQueue),
	}).Info("Deduplication batch complete")

	return result, nil
}
