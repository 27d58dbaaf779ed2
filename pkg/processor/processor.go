// Package processor runs dedup jobs against stored business records.
// It is the persistence-aware layer: the dedup pipeline itself stays pure
// and in-memory, the processor loads records, applies the outcome to the
// database, and emits events.
package processor

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lib/pq"

	businessrepo "github.com/Ramsey-B/fern/internal/repositories/business"
	reviewrepo "github.com/Ramsey-B/fern/internal/repositories/reviewqueue"
	"github.com/Ramsey-B/fern/pkg/appcontext"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/dedup"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// JobSummary is the outcome of one dedup job run
type JobSummary struct {
	JobID        string `json:"job_id"`
	InputCount   int    `json:"input_count"`
	OutputCount  int    `json:"output_count"`
	MergedCount  int    `json:"merged_count"`
	ReviewCount  int    `json:"review_count"`
	FuzzyEnabled bool   `json:"fuzzy_enabled"`
}

// Processor runs dedup jobs and applies their outcome
type Processor struct {
	logger             ectologger.Logger
	businessRepo       *businessrepo.Repository
	reviewRepo         *reviewrepo.Repository
	pipeline           *dedup.Pipeline
	fieldMerger        *merging.FieldMerger
	emitter            *events.Emitter
	autoMergeEnabled   bool
	reviewQueueEnabled bool
}

// NewProcessor creates a new dedup job processor. The emitter may be nil
// when event publication is disabled.
func NewProcessor(
	logger ectologger.Logger,
	businessRepo *businessrepo.Repository,
	reviewRepo *reviewrepo.Repository,
	pipeline *dedup.Pipeline,
	emitter *events.Emitter,
	autoMergeEnabled bool,
	reviewQueueEnabled bool,
) *Processor {
	return &Processor{
		logger:             logger,
		businessRepo:       businessRepo,
		reviewRepo:         reviewRepo,
		pipeline:           pipeline,
		fieldMerger:        merging.NewFieldMerger(),
		emitter:            emitter,
		autoMergeEnabled:   autoMergeEnabled,
		reviewQueueEnabled: reviewQueueEnabled,
	}
}

// RunJob loads all active records, deduplicates them, and applies the
// result: merged records are updated, folded secondaries are deactivated,
// and medium-confidence matches land on the review queue. The request may
// override the fuzzy gate for this run only; nil uses the configured value.
func (p *Processor) RunJob(ctx context.Context, req *models.RunJobRequest) (*JobSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.RunJob")
	defer span.End()

	jobID := uuid.New().String()
	ctx = appcontext.SetJobID(ctx, jobID)

	log := p.logger.WithContext(ctx).WithFields(map[string]any{"job_id": jobID})

	pipeline := p.pipeline
	if req != nil && req.FuzzyThreshold != nil {
		var err error
		pipeline, err = pipeline.WithFuzzyThreshold(*req.FuzzyThreshold)
		if err != nil {
			return nil, err
		}
		log = log.WithFields(map[string]any{"fuzzy_threshold": *req.FuzzyThreshold})
	}

	records, err := p.businessRepo.ListActive(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{"record_count": len(records)}).Info("Starting dedup job")

	result, err := pipeline.Deduplicate(ctx, records)
	if err != nil {
		log.WithError(err).Error("Dedup job failed")
		return nil, err
	}

	if p.autoMergeEnabled {
		if err := p.applyMerges(ctx, jobID, records, result); err != nil {
			return nil, err
		}
	}

	reviewCount := 0
	if p.reviewQueueEnabled {
		reviewCount, err = p.queueReviews(ctx, jobID, records, result.ReviewQueue)
		if err != nil {
			return nil, err
		}
	}

	if p.emitter != nil {
		if err := p.emitter.EmitDedupCompleted(ctx, jobID, result); err != nil {
			log.WithError(err).Warn("Failed to emit job completion event")
		}
	}

	summary := &JobSummary{
		JobID:        jobID,
		InputCount:   result.InputCount,
		OutputCount:  len(result.Records),
		MergedCount:  result.MergedCount,
		ReviewCount:  reviewCount,
		FuzzyEnabled: result.FuzzyEnabled,
	}

	log.WithFields(map[string]any{
		"output_count": summary.OutputCount,
		"merged_count": summary.MergedCount,
		"review_count": summary.ReviewCount,
	}).Info("Dedup job complete")

	return summary, nil
}

// applyMerges persists the folded output: each merged cluster keeps its
// primary record (updated in place) and deactivates the rest.
func (p *Processor) applyMerges(ctx context.Context, jobID string, records []models.BusinessRecord, result *models.DedupResult) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.applyMerges")
	defer span.End()

	clusters := p.clusterAutomatic(len(records), result.Decisions)
	if len(clusters) == 0 {
		return nil
	}

	merged := make(map[string]models.BusinessRecord, len(result.Records))
	for i := range result.Records {
		merged[result.Records[i].ID] = result.Records[i]
	}

	for _, members := range clusters {
		memberSet := make(map[int]bool, len(members))
		sourceIDs := make([]string, 0, len(members))
		deactivate := make([]string, 0, len(members)-1)
		var survivor *models.BusinessRecord

		for _, idx := range members {
			memberSet[idx] = true
			id := records[idx].ID
			sourceIDs = append(sourceIDs, id)
			if rec, ok := merged[id]; ok {
				survivor = &rec
			} else {
				deactivate = append(deactivate, id)
			}
		}

		var score float64
		for _, d := range result.Decisions {
			if d.Strategy == models.MergeStrategyAutomatic && memberSet[d.Primary] && d.ConfidenceScore > score {
				score = d.ConfidenceScore
			}
		}

		if survivor == nil {
			// folded output always keeps one member
			continue
		}

		// Survivor update and secondary deactivation land together or not
		// at all, so a failed cluster never leaves half a merge behind.
		txCtx, tx, err := p.businessRepo.DB().GetTx(ctx, nil)
		if err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start merge transaction")
		}

		if _, err := p.businessRepo.Update(txCtx, survivor); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		if err := p.businessRepo.Deactivate(txCtx, deactivate); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		if err := tx.Commit(txCtx); err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit merge")
		}

		if p.emitter != nil {
			if err := p.emitter.EmitRecordMerged(ctx, jobID, survivor, sourceIDs, score); err != nil {
				p.logger.WithContext(ctx).WithError(err).Warn("Failed to emit merge event")
			}
		}
	}

	return nil
}

// clusterAutomatic groups record indexes connected by automatic decisions
func (p *Processor) clusterAutomatic(size int, decisions []models.MergeDecision) [][]int {
	parent := make([]int, size)
	for i := range parent {
		parent[i] = i
	}
	var find func(x int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	linked := false
	for _, d := range decisions {
		if d.Strategy != models.MergeStrategyAutomatic {
			continue
		}
		ra, rb := find(d.Primary), find(d.Secondary)
		if ra != rb {
			if rb < ra {
				ra, rb = rb, ra
			}
			parent[rb] = ra
			linked = true
		}
	}
	if !linked {
		return nil
	}

	components := make(map[int][]int)
	for i := 0; i < size; i++ {
		root := find(i)
		components[root] = append(components[root], i)
	}

	clusters := make([][]int, 0)
	for i := 0; i < size; i++ {
		if members, ok := components[i]; ok && len(members) > 1 && find(i) == i {
			clusters = append(clusters, members)
		}
	}
	return clusters
}

// queueReviews stores review items for matches needing human adjudication
func (p *Processor) queueReviews(ctx context.Context, jobID string, records []models.BusinessRecord, queue []models.DuplicateMatch) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.queueReviews")
	defer span.End()

	for _, match := range queue {
		item := &models.ReviewItem{
			JobID:            jobID,
			RecordAID:        records[match.RecordA].ID,
			RecordBID:        records[match.RecordB].ID,
			ConfidenceScore:  match.ConfidenceScore,
			MatchingFields:   pq.StringArray(match.MatchingFields),
			SimilarityScores: database.JSONB[map[string]float64]{Data: match.SimilarityScores},
		}

		created, err := p.reviewRepo.Create(ctx, item)
		if err != nil {
			return 0, err
		}

		if p.emitter != nil {
			if err := p.emitter.EmitReviewQueued(ctx, jobID, created.ID, item.RecordAID, item.RecordBID, item.ConfidenceScore); err != nil {
				p.logger.WithContext(ctx).WithError(err).Warn("Failed to emit review event")
			}
		}
	}

	return len(queue), nil
}

// ResolveReview closes a review item. Accepting it merges the pair: the
// more complete record absorbs the other, which is deactivated.
func (p *Processor) ResolveReview(ctx context.Context, id string, status models.ReviewStatus) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ResolveReview")
	defer span.End()

	// The status flip and the merge it triggers share one transaction. If
	// applying the merge fails the item stays pending and can be retried.
	txCtx, tx, err := p.businessRepo.DB().GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start review transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item, err := p.reviewRepo.Resolve(txCtx, id, status)
	if err != nil {
		return nil, err
	}

	if status != models.ReviewStatusAccepted {
		if err := tx.Commit(txCtx); err != nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit review resolution")
		}
		return item, nil
	}

	recordA, err := p.businessRepo.Get(txCtx, item.RecordAID)
	if err != nil {
		return nil, err
	}
	recordB, err := p.businessRepo.Get(txCtx, item.RecordBID)
	if err != nil {
		return nil, err
	}

	primary, secondary := recordA, recordB
	if secondary.CompletenessCount() > primary.CompletenessCount() ||
		(secondary.CompletenessCount() == primary.CompletenessCount() && secondary.ObservedAt.Before(primary.ObservedAt)) {
		primary, secondary = secondary, primary
	}

	merged := p.fieldMerger.Merge(primary, secondary)
	if _, err := p.businessRepo.Update(txCtx, &merged); err != nil {
		return nil, err
	}
	if err := p.businessRepo.Deactivate(txCtx, []string{secondary.ID}); err != nil {
		return nil, err
	}
	if err := tx.Commit(txCtx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit review resolution")
	}

	if p.emitter != nil {
		if err := p.emitter.EmitRecordMerged(ctx, item.JobID, &merged, []string{primary.ID, secondary.ID}, item.ConfidenceScore); err != nil {
			p.logger.WithContext(ctx).WithError(err).Warn("Failed to emit merge event")
		}
	}

	return item, nil
}
