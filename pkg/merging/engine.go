// Package merging implements merge decisions and connected-component folding
package merging

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Engine decides how duplicate matches collapse into merged records
type Engine struct {
	logger      ectologger.Logger
	fieldMerger *FieldMerger
}

// NewEngine creates a new merge engine
func NewEngine(logger ectologger.Logger) *Engine {
	return &Engine{
		logger:      logger,
		fieldMerger: NewFieldMerger(),
	}
}

// CreateDecisions builds one MergeDecision per match. Exact and
// high-confidence fuzzy matches merge automatically; medium-confidence
// matches are flagged for review. Anything below medium was filtered by the
// detection threshold and is skipped defensively if it ever shows up.
func (e *Engine) CreateDecisions(ctx context.Context, records []models.BusinessRecord, matches []models.DuplicateMatch) ([]models.MergeDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.CreateDecisions")
	defer span.End()

	log := e.logger.WithContext(ctx)

	decisions := make([]models.MergeDecision, 0, len(matches))
	for i := range matches {
		match := &matches[i]

		if match.DuplicateType == models.DuplicateTypeFuzzy &&
			match.ConfidenceLevel != models.ConfidenceLevelHigh &&
			match.ConfidenceLevel != models.ConfidenceLevelMedium {
			log.WithFields(map[string]any{
				"record_a": match.RecordA,
				"record_b": match.RecordB,
				"score":    match.ConfidenceScore,
			}).Debug("Skipping match below merge confidence")
			continue
		}

		primary, secondary := e.mergePriority(records, match.RecordA, match.RecordB)

		strategy := models.MergeStrategyAutomatic
		if match.DuplicateType == models.DuplicateTypeFuzzy && match.ConfidenceLevel == models.ConfidenceLevelMedium {
			strategy = models.MergeStrategyReviewRequired
		}

		decisions = append(decisions, models.MergeDecision{
			Primary:         primary,
			Secondary:       secondary,
			Merged:          e.fieldMerger.Merge(&records[primary], &records[secondary]),
			Strategy:        strategy,
			ConfidenceScore: match.ConfidenceScore,
		})
	}

	log.WithFields(map[string]any{"decision_count": len(decisions)}).Debug("Created merge decisions")

	return decisions, nil
}

// mergePriority picks the primary record of a pair: higher completeness
// wins, ties go to the earlier observation, then to input order
func (e *Engine) mergePriority(records []models.BusinessRecord, a, b int) (primary, secondary int) {
	if e.lessComplete(records, a, b) {
		return b, a
	}
	return a, b
}

// lessComplete reports whether records[a] loses the primary selection to records[b]
func (e *Engine) lessComplete(records []models.BusinessRecord, a, b int) bool {
	countA := records[a].CompletenessCount()
	countB := records[b].CompletenessCount()
	if countA != countB {
		return countA < countB
	}
	if !records[a].ObservedAt.Equal(records[b].ObservedAt) {
		return records[b].ObservedAt.Before(records[a].ObservedAt)
	}
	return b < a
}

// FoldAutomatic applies the automatic decisions transitively and returns the
// deduplicated record set. Records linked by automatic merges collapse into
// one merged record per connected component; everything else passes through
// in input order. This step is sequential so primary-selection tie-breaking
// stays deterministic.
func (e *Engine) FoldAutomatic(ctx context.Context, records []models.BusinessRecord, decisions []models.MergeDecision) []models.BusinessRecord {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.FoldAutomatic")
	defer span.End()

	uf := newUnionFind(len(records))
	linked := false
	for i := range decisions {
		if decisions[i].Strategy != models.MergeStrategyAutomatic {
			continue
		}
		uf.union(decisions[i].Primary, decisions[i].Secondary)
		linked = true
	}
	if !linked {
		return records
	}

	components := make(map[int][]int)
	for i := range records {
		root := uf.find(i)
		components[root] = append(components[root], i)
	}

	merged := make(map[int]models.BusinessRecord)
	for root, members := range components {
		if len(members) < 2 {
			continue
		}
		merged[root] = e.foldComponent(records, members)
	}

	output := make([]models.BusinessRecord, 0, len(records))
	for i := range records {
		root := uf.find(i)
		if record, ok := merged[root]; ok {
			// Emit the component's record at its first member's position
			if i == components[root][0] {
				output = append(output, record)
			}
			continue
		}
		output = append(output, records[i])
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"input_count":  len(records),
		"output_count": len(output),
	}).Debug("Folded automatic merges")

	return output
}

// foldComponent merges a connected component by repeatedly applying the
// pairwise rule in completeness-descending order
func (e *Engine) foldComponent(records []models.BusinessRecord, members []int) models.BusinessRecord {
	ordered := make([]int, len(members))
	copy(ordered, members)
	sort.Slice(ordered, func(i, j int) bool {
		return e.lessComplete(records, ordered[j], ordered[i])
	})

	result := records[ordered[0]]
	for _, index := range ordered[1:] {
		result = *e.mergeInto(&result, &records[index])
	}
	return result
}

func (e *Engine) mergeInto(primary, secondary *models.BusinessRecord) *models.BusinessRecord {
	merged := e.fieldMerger.Merge(primary, secondary)
	return &merged
}
