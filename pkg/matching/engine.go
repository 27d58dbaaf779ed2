// Package matching implements duplicate detection for business records
package matching

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/fingerprint"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// EngineConfig contains tuning for the match engine. Weights and thresholds
// are explicit so engine instances with different tuning can coexist.
type EngineConfig struct {
	FuzzyThreshold         float64            // Minimum overall score to report a fuzzy match (default: 75)
	PerFieldMatchThreshold float64            // Minimum field score to count it as matching (default: 80)
	FieldWeights           map[string]float64 // Per-field weights, must sum to 1.0
	ExactMatchFields       []string           // Identity fields feeding the exact hash
	MatchWorkerCount       int                // Workers for the pairwise fuzzy scan (default: 4)
}

// DefaultConfig returns default engine configuration
func DefaultConfig() EngineConfig {
	return EngineConfig{
		FuzzyThreshold:         75,
		PerFieldMatchThreshold: 80,
		FieldWeights: map[string]float64{
			"name":         0.40,
			"raw_address":  0.30,
			"phone_number": 0.15,
			"email":        0.10,
			"website":      0.05,
		},
		ExactMatchFields: fingerprint.DefaultIdentityFields,
		MatchWorkerCount: 4,
	}
}

// Engine finds exact and fuzzy duplicate pairs in a batch of records
type Engine struct {
	logger       ectologger.Logger
	scorer       *Scorer
	config       EngineConfig
	fuzzyEnabled bool
}

// NewEngine creates a match engine. A nil scorer disables the fuzzy phase
// entirely and the engine degrades to exact-only matching; the degradation
// is logged and reported through FuzzyEnabled.
func NewEngine(logger ectologger.Logger, scorer *Scorer, config EngineConfig) (*Engine, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	if config.MatchWorkerCount <= 0 {
		config.MatchWorkerCount = DefaultConfig().MatchWorkerCount
	}

	fuzzyEnabled := scorer != nil
	if !fuzzyEnabled {
		logger.Warn("No similarity backend configured; fuzzy matching is disabled for this engine")
	}

	return &Engine{
		logger:       logger,
		scorer:       scorer,
		config:       config,
		fuzzyEnabled: fuzzyEnabled,
	}, nil
}

func validateConfig(config EngineConfig) error {
	var sum float64
	for field, weight := range config.FieldWeights {
		if weight < 0 {
			return models.NewConfigurationError("field weight for %q is negative", field)
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return models.NewConfigurationError("field weights sum to %.4f, expected 1.0", sum)
	}
	if len(config.ExactMatchFields) == 0 {
		return models.NewConfigurationError("exact_match_fields is empty")
	}
	for _, field := range config.ExactMatchFields {
		if !fingerprint.KnownField(field) {
			return models.NewConfigurationError("unknown exact match field %q", field)
		}
	}
	return nil
}

// WithFuzzyThreshold returns a copy of the engine with a different overall
// fuzzy gate. The scorer and remaining tuning are shared with the receiver.
func (e *Engine) WithFuzzyThreshold(threshold float64) (*Engine, error) {
	if threshold < 0 || threshold > 100 {
		return nil, models.NewConfigurationError("fuzzy threshold %.2f is outside 0-100", threshold)
	}
	derived := *e
	derived.config.FuzzyThreshold = threshold
	return &derived, nil
}

// FuzzyEnabled reports whether the fuzzy phase will run
func (e *Engine) FuzzyEnabled() bool {
	return e.fuzzyEnabled
}

// Config returns the engine configuration
func (e *Engine) Config() EngineConfig {
	return e.config
}

// FindDuplicates finds all duplicate matches in a batch. Exact duplicates
// are detected first by identity hash; remaining pairs go through the
// weighted fuzzy scorer. Each unordered pair yields at most one match and a
// pair classified exact is never re-evaluated as fuzzy. Matches come back
// sorted by (RecordA, RecordB) so results are independent of scheduling.
func (e *Engine) FindDuplicates(ctx context.Context, records []models.BusinessRecord) ([]models.DuplicateMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.FindDuplicates")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"record_count": len(records),
	})

	if err := e.checkContract(records); err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return nil, nil
	}

	log.Debug("Starting duplicate detection")

	hashes := make([]string, len(records))
	for i := range records {
		hashes[i] = fingerprint.IdentityFields(&records[i], e.config.ExactMatchFields)
	}

	matches := e.findExactMatches(hashes)

	if e.fuzzyEnabled {
		matches = append(matches, e.findFuzzyMatches(ctx, records, hashes)...)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].RecordA != matches[j].RecordA {
			return matches[i].RecordA < matches[j].RecordA
		}
		return matches[i].RecordB < matches[j].RecordB
	})

	log.WithFields(map[string]any{"match_count": len(matches)}).Debug("Duplicate detection complete")

	return matches, nil
}

// checkContract verifies the upstream cleaning stage's guarantee that every
// record carries its identity fields
func (e *Engine) checkContract(records []models.BusinessRecord) error {
	for i := range records {
		if records[i].Name == "" {
			return &models.ContractViolationError{RecordIndex: i, Field: "name"}
		}
		if records[i].RawAddress == "" {
			return &models.ContractViolationError{RecordIndex: i, Field: "raw_address"}
		}
	}
	return nil
}

// findExactMatches groups records by identity hash and reports every pair
// within a group as an exact duplicate
func (e *Engine) findExactMatches(hashes []string) []models.DuplicateMatch {
	groups := make(map[string][]int)
	for i, hash := range hashes {
		groups[hash] = append(groups[hash], i)
	}

	var matches []models.DuplicateMatch
	for _, indexes := range groups {
		if len(indexes) < 2 {
			continue
		}
		for i := 0; i < len(indexes); i++ {
			for j := i + 1; j < len(indexes); j++ {
				matches = append(matches, e.exactMatch(indexes[i], indexes[j]))
			}
		}
	}
	return matches
}

func (e *Engine) exactMatch(a, b int) models.DuplicateMatch {
	matchingFields := make([]string, len(e.config.ExactMatchFields))
	copy(matchingFields, e.config.ExactMatchFields)

	scores := make(map[string]float64, len(matchingFields))
	for _, field := range matchingFields {
		scores[field] = 100
	}

	return models.DuplicateMatch{
		RecordA:          a,
		RecordB:          b,
		DuplicateType:    models.DuplicateTypeExact,
		ConfidenceScore:  100,
		ConfidenceLevel:  models.ConfidenceLevelHigh,
		MatchingFields:   matchingFields,
		SimilarityScores: scores,
	}
}

// findFuzzyMatches runs the pairwise scan across workers. Records are
// read-only so workers share them without locks; each worker collects its
// own matches and the results are concatenated afterward.
func (e *Engine) findFuzzyMatches(ctx context.Context, records []models.BusinessRecord, hashes []string) []models.DuplicateMatch {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.findFuzzyMatches")
	defer span.End()

	normalized := make([]map[string]string, len(records))
	for i := range records {
		r := &records[i]
		normalized[i] = normalizedFields(r.Name, r.RawAddress, r.PhoneNumber, r.Email, r.Website)
	}

	workerCount := e.config.MatchWorkerCount
	if workerCount > len(records) {
		workerCount = len(records)
	}

	rows := make(chan int)
	results := make(chan []models.DuplicateMatch, workerCount)

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var found []models.DuplicateMatch
			for i := range rows {
				for j := i + 1; j < len(records); j++ {
					if hashes[i] == hashes[j] {
						continue // already reported as exact
					}
					if match, ok := e.compare(i, j, normalized[i], normalized[j]); ok {
						found = append(found, match)
					}
				}
			}
			results <- found
		}()
	}

	for i := 0; i < len(records)-1; i++ {
		rows <- i
	}
	close(rows)

	wg.Wait()
	close(results)

	var matches []models.DuplicateMatch
	for found := range results {
		matches = append(matches, found...)
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"fuzzy_match_count": len(matches),
		"worker_count":      workerCount,
	}).Debug("Fuzzy scan complete")

	return matches
}

// compare scores one pair. Fields empty on either side are skipped so the
// weighted average only covers fields both records carry.
func (e *Engine) compare(a, b int, fieldsA, fieldsB map[string]string) (models.DuplicateMatch, bool) {
	scores := make(map[string]float64)
	var matchingFields []string

	for _, field := range ComparableFields {
		valueA := fieldsA[field]
		valueB := fieldsB[field]
		if valueA == "" || valueB == "" {
			continue
		}

		score := e.scorer.FieldSimilarity(field, valueA, valueB)
		scores[field] = score
		if score >= e.config.PerFieldMatchThreshold {
			matchingFields = append(matchingFields, field)
		}
	}

	if len(scores) == 0 {
		return models.DuplicateMatch{}, false
	}

	overall := e.scorer.WeightedScore(scores, e.config.FieldWeights)
	if overall < e.config.FuzzyThreshold {
		return models.DuplicateMatch{}, false
	}

	return models.DuplicateMatch{
		RecordA:          a,
		RecordB:          b,
		DuplicateType:    models.DuplicateTypeFuzzy,
		ConfidenceScore:  overall,
		ConfidenceLevel:  models.ConfidenceFromScore(overall),
		MatchingFields:   matchingFields,
		SimilarityScores: scores,
	}, true
}
