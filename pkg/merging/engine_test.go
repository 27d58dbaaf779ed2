package merging

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func observedAt(day int) time.Time {
	return time.Date(2026, 2, day, 0, 0, 0, 0, time.UTC)
}

func TestEngine_CreateDecisions(t *testing.T) {
	engine := NewEngine(getTestLogger())
	ctx := context.Background()

	t.Run("exact match merges automatically", func(t *testing.T) {
		records := []models.BusinessRecord{
			{ID: "a", Name: "Acme", RawAddress: "1 Elm St", ObservedAt: observedAt(1)},
			{ID: "b", Name: "ACME", RawAddress: "1 Elm Street", ObservedAt: observedAt(2)},
		}
		matches := []models.DuplicateMatch{
			{RecordA: 0, RecordB: 1, DuplicateType: models.DuplicateTypeExact, ConfidenceScore: 100, ConfidenceLevel: models.ConfidenceLevelHigh},
		}

		decisions, err := engine.CreateDecisions(ctx, records, matches)
		require.NoError(t, err)
		require.Len(t, decisions, 1)
		assert.Equal(t, models.MergeStrategyAutomatic, decisions[0].Strategy)
		assert.Equal(t, float64(100), decisions[0].ConfidenceScore)
	})

	t.Run("high confidence fuzzy match merges automatically", func(t *testing.T) {
		records := []models.BusinessRecord{
			{ID: "a", Name: "Joe's Coffee", RawAddress: "1 Elm St", ObservedAt: observedAt(1)},
			{ID: "b", Name: "Joes Coffee", RawAddress: "1 Elm St", ObservedAt: observedAt(2)},
		}
		matches := []models.DuplicateMatch{
			{RecordA: 0, RecordB: 1, DuplicateType: models.DuplicateTypeFuzzy, ConfidenceScore: 95, ConfidenceLevel: models.ConfidenceLevelHigh},
		}

		decisions, err := engine.CreateDecisions(ctx, records, matches)
		require.NoError(t, err)
		require.Len(t, decisions, 1)
		assert.Equal(t, models.MergeStrategyAutomatic, decisions[0].Strategy)
	})

	t.Run("medium confidence fuzzy match requires review", func(t *testing.T) {
		records := []models.BusinessRecord{
			{ID: "a", Name: "Sunrise Bakery", RawAddress: "12 Oak Ave", ObservedAt: observedAt(1)},
			{ID: "b", Name: "Sunrise Bakeshop", RawAddress: "12 Oak Avenue", ObservedAt: observedAt(2)},
		}
		matches := []models.DuplicateMatch{
			{RecordA: 0, RecordB: 1, DuplicateType: models.DuplicateTypeFuzzy, ConfidenceScore: 85, ConfidenceLevel: models.ConfidenceLevelMedium},
		}

		decisions, err := engine.CreateDecisions(ctx, records, matches)
		require.NoError(t, err)
		require.Len(t, decisions, 1)
		assert.Equal(t, models.MergeStrategyReviewRequired, decisions[0].Strategy)
	})

	t.Run("low confidence fuzzy match is skipped", func(t *testing.T) {
		records := []models.BusinessRecord{
			{ID: "a", Name: "One", RawAddress: "1 Elm St", ObservedAt: observedAt(1)},
			{ID: "b", Name: "Two", RawAddress: "9 Pine Rd", ObservedAt: observedAt(2)},
		}
		matches := []models.DuplicateMatch{
			{RecordA: 0, RecordB: 1, DuplicateType: models.DuplicateTypeFuzzy, ConfidenceScore: 55, ConfidenceLevel: models.ConfidenceLevelLow},
		}

		decisions, err := engine.CreateDecisions(ctx, records, matches)
		require.NoError(t, err)
		assert.Empty(t, decisions)
	})

	t.Run("more complete record becomes primary", func(t *testing.T) {
		records := []models.BusinessRecord{
			{ID: "sparse", Name: "Acme", RawAddress: "1 Elm St", ObservedAt: observedAt(1)},
			{ID: "rich", Name: "Acme", RawAddress: "1 Elm St", PhoneNumber: "5551234", Email: "a@acme.com", ObservedAt: observedAt(2)},
		}
		matches := []models.DuplicateMatch{
			{RecordA: 0, RecordB: 1, DuplicateType: models.DuplicateTypeExact, ConfidenceScore: 100, ConfidenceLevel: models.ConfidenceLevelHigh},
		}

		decisions, err := engine.CreateDecisions(ctx, records, matches)
		require.NoError(t, err)
		require.Len(t, decisions, 1)
		assert.Equal(t, 1, decisions[0].Primary)
		assert.Equal(t, 0, decisions[0].Secondary)
		assert.Equal(t, "rich", decisions[0].Merged.ID)
	})

	t.Run("completeness tie goes to the earlier observation", func(t *testing.T) {
		records := []models.BusinessRecord{
			{ID: "newer", Name: "Acme", RawAddress: "1 Elm St", ObservedAt: observedAt(5)},
			{ID: "older", Name: "Acme", RawAddress: "1 Elm St", ObservedAt: observedAt(1)},
		}
		matches := []models.DuplicateMatch{
			{RecordA: 0, RecordB: 1, DuplicateType: models.DuplicateTypeExact, ConfidenceScore: 100, ConfidenceLevel: models.ConfidenceLevelHigh},
		}

		decisions, err := engine.CreateDecisions(ctx, records, matches)
		require.NoError(t, err)
		require.Len(t, decisions, 1)
		assert.Equal(t, 1, decisions[0].Primary)
		// Merged still carries the later observation time
		assert.Equal(t, observedAt(5), decisions[0].Merged.ObservedAt)
	})

	t.Run("full tie goes to input order", func(t *testing.T) {
		records := []models.BusinessRecord{
			{ID: "first", Name: "Acme", RawAddress: "1 Elm St", ObservedAt: observedAt(1)},
			{ID: "second", Name: "Acme", RawAddress: "1 Elm St", ObservedAt: observedAt(1)},
		}
		matches := []models.DuplicateMatch{
			{RecordA: 0, RecordB: 1, DuplicateType: models.DuplicateTypeExact, ConfidenceScore: 100, ConfidenceLevel: models.ConfidenceLevelHigh},
		}

		decisions, err := engine.CreateDecisions(ctx, records, matches)
		require.NoError(t, err)
		require.Len(t, decisions, 1)
		assert.Equal(t, 0, decisions[0].Primary)
	})
}

func TestEngine_FoldAutomatic(t *testing.T) {
	engine := NewEngine(getTestLogger())
	ctx := context.Background()

	t.Run("no automatic decisions returns records unchanged", func(t *testing.T) {
		records := []models.BusinessRecord{
			{ID: "a", Name: "One", RawAddress: "1 Elm St"},
			{ID: "b", Name: "Two", RawAddress: "9 Pine Rd"},
		}
		decisions := []models.MergeDecision{
			{Primary: 0, Secondary: 1, Strategy: models.MergeStrategyReviewRequired, ConfidenceScore: 85},
		}

		output := engine.FoldAutomatic(ctx, records, decisions)
		assert.Equal(t, records, output)
	})

	t.Run("pair folds into one record at the first member position", func(t *testing.T) {
		records := []models.BusinessRecord{
			{ID: "a", Name: "Acme", RawAddress: "1 Elm St", ObservedAt: observedAt(1)},
			{ID: "standalone", Name: "Other", RawAddress: "9 Pine Rd", ObservedAt: observedAt(1)},
			{ID: "b", Name: "Acme", RawAddress: "1 Elm St", PhoneNumber: "5551234", ObservedAt: observedAt(2)},
		}
		decisions := []models.MergeDecision{
			{Primary: 2, Secondary: 0, Strategy: models.MergeStrategyAutomatic, ConfidenceScore: 100},
		}

		output := engine.FoldAutomatic(ctx, records, decisions)
		require.Len(t, output, 2)
		assert.Equal(t, "b", output[0].ID)
		assert.Equal(t, "5551234", output[0].PhoneNumber)
		assert.Equal(t, "standalone", output[1].ID)
	})

	t.Run("transitive chain collapses to a single record", func(t *testing.T) {
		records := []models.BusinessRecord{
			{ID: "a", Name: "Acme", RawAddress: "1 Elm St", PhoneNumber: "5551234", ObservedAt: observedAt(1)},
			{ID: "b", Name: "Acme", RawAddress: "1 Elm St", Email: "a@acme.com", ObservedAt: observedAt(2)},
			{ID: "c", Name: "Acme", RawAddress: "1 Elm St", Website: "acme.com", ObservedAt: observedAt(3)},
		}
		decisions := []models.MergeDecision{
			{Primary: 0, Secondary: 1, Strategy: models.MergeStrategyAutomatic, ConfidenceScore: 100},
			{Primary: 1, Secondary: 2, Strategy: models.MergeStrategyAutomatic, ConfidenceScore: 100},
		}

		output := engine.FoldAutomatic(ctx, records, decisions)
		require.Len(t, output, 1)
		assert.Equal(t, "5551234", output[0].PhoneNumber)
		assert.Equal(t, "a@acme.com", output[0].Email)
		assert.Equal(t, "acme.com", output[0].Website)
		assert.Equal(t, observedAt(3), output[0].ObservedAt)
	})

	t.Run("review pairs stay separate when mixed with automatic merges", func(t *testing.T) {
		records := []models.BusinessRecord{
			{ID: "a", Name: "Acme", RawAddress: "1 Elm St", ObservedAt: observedAt(1)},
			{ID: "b", Name: "Acme", RawAddress: "1 Elm St", ObservedAt: observedAt(2)},
			{ID: "c", Name: "Sunrise Bakery", RawAddress: "12 Oak Ave", ObservedAt: observedAt(1)},
			{ID: "d", Name: "Sunrise Bakeshop", RawAddress: "12 Oak Avenue", ObservedAt: observedAt(2)},
		}
		decisions := []models.MergeDecision{
			{Primary: 0, Secondary: 1, Strategy: models.MergeStrategyAutomatic, ConfidenceScore: 100},
			{Primary: 2, Secondary: 3, Strategy: models.MergeStrategyReviewRequired, ConfidenceScore: 85},
		}

		output := engine.FoldAutomatic(ctx, records, decisions)
		require.Len(t, output, 3)
		assert.Equal(t, "c", output[1].ID)
		assert.Equal(t, "d", output[2].ID)
	})

	t.Run("untouched records pass through in input order", func(t *testing.T) {
		records := []models.BusinessRecord{
			{ID: "x", Name: "X", RawAddress: "1 A St"},
			{ID: "y", Name: "Y", RawAddress: "2 B St"},
			{ID: "z", Name: "Z", RawAddress: "3 C St"},
		}

		output := engine.FoldAutomatic(ctx, records, nil)
		require.Len(t, output, 3)
		assert.Equal(t, "x", output[0].ID)
		assert.Equal(t, "y", output[1].ID)
		assert.Equal(t, "z", output[2].ID)
	})
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind(5)

	assert.NotEqual(t, uf.find(0), uf.find(1))

	uf.union(0, 1)
	uf.union(3, 4)
	assert.Equal(t, uf.find(0), uf.find(1))
	assert.Equal(t, uf.find(3), uf.find(4))
	assert.NotEqual(t, uf.find(0), uf.find(3))

	uf.union(1, 3)
	assert.Equal(t, uf.find(0), uf.find(4))
	assert.NotEqual(t, uf.find(0), uf.find(2))
}
