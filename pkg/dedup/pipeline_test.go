package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	logger := getTestLogger()
	matchEngine, err := matching.NewEngine(logger, matching.NewScorer(), matching.DefaultConfig())
	require.NoError(t, err)
	return NewPipeline(logger, matchEngine, merging.NewEngine(logger))
}

func record(id, name, address string, day int) models.BusinessRecord {
	return models.BusinessRecord{
		ID:              id,
		Name:            name,
		RawAddress:      address,
		SourceReference: "test",
		ObservedAt:      time.Date(2026, 2, day, 0, 0, 0, 0, time.UTC),
	}
}

func TestPipeline_Deduplicate(t *testing.T) {
	pipeline := newTestPipeline(t)
	ctx := context.Background()

	t.Run("empty batch passes through", func(t *testing.T) {
		result, err := pipeline.Deduplicate(ctx, []models.BusinessRecord{})
		require.NoError(t, err)
		assert.Empty(t, result.Records)
		assert.Empty(t, result.ReviewQueue)
		assert.Equal(t, 0, result.InputCount)
		assert.Equal(t, 0, result.MergedCount)
	})

	t.Run("single record passes through", func(t *testing.T) {
		records := []models.BusinessRecord{record("a", "Acme", "1 Elm St", 1)}

		result, err := pipeline.Deduplicate(ctx, records)
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.Equal(t, "a", result.Records[0].ID)
		assert.Equal(t, 1, result.InputCount)
	})

	t.Run("distinct records are untouched", func(t *testing.T) {
		records := []models.BusinessRecord{
			record("a", "Acme Hardware", "1 Elm St", 1),
			record("b", "Sunrise Bakery", "12 Oak Ave", 1),
		}

		result, err := pipeline.Deduplicate(ctx, records)
		require.NoError(t, err)
		assert.Len(t, result.Records, 2)
		assert.Empty(t, result.ReviewQueue)
		assert.Equal(t, 0, result.MergedCount)
	})

	t.Run("exact duplicates fold automatically", func(t *testing.T) {
		records := []models.BusinessRecord{
			record("a", "Acme Hardware", "100 Main St.", 1),
			record("b", "ACME Hardware Inc.", "100 MAIN ST.", 2),
			record("c", "Sunrise Bakery", "12 Oak Ave", 1),
		}

		result, err := pipeline.Deduplicate(ctx, records)
		require.NoError(t, err)
		require.Len(t, result.Records, 2)
		assert.Equal(t, 1, result.MergedCount)
		assert.Empty(t, result.ReviewQueue)
		assert.NotEmpty(t, result.Decisions)

		// Merged record sits in the first duplicate's slot
		assert.Contains(t, []string{"a", "b"}, result.Records[0].ID)
		assert.Equal(t, "c", result.Records[1].ID)
	})

	t.Run("medium confidence pair stays unmerged and lands in review queue", func(t *testing.T) {
		records := []models.BusinessRecord{
			record("a", "Sunrise Bakery", "12 Oak Ave", 1),
			record("b", "Sunrise Bakeshop", "12 Oak Avenue", 2),
		}

		result, err := pipeline.Deduplicate(ctx, records)
		require.NoError(t, err)
		assert.Len(t, result.Records, 2)
		assert.Equal(t, 0, result.MergedCount)
		require.Len(t, result.ReviewQueue, 1)
		assert.Equal(t, models.ConfidenceLevelMedium, result.ReviewQueue[0].ConfidenceLevel)
		assert.Equal(t, 0, result.ReviewQueue[0].RecordA)
		assert.Equal(t, 1, result.ReviewQueue[0].RecordB)
	})

	t.Run("mixed batch merges high and queues medium", func(t *testing.T) {
		records := []models.BusinessRecord{
			record("a", "Joe's Coffee Shop", "45 River Rd", 1),
			record("b", "Joes Coffee Shop", "45 River Road", 2),
			record("c", "Sunrise Bakery", "12 Oak Ave", 1),
			record("d", "Sunrise Bakeshop", "12 Oak Avenue", 2),
			record("e", "Pine Valley Dental", "78 Summit Blvd", 1),
		}

		result, err := pipeline.Deduplicate(ctx, records)
		require.NoError(t, err)
		assert.Equal(t, 5, result.InputCount)
		assert.Equal(t, 1, result.MergedCount)
		assert.Len(t, result.Records, 4)
		require.Len(t, result.ReviewQueue, 1)
		assert.Equal(t, 2, result.ReviewQueue[0].RecordA)
		assert.Equal(t, 3, result.ReviewQueue[0].RecordB)
	})

	t.Run("contract violation aborts the batch", func(t *testing.T) {
		records := []models.BusinessRecord{
			record("a", "Acme", "1 Elm St", 1),
			record("b", "", "9 Pine Rd", 1),
		}

		_, err := pipeline.Deduplicate(ctx, records)
		require.Error(t, err)
		assert.True(t, models.IsContractViolation(err))
	})
}

func TestPipeline_ManualReviewQueue(t *testing.T) {
	pipeline := newTestPipeline(t)

	matches := []models.DuplicateMatch{
		{RecordA: 0, RecordB: 1, ConfidenceScore: 100, ConfidenceLevel: models.ConfidenceLevelHigh},
		{RecordA: 2, RecordB: 3, ConfidenceScore: 78, ConfidenceLevel: models.ConfidenceLevelMedium},
		{RecordA: 4, RecordB: 5, ConfidenceScore: 86, ConfidenceLevel: models.ConfidenceLevelMedium},
		{RecordA: 6, RecordB: 7, ConfidenceScore: 86, ConfidenceLevel: models.ConfidenceLevelMedium},
	}

	queue := pipeline.ManualReviewQueue(matches)
	require.Len(t, queue, 3)
	assert.Equal(t, 4, queue[0].RecordA)
	// Equal scores keep pair order
	assert.Equal(t, 6, queue[1].RecordA)
	assert.Equal(t, 2, queue[2].RecordA)
}

func TestPipeline_ExactOnlyMode(t *testing.T) {
	logger := getTestLogger()
	matchEngine, err := matching.NewEngine(logger, nil, matching.DefaultConfig())
	require.NoError(t, err)
	pipeline := NewPipeline(logger, matchEngine, merging.NewEngine(logger))

	records := []models.BusinessRecord{
		record("a", "Acme Hardware", "100 Main St", 1),
		record("b", "ACME Hardware Inc.", "100 main st", 2),
		record("c", "Joe's Coffee Shop", "45 River Rd", 1),
		record("d", "Joes Coffee Shop", "45 River Road", 2),
	}

	result, err := pipeline.Deduplicate(context.Background(), records)
	require.NoError(t, err)
	assert.False(t, result.FuzzyEnabled)

	// Exact pair still folds; the near-miss pair is left alone
	assert.Len(t, result.Records, 3)
	assert.Empty(t, result.ReviewQueue)
}

func TestPipeline_MergeOrderIndependence(t *testing.T) {
	pipeline := newTestPipeline(t)
	ctx := context.Background()

	rating := 4.2
	base := func() []models.BusinessRecord {
		a := record("a", "Harbor Lights Cafe", "7 Bay Rd", 3)
		a.PhoneNumber = "555-0101"
		b := record("b", "harbor lights cafe", "7 BAY RD", 1)
		b.Email = "hi@harborlights.com"
		b.Website = "harborlights.com"
		b.Rating = &rating
		c := record("c", "Harbor Lights Cafe Ltd", "7 bay rd", 2)
		c.Description = "Waterfront coffee"
		d := record("d", "Pine Valley Dental", "78 Summit Blvd", 1)
		return []models.BusinessRecord{a, b, c, d}
	}

	merged := func(t *testing.T, order []int) models.BusinessRecord {
		t.Helper()
		records := base()
		batch := make([]models.BusinessRecord, len(order))
		for i, idx := range order {
			batch[i] = records[idx]
		}

		result, err := pipeline.Deduplicate(ctx, batch)
		require.NoError(t, err)
		require.Len(t, result.Records, 2)
		require.Equal(t, 2, result.MergedCount)

		for _, r := range result.Records {
			if r.ID == "b" {
				return r
			}
		}
		t.Fatal("merged record not found in output")
		return models.BusinessRecord{}
	}

	// The three-record component must fold to the same survivor with the
	// same field values no matter how the batch is ordered.
	first := merged(t, []int{0, 1, 2, 3})
	for _, order := range [][]int{{3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}} {
		assert.Equal(t, first, merged(t, order))
	}

	assert.Equal(t, "555-0101", first.PhoneNumber)
	assert.Equal(t, "Waterfront coffee", first.Description)
	assert.Equal(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), first.ObservedAt)
}

func TestPipeline_WithFuzzyThreshold(t *testing.T) {
	pipeline := newTestPipeline(t)
	ctx := context.Background()

	records := []models.BusinessRecord{
		record("a", "Sunrise Bakery", "12 Oak Ave", 1),
		record("b", "Sunrise Bakeshop", "12 Oak Avenue", 2),
	}

	result, err := pipeline.Deduplicate(ctx, records)
	require.NoError(t, err)
	require.Len(t, result.ReviewQueue, 1)

	strict, err := pipeline.WithFuzzyThreshold(90)
	require.NoError(t, err)

	result, err = strict.Deduplicate(ctx, records)
	require.NoError(t, err)
	assert.Empty(t, result.ReviewQueue)
	assert.Len(t, result.Records, 2)
}
