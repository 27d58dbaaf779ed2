package merging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestFieldMerger_Merge(t *testing.T) {
	merger := NewFieldMerger()
	earlier := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	later := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	t.Run("keeps primary identity and fills gaps from secondary", func(t *testing.T) {
		primary := models.BusinessRecord{
			ID:              "rec-a",
			Name:            "Joe's Coffee",
			RawAddress:      "1 Elm Street",
			SourceReference: "yelp",
			PhoneNumber:     "5550001111",
			ObservedAt:      earlier,
		}
		secondary := models.BusinessRecord{
			ID:              "rec-b",
			Name:            "Joes Coffee",
			RawAddress:      "1 Elm St",
			SourceReference: "google",
			Email:           "hello@joes.com",
			Website:         "joes.com",
			ObservedAt:      earlier,
		}

		merged := merger.Merge(&primary, &secondary)

		assert.Equal(t, "rec-a", merged.ID)
		assert.Equal(t, "yelp", merged.SourceReference)
		assert.Equal(t, "Joe's Coffee", merged.Name)
		assert.Equal(t, "1 Elm Street", merged.RawAddress)
		assert.Equal(t, "5550001111", merged.PhoneNumber)
		assert.Equal(t, "hello@joes.com", merged.Email)
		assert.Equal(t, "joes.com", merged.Website)
	})

	t.Run("primary fields win over populated secondary fields", func(t *testing.T) {
		primary := models.BusinessRecord{Name: "Primary", Category: "cafe"}
		secondary := models.BusinessRecord{Name: "Secondary", Category: "restaurant"}

		merged := merger.Merge(&primary, &secondary)

		assert.Equal(t, "Primary", merged.Name)
		assert.Equal(t, "cafe", merged.Category)
	})

	t.Run("rating takes the maximum regardless of direction", func(t *testing.T) {
		primary := models.BusinessRecord{Rating: floatPtr(3.5)}
		secondary := models.BusinessRecord{Rating: floatPtr(4.5)}

		merged := merger.Merge(&primary, &secondary)
		require.NotNil(t, merged.Rating)
		assert.Equal(t, 4.5, *merged.Rating)

		merged = merger.Merge(&secondary, &primary)
		require.NotNil(t, merged.Rating)
		assert.Equal(t, 4.5, *merged.Rating)
	})

	t.Run("rating falls back to whichever side has one", func(t *testing.T) {
		primary := models.BusinessRecord{}
		secondary := models.BusinessRecord{Rating: floatPtr(4.0)}

		merged := merger.Merge(&primary, &secondary)
		require.NotNil(t, merged.Rating)
		assert.Equal(t, 4.0, *merged.Rating)

		merged = merger.Merge(&secondary, &primary)
		require.NotNil(t, merged.Rating)
		assert.Equal(t, 4.0, *merged.Rating)
	})

	t.Run("coordinates come from secondary only when primary has none", func(t *testing.T) {
		primary := models.BusinessRecord{Latitude: floatPtr(40.7), Longitude: floatPtr(-74.0)}
		secondary := models.BusinessRecord{Latitude: floatPtr(51.5), Longitude: floatPtr(-0.1)}

		merged := merger.Merge(&primary, &secondary)
		assert.Equal(t, 40.7, *merged.Latitude)
		assert.Equal(t, -74.0, *merged.Longitude)

		primary = models.BusinessRecord{Latitude: floatPtr(40.7)}
		merged = merger.Merge(&primary, &secondary)
		assert.Equal(t, 51.5, *merged.Latitude)
		assert.Equal(t, -0.1, *merged.Longitude)
	})

	t.Run("observed at keeps the later of the two", func(t *testing.T) {
		primary := models.BusinessRecord{ObservedAt: earlier}
		secondary := models.BusinessRecord{ObservedAt: later}

		merged := merger.Merge(&primary, &secondary)
		assert.Equal(t, later, merged.ObservedAt)

		merged = merger.Merge(&secondary, &primary)
		assert.Equal(t, later, merged.ObservedAt)
	})

	t.Run("merged record is active if either side is", func(t *testing.T) {
		primary := models.BusinessRecord{IsActive: false}
		secondary := models.BusinessRecord{IsActive: true}

		merged := merger.Merge(&primary, &secondary)
		assert.True(t, merged.IsActive)
	})
}
