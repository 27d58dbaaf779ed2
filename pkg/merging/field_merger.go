package merging

import (
	"github.com/Ramsey-B/fern/pkg/models"
)

// FieldMerger applies the per-field merge rules for a primary/secondary pair
type FieldMerger struct{}

// NewFieldMerger creates a new FieldMerger
func NewFieldMerger() *FieldMerger {
	return &FieldMerger{}
}

// Merge combines two records into one, preferring the primary and filling
// gaps from the secondary. Ratings take the maximum of the two. The result
// keeps the primary's identity (ID, source reference) and the later of the
// two observation times.
func (m *FieldMerger) Merge(primary, secondary *models.BusinessRecord) models.BusinessRecord {
	merged := *primary

	merged.Name = preferNonEmpty(primary.Name, secondary.Name)
	merged.RawAddress = preferNonEmpty(primary.RawAddress, secondary.RawAddress)
	merged.Category = preferNonEmpty(primary.Category, secondary.Category)
	merged.PhoneNumber = preferNonEmpty(primary.PhoneNumber, secondary.PhoneNumber)
	merged.Email = preferNonEmpty(primary.Email, secondary.Email)
	merged.Website = preferNonEmpty(primary.Website, secondary.Website)
	merged.Description = preferNonEmpty(primary.Description, secondary.Description)
	merged.OperatingHours = preferNonEmpty(primary.OperatingHours, secondary.OperatingHours)

	merged.Rating = maxRating(primary.Rating, secondary.Rating)

	if !primary.HasCoordinates() && secondary.HasCoordinates() {
		merged.Latitude = secondary.Latitude
		merged.Longitude = secondary.Longitude
	}
	merged.ExternalPlaceID = preferNonEmpty(primary.ExternalPlaceID, secondary.ExternalPlaceID)

	if secondary.ObservedAt.After(primary.ObservedAt) {
		merged.ObservedAt = secondary.ObservedAt
	}
	merged.IsActive = primary.IsActive || secondary.IsActive

	return merged
}

func preferNonEmpty(primary, secondary string) string {
	if primary != "" {
		return primary
	}
	return secondary
}

func maxRating(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *b > *a {
		return b
	}
	return a
}
