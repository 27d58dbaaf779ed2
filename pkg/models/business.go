package models

import (
	"time"
)

// BusinessRecord is a cleaned business listing produced by the upstream
// scraping/cleaning stage. The dedup engine treats it as immutable input:
// it only reads fields and produces new merged records.
type BusinessRecord struct {
	ID              string     `json:"id" db:"id"`
	Name            string     `json:"name" db:"name" validate:"required"`
	RawAddress      string     `json:"raw_address" db:"raw_address" validate:"required"`
	SourceReference string     `json:"source_reference" db:"source_reference" validate:"required"`
	ObservedAt      time.Time  `json:"observed_at" db:"observed_at"`
	Category        string     `json:"category,omitempty" db:"category"`
	PhoneNumber     string     `json:"phone_number,omitempty" db:"phone_number"`
	Email           string     `json:"email,omitempty" db:"email"`
	Website         string     `json:"website,omitempty" db:"website"`
	Description     string     `json:"description,omitempty" db:"description"`
	OperatingHours  string     `json:"operating_hours,omitempty" db:"operating_hours"`
	Rating          *float64   `json:"rating,omitempty" db:"rating" validate:"omitempty,gte=0,lte=5"`
	Latitude        *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude       *float64   `json:"longitude,omitempty" db:"longitude"`
	ExternalPlaceID string     `json:"external_place_id,omitempty" db:"external_place_id"`
	IsActive        bool       `json:"is_active" db:"is_active"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// HasCoordinates reports whether both latitude and longitude are populated.
func (r *BusinessRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// CompletenessCount counts populated enrichment fields. It is used to pick
// the merge primary: the richer record wins.
func (r *BusinessRecord) CompletenessCount() int {
	count := 0
	if r.PhoneNumber != "" {
		count++
	}
	if r.Email != "" {
		count++
	}
	if r.Website != "" {
		count++
	}
	if r.Description != "" {
		count++
	}
	if r.Rating != nil {
		count++
	}
	if r.Category != "" {
		count++
	}
	if r.HasCoordinates() {
		count++
	}
	return count
}

// CreateBusinessRecordRequest is the request to store a cleaned record.
// ID is optional; intake batches that supply their own IDs can be re-run
// without duplicating records.
type CreateBusinessRecordRequest struct {
	ID              string   `json:"id,omitempty" validate:"omitempty,uuid"`
	Name            string   `json:"name" validate:"required,min=2"`
	RawAddress      string   `json:"raw_address" validate:"required,min=5"`
	SourceReference string   `json:"source_reference" validate:"required"`
	Category        string   `json:"category,omitempty"`
	PhoneNumber     string   `json:"phone_number,omitempty"`
	Email           string   `json:"email,omitempty" validate:"omitempty,email"`
	Website         string   `json:"website,omitempty"`
	Description     string   `json:"description,omitempty"`
	OperatingHours  string   `json:"operating_hours,omitempty"`
	Rating          *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Latitude        *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude       *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	ExternalPlaceID string   `json:"external_place_id,omitempty"`
}

// CreateBusinessRecordBatchRequest stores a batch of cleaned records in one
// transaction
type CreateBusinessRecordBatchRequest struct {
	Records []CreateBusinessRecordRequest `json:"records" validate:"required,min=1,dive"`
}

// ToRecord converts the request into a BusinessRecord
func (r *CreateBusinessRecordRequest) ToRecord() *BusinessRecord {
	return &BusinessRecord{
		ID:              r.ID,
		Name:            r.Name,
		RawAddress:      r.RawAddress,
		SourceReference: r.SourceReference,
		Category:        r.Category,
		PhoneNumber:     r.PhoneNumber,
		Email:           r.Email,
		Website:         r.Website,
		Description:     r.Description,
		OperatingHours:  r.OperatingHours,
		Rating:          r.Rating,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		ExternalPlaceID: r.ExternalPlaceID,
	}
}
