// Package business persists cleaned business records
package business

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var recordColumns = []string{
	"id", "name", "raw_address", "source_reference", "observed_at",
	"category", "phone_number", "email", "website", "description",
	"operating_hours", "rating", "latitude", "longitude",
	"external_place_id", "is_active", "created_at", "updated_at", "deleted_at",
}

var insertColumns = []string{
	"id", "name", "raw_address", "source_reference", "observed_at",
	"category", "phone_number", "email", "website", "description",
	"operating_hours", "rating", "latitude", "longitude",
	"external_place_id", "is_active", "created_at", "updated_at",
}

// upsertColumns are refreshed from the incoming row when a re-ingested
// record collides on its ID
var upsertColumns = []string{
	"name", "raw_address", "observed_at", "category", "phone_number",
	"email", "website", "description", "operating_hours", "rating",
	"latitude", "longitude", "external_place_id", "is_active",
}

// Repository handles business record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new business record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB exposes the underlying database handle for transactional operations.
func (r *Repository) DB() database.DB {
	return r.db
}

// execer joins a transaction the caller opened with GetTx, if any
func (r *Repository) execer(ctx context.Context) database.Execer {
	return database.ExecerFromContext(ctx, r.db)
}

func prepareForInsert(record *models.BusinessRecord) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if record.ObservedAt.IsZero() {
		record.ObservedAt = now
	}
	record.IsActive = true
	record.CreatedAt = now
	record.UpdatedAt = now
}

func insertValues(record *models.BusinessRecord) []any {
	return []any{
		record.ID, record.Name, record.RawAddress, record.SourceReference, record.ObservedAt,
		record.Category, record.PhoneNumber, record.Email, record.Website, record.Description,
		record.OperatingHours, record.Rating, record.Latitude, record.Longitude,
		record.ExternalPlaceID, record.IsActive, record.CreatedAt, record.UpdatedAt,
	}
}

// Create stores a new business record
func (r *Repository) Create(ctx context.Context, record *models.BusinessRecord) (*models.BusinessRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.Create")
	defer span.End()

	prepareForInsert(record)

	ib := database.NewInsertBuilder().
		InsertInto("business_records").
		Cols(insertColumns...).
		Values(insertValues(record)...)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create business record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create business record")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": record.ID}).Info("Created business record")
	return record, nil
}

// CreateBatch stores multiple business records in one transaction. Records
// arriving with an ID they were already stored under are refreshed in place,
// so re-running an intake batch is idempotent.
func (r *Repository) CreateBatch(ctx context.Context, records []*models.BusinessRecord) error {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.CreateBatch")
	defer span.End()

	if len(records) == 0 {
		return nil
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, record := range records {
		prepareForInsert(record)

		ib := database.NewInsertBuilder().
			InsertInto("business_records").
			Cols(insertColumns...).
			Values(insertValues(record)...)

		ub := ib.OnConflict("id")
		assignments := make([]string, 0, len(upsertColumns)+1)
		for _, col := range upsertColumns {
			assignments = append(assignments, ub.Assign(col, database.Excluded(col)))
		}
		assignments = append(assignments, ub.Assign("updated_at", record.UpdatedAt))
		ub.Set(assignments...)

		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to create business record in batch")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create business records")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit business records")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(records)}).Info("Created business records batch")
	return nil
}

// Get retrieves a business record by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.BusinessRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("business_records")
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var record models.BusinessRecord
	if err := r.execer(ctx).GetContext(ctx, &record, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("business record %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get business record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get business record")
	}

	return &record, nil
}

// ListActive retrieves all active records, oldest observation first so the
// dedup batch order is stable across runs
func (r *Repository) ListActive(ctx context.Context, limit, offset int) ([]models.BusinessRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.ListActive")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("business_records")
	sb.Where(
		sb.Equal("is_active", true),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("observed_at", "id").Asc()
	if limit > 0 {
		sb.Limit(limit)
	}
	if offset > 0 {
		sb.Offset(offset)
	}

	query, args := sb.Build()
	records := []models.BusinessRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list business records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list business records")
	}

	return records, nil
}

// Deactivate marks records inactive after they are folded into a merged record
func (r *Repository) Deactivate(ctx context.Context, ids []string) error {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.Deactivate")
	defer span.End()

	if len(ids) == 0 {
		return nil
	}

	now := time.Now().UTC()
	ub := database.NewUpdateBuilder()
	ub.Update("business_records")
	ub.Set(
		ub.Assign("is_active", false),
		ub.Assign("updated_at", now),
	)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	ub.Where(
		ub.In("id", args...),
		ub.IsNull("deleted_at"),
	)

	query, queryArgs := ub.Build()
	if _, err := r.execer(ctx).ExecContext(ctx, query, queryArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to deactivate business records")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to deactivate business records")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(ids)}).Info("Deactivated business records")
	return nil
}

// Update replaces the mutable fields of a stored record
func (r *Repository) Update(ctx context.Context, record *models.BusinessRecord) (*models.BusinessRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "business.Repository.Update")
	defer span.End()

	record.UpdatedAt = time.Now().UTC()

	ub := database.NewUpdateBuilder()
	ub.Update("business_records")
	ub.Set(
		ub.Assign("name", record.Name),
		ub.Assign("raw_address", record.RawAddress),
		ub.Assign("category", record.Category),
		ub.Assign("phone_number", record.PhoneNumber),
		ub.Assign("email", record.Email),
		ub.Assign("website", record.Website),
		ub.Assign("description", record.Description),
		ub.Assign("operating_hours", record.OperatingHours),
		ub.Assign("rating", record.Rating),
		ub.Assign("latitude", record.Latitude),
		ub.Assign("longitude", record.Longitude),
		ub.Assign("external_place_id", record.ExternalPlaceID),
		ub.Assign("observed_at", record.ObservedAt),
		ub.Assign("is_active", record.IsActive),
		ub.Assign("updated_at", record.UpdatedAt),
	)
	ub.Where(
		ub.Equal("id", record.ID),
		ub.IsNull("deleted_at"),
	)

	query, args := ub.Build()
	result, err := r.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update business record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update business record")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("business record %s not found", record.ID))
	}

	return r.Get(ctx, record.ID)
}
