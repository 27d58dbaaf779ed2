// Package reviewqueue persists manual review queue items
package reviewqueue

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

var itemColumns = []string{
	"id", "job_id", "record_a_id", "record_b_id", "confidence_score",
	"matching_fields", "similarity_scores", "status",
	"created_at", "updated_at", "resolved_at",
}

// Repository handles review queue persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new review queue repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// execer joins a transaction the caller opened with GetTx, if any
func (r *Repository) execer(ctx context.Context) database.Execer {
	return database.ExecerFromContext(ctx, r.db)
}

// Create stores a pending review item
func (r *Repository) Create(ctx context.Context, item *models.ReviewItem) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Create")
	defer span.End()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.Status = models.ReviewStatusPending
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt

	sb := database.NewInsertBuilder()
	sb.InsertInto("review_queue")
	sb.Cols("id", "job_id", "record_a_id", "record_b_id", "confidence_score",
		"matching_fields", "similarity_scores", "status", "created_at", "updated_at")
	sb.Values(item.ID, item.JobID, item.RecordAID, item.RecordBID, item.ConfidenceScore,
		item.MatchingFields, item.SimilarityScores, item.Status, item.CreatedAt, item.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create review item")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": item.ID}).Info("Created review item")
	return item, nil
}

// Get retrieves a review item by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(itemColumns...)
	sb.From("review_queue")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var item models.ReviewItem
	if err := r.execer(ctx).GetContext(ctx, &item, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("review item %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review item")
	}

	return &item, nil
}

// ListPending retrieves pending review items, highest confidence first
func (r *Repository) ListPending(ctx context.Context, limit, offset int) ([]models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.ListPending")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(itemColumns...)
	sb.From("review_queue")
	sb.Where(sb.Equal("status", models.ReviewStatusPending))
	sb.OrderBy("confidence_score DESC", "created_at ASC")
	if limit > 0 {
		sb.Limit(limit)
	}
	if offset > 0 {
		sb.Offset(offset)
	}

	query, args := sb.Build()
	items := []models.ReviewItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list review items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list review items")
	}

	return items, nil
}

// Resolve closes a pending review item with the given status
func (r *Repository) Resolve(ctx context.Context, id string, status models.ReviewStatus) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Resolve")
	defer span.End()

	now := time.Now().UTC()
	sb := database.NewUpdateBuilder()
	sb.Update("review_queue")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("resolved_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("status", models.ReviewStatusPending),
	)

	query, args := sb.Build()
	result, err := r.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve review item")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("review item %s is not pending", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":     id,
		"status": status,
	}).Info("Resolved review item")

	return r.Get(ctx, id)
}
