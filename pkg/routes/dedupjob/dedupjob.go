package dedupjob

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	reviewrepo "github.com/Ramsey-B/fern/internal/repositories/reviewqueue"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/processor"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// Register registers dedup job and review queue routes
func Register(g *echo.Group) {
	g.POST("/jobs", RunJob)
	g.GET("/review-queue", ListReviewQueue)
	g.POST("/review-queue/:id/resolve", ResolveReview)
}

// RunJob triggers a deduplication job over all active records. The body is
// optional and may override the fuzzy threshold for this run.
func RunJob(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dedupjob_handler.RunJob")
	defer span.End()

	var req models.RunJobRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, proc, err := ectoinject.GetContext[*processor.Processor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get processor")
	}

	summary, err := proc.RunJob(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summary)
}

// ReviewQueueResponse is the paged review queue listing
type ReviewQueueResponse struct {
	Items    []models.ReviewItem `json:"items"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// ListReviewQueue returns pending review items, highest confidence first
func ListReviewQueue(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dedupjob_handler.ListReviewQueue")
	defer span.End()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	ctx, repo, err := ectoinject.GetContext[*reviewrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.ListPending(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ReviewQueueResponse{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
	})
}

// ResolveReview accepts or rejects a pending review item
func ResolveReview(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dedupjob_handler.ResolveReview")
	defer span.End()

	id := c.Param("id")

	var req models.ResolveReviewRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, proc, err := ectoinject.GetContext[*processor.Processor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get processor")
	}

	item, err := proc.ResolveReview(ctx, id, req.Status)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item)
}
