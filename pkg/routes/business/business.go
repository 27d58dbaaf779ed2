package business

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	businessrepo "github.com/Ramsey-B/fern/internal/repositories/business"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// Register registers business record routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.POST("/batch", CreateBatch)
	g.GET("/:id", Get)
}

// ListResponse is the paged business record listing
type ListResponse struct {
	Items    []models.BusinessRecord `json:"items"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
}

// List returns active business records
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "business_handler.List")
	defer span.End()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	ctx, repo, err := ectoinject.GetContext[*businessrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.ListActive(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ListResponse{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
	})
}

// Create stores a new cleaned business record
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "business_handler.Create")
	defer span.End()

	var req models.CreateBusinessRecordRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*businessrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	created, err := repo.Create(ctx, req.ToRecord())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// CreateBatch stores a batch of cleaned records in one transaction.
// Records carrying an already-stored ID are refreshed, so an intake batch
// can be replayed safely.
func CreateBatch(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "business_handler.CreateBatch")
	defer span.End()

	var req models.CreateBusinessRecordBatchRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*businessrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	records := make([]*models.BusinessRecord, len(req.Records))
	for i := range req.Records {
		records[i] = req.Records[i].ToRecord()
	}

	if err := repo.CreateBatch(ctx, records); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, records)
}

// Get returns a single business record by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "business_handler.Get")
	defer span.End()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*businessrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	record, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, record)
}
