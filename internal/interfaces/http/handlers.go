package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/voucher-service/internal/application/port"
	"github.com/garyjia/voucher-service/internal/application/service"
	"github.com/garyjia/voucher-service/internal/domain/entity"
)

// Success messages
const (
	msgCreated  = "VOUCHER_CREATED_SUCCESSFULLY"
	msgUpdated  = "VOUCHER_UPDATED_SUCCESSFULLY"
	msgDeleted  = "VOUCHER_DELETED_SUCCESSFULLY"
	msgPrinted  = "VOUCHER_PRINTED_SUCCESSFULLY"
	msgImported = "VOUCHERS_IMPORTED_SUCCESSFULLY"
)

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	queries  service.VoucherQueryService
	vouchers service.VoucherService
	imports  service.ImportService
	uploads  port.UploadStorage
	health   HealthChecker
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	queries service.VoucherQueryService,
	vouchers service.VoucherService,
	imports service.ImportService,
	uploads port.UploadStorage,
	health HealthChecker,
	logger Logger,
) *Handlers {
	return &Handlers{
		queries:  queries,
		vouchers: vouchers,
		imports:  imports,
		uploads:  uploads,
		health:   health,
		logger:   logger,
	}
}

// Response represents the standard JSON envelope
type Response struct {
	Status     bool        `json:"status"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes the page returned by a list request
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Database:  "up",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		h.logger.Error("Health check failed", "error", err)
		response.Status = "unhealthy"
		response.Database = "down"
		c.JSON(http.StatusServiceUnavailable, Response{Status: false, Data: response, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Status: true, Data: response})
}

// ListVouchers handles GET /api/vouchers
func (h *Handlers) ListVouchers(c *gin.Context) {
	query := service.ListQuery{
		Page:  queryInt(c, "page"),
		Limit: queryInt(c, "limit"),
		Filter: entity.VoucherFilter{
			Status:    c.Query("status"),
			UserGroup: c.Query("user_group"),
			Search:    c.Query("search"),
		},
	}

	result, err := h.queries.List(c.Request.Context(), query)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Status: true,
		Data:   result.Items,
		Pagination: &Pagination{
			Page:       result.Page,
			Limit:      result.Limit,
			Total:      result.Total,
			TotalPages: result.TotalPages,
		},
	})
}

// GetVoucher handles GET /api/vouchers/:id
func (h *Handlers) GetVoucher(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	voucher, err := h.queries.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Status: true, Data: voucher})
}

// CreateVoucher handles POST /api/vouchers
func (h *Handlers) CreateVoucher(c *gin.Context) {
	var input entity.VoucherInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Error("Invalid voucher payload", "error", err)
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: "INVALID_REQUEST_BODY", Error: err.Error()})
		return
	}

	voucher, err := h.vouchers.Create(c.Request.Context(), &input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Status: true, Message: msgCreated, Data: voucher})
}

// UpdateVoucher handles PUT /api/vouchers/:id
func (h *Handlers) UpdateVoucher(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var input entity.VoucherInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Error("Invalid voucher payload", "error", err, "id", id)
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: "INVALID_REQUEST_BODY", Error: err.Error()})
		return
	}

	voucher, err := h.vouchers.Update(c.Request.Context(), id, &input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Status: true, Message: msgUpdated, Data: voucher})
}

// DeleteVoucher handles DELETE /api/vouchers/:id
func (h *Handlers) DeleteVoucher(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.vouchers.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Status: true, Message: msgDeleted})
}

// PrintVoucher handles POST /api/vouchers/:id/print
func (h *Handlers) PrintVoucher(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	voucher, err := h.vouchers.Print(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Status: true, Message: msgPrinted, Data: voucher})
}

// ImportVouchers handles POST /api/vouchers/import (multipart field "file")
func (h *Handlers) ImportVouchers(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, Response{Status: false, Message: "FILE_TOO_LARGE", Error: err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: service.CodeNoFileUploaded})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		h.writeError(c, service.NewInternalError("failed to open uploaded file", err))
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	path, err := h.uploads.Save(ctx, fileHeader.Filename, src)
	if err != nil {
		h.writeError(c, service.NewInternalError("failed to store uploaded file", err))
		return
	}

	if err := ctx.Err(); err != nil {
		if rmErr := h.uploads.Remove(context.Background(), path); rmErr != nil {
			h.logger.Error("Failed to remove abandoned upload", "error", rmErr, "path", path)
		}
		h.writeError(c, service.NewInternalError("request cancelled", err))
		return
	}

	result, err := h.imports.ImportFile(ctx, path, fileHeader.Filename)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Status: true, Message: msgImported, Data: result})
}

// parseID reads the :id path parameter, answering 400 when it is not a positive integer
func (h *Handlers) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: "INVALID_VOUCHER_ID", Error: "voucher id must be a positive integer"})
		return 0, false
	}
	return id, true
}

// writeError renders a service error with the status code of its kind
func (h *Handlers) writeError(c *gin.Context, err error) {
	svcErr := service.AsError(err)

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case service.KindValidation, service.KindImport:
		status = http.StatusBadRequest
	case service.KindNotFound:
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err, "path", c.Request.URL.Path, "code", svcErr.Code)
	}

	c.JSON(status, Response{Status: false, Message: svcErr.Code, Error: svcErr.Error()})
}

// queryInt parses an integer query parameter; anything unparsable reads as 0
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
