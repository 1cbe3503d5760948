package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qaloader-api/internal/dto"
	"github.com/noah-isme/qaloader-api/internal/models"
	"github.com/noah-isme/qaloader-api/pkg/config"
	appErrors "github.com/noah-isme/qaloader-api/pkg/errors"
	"github.com/noah-isme/qaloader-api/pkg/response"
)

type stagingService interface {
	Upload(ctx context.Context, fileName, content string, meta dto.UploadMetadata) (*dto.StagingUploadResult, error)
	ListBatches(ctx context.Context, filter models.BatchFilter) ([]models.UploadBatch, int, error)
	GetBatch(ctx context.Context, batchID string, status *models.StagedStatus) (*dto.BatchDetail, error)
	DetectDuplicates(ctx context.Context, batchID string, threshold float64) (*dto.StagingDuplicatesResult, error)
	Review(ctx context.Context, batchID string, req dto.ReviewRequest) (*dto.ReviewResult, error)
	ImportApproved(ctx context.Context, batchID, importedBy string) (*dto.ImportResult, error)
	Cancel(ctx context.Context, batchID string) error
}

// StagingHandler manages the review workflow HTTP endpoints.
type StagingHandler struct {
	service stagingService
	cfg     config.UploadConfig
}

// NewStagingHandler constructs the handler.
func NewStagingHandler(service stagingService, cfg config.UploadConfig) *StagingHandler {
	return &StagingHandler{service: service, cfg: cfg}
}

// Upload godoc
// @Summary Upload a markdown file into the staging area for review
// @Tags Staging
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Markdown file"
// @Param uploaded_by formData string false "Uploader name"
// @Param uploaded_on formData string false "Upload timestamp override"
// @Param upload_notes formData string false "Free-form notes"
// @Success 201 {object} response.Envelope
// @Router /staging/upload [post]
func (h *StagingHandler) Upload(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "staging service not configured"))
		return
	}
	var meta dto.UploadMetadata
	if err := c.ShouldBind(&meta); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid upload metadata"))
		return
	}
	fileName, content, err := readMarkdownFile(c, h.cfg)
	if err != nil {
		response.Error(c, err)
		return
	}
	if strings.TrimSpace(meta.UploadedBy) == "" {
		if claims := claimsFromContext(c); claims != nil {
			meta.UploadedBy = claims.Username
		}
	}
	result, err := h.service.Upload(c.Request.Context(), fileName, content, meta)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListBatches godoc
// @Summary List upload batches
// @Tags Staging
// @Produce json
// @Param status query string false "Batch status filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /staging/batches [get]
func (h *StagingHandler) ListBatches(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "staging service not configured"))
		return
	}
	filter := models.BatchFilter{
		Page:     parsePositiveInt(c.DefaultQuery("page", "1"), 1),
		PageSize: parsePositiveInt(c.DefaultQuery("page_size", "20"), 20),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := parseBatchStatus(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Status = &status
	}
	batches, total, err := h.service.ListBatches(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// GetBatch godoc
// @Summary Get an upload batch with its staged questions
// @Tags Staging
// @Produce json
// @Param batchId path string true "Batch ID"
// @Param status query string false "Staged question status filter"
// @Success 200 {object} response.Envelope
// @Router /staging/batches/{batchId} [get]
func (h *StagingHandler) GetBatch(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "staging service not configured"))
		return
	}
	var status *models.StagedStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, err := parseStagedStatus(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		status = &parsed
	}
	detail, err := h.service.GetBatch(c.Request.Context(), c.Param("batchId"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// DetectDuplicates godoc
// @Summary Flag staged questions that resemble stored ones
// @Tags Staging
// @Accept json
// @Produce json
// @Param batchId path string true "Batch ID"
// @Param payload body dto.DetectDuplicatesRequest false "Detection options"
// @Success 200 {object} response.Envelope
// @Router /staging/batches/{batchId}/duplicates [post]
func (h *StagingHandler) DetectDuplicates(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "staging service not configured"))
		return
	}
	var req dto.DetectDuplicatesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid detection payload"))
			return
		}
	}
	result, err := h.service.DetectDuplicates(c.Request.Context(), c.Param("batchId"), req.Threshold)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Review godoc
// @Summary Approve or reject staged questions
// @Tags Staging
// @Accept json
// @Produce json
// @Param batchId path string true "Batch ID"
// @Param payload body dto.ReviewRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Router /staging/batches/{batchId}/review [post]
func (h *StagingHandler) Review(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "staging service not configured"))
		return
	}
	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	if strings.TrimSpace(req.ReviewedBy) == "" {
		if claims := claimsFromContext(c); claims != nil {
			req.ReviewedBy = claims.Username
		}
	}
	result, err := h.service.Review(c.Request.Context(), c.Param("batchId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Import godoc
// @Summary Import approved staged questions into the question bank
// @Tags Staging
// @Accept json
// @Produce json
// @Param batchId path string true "Batch ID"
// @Param payload body dto.ImportRequest false "Import options"
// @Success 200 {object} response.Envelope
// @Router /staging/batches/{batchId}/import [post]
func (h *StagingHandler) Import(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "staging service not configured"))
		return
	}
	var req dto.ImportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid import payload"))
			return
		}
	}
	if strings.TrimSpace(req.ImportedBy) == "" {
		if claims := claimsFromContext(c); claims != nil {
			req.ImportedBy = claims.Username
		}
	}
	result, err := h.service.ImportApproved(c.Request.Context(), c.Param("batchId"), req.ImportedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Cancel godoc
// @Summary Cancel an upload batch
// @Tags Staging
// @Produce json
// @Param batchId path string true "Batch ID"
// @Success 204
// @Router /staging/batches/{batchId} [delete]
func (h *StagingHandler) Cancel(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "staging service not configured"))
		return
	}
	if err := h.service.Cancel(c.Request.Context(), c.Param("batchId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func parseBatchStatus(raw string) (models.BatchStatus, error) {
	status := models.BatchStatus(strings.ToLower(raw))
	switch status {
	case models.BatchPending, models.BatchReviewing, models.BatchCompleted, models.BatchCancelled:
		return status, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "invalid batch status filter")
}

func parseStagedStatus(raw string) (models.StagedStatus, error) {
	status := models.StagedStatus(strings.ToLower(raw))
	switch status {
	case models.StagedPending, models.StagedApproved, models.StagedRejected, models.StagedDuplicate, models.StagedImported:
		return status, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "invalid staged question status filter")
}
