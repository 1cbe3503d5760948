package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qaloader-api/internal/dto"
	"github.com/noah-isme/qaloader-api/internal/middleware"
	appErrors "github.com/noah-isme/qaloader-api/pkg/errors"
	"github.com/noah-isme/qaloader-api/pkg/response"
)

type duplicateService interface {
	ScanAll(ctx context.Context, threshold float64) (*dto.DuplicateScanResult, bool, error)
	CheckByIDs(ctx context.Context, ids []string, threshold float64) (*dto.DuplicateScanResult, bool, error)
}

// DuplicateHandler manages corpus similarity HTTP endpoints.
type DuplicateHandler struct {
	service duplicateService
}

// NewDuplicateHandler constructs the handler.
func NewDuplicateHandler(service duplicateService) *DuplicateHandler {
	return &DuplicateHandler{service: service}
}

// Scan godoc
// @Summary Scan the whole corpus for near-duplicate questions
// @Tags Duplicates
// @Produce json
// @Param threshold query number false "Similarity threshold (0.1-1.0)"
// @Success 200 {object} response.Envelope
// @Router /duplicates/scan [get]
func (h *DuplicateHandler) Scan(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "duplicate service not configured"))
		return
	}
	threshold, err := parseThreshold(c.Query("threshold"))
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	result, cacheHit, err := h.service.ScanAll(c.Request.Context(), threshold)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, result, nil, meta)
}

// Check godoc
// @Summary Compare specific stored questions against the rest of the corpus
// @Tags Duplicates
// @Accept json
// @Produce json
// @Param payload body dto.CheckDuplicatesRequest true "Question IDs to compare"
// @Success 200 {object} response.Envelope
// @Router /duplicates/check [post]
func (h *DuplicateHandler) Check(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "duplicate service not configured"))
		return
	}
	var req dto.CheckDuplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid duplicate check payload"))
		return
	}
	if len(req.QuestionIDs) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "question_ids is required"))
		return
	}
	start := time.Now()
	result, cacheHit, err := h.service.CheckByIDs(c.Request.Context(), req.QuestionIDs, req.Threshold)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, result, nil, meta)
}
