package handler

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qaloader-api/internal/dto"
	"github.com/noah-isme/qaloader-api/pkg/config"
	appErrors "github.com/noah-isme/qaloader-api/pkg/errors"
	"github.com/noah-isme/qaloader-api/pkg/response"
)

type uploadService interface {
	Validate(content string) *dto.ValidationReport
	Upload(ctx context.Context, fileName, content string, meta dto.UploadMetadata) (*dto.BatchUploadResult, error)
	CheckDuplicates(ctx context.Context, content string, threshold float64) (*dto.DuplicateReport, error)
}

// UploadHandler manages markdown upload HTTP endpoints.
type UploadHandler struct {
	service uploadService
	cfg     config.UploadConfig
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(service uploadService, cfg config.UploadConfig) *UploadHandler {
	return &UploadHandler{service: service, cfg: cfg}
}

// Validate godoc
// @Summary Validate a markdown file without uploading
// @Tags Upload
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Markdown file"
// @Success 200 {object} response.Envelope
// @Router /upload/validate [post]
func (h *UploadHandler) Validate(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "upload service not configured"))
		return
	}
	_, content, err := readMarkdownFile(c, h.cfg)
	if err != nil {
		response.Error(c, err)
		return
	}
	report := h.service.Validate(content)
	response.JSON(c, http.StatusOK, report, nil)
}

// Upload godoc
// @Summary Upload a markdown file directly into the question bank
// @Tags Upload
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Markdown file"
// @Param uploaded_by formData string false "Uploader name"
// @Param uploaded_on formData string false "Upload timestamp override"
// @Param upload_notes formData string false "Free-form notes"
// @Success 200 {object} response.Envelope
// @Router /upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "upload service not configured"))
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
	response.JSON(c, http.StatusOK, result, nil)
}

// CheckDuplicates godoc
// @Summary Compare a markdown file against the stored corpus
// @Tags Upload
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Markdown file"
// @Param threshold formData number false "Similarity threshold (0.1-1.0)"
// @Success 200 {object} response.Envelope
// @Router /upload/duplicates [post]
func (h *UploadHandler) CheckDuplicates(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "upload service not configured"))
		return
	}
	threshold, err := parseThreshold(c.PostForm("threshold"))
	if err != nil {
		response.Error(c, err)
		return
	}
	_, content, err := readMarkdownFile(c, h.cfg)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.CheckDuplicates(c.Request.Context(), content, threshold)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// readMarkdownFile pulls the uploaded file out of the multipart form and
// enforces the upload limits before any parsing happens.
func readMarkdownFile(c *gin.Context, cfg config.UploadConfig) (string, string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if cfg.MaxFileSizeBytes > 0 && fileHeader.Size > cfg.MaxFileSizeBytes {
		return "", "", appErrors.ErrFileTooLarge
	}
	if !extensionAllowed(fileHeader.Filename, cfg.AllowedExtensions) {
		return "", "", appErrors.ErrUnsupportedFileType
	}
	src, err := fileHeader.Open()
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	defer src.Close() //nolint:errcheck

	raw, err := io.ReadAll(src)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file")
	}
	if !utf8.Valid(raw) {
		return "", "", appErrors.ErrInvalidEncoding
	}
	return fileHeader.Filename, string(raw), nil
}

func extensionAllowed(fileName string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, candidate := range allowed {
		if ext == strings.ToLower(candidate) {
			return true
		}
	}
	return false
}

func parseThreshold(raw string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "threshold must be a number between 0.1 and 1.0")
	}
	return threshold, nil
}
