package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qaloader-api/internal/dto"
	"github.com/noah-isme/qaloader-api/internal/middleware"
	"github.com/noah-isme/qaloader-api/internal/models"
)

type stagingServiceMock struct {
	uploadResp *dto.StagingUploadResult
	uploadErr  error
	detail     *dto.BatchDetail
	cancelErr  error

	lastMeta         dto.UploadMetadata
	lastFilter       models.BatchFilter
	lastStagedStatus *models.StagedStatus
	lastReview       dto.ReviewRequest
	lastThreshold    float64
	lastImportedBy   string
	cancelledBatch   string
}

func (m *stagingServiceMock) Upload(ctx context.Context, fileName, content string, meta dto.UploadMetadata) (*dto.StagingUploadResult, error) {
	m.lastMeta = meta
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	if m.uploadResp != nil {
		return m.uploadResp, nil
	}
	return &dto.StagingUploadResult{BatchID: "batch-1", FileName: fileName}, nil
}

func (m *stagingServiceMock) ListBatches(ctx context.Context, filter models.BatchFilter) ([]models.UploadBatch, int, error) {
	m.lastFilter = filter
	return []models.UploadBatch{{BatchID: "batch-1"}}, 1, nil
}

func (m *stagingServiceMock) GetBatch(ctx context.Context, batchID string, status *models.StagedStatus) (*dto.BatchDetail, error) {
	m.lastStagedStatus = status
	if m.detail != nil {
		return m.detail, nil
	}
	return &dto.BatchDetail{Batch: models.UploadBatch{BatchID: batchID}}, nil
}

func (m *stagingServiceMock) DetectDuplicates(ctx context.Context, batchID string, threshold float64) (*dto.StagingDuplicatesResult, error) {
	m.lastThreshold = threshold
	return &dto.StagingDuplicatesResult{BatchID: batchID, Threshold: threshold}, nil
}

func (m *stagingServiceMock) Review(ctx context.Context, batchID string, req dto.ReviewRequest) (*dto.ReviewResult, error) {
	m.lastReview = req
	return &dto.ReviewResult{BatchID: batchID, Updated: req.QuestionIDs, Count: len(req.QuestionIDs)}, nil
}

func (m *stagingServiceMock) ImportApproved(ctx context.Context, batchID, importedBy string) (*dto.ImportResult, error) {
	m.lastImportedBy = importedBy
	return &dto.ImportResult{BatchID: batchID, Status: models.BatchCompleted}, nil
}

func (m *stagingServiceMock) Cancel(ctx context.Context, batchID string) error {
	m.cancelledBatch = batchID
	return m.cancelErr
}

func TestStagingHandlerUploadCreatesBatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &stagingServiceMock{}
	handler := NewStagingHandler(mock, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/staging/upload", "dcf.md", []byte("# Topic: DCF\n"), nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Username: "kai"})

	handler.Upload(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "kai", mock.lastMeta.UploadedBy)
	var envelope struct {
		Data dto.StagingUploadResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "batch-1", envelope.Data.BatchID)
}

func TestStagingHandlerUploadRequiresFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStagingHandler(&stagingServiceMock{}, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/staging/upload", "", nil, map[string]string{"uploaded_by": "Kai"})

	handler.Upload(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeErrorCode(t, w.Body))
}

func TestStagingHandlerListBatchesParsesFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &stagingServiceMock{}
	handler := NewStagingHandler(mock, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/staging/batches?status=pending&page=2&page_size=5", nil)
	require.NoError(t, err)
	c.Request = req

	handler.ListBatches(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.lastFilter.Status)
	assert.Equal(t, models.BatchPending, *mock.lastFilter.Status)
	assert.Equal(t, 2, mock.lastFilter.Page)
	assert.Equal(t, 5, mock.lastFilter.PageSize)
	var envelope struct {
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestStagingHandlerListBatchesRejectsUnknownStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStagingHandler(&stagingServiceMock{}, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/staging/batches?status=archived", nil)
	require.NoError(t, err)
	c.Request = req

	handler.ListBatches(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeErrorCode(t, w.Body))
}

func TestStagingHandlerGetBatchPassesStagedStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &stagingServiceMock{}
	handler := NewStagingHandler(mock, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/staging/batches/batch-1?status=approved", nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{{Key: "batchId", Value: "batch-1"}}

	handler.GetBatch(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.lastStagedStatus)
	assert.Equal(t, models.StagedApproved, *mock.lastStagedStatus)
}

func TestStagingHandlerReviewDefaultsReviewerFromClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &stagingServiceMock{}
	handler := NewStagingHandler(mock, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, err := json.Marshal(dto.ReviewRequest{Action: "approve", QuestionIDs: []string{"DCF-WACC-B-D-001"}})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, "/staging/batches/batch-1/review", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "batchId", Value: "batch-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Username: "kai"})

	handler.Review(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "kai", mock.lastReview.ReviewedBy)
	assert.Equal(t, []string{"DCF-WACC-B-D-001"}, mock.lastReview.QuestionIDs)
}

func TestStagingHandlerDetectDuplicatesAllowsEmptyBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &stagingServiceMock{}
	handler := NewStagingHandler(mock, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/staging/batches/batch-1/duplicates", nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{{Key: "batchId", Value: "batch-1"}}

	handler.DetectDuplicates(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, mock.lastThreshold)
}

func TestStagingHandlerImportDefaultsImporterFromClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &stagingServiceMock{}
	handler := NewStagingHandler(mock, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/staging/batches/batch-1/import", nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{{Key: "batchId", Value: "batch-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Username: "kai"})

	handler.Import(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "kai", mock.lastImportedBy)
}

func TestStagingHandlerCancelReturnsNoContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &stagingServiceMock{}
	handler := NewStagingHandler(mock, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodDelete, "/staging/batches/batch-1", nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{{Key: "batchId", Value: "batch-1"}}

	handler.Cancel(c)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "batch-1", mock.cancelledBatch)
}
