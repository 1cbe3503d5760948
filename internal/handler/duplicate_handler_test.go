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
)

type duplicateServiceMock struct {
	scanResp *dto.DuplicateScanResult
	scanErr  error
	cacheHit bool

	lastThreshold float64
	lastIDs       []string
}

func (m *duplicateServiceMock) ScanAll(ctx context.Context, threshold float64) (*dto.DuplicateScanResult, bool, error) {
	m.lastThreshold = threshold
	if m.scanErr != nil {
		return nil, false, m.scanErr
	}
	if m.scanResp != nil {
		return m.scanResp, m.cacheHit, nil
	}
	return &dto.DuplicateScanResult{Threshold: threshold}, m.cacheHit, nil
}

func (m *duplicateServiceMock) CheckByIDs(ctx context.Context, ids []string, threshold float64) (*dto.DuplicateScanResult, bool, error) {
	m.lastIDs = ids
	m.lastThreshold = threshold
	return &dto.DuplicateScanResult{Threshold: threshold}, m.cacheHit, nil
}

func TestDuplicateHandlerScanParsesThreshold(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &duplicateServiceMock{cacheHit: true}
	handler := NewDuplicateHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/duplicates/scan?threshold=0.85", nil)
	require.NoError(t, err)
	c.Request = req

	handler.Scan(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 0.85, mock.lastThreshold, 0.0001)
	var envelope struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
}

func TestDuplicateHandlerScanRejectsBadThreshold(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDuplicateHandler(&duplicateServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/duplicates/scan?threshold=high", nil)
	require.NoError(t, err)
	c.Request = req

	handler.Scan(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeErrorCode(t, w.Body))
}

func TestDuplicateHandlerCheckRequiresIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDuplicateHandler(&duplicateServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, err := json.Marshal(dto.CheckDuplicatesRequest{})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, "/duplicates/check", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Check(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeErrorCode(t, w.Body))
}

func TestDuplicateHandlerCheckPassesIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &duplicateServiceMock{}
	handler := NewDuplicateHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, err := json.Marshal(dto.CheckDuplicatesRequest{QuestionIDs: []string{"DCF-WACC-B-D-001"}, Threshold: 0.7})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, "/duplicates/check", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Check(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"DCF-WACC-B-D-001"}, mock.lastIDs)
	assert.InDelta(t, 0.7, mock.lastThreshold, 0.0001)
}
