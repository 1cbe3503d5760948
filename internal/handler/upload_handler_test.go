package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qaloader-api/internal/dto"
	"github.com/noah-isme/qaloader-api/internal/middleware"
	"github.com/noah-isme/qaloader-api/internal/models"
	"github.com/noah-isme/qaloader-api/pkg/config"
)

type uploadServiceMock struct {
	validateResp *dto.ValidationReport
	uploadResp   *dto.BatchUploadResult
	uploadErr    error
	checkResp    *dto.DuplicateReport
	checkErr     error

	lastFileName  string
	lastContent   string
	lastMeta      dto.UploadMetadata
	lastThreshold float64
}

func (m *uploadServiceMock) Validate(content string) *dto.ValidationReport {
	m.lastContent = content
	if m.validateResp != nil {
		return m.validateResp
	}
	return &dto.ValidationReport{IsValid: true}
}

func (m *uploadServiceMock) Upload(ctx context.Context, fileName, content string, meta dto.UploadMetadata) (*dto.BatchUploadResult, error) {
	m.lastFileName = fileName
	m.lastContent = content
	m.lastMeta = meta
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	if m.uploadResp != nil {
		return m.uploadResp, nil
	}
	return &dto.BatchUploadResult{TotalAttempted: 1}, nil
}

func (m *uploadServiceMock) CheckDuplicates(ctx context.Context, content string, threshold float64) (*dto.DuplicateReport, error) {
	m.lastContent = content
	m.lastThreshold = threshold
	if m.checkErr != nil {
		return nil, m.checkErr
	}
	if m.checkResp != nil {
		return m.checkResp, nil
	}
	return &dto.DuplicateReport{Threshold: threshold}, nil
}

func uploadTestConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxFileSizeBytes:  1 << 20,
		AllowedExtensions: []string{".md", ".txt"},
	}
}

func multipartRequest(t *testing.T, target, fileName string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())
	req, err := http.NewRequest(http.MethodPost, target, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeErrorCode(t *testing.T, body *bytes.Buffer) string {
	t.Helper()
	var envelope struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	return envelope.Error.Code
}

func TestUploadHandlerValidateReturnsReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &uploadServiceMock{validateResp: &dto.ValidationReport{IsValid: true, ParsedCount: 3}}
	handler := NewUploadHandler(mock, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/upload/validate", "dcf.md", []byte("# Topic: DCF\n"), nil)

	handler.Validate(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data dto.ValidationReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Data.ParsedCount)
	assert.Equal(t, "# Topic: DCF\n", mock.lastContent)
}

func TestUploadHandlerValidateRequiresFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewUploadHandler(&uploadServiceMock{}, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/upload/validate", "", nil, map[string]string{"uploaded_by": "Kai"})

	handler.Validate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeErrorCode(t, w.Body))
}

func TestUploadHandlerRejectsOversizedFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := uploadTestConfig()
	cfg.MaxFileSizeBytes = 8
	handler := NewUploadHandler(&uploadServiceMock{}, cfg)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/upload/validate", "dcf.md", []byte("far too much markdown"), nil)

	handler.Validate(c)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decodeErrorCode(t, w.Body))
}

func TestUploadHandlerRejectsUnsupportedExtension(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewUploadHandler(&uploadServiceMock{}, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/upload/validate", "questions.pdf", []byte("%PDF-1.4"), nil)

	handler.Validate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", decodeErrorCode(t, w.Body))
}

func TestUploadHandlerRejectsInvalidEncoding(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewUploadHandler(&uploadServiceMock{}, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/upload/validate", "dcf.md", []byte{0xff, 0xfe, 0x41}, nil)

	handler.Validate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ENCODING", decodeErrorCode(t, w.Body))
}

func TestUploadHandlerUploadDefaultsUploaderFromClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &uploadServiceMock{}
	handler := NewUploadHandler(mock, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/upload", "dcf.md", []byte("# Topic: DCF\n"), map[string]string{"upload_notes": "spring refresh"})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Username: "kai"})

	handler.Upload(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "kai", mock.lastMeta.UploadedBy)
	assert.Equal(t, "spring refresh", mock.lastMeta.UploadNotes)
	assert.Equal(t, "dcf.md", mock.lastFileName)
}

func TestUploadHandlerUploadKeepsExplicitUploader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &uploadServiceMock{}
	handler := NewUploadHandler(mock, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/upload", "dcf.md", []byte("# Topic: DCF\n"), map[string]string{"uploaded_by": "Lee"})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Username: "kai"})

	handler.Upload(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lee", mock.lastMeta.UploadedBy)
}

func TestUploadHandlerCheckDuplicatesParsesThreshold(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &uploadServiceMock{}
	handler := NewUploadHandler(mock, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/upload/duplicates", "dcf.md", []byte("# Topic: DCF\n"), map[string]string{"threshold": "0.9"})

	handler.CheckDuplicates(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 0.9, mock.lastThreshold, 0.0001)
}

func TestUploadHandlerCheckDuplicatesRejectsBadThreshold(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewUploadHandler(&uploadServiceMock{}, uploadTestConfig())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/upload/duplicates", "dcf.md", []byte("# Topic: DCF\n"), map[string]string{"threshold": "very similar"})

	handler.CheckDuplicates(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeErrorCode(t, w.Body))
}
