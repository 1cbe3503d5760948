package dto

import "github.com/noah-isme/qaloader-api/internal/models"

// StagingUploadResult reports a file staged for review rather than committed.
type StagingUploadResult struct {
	BatchID           string   `json:"batch_id"`
	FileName          string   `json:"file_name"`
	TotalStaged       int      `json:"total_staged"`
	QuestionIDs       []string `json:"question_ids"`
	DuplicatesFlagged int      `json:"duplicates_flagged"`
	Warnings          []string `json:"warnings"`
	ProcessingTimeMs  int64    `json:"processing_time_ms"`
}

// BatchDetail bundles a batch with its staged questions.
type BatchDetail struct {
	Batch     models.UploadBatch      `json:"batch"`
	Questions []models.StagedQuestion `json:"questions"`
}

// ReviewRequest approves or rejects staged questions within one batch.
type ReviewRequest struct {
	Action      string   `json:"action" validate:"required,oneof=approve reject"`
	QuestionIDs []string `json:"question_ids" validate:"required,min=1,dive,required"`
	ReviewedBy  string   `json:"reviewed_by" validate:"omitempty,max=25"`
	Notes       string   `json:"notes" validate:"omitempty,max=500"`
}

// ReviewResult lists the staged questions actually updated by a review call.
type ReviewResult struct {
	BatchID string   `json:"batch_id"`
	Updated []string `json:"updated"`
	Count   int      `json:"count"`
}

// DetectDuplicatesRequest triggers a similarity pass over a staged batch.
type DetectDuplicatesRequest struct {
	Threshold float64 `json:"threshold" validate:"omitempty,gte=0.1,lte=1"`
}

// StagingDuplicatesResult lists staged questions flagged against production.
type StagingDuplicatesResult struct {
	BatchID   string   `json:"batch_id"`
	Threshold float64  `json:"threshold"`
	Flagged   []string `json:"flagged"`
	Count     int      `json:"count"`
}

// ImportRequest finalises a reviewed batch.
type ImportRequest struct {
	ImportedBy string `json:"imported_by" validate:"omitempty,max=25"`
}

// ImportResult reports which approved questions reached the production table.
type ImportResult struct {
	BatchID  string             `json:"batch_id"`
	Imported []string           `json:"imported"`
	Failed   map[string]string  `json:"failed"`
	Status   models.BatchStatus `json:"status"`
}
