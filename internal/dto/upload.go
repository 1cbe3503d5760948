package dto

// UploadMetadata carries the form fields submitted alongside a Markdown file.
// Limits mirror the column widths on all_questions.
type UploadMetadata struct {
	UploadedBy  string `form:"uploaded_by" json:"uploaded_by" validate:"omitempty,max=25"`
	UploadedOn  string `form:"uploaded_on" json:"uploaded_on" validate:"omitempty,max=20"`
	UploadNotes string `form:"upload_notes" json:"upload_notes" validate:"omitempty,max=100"`
}

// ValidationIssueList groups the findings for one parsed block.
type ValidationIssueList struct {
	Index    int      `json:"index"`
	Topic    string   `json:"topic"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidationReport summarises a dry-run validation of an uploaded file.
type ValidationReport struct {
	IsValid     bool                  `json:"is_valid"`
	ParsedCount int                   `json:"parsed_count"`
	Errors      []string              `json:"errors"`
	Warnings    []string              `json:"warnings"`
	Blocks      []ValidationIssueList `json:"blocks,omitempty"`
}

// BatchUploadResult reports the outcome of committing a file. Every scanned
// block lands in exactly one of SuccessfulUploads or FailedUploads; Errors is
// keyed by the assigned question ID, or block_N when no ID could be derived.
type BatchUploadResult struct {
	TotalAttempted    int               `json:"total_attempted"`
	SuccessfulUploads []string          `json:"successful_uploads"`
	FailedUploads     []string          `json:"failed_uploads"`
	Errors            map[string]string `json:"errors"`
	Warnings          []string          `json:"warnings"`
	ProcessingTimeMs  int64             `json:"processing_time_ms"`
}
