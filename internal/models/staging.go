package models

import "time"

// BatchStatus tracks an upload batch through the review workflow.
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchReviewing BatchStatus = "reviewing"
	BatchCompleted BatchStatus = "completed"
	BatchCancelled BatchStatus = "cancelled"
)

// StagedStatus tracks an individual staged question.
type StagedStatus string

const (
	StagedPending   StagedStatus = "pending"
	StagedApproved  StagedStatus = "approved"
	StagedRejected  StagedStatus = "rejected"
	StagedDuplicate StagedStatus = "duplicate"
	StagedImported  StagedStatus = "imported"
)

// UploadBatch represents a row in the upload_batches table.
type UploadBatch struct {
	BatchID            string      `db:"batch_id" json:"batch_id"`
	UploadedBy         string      `db:"uploaded_by" json:"uploaded_by"`
	UploadedAt         time.Time   `db:"uploaded_at" json:"uploaded_at"`
	FileName           string      `db:"file_name" json:"file_name"`
	TotalQuestions     int         `db:"total_questions" json:"total_questions"`
	QuestionsPending   int         `db:"questions_pending" json:"questions_pending"`
	QuestionsApproved  int         `db:"questions_approved" json:"questions_approved"`
	QuestionsRejected  int         `db:"questions_rejected" json:"questions_rejected"`
	QuestionsDuplicate int         `db:"questions_duplicate" json:"questions_duplicate"`
	Status             BatchStatus `db:"status" json:"status"`
	Notes              *string     `db:"notes" json:"notes,omitempty"`
	ReviewStartedAt    *time.Time  `db:"review_started_at" json:"review_started_at,omitempty"`
	ReviewCompletedAt  *time.Time  `db:"review_completed_at" json:"review_completed_at,omitempty"`
	ReviewedBy         *string     `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ImportStartedAt    *time.Time  `db:"import_started_at" json:"import_started_at,omitempty"`
	ImportCompletedAt  *time.Time  `db:"import_completed_at" json:"import_completed_at,omitempty"`
}

// StagedQuestion represents a row in the staged_questions table. It mirrors
// Question plus review bookkeeping; duplicate matches against production are
// recorded inline via DuplicateOf and SimilarityScore.
type StagedQuestion struct {
	QuestionID      string       `db:"question_id" json:"question_id"`
	BatchID         string       `db:"upload_batch_id" json:"upload_batch_id"`
	Topic           string       `db:"topic" json:"topic"`
	Subtopic        string       `db:"subtopic" json:"subtopic"`
	Difficulty      Difficulty   `db:"difficulty" json:"difficulty"`
	Type            QuestionType `db:"type" json:"type"`
	Question        string       `db:"question" json:"question"`
	Answer          string       `db:"answer" json:"answer"`
	NotesForTutor   *string      `db:"notes_for_tutor" json:"notes_for_tutor,omitempty"`
	Status          StagedStatus `db:"status" json:"status"`
	DuplicateOf     *string      `db:"duplicate_of" json:"duplicate_of,omitempty"`
	SimilarityScore *float64     `db:"similarity_score" json:"similarity_score,omitempty"`
	ReviewNotes     *string      `db:"review_notes" json:"review_notes,omitempty"`
	ReviewedBy      *string      `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time   `db:"reviewed_at" json:"reviewed_at,omitempty"`
	UploadedBy      *string      `db:"uploaded_by" json:"uploaded_by,omitempty"`
	UploadedOn      *string      `db:"uploaded_on" json:"uploaded_on,omitempty"`
	UploadNotes     *string      `db:"upload_notes" json:"upload_notes,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// BatchFilter captures filtering options for listing upload batches.
type BatchFilter struct {
	Status   *BatchStatus
	Page     int
	PageSize int
}
