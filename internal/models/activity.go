package models

import "time"

// Activity action names recorded by the loader.
const (
	ActivityBatchUpload    = "Batch Upload"
	ActivityStagingUpload  = "Staging Upload"
	ActivityStagingImport  = "Staging Import"
	ActivityBatchReviewed  = "Batch Reviewed"
	ActivityBatchCancelled = "Batch Cancelled"
)

// ActivityLog represents a row in the activity_log table. Entries are
// write-only from this service; the dashboard reads them.
type ActivityLog struct {
	ID        string    `db:"id" json:"id"`
	Action    string    `db:"action" json:"action"`
	Details   *string   `db:"details" json:"details,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
