package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/qaloader-api/internal/models"
)

const batchColumns = "batch_id, uploaded_by, uploaded_at, file_name, total_questions, questions_pending, questions_approved, questions_rejected, questions_duplicate, status, notes, review_started_at, review_completed_at, reviewed_by, import_started_at, import_completed_at"

const stagedColumns = "question_id, upload_batch_id, topic, subtopic, difficulty, type, question, answer, notes_for_tutor, status, duplicate_of, similarity_score, review_notes, reviewed_by, reviewed_at, uploaded_by, uploaded_on, upload_notes, created_at, updated_at"

// StagingRepository manages upload batches and their staged questions.
type StagingRepository struct {
	db *sqlx.DB
}

// NewStagingRepository constructs a StagingRepository.
func NewStagingRepository(db *sqlx.DB) *StagingRepository {
	return &StagingRepository{db: db}
}

// CreateBatch inserts a new upload batch. All staged questions start pending,
// so questions_pending is seeded with the batch total.
func (r *StagingRepository) CreateBatch(ctx context.Context, batch *models.UploadBatch) error {
	if batch.BatchID == "" {
		batch.BatchID = uuid.NewString()
	}
	if batch.UploadedAt.IsZero() {
		batch.UploadedAt = time.Now().UTC()
	}
	if batch.Status == "" {
		batch.Status = models.BatchPending
	}
	batch.QuestionsPending = batch.TotalQuestions

	const query = `INSERT INTO upload_batches (batch_id, uploaded_by, uploaded_at, file_name, total_questions, questions_pending, questions_approved, questions_rejected, questions_duplicate, status, notes)
		VALUES (:batch_id, :uploaded_by, :uploaded_at, :file_name, :total_questions, :questions_pending, :questions_approved, :questions_rejected, :questions_duplicate, :status, :notes)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create upload batch: %w", err)
	}
	return nil
}

// FindBatch fetches a batch by ID.
func (r *StagingRepository) FindBatch(ctx context.Context, batchID string) (*models.UploadBatch, error) {
	const query = `SELECT ` + batchColumns + ` FROM upload_batches WHERE batch_id = $1`
	var batch models.UploadBatch
	if err := r.db.GetContext(ctx, &batch, query, batchID); err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListBatches returns batches matching the filter, newest first, with the
// total count.
func (r *StagingRepository) ListBatches(ctx context.Context, filter models.BatchFilter) ([]models.UploadBatch, int, error) {
	base := "FROM upload_batches WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY uploaded_at DESC LIMIT %d OFFSET %d", batchColumns, base, size, offset)
	var batches []models.UploadBatch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list upload batches: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count upload batches: %w", err)
	}

	return batches, total, nil
}

// MarkReviewStarted moves a batch into reviewing on its first review action.
// A no-op when the review already started.
func (r *StagingRepository) MarkReviewStarted(ctx context.Context, batchID string) error {
	const query = `UPDATE upload_batches SET status = $2, review_started_at = $3 WHERE batch_id = $1 AND review_started_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, batchID, models.BatchReviewing, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark review started: %w", err)
	}
	return nil
}

// MarkImportStarted records the start of a production import.
func (r *StagingRepository) MarkImportStarted(ctx context.Context, batchID string) error {
	const query = `UPDATE upload_batches SET status = $2, import_started_at = $3 WHERE batch_id = $1`
	if _, err := r.db.ExecContext(ctx, query, batchID, models.BatchReviewing, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark import started: %w", err)
	}
	return nil
}

// FinishImport records the terminal status of an import run.
func (r *StagingRepository) FinishImport(ctx context.Context, batchID string, status models.BatchStatus, importedBy string) error {
	const query = `UPDATE upload_batches SET status = $2, import_completed_at = $3, review_completed_at = COALESCE(review_completed_at, $3), reviewed_by = $4 WHERE batch_id = $1`
	if _, err := r.db.ExecContext(ctx, query, batchID, status, time.Now().UTC(), importedBy); err != nil {
		return fmt.Errorf("finish import: %w", err)
	}
	return nil
}

// CancelBatch marks a batch cancelled.
func (r *StagingRepository) CancelBatch(ctx context.Context, batchID string) error {
	const query = `UPDATE upload_batches SET status = $2 WHERE batch_id = $1`
	if _, err := r.db.ExecContext(ctx, query, batchID, models.BatchCancelled); err != nil {
		return fmt.Errorf("cancel batch: %w", err)
	}
	return nil
}

// RefreshBatchCounts recomputes the per-status counters from the staged rows.
func (r *StagingRepository) RefreshBatchCounts(ctx context.Context, batchID string) error {
	const query = `UPDATE upload_batches SET
			questions_pending = counts.pending,
			questions_approved = counts.approved,
			questions_rejected = counts.rejected,
			questions_duplicate = counts.duplicate
		FROM (SELECT
				COUNT(*) FILTER (WHERE status = 'pending') AS pending,
				COUNT(*) FILTER (WHERE status = 'approved') AS approved,
				COUNT(*) FILTER (WHERE status = 'rejected') AS rejected,
				COUNT(*) FILTER (WHERE status = 'duplicate') AS duplicate
			FROM staged_questions WHERE upload_batch_id = $1) AS counts
		WHERE batch_id = $1`
	if _, err := r.db.ExecContext(ctx, query, batchID); err != nil {
		return fmt.Errorf("refresh batch counts: %w", err)
	}
	return nil
}

// InsertStaged bulk-inserts staged questions.
func (r *StagingRepository) InsertStaged(ctx context.Context, questions []models.StagedQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range questions {
		if questions[i].CreatedAt.IsZero() {
			questions[i].CreatedAt = now
		}
		questions[i].UpdatedAt = now
		if questions[i].Status == "" {
			questions[i].Status = models.StagedPending
		}
	}
	const query = `INSERT INTO staged_questions (question_id, upload_batch_id, topic, subtopic, difficulty, type, question, answer, notes_for_tutor, status, uploaded_by, uploaded_on, upload_notes, created_at, updated_at)
		VALUES (:question_id, :upload_batch_id, :topic, :subtopic, :difficulty, :type, :question, :answer, :notes_for_tutor, :status, :uploaded_by, :uploaded_on, :upload_notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, questions); err != nil {
		return fmt.Errorf("stage questions: %w", err)
	}
	return nil
}

// ListStaged returns the staged questions of a batch in ID order, optionally
// filtered by status.
func (r *StagingRepository) ListStaged(ctx context.Context, batchID string, status *models.StagedStatus) ([]models.StagedQuestion, error) {
	query := `SELECT ` + stagedColumns + ` FROM staged_questions WHERE upload_batch_id = $1`
	args := []interface{}{batchID}
	if status != nil {
		query += " AND status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY question_id"

	var questions []models.StagedQuestion
	if err := r.db.SelectContext(ctx, &questions, query, args...); err != nil {
		return nil, fmt.Errorf("list staged questions: %w", err)
	}
	return questions, nil
}

// UpdateStagedStatuses applies a review decision to the given staged
// questions of a batch and returns the IDs actually updated.
func (r *StagingRepository) UpdateStagedStatuses(ctx context.Context, batchID string, ids []string, status models.StagedStatus, reviewedBy string, reviewNotes *string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	const query = `UPDATE staged_questions
		SET status = $3, reviewed_by = $4, reviewed_at = $5, review_notes = $6, updated_at = $5
		WHERE upload_batch_id = $1 AND question_id = ANY($2)
		RETURNING question_id`
	var updated []string
	if err := r.db.SelectContext(ctx, &updated, query, batchID, pq.Array(ids), status, reviewedBy, time.Now().UTC(), reviewNotes); err != nil {
		return nil, fmt.Errorf("update staged statuses: %w", err)
	}
	return updated, nil
}

// MarkStagedDuplicate flags a staged question as a duplicate of a production
// question.
func (r *StagingRepository) MarkStagedDuplicate(ctx context.Context, questionID, duplicateOf string, score float64) error {
	const query = `UPDATE staged_questions SET status = $2, duplicate_of = $3, similarity_score = $4, updated_at = $5 WHERE question_id = $1`
	if _, err := r.db.ExecContext(ctx, query, questionID, models.StagedDuplicate, duplicateOf, score, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark staged duplicate: %w", err)
	}
	return nil
}

// MarkStagedImported flags a staged question as imported to production so a
// re-run never imports it twice.
func (r *StagingRepository) MarkStagedImported(ctx context.Context, questionID string) error {
	const query = `UPDATE staged_questions SET status = $2, updated_at = $3 WHERE question_id = $1`
	if _, err := r.db.ExecContext(ctx, query, questionID, models.StagedImported, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark staged imported: %w", err)
	}
	return nil
}
