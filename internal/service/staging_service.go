package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/qaloader-api/internal/dto"
	"github.com/noah-isme/qaloader-api/internal/markdown"
	"github.com/noah-isme/qaloader-api/internal/models"
	"github.com/noah-isme/qaloader-api/internal/repository"
	appErrors "github.com/noah-isme/qaloader-api/pkg/errors"
)

// stagingDuplicateThreshold is looser than the upload-time default because a
// reviewer sits between a flag and any consequence.
const stagingDuplicateThreshold = 0.65

// batchStore is the slice of the staging repository the workflow needs.
type batchStore interface {
	CreateBatch(ctx context.Context, batch *models.UploadBatch) error
	FindBatch(ctx context.Context, batchID string) (*models.UploadBatch, error)
	ListBatches(ctx context.Context, filter models.BatchFilter) ([]models.UploadBatch, int, error)
	MarkReviewStarted(ctx context.Context, batchID string) error
	MarkImportStarted(ctx context.Context, batchID string) error
	FinishImport(ctx context.Context, batchID string, status models.BatchStatus, importedBy string) error
	CancelBatch(ctx context.Context, batchID string) error
	RefreshBatchCounts(ctx context.Context, batchID string) error
	InsertStaged(ctx context.Context, questions []models.StagedQuestion) error
	ListStaged(ctx context.Context, batchID string, status *models.StagedStatus) ([]models.StagedQuestion, error)
	UpdateStagedStatuses(ctx context.Context, batchID string, ids []string, status models.StagedStatus, reviewedBy string, reviewNotes *string) ([]string, error)
	MarkStagedDuplicate(ctx context.Context, questionID, duplicateOf string, score float64) error
	MarkStagedImported(ctx context.Context, questionID string) error
}

// StagingService runs the review workflow: files land in staged_questions
// under an upload batch, a reviewer approves or rejects them, and only
// approved rows reach all_questions. IDs are assigned at staging time so
// they survive into production unchanged.
type StagingService struct {
	batches    batchStore
	questions  questionInserter
	ids        *IDGenerator
	duplicates *DuplicateService
	activity   activityRecorder
	metrics    *MetricsService
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewStagingService creates a StagingService.
func NewStagingService(batches batchStore, questions questionInserter, ids *IDGenerator, duplicates *DuplicateService, activity activityRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StagingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StagingService{
		batches:    batches,
		questions:  questions,
		ids:        ids,
		duplicates: duplicates,
		activity:   activity,
		metrics:    metrics,
		validate:   validate,
		logger:     logger,
	}
}

// Upload validates the file and stages its valid blocks under a fresh batch.
// Nothing touches all_questions here; the batch starts pending with every
// staged row pending. Detection against production runs at the default
// threshold so the reviewer opens the batch with duplicates already flagged.
func (s *StagingService) Upload(ctx context.Context, fileName, content string, meta dto.UploadMetadata) (*dto.StagingUploadResult, error) {
	start := time.Now()

	if err := s.validate.Struct(meta); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload metadata")
	}

	blocks, validation := markdown.Validate(content)
	if validation.ParsedCount == 0 {
		s.metrics.RecordFileProcessed("staging", false)
		return nil, noValidQuestions(validation)
	}

	issues := markdown.EvaluateContent(blocks)

	warnings := append([]string{}, validation.Warnings...)
	warnings = append(warnings, markdown.CheckStructure(content, blocks)...)

	uploadedBy, uploadedOn, uploadNotes := uploadStamp(meta)

	reserved := make(map[string]struct{})
	staged := make([]models.StagedQuestion, 0, len(blocks))
	for i, block := range blocks {
		if !issues[i].Valid() {
			warnings = append(warnings, fmt.Sprintf("Question block %d not staged: %s", i+1, strings.Join(issues[i].Errors, "; ")))
			continue
		}

		questionID, err := s.ids.GenerateUnique(ctx, block.Topic, block.Subtopic, models.Difficulty(block.Difficulty), models.QuestionType(block.Type), reserved)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Question block %d not staged: %s", i+1, appErrors.FromError(err).Message))
			continue
		}

		staged = append(staged, models.StagedQuestion{
			QuestionID:    questionID,
			Topic:         block.Topic,
			Subtopic:      block.Subtopic,
			Difficulty:    models.Difficulty(block.Difficulty),
			Type:          models.QuestionType(block.Type),
			Question:      block.Question,
			Answer:        block.Answer,
			NotesForTutor: block.Notes,
			UploadedBy:    uploadedBy,
			UploadedOn:    uploadedOn,
			UploadNotes:   uploadNotes,
		})
	}

	if len(staged) == 0 {
		s.metrics.RecordFileProcessed("staging", false)
		return nil, appErrors.Clone(appErrors.ErrIDGeneration, warnings[len(warnings)-1])
	}

	batch := &models.UploadBatch{
		UploadedBy:     strings.TrimSpace(meta.UploadedBy),
		FileName:       fileName,
		TotalQuestions: len(staged),
		Notes:          uploadNotes,
	}
	if err := s.batches.CreateBatch(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, "STAGING_UPLOAD_FAILED", appErrors.ErrInternal.Status, "could not create upload batch")
	}

	questionIDs := make([]string, len(staged))
	for i := range staged {
		staged[i].BatchID = batch.BatchID
		questionIDs[i] = staged[i].QuestionID
	}
	if err := s.batches.InsertStaged(ctx, staged); err != nil {
		return nil, appErrors.Wrap(err, "STAGING_UPLOAD_FAILED", appErrors.ErrInternal.Status, "could not stage questions for review")
	}

	flagged := 0
	if detection, err := s.DetectDuplicates(ctx, batch.BatchID, 0); err != nil {
		s.logger.Warn("duplicate detection after staging failed",
			zap.String("batch_id", batch.BatchID), zap.Error(err))
		warnings = append(warnings, "Duplicate detection did not run; trigger it again from the batch view")
	} else {
		flagged = detection.Count
	}

	s.recordActivity(ctx, models.ActivityStagingUpload,
		fmt.Sprintf("%s: %d staged for review", fileName, len(staged)))
	s.metrics.RecordFileProcessed("staging", true)

	return &dto.StagingUploadResult{
		BatchID:           batch.BatchID,
		FileName:          fileName,
		TotalStaged:       len(staged),
		QuestionIDs:       questionIDs,
		DuplicatesFlagged: flagged,
		Warnings:          warnings,
		ProcessingTimeMs:  time.Since(start).Milliseconds(),
	}, nil
}

// ListBatches returns upload batches, newest first, with the total count.
func (s *StagingService) ListBatches(ctx context.Context, filter models.BatchFilter) ([]models.UploadBatch, int, error) {
	batches, total, err := s.batches.ListBatches(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not list upload batches")
	}
	if batches == nil {
		batches = []models.UploadBatch{}
	}
	return batches, total, nil
}

// GetBatch returns a batch with its staged questions, optionally filtered by
// staged status.
func (s *StagingService) GetBatch(ctx context.Context, batchID string, status *models.StagedStatus) (*dto.BatchDetail, error) {
	batch, err := s.findBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	questions, err := s.batches.ListStaged(ctx, batchID, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not load staged questions")
	}
	if questions == nil {
		questions = []models.StagedQuestion{}
	}

	return &dto.BatchDetail{Batch: *batch, Questions: questions}, nil
}

// DetectDuplicates scores the batch's pending questions against production
// and marks matches as duplicates with a pointer to the stored question. A
// zero threshold selects the staging default.
func (s *StagingService) DetectDuplicates(ctx context.Context, batchID string, threshold float64) (*dto.StagingDuplicatesResult, error) {
	if threshold <= 0 {
		threshold = stagingDuplicateThreshold
	}
	if threshold < minSimilarityThreshold {
		threshold = minSimilarityThreshold
	}
	if threshold > maxSimilarityThreshold {
		threshold = maxSimilarityThreshold
	}

	if _, err := s.findBatch(ctx, batchID); err != nil {
		return nil, err
	}

	result := &dto.StagingDuplicatesResult{
		BatchID:   batchID,
		Threshold: threshold,
		Flagged:   []string{},
	}

	pending := models.StagedPending
	staged, err := s.batches.ListStaged(ctx, batchID, &pending)
	if err != nil {
		return nil, appErrors.Wrap(err, "STAGING_DUPLICATES_FAILED", appErrors.ErrInternal.Status, "could not load staged questions")
	}
	if len(staged) == 0 {
		return result, nil
	}

	candidates := make([]dto.DuplicateCandidate, len(staged))
	for i, question := range staged {
		candidates[i] = dto.DuplicateCandidate{Topic: question.Topic, Question: question.Question}
	}

	report, err := s.duplicates.Check(ctx, candidates, threshold)
	if err != nil {
		return nil, err
	}

	for _, match := range report.Results {
		best := match.Matches[0]
		score := math.Round(best.SimilarityScore*1000) / 1000
		target := staged[match.Index]
		if err := s.batches.MarkStagedDuplicate(ctx, target.QuestionID, best.ID, score); err != nil {
			return nil, appErrors.Wrap(err, "STAGING_DUPLICATES_FAILED", appErrors.ErrInternal.Status, "could not mark staged duplicates")
		}
		result.Flagged = append(result.Flagged, target.QuestionID)
	}
	result.Count = len(result.Flagged)

	s.refreshCounts(ctx, batchID)

	return result, nil
}

// Review applies an approve or reject decision to the named staged questions
// and reports which rows were actually updated. The first review action of a
// batch moves it from pending to reviewing.
func (s *StagingService) Review(ctx context.Context, batchID string, req dto.ReviewRequest) (*dto.ReviewResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload; action must be 'approve' or 'reject'")
	}

	batch, err := s.findBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	status := models.StagedRejected
	verb := "rejected"
	if req.Action == "approve" {
		status = models.StagedApproved
		verb = "approved"
	}

	var notes *string
	if v := strings.TrimSpace(req.Notes); v != "" {
		notes = &v
	}

	updated, err := s.batches.UpdateStagedStatuses(ctx, batchID, req.QuestionIDs, status, strings.TrimSpace(req.ReviewedBy), notes)
	if err != nil {
		return nil, appErrors.Wrap(err, "STAGING_REVIEW_FAILED", appErrors.ErrInternal.Status, "could not apply review decision")
	}

	if err := s.batches.MarkReviewStarted(ctx, batchID); err != nil {
		s.logger.Warn("failed to mark review started", zap.String("batch_id", batchID), zap.Error(err))
	}
	s.refreshCounts(ctx, batchID)

	if len(updated) > 0 {
		s.recordActivity(ctx, models.ActivityBatchReviewed,
			fmt.Sprintf("%s: %d %s", batch.FileName, len(updated), verb))
	}

	return &dto.ReviewResult{BatchID: batchID, Updated: updated, Count: len(updated)}, nil
}

// ImportApproved moves a batch's approved questions into all_questions, one
// insert per row so a bad record cannot block the rest. Imported rows are
// marked so a re-run never inserts them twice. The batch completes when every
// row lands and is cancelled otherwise.
func (s *StagingService) ImportApproved(ctx context.Context, batchID, importedBy string) (*dto.ImportResult, error) {
	batch, err := s.findBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.QuestionsApproved == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "No approved questions to import")
	}
	switch batch.Status {
	case models.BatchPending, models.BatchReviewing, models.BatchCompleted:
	default:
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Batch is not ready for import. Current status: %s", batch.Status))
	}

	if err := s.batches.MarkImportStarted(ctx, batchID); err != nil {
		return nil, appErrors.Wrap(err, "STAGING_IMPORT_FAILED", appErrors.ErrInternal.Status, "could not start the import")
	}

	approved := models.StagedApproved
	staged, err := s.batches.ListStaged(ctx, batchID, &approved)
	if err != nil {
		return nil, appErrors.Wrap(err, "STAGING_IMPORT_FAILED", appErrors.ErrInternal.Status, "could not load approved questions")
	}

	result := &dto.ImportResult{
		BatchID:  batchID,
		Imported: []string{},
		Failed:   map[string]string{},
	}

	for _, row := range staged {
		if err := s.questions.Insert(ctx, importRecord(row)); err != nil {
			result.Failed[row.QuestionID] = repository.UploadErrorMessage(err, row.QuestionID)
			continue
		}
		if err := s.batches.MarkStagedImported(ctx, row.QuestionID); err != nil {
			s.logger.Warn("failed to mark staged question imported",
				zap.String("question_id", row.QuestionID), zap.Error(err))
		}
		result.Imported = append(result.Imported, row.QuestionID)
	}

	result.Status = models.BatchCompleted
	if len(result.Failed) > 0 {
		result.Status = models.BatchCancelled
	}
	if err := s.batches.FinishImport(ctx, batchID, result.Status, strings.TrimSpace(importedBy)); err != nil {
		s.logger.Warn("failed to record import completion", zap.String("batch_id", batchID), zap.Error(err))
	}
	s.refreshCounts(ctx, batchID)

	if len(result.Imported) > 0 {
		if s.duplicates != nil {
			s.duplicates.InvalidateCorpus(ctx)
		}
		s.recordActivity(ctx, models.ActivityStagingImport,
			fmt.Sprintf("%s: %d imported, %d failed", batch.FileName, len(result.Imported), len(result.Failed)))
	}
	s.metrics.RecordQuestionsPersisted(len(result.Imported), len(result.Failed))

	return result, nil
}

// Cancel abandons a batch that will not be reviewed further. Completed
// batches stay completed.
func (s *StagingService) Cancel(ctx context.Context, batchID string) error {
	batch, err := s.findBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if batch.Status == models.BatchCompleted {
		return appErrors.Clone(appErrors.ErrConflict, "Completed batches cannot be cancelled")
	}

	if err := s.batches.CancelBatch(ctx, batchID); err != nil {
		return appErrors.Wrap(err, "STAGING_CANCEL_FAILED", appErrors.ErrInternal.Status, "could not cancel the batch")
	}

	s.recordActivity(ctx, models.ActivityBatchCancelled, fmt.Sprintf("%s cancelled", batch.FileName))

	return nil
}

func (s *StagingService) findBatch(ctx context.Context, batchID string) (*models.UploadBatch, error) {
	batch, err := s.batches.FindBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Upload batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not load upload batch")
	}
	return batch, nil
}

func (s *StagingService) refreshCounts(ctx context.Context, batchID string) {
	if err := s.batches.RefreshBatchCounts(ctx, batchID); err != nil {
		s.logger.Warn("failed to refresh batch counts", zap.String("batch_id", batchID), zap.Error(err))
	}
}

func (s *StagingService) recordActivity(ctx context.Context, action, details string) {
	if s.activity == nil {
		return
	}
	entry := &models.ActivityLog{Action: action, Details: &details}
	if err := s.activity.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity", zap.String("action", action), zap.Error(err))
	}
}

// importRecord projects a staged row onto the production shape. The staged ID
// travels with the row.
func importRecord(row models.StagedQuestion) *models.Question {
	return &models.Question{
		QuestionID:    row.QuestionID,
		Topic:         row.Topic,
		Subtopic:      row.Subtopic,
		Difficulty:    row.Difficulty,
		Type:          row.Type,
		Question:      row.Question,
		Answer:        row.Answer,
		NotesForTutor: row.NotesForTutor,
		UploadedBy:    row.UploadedBy,
		UploadedOn:    row.UploadedOn,
		UploadNotes:   row.UploadNotes,
	}
}
