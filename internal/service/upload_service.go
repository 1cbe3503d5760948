package service

import (
	"context"
	"fmt"
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

// uploadedOnLayout renders timestamps the way the dashboard displays them.
// The suffix is a fixed label, not a real zone conversion.
const uploadedOnLayout = "01/02/06 03:04PM"

// questionInserter persists one question row at a time.
type questionInserter interface {
	Insert(ctx context.Context, question *models.Question) error
}

// activityRecorder appends to the activity feed shown on the dashboard.
type activityRecorder interface {
	Insert(ctx context.Context, entry *models.ActivityLog) error
}

// UploadService turns markdown files into all_questions rows. Commits are
// deliberately not transactional: each record is inserted on its own so one
// bad row cannot hold the rest of the file hostage.
type UploadService struct {
	questions  questionInserter
	ids        *IDGenerator
	duplicates *DuplicateService
	activity   activityRecorder
	metrics    *MetricsService
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewUploadService creates an UploadService.
func NewUploadService(questions questionInserter, ids *IDGenerator, duplicates *DuplicateService, activity activityRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *UploadService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{
		questions:  questions,
		ids:        ids,
		duplicates: duplicates,
		activity:   activity,
		metrics:    metrics,
		validate:   validate,
		logger:     logger,
	}
}

// Validate runs the full validation pipeline without touching the database.
// It always returns a report so callers can render findings inline.
func (s *UploadService) Validate(content string) *dto.ValidationReport {
	blocks, result := markdown.Validate(content)

	report := &dto.ValidationReport{
		IsValid:     result.IsValid,
		ParsedCount: result.ParsedCount,
		Errors:      result.Errors,
		Warnings:    result.Warnings,
	}
	for _, issue := range markdown.EvaluateContent(blocks) {
		if issue.Valid() && len(issue.Warnings) == 0 {
			continue
		}
		report.Blocks = append(report.Blocks, dto.ValidationIssueList{
			Index:    issue.Index,
			Topic:    blocks[issue.Index-1].Topic,
			Errors:   emptyIfNil(issue.Errors),
			Warnings: emptyIfNil(issue.Warnings),
		})
	}

	s.metrics.RecordFileProcessed("validate", report.IsValid)

	return report
}

// Upload validates the file and persists every valid block, one insert per
// record. The result always accounts for every scanned block: valid blocks
// end up in SuccessfulUploads or FailedUploads under their assigned ID,
// invalid ones under a block_N key with their validation errors.
func (s *UploadService) Upload(ctx context.Context, fileName, content string, meta dto.UploadMetadata) (*dto.BatchUploadResult, error) {
	start := time.Now()

	if err := s.validate.Struct(meta); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload metadata")
	}

	blocks, validation := markdown.Validate(content)
	if validation.ParsedCount == 0 {
		s.metrics.RecordFileProcessed("upload", false)
		return nil, noValidQuestions(validation)
	}

	issues := markdown.EvaluateContent(blocks)

	result := &dto.BatchUploadResult{
		TotalAttempted:    len(blocks),
		SuccessfulUploads: []string{},
		FailedUploads:     []string{},
		Errors:            map[string]string{},
		Warnings:          []string{},
	}
	result.Warnings = append(result.Warnings, validation.Warnings...)
	// Structural findings no longer block the commit at this point, but the
	// author still wants to know about skipped headers.
	result.Warnings = append(result.Warnings, markdown.CheckStructure(content, blocks)...)

	uploadedBy, uploadedOn, uploadNotes := uploadStamp(meta)

	reserved := make(map[string]struct{})
	for i, block := range blocks {
		if !issues[i].Valid() {
			key := fmt.Sprintf("block_%d", i+1)
			result.FailedUploads = append(result.FailedUploads, key)
			result.Errors[key] = strings.Join(issues[i].Errors, "; ")
			continue
		}

		questionID, err := s.ids.GenerateUnique(ctx, block.Topic, block.Subtopic, models.Difficulty(block.Difficulty), models.QuestionType(block.Type), reserved)
		if err != nil {
			key := fmt.Sprintf("block_%d", i+1)
			result.FailedUploads = append(result.FailedUploads, key)
			result.Errors[key] = appErrors.FromError(err).Message
			continue
		}

		insertErr := s.insertQuestion(ctx, questionID, block, uploadedBy, uploadedOn, uploadNotes)
		if insertErr != nil && repository.IsUniqueViolation(insertErr) {
			// A concurrent upload won the ID; the generator already holds it
			// in the reserved set, so the next candidate is fresh.
			retryID, retryErr := s.ids.GenerateUnique(ctx, block.Topic, block.Subtopic, models.Difficulty(block.Difficulty), models.QuestionType(block.Type), reserved)
			if retryErr == nil {
				questionID = retryID
				insertErr = s.insertQuestion(ctx, questionID, block, uploadedBy, uploadedOn, uploadNotes)
			}
		}
		if insertErr != nil {
			result.FailedUploads = append(result.FailedUploads, questionID)
			result.Errors[questionID] = repository.UploadErrorMessage(insertErr, questionID)
			continue
		}

		result.SuccessfulUploads = append(result.SuccessfulUploads, questionID)
	}

	if len(result.SuccessfulUploads) > 0 {
		if s.duplicates != nil {
			s.duplicates.InvalidateCorpus(ctx)
		}
		s.recordActivity(ctx, models.ActivityBatchUpload,
			fmt.Sprintf("%s: %d uploaded, %d failed", fileName, len(result.SuccessfulUploads), len(result.FailedUploads)))
	}

	s.metrics.RecordFileProcessed("upload", true)
	s.metrics.RecordQuestionsPersisted(len(result.SuccessfulUploads), len(result.FailedUploads))
	s.metrics.ObserveUploadProcessing(time.Since(start))
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	return result, nil
}

// CheckDuplicates validates the file and scores its valid blocks against the
// stored corpus without persisting anything.
func (s *UploadService) CheckDuplicates(ctx context.Context, content string, threshold float64) (*dto.DuplicateReport, error) {
	blocks, validation := markdown.Validate(content)
	if validation.ParsedCount == 0 {
		return nil, noValidQuestions(validation)
	}

	issues := markdown.EvaluateContent(blocks)
	candidates := make([]dto.DuplicateCandidate, 0, len(blocks))
	for i, block := range blocks {
		if !issues[i].Valid() {
			continue
		}
		candidates = append(candidates, dto.DuplicateCandidate{Topic: block.Topic, Question: block.Question})
	}

	return s.duplicates.Check(ctx, candidates, threshold)
}

func (s *UploadService) insertQuestion(ctx context.Context, id string, block markdown.Block, uploadedBy, uploadedOn, uploadNotes *string) error {
	question := &models.Question{
		QuestionID:    id,
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
	}
	return s.questions.Insert(ctx, question)
}

func (s *UploadService) recordActivity(ctx context.Context, action, details string) {
	if s.activity == nil {
		return
	}
	entry := &models.ActivityLog{Action: action, Details: &details}
	if err := s.activity.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity", zap.String("action", action), zap.Error(err))
	}
}

// uploadStamp converts form metadata into nullable columns, stamping the
// upload time when the caller did not provide one.
func uploadStamp(meta dto.UploadMetadata) (by, on, notes *string) {
	if v := strings.TrimSpace(meta.UploadedBy); v != "" {
		by = &v
	}
	stamp := strings.TrimSpace(meta.UploadedOn)
	if stamp == "" {
		stamp = time.Now().UTC().Format(uploadedOnLayout) + " ET"
	}
	on = &stamp
	if v := strings.TrimSpace(meta.UploadNotes); v != "" {
		notes = &v
	}
	return by, on, notes
}

func noValidQuestions(validation markdown.ValidationResult) error {
	if len(validation.Errors) > 0 {
		return appErrors.Clone(appErrors.ErrNoValidQuestions, validation.Errors[0])
	}
	return appErrors.ErrNoValidQuestions
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
