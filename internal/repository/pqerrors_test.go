package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"unique violation", &pq.Error{Code: "23505"}, FailureDuplicateID},
		{"check violation", &pq.Error{Code: "23514"}, FailureCheckViolation},
		{"not null", &pq.Error{Code: "23502"}, FailureMissingField},
		{"too long", &pq.Error{Code: "22001"}, FailureValueTooLong},
		{"connection failure", &pq.Error{Code: "08006"}, FailureConnection},
		{"wrapped unique violation", fmt.Errorf("insert question: %w", &pq.Error{Code: "23505"}), FailureDuplicateID},
		{"other sqlstate", &pq.Error{Code: "42601"}, FailureUnknown},
		{"plain error", errors.New("boom"), FailureUnknown},
		{"nil", nil, FailureUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrap: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23514"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestUploadErrorMessage(t *testing.T) {
	msg := UploadErrorMessage(&pq.Error{Code: "23505"}, "DCF-WACC-B-D-001")
	assert.Equal(t, "Question ID 'DCF-WACC-B-D-001' already exists in database", msg)

	msg = UploadErrorMessage(&pq.Error{Code: "23514", Constraint: "all_questions_difficulty_check"}, "X")
	assert.Equal(t, "Invalid difficulty - must be 'Basic' or 'Advanced'", msg)

	msg = UploadErrorMessage(&pq.Error{Code: "23514", Constraint: "all_questions_type_check"}, "X")
	assert.Contains(t, msg, "Invalid question type")
	assert.Contains(t, msg, "GenConcept")

	msg = UploadErrorMessage(&pq.Error{Code: "23514", Constraint: "all_questions_question_check"}, "X")
	assert.Equal(t, "Invalid data format - check field values", msg)

	msg = UploadErrorMessage(&pq.Error{Code: "23502"}, "X")
	assert.Contains(t, msg, "Missing required fields")

	msg = UploadErrorMessage(&pq.Error{Code: "22001"}, "X")
	assert.Contains(t, msg, "Content too long")

	msg = UploadErrorMessage(&pq.Error{Code: "08001"}, "X")
	assert.Contains(t, msg, "connection error")
}

func TestUploadErrorMessageTruncatesUnknown(t *testing.T) {
	msg := UploadErrorMessage(errors.New(strings.Repeat("e", 150)), "X")
	assert.True(t, strings.HasPrefix(msg, "Upload error: "))
	assert.True(t, strings.HasSuffix(msg, "..."))
	assert.Equal(t, len("Upload error: ")+103, len(msg))
}
