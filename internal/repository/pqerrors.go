package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// FailureKind buckets a persistence error by its Postgres SQLSTATE code.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureDuplicateID
	FailureCheckViolation
	FailureMissingField
	FailureValueTooLong
	FailureConnection
)

// ClassifyError maps a driver error to a FailureKind. Errors that did not
// originate from Postgres classify as FailureUnknown.
func ClassifyError(err error) FailureKind {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return FailureUnknown
	}
	switch {
	case pqErr.Code == "23505":
		return FailureDuplicateID
	case pqErr.Code == "23514":
		return FailureCheckViolation
	case pqErr.Code == "23502":
		return FailureMissingField
	case pqErr.Code == "22001":
		return FailureValueTooLong
	case pqErr.Code.Class() == "08":
		return FailureConnection
	}
	return FailureUnknown
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	return ClassifyError(err) == FailureDuplicateID
}

// UploadErrorMessage converts a failed insert into the user-facing message
// recorded in the batch report for the given question ID.
func UploadErrorMessage(err error, questionID string) string {
	switch ClassifyError(err) {
	case FailureDuplicateID:
		return fmt.Sprintf("Question ID '%s' already exists in database", questionID)
	case FailureCheckViolation:
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch {
			case strings.Contains(pqErr.Constraint, "difficulty"):
				return "Invalid difficulty - must be 'Basic' or 'Advanced'"
			case strings.Contains(pqErr.Constraint, "type"):
				return "Invalid question type - must be Question, Problem, Definition, GenConcept, Calculation, or Analysis"
			}
		}
		return "Invalid data format - check field values"
	case FailureMissingField:
		return "Missing required fields - question and answer cannot be empty"
	case FailureValueTooLong:
		return "Content too long - topic/subtopic must be under 100 characters"
	case FailureConnection:
		return "Database connection error - please try again"
	}
	msg := err.Error()
	if len(msg) > 100 {
		msg = msg[:100] + "..."
	}
	return "Upload error: " + msg
}
