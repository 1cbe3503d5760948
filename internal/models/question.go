package models

import (
	"fmt"
	"time"
)

// Difficulty is the two-level difficulty scale used across the question bank.
type Difficulty string

const (
	DifficultyBasic    Difficulty = "Basic"
	DifficultyAdvanced Difficulty = "Advanced"
)

// difficultyCodes is exhaustive over all Difficulty values.
var difficultyCodes = map[Difficulty]string{
	DifficultyBasic:    "B",
	DifficultyAdvanced: "A",
}

// Valid reports whether the difficulty is one of the accepted levels.
func (d Difficulty) Valid() bool {
	_, ok := difficultyCodes[d]
	return ok
}

// Code returns the single-letter code used inside question IDs.
func (d Difficulty) Code() (string, error) {
	code, ok := difficultyCodes[d]
	if !ok {
		return "", fmt.Errorf("unknown difficulty %q", string(d))
	}
	return code, nil
}

// QuestionType categorises what kind of answer a question expects.
type QuestionType string

const (
	TypeDefinition  QuestionType = "Definition"
	TypeProblem     QuestionType = "Problem"
	TypeGenConcept  QuestionType = "GenConcept"
	TypeCalculation QuestionType = "Calculation"
	TypeAnalysis    QuestionType = "Analysis"
	TypeQuestion    QuestionType = "Question"
)

// typeCodes is exhaustive over all QuestionType values; an unmapped type is
// a bug, never silently defaulted.
var typeCodes = map[QuestionType]string{
	TypeDefinition:  "D",
	TypeProblem:     "P",
	TypeGenConcept:  "G",
	TypeCalculation: "C",
	TypeAnalysis:    "A",
	TypeQuestion:    "Q",
}

// Valid reports whether the type is one of the accepted categories.
func (t QuestionType) Valid() bool {
	_, ok := typeCodes[t]
	return ok
}

// Code returns the single-letter code used inside question IDs.
func (t QuestionType) Code() (string, error) {
	code, ok := typeCodes[t]
	if !ok {
		return "", fmt.Errorf("unknown question type %q", string(t))
	}
	return code, nil
}

// ValidTypeNames returns the accepted type names in canonical order, for
// validation messages.
func ValidTypeNames() []string {
	return []string{
		string(TypeQuestion),
		string(TypeProblem),
		string(TypeDefinition),
		string(TypeGenConcept),
		string(TypeCalculation),
		string(TypeAnalysis),
	}
}

// Question represents a row in the all_questions table.
type Question struct {
	QuestionID    string       `db:"question_id" json:"question_id"`
	Topic         string       `db:"topic" json:"topic"`
	Subtopic      string       `db:"subtopic" json:"subtopic"`
	Difficulty    Difficulty   `db:"difficulty" json:"difficulty"`
	Type          QuestionType `db:"type" json:"type"`
	Question      string       `db:"question" json:"question"`
	Answer        string       `db:"answer" json:"answer"`
	NotesForTutor *string      `db:"notes_for_tutor" json:"notes_for_tutor,omitempty"`
	UploadedOn    *string      `db:"uploaded_on" json:"uploaded_on,omitempty"`
	UploadedBy    *string      `db:"uploaded_by" json:"uploaded_by,omitempty"`
	UploadNotes   *string      `db:"upload_notes" json:"upload_notes,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
