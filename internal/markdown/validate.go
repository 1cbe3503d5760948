package markdown

import (
	"fmt"
	"strings"

	"github.com/noah-isme/qaloader-api/internal/models"
)

// Content limits enforced against the all_questions schema.
const (
	MaxTopicLength    = 100
	MaxSubtopicLength = 100
	MaxQuestionLength = 5000
	MaxAnswerLength   = 10000

	// Soft limits: exceeding them is reported as a warning, not an error.
	LongQuestionLength = 500
	LongAnswerLength   = 1000
)

// ValidationResult is the report returned by Validate. ParsedCount is the
// number of blocks that passed every content check.
type ValidationResult struct {
	IsValid     bool     `json:"is_valid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	ParsedCount int      `json:"parsed_count"`
}

// CheckStructure validates the document-level shape: topic presence, heading
// nesting, marker coverage and block yield. All findings are accumulated so
// the author can fix the whole file in one pass.
func CheckStructure(content string, blocks []Block) []string {
	var errs []string
	lines := splitLines(content)

	topicLines := headerLines(lines, topicMarker)
	if len(topicLines) == 0 {
		errs = append(errs, "Missing topic header. Expected format: '# Topic: Your Topic Name'")
	}

	errs = append(errs, checkHeadingNesting(lines)...)

	if len(headerLines(lines, subtopicMarker)) == 0 {
		errs = append(errs, "No subtopic sections found. Expected format: '## Subtopic: Your Subtopic Name'")
	}
	if len(headerLines(lines, difficultyMarker)) == 0 {
		errs = append(errs, "No difficulty headers found. Expected format: '### Difficulty: Basic' or '### Difficulty: Advanced'")
	}
	if len(headerLines(lines, typeMarker)) == 0 {
		errs = append(errs, "No type headers found. Expected format: '#### Type: Definition'")
	}

	started := make(map[int]bool, len(blocks))
	for _, block := range blocks {
		started[block.StartLine] = true
	}
	for _, line := range topicLines {
		if !started[line] {
			errs = append(errs, fmt.Sprintf("Line %d: topic header does not form a complete question block; expected '## Subtopic:', '### Difficulty:' and '#### Type:' on the following lines", line))
		}
	}

	if len(blocks) == 0 {
		errs = append(errs, "No question blocks found. Check formatting of **Question:** and **Answer:** sections. **Notes for Tutor:** is optional.")
	}

	return errs
}

// BlockIssues holds the content findings for a single block. Index is the
// 1-based document position.
type BlockIssues struct {
	Index    int
	Errors   []string
	Warnings []string
}

// Valid reports whether the block passed every hard check.
func (b BlockIssues) Valid() bool {
	return len(b.Errors) == 0
}

// EvaluateContent runs the per-block content checks in document order.
// Blocks are independent: a failing block never stops evaluation of the
// rest.
func EvaluateContent(blocks []Block) []BlockIssues {
	issues := make([]BlockIssues, 0, len(blocks))
	for i, block := range blocks {
		issue := BlockIssues{Index: i + 1}
		issue.Errors, issue.Warnings = checkBlock(i+1, block)
		issues = append(issues, issue)
	}
	return issues
}

// CheckContent flattens EvaluateContent into aggregate error and warning
// lists plus the count of blocks that passed every hard check.
func CheckContent(blocks []Block) ([]string, []string, int) {
	var errs, warnings []string
	valid := 0
	for _, issue := range EvaluateContent(blocks) {
		errs = append(errs, issue.Errors...)
		warnings = append(warnings, issue.Warnings...)
		if issue.Valid() {
			valid++
		}
	}
	return errs, warnings, valid
}

func checkBlock(n int, block Block) (errs []string, warnings []string) {
	if !block.HasQuestion {
		errs = append(errs, fmt.Sprintf("Question block %d: Missing **Question:** section", n))
	}
	if !block.HasAnswer {
		errs = append(errs, fmt.Sprintf("Question block %d: Missing **Answer:** section", n))
	}
	if len(errs) > 0 {
		// Without both markers the remaining value checks would only
		// produce noise for the same root cause.
		return errs, nil
	}

	if !models.QuestionType(block.Type).Valid() {
		errs = append(errs, fmt.Sprintf("Question %d: Invalid type '%s'. Must be: %s", n, block.Type, strings.Join(models.ValidTypeNames(), ", ")))
	}
	if !models.Difficulty(block.Difficulty).Valid() {
		errs = append(errs, fmt.Sprintf("Question %d: Invalid difficulty '%s'. Must be: %s, %s", n, block.Difficulty, models.DifficultyBasic, models.DifficultyAdvanced))
	}

	if len(block.Topic) > MaxTopicLength {
		errs = append(errs, fmt.Sprintf("Question %d: Topic exceeds %d characters", n, MaxTopicLength))
	}
	if len(block.Subtopic) > MaxSubtopicLength {
		errs = append(errs, fmt.Sprintf("Question %d: Subtopic exceeds %d characters", n, MaxSubtopicLength))
	}

	if strings.TrimSpace(block.Question) == "" {
		errs = append(errs, fmt.Sprintf("Question %d: Question text cannot be empty", n))
	}
	if strings.TrimSpace(block.Answer) == "" {
		errs = append(errs, fmt.Sprintf("Question %d: Answer content is empty", n))
	}

	if len(block.Question) > MaxQuestionLength {
		errs = append(errs, fmt.Sprintf("Question %d: Question text exceeds %d characters", n, MaxQuestionLength))
	}
	if len(block.Answer) > MaxAnswerLength {
		errs = append(errs, fmt.Sprintf("Question %d: Answer text exceeds %d characters", n, MaxAnswerLength))
	}

	if len(block.Question) > LongQuestionLength {
		warnings = append(warnings, fmt.Sprintf("Question %d: Question text is very long (%d characters)", n, len(block.Question)))
	}
	if len(block.Answer) > LongAnswerLength {
		warnings = append(warnings, fmt.Sprintf("Question %d: Answer text is very long (%d characters)", n, len(block.Answer)))
	}

	return errs, warnings
}

// Validate runs the full pipeline: scan, structural checks, content checks.
// The returned blocks are the scanner's output in document order; callers
// needing per-block validity should pair them with EvaluateContent.
func Validate(content string) ([]Block, ValidationResult) {
	blocks := Scan(content)

	errs := CheckStructure(content, blocks)
	contentErrs, warnings, valid := CheckContent(blocks)
	errs = append(errs, contentErrs...)

	result := ValidationResult{
		IsValid:     len(errs) == 0 && valid > 0,
		Errors:      errs,
		Warnings:    warnings,
		ParsedCount: valid,
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	return blocks, result
}

// headerLines returns the 1-indexed numbers of lines matching the marker.
func headerLines(lines []string, marker string) []int {
	var out []int
	for i, line := range lines {
		if _, ok := matchHeader(line, marker); ok {
			out = append(out, i+1)
		}
	}
	return out
}

// checkHeadingNesting enforces strictly incremental heading levels: a
// heading may be at most one level deeper than the heading before it.
func checkHeadingNesting(lines []string) []string {
	var errs []string
	previous := 0
	for i, line := range lines {
		level := headingLevel(line)
		if level == 0 {
			continue
		}
		if level > previous+1 {
			errs = append(errs, fmt.Sprintf("Line %d: heading level %d follows level %d; headings must nest one level at a time", i+1, level, previous))
		}
		previous = level
	}
	return errs
}

// headingLevel returns the markdown heading level of a line, or 0 when the
// line is not a heading. Headings must start at column zero.
func headingLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 6 || n >= len(line) || line[n] != ' ' {
		return 0
	}
	return n
}
