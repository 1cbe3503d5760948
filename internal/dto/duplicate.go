package dto

// DuplicateCandidate is a single question submitted for a similarity check
// before it exists in the database.
type DuplicateCandidate struct {
	Topic    string `json:"topic"`
	Question string `json:"question" validate:"required"`
}

// CheckDuplicatesRequest names stored questions to compare against the rest
// of the corpus. A zero threshold falls back to the configured default.
type CheckDuplicatesRequest struct {
	QuestionIDs []string `json:"question_ids" validate:"required,min=1,dive,required"`
	Threshold   float64  `json:"threshold" validate:"omitempty,gte=0.1,lte=1"`
}

// QuestionRef identifies a stored question inside duplicate payloads.
type QuestionRef struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Topic string `json:"topic"`
}

// DuplicateEntry is one stored question that matched, with its score.
type DuplicateEntry struct {
	ID              string  `json:"id"`
	Text            string  `json:"text"`
	Topic           string  `json:"topic"`
	SimilarityScore float64 `json:"similarity_score"`
}

// DuplicateGroup clusters matches around the first question seen in the
// highest-scoring pair.
type DuplicateGroup struct {
	PrimaryID       string           `json:"primary_id"`
	PrimaryQuestion QuestionRef      `json:"primary_question"`
	Duplicates      []DuplicateEntry `json:"duplicates"`
}

// DuplicateScanResult is the outcome of scanning the whole corpus.
type DuplicateScanResult struct {
	Count     int              `json:"count"`
	Threshold float64          `json:"threshold"`
	Groups    []DuplicateGroup `json:"groups"`
}

// CandidateMatches lists the stored questions similar to one candidate.
// Index refers back to the request order.
type CandidateMatches struct {
	Index    int              `json:"index"`
	Question string           `json:"question"`
	Topic    string           `json:"topic"`
	Matches  []DuplicateEntry `json:"matches"`
}

// DuplicateReport is returned for candidate checks; Flagged counts the
// candidates with at least one match at or above the threshold.
type DuplicateReport struct {
	Threshold  float64            `json:"threshold"`
	Candidates int                `json:"candidates"`
	Flagged    int                `json:"flagged"`
	Results    []CandidateMatches `json:"results"`
}
