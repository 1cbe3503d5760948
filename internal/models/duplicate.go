package models

// CorpusEntry is the projection of a stored question used for in-app
// similarity scoring.
type CorpusEntry struct {
	QuestionID string `db:"question_id" json:"question_id"`
	Topic      string `db:"topic" json:"topic"`
	Question   string `db:"question" json:"question"`
}

// SimilarityMatch is one stored question scored against an uploaded
// candidate. CandidateIndex is the zero-based position of the candidate in
// the batch that produced the match.
type SimilarityMatch struct {
	CandidateIndex int     `db:"idx" json:"-"`
	QuestionID     string  `db:"question_id" json:"question_id"`
	Topic          string  `db:"topic" json:"topic"`
	Question       string  `db:"question" json:"question_text"`
	Score          float64 `db:"score" json:"similarity_score"`
}

// SimilarPair is one scored pair of stored questions from a duplicate scan.
type SimilarPair struct {
	LeftID     string  `db:"left_id" json:"left_id"`
	LeftText   string  `db:"left_text" json:"left_text"`
	LeftTopic  string  `db:"left_topic" json:"left_topic"`
	RightID    string  `db:"right_id" json:"right_id"`
	RightText  string  `db:"right_text" json:"right_text"`
	RightTopic string  `db:"right_topic" json:"right_topic"`
	Score      float64 `db:"score" json:"similarity_score"`
}
