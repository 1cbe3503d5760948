package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/qaloader-api/internal/models"
)

// questionColumns lists every column of all_questions in insert order.
const questionColumns = "question_id, topic, subtopic, difficulty, type, question, answer, notes_for_tutor, uploaded_on, uploaded_by, upload_notes, created_at, updated_at"

// QuestionRepository manages persistence for production questions.
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository constructs a QuestionRepository.
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Insert writes a single question row. The raw driver error is preserved in
// the wrap chain so callers can classify constraint violations.
func (r *QuestionRepository) Insert(ctx context.Context, question *models.Question) error {
	now := time.Now().UTC()
	if question.CreatedAt.IsZero() {
		question.CreatedAt = now
	}
	question.UpdatedAt = now

	const query = `INSERT INTO all_questions (` + questionColumns + `)
		VALUES (:question_id, :topic, :subtopic, :difficulty, :type, :question, :answer, :notes_for_tutor, :uploaded_on, :uploaded_by, :upload_notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, question); err != nil {
		return fmt.Errorf("insert question %s: %w", question.QuestionID, err)
	}
	return nil
}

// FindByID fetches a question by its semantic ID.
func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	const query = `SELECT ` + questionColumns + ` FROM all_questions WHERE question_id = $1`
	var question models.Question
	if err := r.db.GetContext(ctx, &question, query, id); err != nil {
		return nil, err
	}
	return &question, nil
}

// FindByIDs fetches the questions matching the given semantic IDs.
func (r *QuestionRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Question, error) {
	if len(ids) == 0 {
		return []models.Question{}, nil
	}
	const query = `SELECT ` + questionColumns + ` FROM all_questions WHERE question_id = ANY($1) ORDER BY question_id`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find questions by ids: %w", err)
	}
	return questions, nil
}

// ExistsByID checks whether a semantic ID is already taken.
func (r *QuestionRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 FROM all_questions WHERE question_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check question id: %w", err)
	}
	return true, nil
}

// MaxSequenceForPrefix returns the highest numeric suffix among IDs sharing
// the given base prefix, or 0 when none exist.
func (r *QuestionRepository) MaxSequenceForPrefix(ctx context.Context, prefix string) (int, error) {
	const query = `SELECT COALESCE(MAX(CAST(SUBSTRING(question_id FROM '([0-9]+)$') AS INTEGER)), 0)
		FROM all_questions WHERE question_id LIKE $1 || '-%'`
	var seq int
	if err := r.db.GetContext(ctx, &seq, query, prefix); err != nil {
		return 0, fmt.Errorf("max sequence for %s: %w", prefix, err)
	}
	return seq, nil
}

// Corpus returns the id, topic and question text of every stored question
// for in-app similarity scoring.
func (r *QuestionRepository) Corpus(ctx context.Context) ([]models.CorpusEntry, error) {
	const query = `SELECT question_id, topic, question FROM all_questions ORDER BY question_id`
	var entries []models.CorpusEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("load question corpus: %w", err)
	}
	return entries, nil
}

// FindSimilar scores every candidate text against the stored corpus in one
// round trip using pg_trgm. texts and normalized run in parallel; normalized
// holds the lowercased whitespace-collapsed form used for the exact tier,
// which always scores 1.0 regardless of trigram overlap.
func (r *QuestionRepository) FindSimilar(ctx context.Context, texts, normalized []string, threshold float64) ([]models.SimilarityMatch, error) {
	if len(texts) == 0 {
		return []models.SimilarityMatch{}, nil
	}
	if len(texts) != len(normalized) {
		return nil, fmt.Errorf("find similar: %d texts but %d normalized forms", len(texts), len(normalized))
	}
	const query = `SELECT c.ord - 1 AS idx, q.question_id, q.topic, q.question,
			GREATEST(similarity(q.question, c.text),
				CASE WHEN regexp_replace(LOWER(q.question), '\s+', ' ', 'g') = c.norm THEN 1.0 ELSE 0 END) AS score
		FROM unnest($1::text[], $2::text[]) WITH ORDINALITY AS c(text, norm, ord)
		JOIN all_questions q
			ON similarity(q.question, c.text) >= $3
			OR regexp_replace(LOWER(q.question), '\s+', ' ', 'g') = c.norm
		ORDER BY idx, score DESC`
	var matches []models.SimilarityMatch
	if err := r.db.SelectContext(ctx, &matches, query, pq.Array(texts), pq.Array(normalized), threshold); err != nil {
		return nil, fmt.Errorf("find similar questions: %w", err)
	}
	return matches, nil
}

const similarPairColumns = `a.question_id AS left_id, a.question AS left_text, a.topic AS left_topic,
			b.question_id AS right_id, b.question AS right_text, b.topic AS right_topic,
			GREATEST(similarity(a.question, b.question),
				CASE WHEN regexp_replace(LOWER(a.question), '\s+', ' ', 'g') = regexp_replace(LOWER(b.question), '\s+', ' ', 'g') THEN 1.0 ELSE 0 END) AS score`

// SimilarPairs scans the whole corpus for stored questions scoring at or
// above threshold against each other. Each pair appears once with
// LeftID < RightID, highest scores first.
func (r *QuestionRepository) SimilarPairs(ctx context.Context, threshold float64) ([]models.SimilarPair, error) {
	const query = `SELECT ` + similarPairColumns + `
		FROM all_questions a
		JOIN all_questions b ON a.question_id < b.question_id
		WHERE similarity(a.question, b.question) >= $1
			OR regexp_replace(LOWER(a.question), '\s+', ' ', 'g') = regexp_replace(LOWER(b.question), '\s+', ' ', 'g')
		ORDER BY score DESC, left_id`
	var pairs []models.SimilarPair
	if err := r.db.SelectContext(ctx, &pairs, query, threshold); err != nil {
		return nil, fmt.Errorf("scan similar pairs: %w", err)
	}
	return pairs, nil
}

// SimilarPairsForIDs scores the given stored questions against the rest of
// the corpus. Unlike SimilarPairs the left side is always one of ids, so a
// pair of two targeted questions appears in both orientations.
func (r *QuestionRepository) SimilarPairsForIDs(ctx context.Context, ids []string, threshold float64) ([]models.SimilarPair, error) {
	if len(ids) == 0 {
		return []models.SimilarPair{}, nil
	}
	const query = `SELECT ` + similarPairColumns + `
		FROM all_questions a
		JOIN all_questions b ON a.question_id <> b.question_id
		WHERE a.question_id = ANY($1)
			AND (similarity(a.question, b.question) >= $2
				OR regexp_replace(LOWER(a.question), '\s+', ' ', 'g') = regexp_replace(LOWER(b.question), '\s+', ' ', 'g'))
		ORDER BY score DESC, left_id`
	var pairs []models.SimilarPair
	if err := r.db.SelectContext(ctx, &pairs, query, pq.Array(ids), threshold); err != nil {
		return nil, fmt.Errorf("scan similar pairs for ids: %w", err)
	}
	return pairs, nil
}

// CountAll returns the number of stored questions.
func (r *QuestionRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM all_questions`); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return total, nil
}
