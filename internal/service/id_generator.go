package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/noah-isme/qaloader-api/internal/models"
	appErrors "github.com/noah-isme/qaloader-api/pkg/errors"
)

const (
	maxTopicCodeLength    = 10
	maxSubtopicCodeLength = 8
	maxIDAttempts         = 10
)

// topicStopwords never contribute initials to a topic code.
var topicStopwords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "for": {}, "to": {},
	"in": {}, "on": {}, "at": {}, "by": {},
}

var (
	parentheticalRe = regexp.MustCompile(`\(([^)]+)\)`)
	nonAlnumRe      = regexp.MustCompile(`[^A-Za-z0-9]`)
	nonAlnumSpaceRe = regexp.MustCompile(`[^A-Za-z0-9\s]`)
)

type idLookup interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
	MaxSequenceForPrefix(ctx context.Context, prefix string) (int, error)
}

// IDGenerator derives semantic question IDs of the form
// TOPIC-SUBTOPIC-D-T-NNN and allocates unique sequence numbers against the
// production table.
type IDGenerator struct {
	store  idLookup
	logger *zap.Logger
}

// NewIDGenerator constructs an IDGenerator.
func NewIDGenerator(store idLookup, logger *zap.Logger) *IDGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IDGenerator{store: store, logger: logger}
}

// BaseID builds the ID prefix from the block headers. Difficulty and type
// must map to their single-letter codes; an unmapped value is an error, never
// a silent default.
func (g *IDGenerator) BaseID(topic, subtopic string, difficulty models.Difficulty, qtype models.QuestionType) (string, error) {
	difficultyCode, err := difficulty.Code()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrIDGeneration.Code, appErrors.ErrIDGeneration.Status, "cannot derive difficulty code")
	}
	typeCode, err := qtype.Code()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrIDGeneration.Code, appErrors.ErrIDGeneration.Status, "cannot derive type code")
	}
	return fmt.Sprintf("%s-%s-%s-%s", NormalizeTopic(topic), NormalizeSubtopic(subtopic), difficultyCode, typeCode), nil
}

// NextUnique allocates the next free ID for baseID. reserved holds IDs
// already handed out in the current batch; they count as taken even though
// their rows may not have reached the database yet. After maxIDAttempts
// collisions the last candidate is returned and the unique constraint on
// all_questions settles the race.
func (g *IDGenerator) NextUnique(ctx context.Context, baseID string, reserved map[string]struct{}) (string, error) {
	maxSeq, err := g.store.MaxSequenceForPrefix(ctx, baseID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrIDGeneration.Code, appErrors.ErrIDGeneration.Status, "failed to look up existing sequences")
	}

	seq := maxSeq + 1
	candidate := formatID(baseID, seq)
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		if _, taken := reserved[candidate]; !taken {
			exists, err := g.store.ExistsByID(ctx, candidate)
			if err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrIDGeneration.Code, appErrors.ErrIDGeneration.Status, "failed to check id uniqueness")
			}
			if !exists {
				reserve(reserved, candidate)
				return candidate, nil
			}
		}
		seq++
		candidate = formatID(baseID, seq)
	}

	g.logger.Warn("exhausted id attempts, deferring to unique constraint",
		zap.String("base_id", baseID), zap.String("candidate", candidate))
	reserve(reserved, candidate)
	return candidate, nil
}

// GenerateUnique composes BaseID and NextUnique.
func (g *IDGenerator) GenerateUnique(ctx context.Context, topic, subtopic string, difficulty models.Difficulty, qtype models.QuestionType, reserved map[string]struct{}) (string, error) {
	baseID, err := g.BaseID(topic, subtopic, difficulty, qtype)
	if err != nil {
		return "", err
	}
	return g.NextUnique(ctx, baseID, reserved)
}

// NormalizeTopic reduces a topic name to an ID code of at most 10
// characters. A parenthesized abbreviation wins when present; otherwise the
// code is built from initials of the significant words.
func NormalizeTopic(topic string) string {
	if m := parentheticalRe.FindStringSubmatch(topic); m != nil {
		abbrev := nonAlnumRe.ReplaceAllString(m[1], "")
		if abbrev != "" && len(abbrev) <= maxTopicCodeLength {
			return strings.ToUpper(abbrev)
		}
	}

	clean := parentheticalRe.ReplaceAllString(topic, "")
	clean = nonAlnumSpaceRe.ReplaceAllString(clean, "")
	words := strings.Fields(clean)

	significant := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if _, stop := topicStopwords[strings.ToLower(w)]; stop {
			continue
		}
		significant = append(significant, w)
	}
	if len(significant) == 0 {
		significant = words
	}
	if len(significant) == 0 {
		return ""
	}
	if len(significant) == 1 {
		return strings.ToUpper(truncate(significant[0], maxTopicCodeLength))
	}

	var initials strings.Builder
	for i, w := range significant {
		if i == 4 {
			break
		}
		initials.WriteString(strings.ToUpper(w[:1]))
	}
	abbrev := initials.String()
	if len(abbrev) < 3 {
		abbrev = strings.ToUpper(truncate(significant[0], 4))
	}
	return truncate(abbrev, maxTopicCodeLength)
}

// NormalizeSubtopic reduces a subtopic name to an ID code of at most 8
// characters. An embedded all-caps abbreviation wins; then all-word
// initials; then a short first word combined with the remaining initials;
// then the first word alone.
func NormalizeSubtopic(subtopic string) string {
	clean := nonAlnumSpaceRe.ReplaceAllString(subtopic, "")
	words := strings.Fields(clean)

	if len(words) == 0 {
		return "UNKNOWN"
	}
	if len(words) == 1 {
		return strings.ToUpper(truncate(words[0], maxSubtopicCodeLength))
	}

	for _, w := range words {
		if len(w) > 1 && isAllUpper(w) {
			return truncate(w, maxSubtopicCodeLength)
		}
	}

	var initials strings.Builder
	for _, w := range words {
		initials.WriteString(strings.ToUpper(w[:1]))
	}
	if initials.Len() <= maxSubtopicCodeLength {
		return initials.String()
	}

	if len(words[0]) <= 4 {
		var rest strings.Builder
		for _, w := range words[1:] {
			rest.WriteString(strings.ToUpper(w[:1]))
		}
		return truncate(strings.ToUpper(words[0])+rest.String(), maxSubtopicCodeLength)
	}

	return strings.ToUpper(truncate(words[0], maxSubtopicCodeLength))
}

func formatID(baseID string, seq int) string {
	return fmt.Sprintf("%s-%03d", baseID, seq)
}

func reserve(reserved map[string]struct{}, id string) {
	if reserved != nil {
		reserved[id] = struct{}{}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// isAllUpper reports whether every letter in s is uppercase and s contains
// at least one letter. Digits are ignored, matching abbreviations like
// "EBITDA" or "401K".
func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
