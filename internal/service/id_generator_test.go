package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qaloader-api/internal/models"
)

type idStoreStub struct {
	maxSeq    map[string]int
	exists    map[string]bool
	maxErr    error
	existsErr error
}

func (s *idStoreStub) ExistsByID(_ context.Context, id string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.exists[id], nil
}

func (s *idStoreStub) MaxSequenceForPrefix(_ context.Context, prefix string) (int, error) {
	if s.maxErr != nil {
		return 0, s.maxErr
	}
	return s.maxSeq[prefix], nil
}

func TestNormalizeTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"Discounted Cash Flow (DCF)", "DCF"},
		{"Leveraged Buyouts (LBOs)", "LBOS"},
		{"Mergers and Acquisitions", "MERG"},
		{"Enterprise and Equity Value", "EEV"},
		{"The Art of War", "ART"},
		{"Accounting", "ACCOUNTING"},
		{"Topic (ABBREVIATIONX)", "TOPIC"},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTopic(tt.topic))
		})
	}
}

func TestNormalizeSubtopic(t *testing.T) {
	tests := []struct {
		subtopic string
		want     string
	}{
		{"WACC", "WACC"},
		{"capm", "CAPM"},
		{"WACC Calculation", "WACC"},
		{"Terminal Value", "TV"},
		{"Cost of Equity Capital", "COEC"},
		{"Revenue Recognition Principles Overview Standards Items Extra Terms More", "REVENUE"},
		{"Cash Flow Statement Analysis Basics Overview Extra Parts More", "CASHFSAB"},
		{"", "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.subtopic, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSubtopic(tt.subtopic))
		})
	}
}

func TestBaseID(t *testing.T) {
	gen := NewIDGenerator(&idStoreStub{}, nil)

	id, err := gen.BaseID("Discounted Cash Flow (DCF)", "WACC Calculation", models.DifficultyBasic, models.TypeGenConcept)
	require.NoError(t, err)
	assert.Equal(t, "DCF-WACC-B-G", id)

	id, err = gen.BaseID("Accounting", "Revenue Recognition", models.DifficultyAdvanced, models.TypeQuestion)
	require.NoError(t, err)
	assert.Equal(t, "ACCOUNTING-RR-A-Q", id)
}

func TestBaseIDRejectsUnknownType(t *testing.T) {
	gen := NewIDGenerator(&idStoreStub{}, nil)

	_, err := gen.BaseID("DCF", "WACC", models.DifficultyBasic, models.QuestionType("Essay"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type code")

	_, err = gen.BaseID("DCF", "WACC", models.Difficulty("Medium"), models.TypeProblem)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "difficulty code")
}

func TestNextUniqueFirstSequence(t *testing.T) {
	gen := NewIDGenerator(&idStoreStub{}, nil)

	id, err := gen.NextUnique(context.Background(), "DCF-WACC-B-G", nil)
	require.NoError(t, err)
	assert.Equal(t, "DCF-WACC-B-G-001", id)
}

func TestNextUniqueContinuesFromMax(t *testing.T) {
	store := &idStoreStub{maxSeq: map[string]int{"DCF-WACC-B-G": 7}}
	gen := NewIDGenerator(store, nil)

	id, err := gen.NextUnique(context.Background(), "DCF-WACC-B-G", nil)
	require.NoError(t, err)
	assert.Equal(t, "DCF-WACC-B-G-008", id)
}

func TestNextUniqueSkipsCollisions(t *testing.T) {
	store := &idStoreStub{
		maxSeq: map[string]int{"DCF-WACC-B-G": 2},
		exists: map[string]bool{"DCF-WACC-B-G-003": true, "DCF-WACC-B-G-004": true},
	}
	gen := NewIDGenerator(store, nil)

	id, err := gen.NextUnique(context.Background(), "DCF-WACC-B-G", nil)
	require.NoError(t, err)
	assert.Equal(t, "DCF-WACC-B-G-005", id)
}

func TestNextUniqueHonoursReservations(t *testing.T) {
	gen := NewIDGenerator(&idStoreStub{}, nil)
	reserved := map[string]struct{}{"DCF-WACC-B-G-001": {}}

	id, err := gen.NextUnique(context.Background(), "DCF-WACC-B-G", reserved)
	require.NoError(t, err)
	assert.Equal(t, "DCF-WACC-B-G-002", id)
	assert.Contains(t, reserved, "DCF-WACC-B-G-002")
}

func TestNextUniqueBatchNeverRepeats(t *testing.T) {
	gen := NewIDGenerator(&idStoreStub{}, nil)
	reserved := make(map[string]struct{})

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		id, err := gen.NextUnique(context.Background(), "DCF-WACC-B-G", reserved)
		require.NoError(t, err)
		assert.False(t, seen[id], "id %s handed out twice", id)
		seen[id] = true
	}
}

func TestNextUniqueGivesUpAfterMaxAttempts(t *testing.T) {
	exists := make(map[string]bool)
	for seq := 1; seq <= 20; seq++ {
		exists[formatID("DCF-WACC-B-G", seq)] = true
	}
	gen := NewIDGenerator(&idStoreStub{exists: exists}, nil)

	id, err := gen.NextUnique(context.Background(), "DCF-WACC-B-G", nil)
	require.NoError(t, err)
	assert.Equal(t, "DCF-WACC-B-G-011", id)
}

func TestNextUniquePropagatesLookupErrors(t *testing.T) {
	gen := NewIDGenerator(&idStoreStub{maxErr: errors.New("db down")}, nil)
	_, err := gen.NextUnique(context.Background(), "DCF-WACC-B-G", nil)
	assert.Error(t, err)

	gen = NewIDGenerator(&idStoreStub{existsErr: errors.New("db down")}, nil)
	_, err = gen.NextUnique(context.Background(), "DCF-WACC-B-G", nil)
	assert.Error(t, err)
}

func TestGenerateUnique(t *testing.T) {
	store := &idStoreStub{maxSeq: map[string]int{"DCF-WACC-B-G": 1}}
	gen := NewIDGenerator(store, nil)

	id, err := gen.GenerateUnique(context.Background(), "Discounted Cash Flow (DCF)", "WACC Calculation",
		models.DifficultyBasic, models.TypeGenConcept, nil)
	require.NoError(t, err)
	assert.Equal(t, "DCF-WACC-B-G-002", id)
}
