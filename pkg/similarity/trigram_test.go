package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "what is wacc?", Normalize("  What   is\tWACC? "))
	assert.Equal(t, "", Normalize("   "))
	assert.Equal(t, "a b", Normalize("a\n\nb"))
}

func TestTrigramsKnownSet(t *testing.T) {
	got := Trigrams("cat")

	want := []string{"  c", " ca", "cat", "at "}
	require.Len(t, got, len(want))
	for _, tri := range want {
		assert.Contains(t, got, tri)
	}
}

func TestTrigramsSplitsOnPunctuation(t *testing.T) {
	// pg_trgm treats non-alphanumerics as word separators, so "wacc?" and
	// "wacc" must produce the same set.
	assert.Equal(t, Trigrams("wacc"), Trigrams("wacc?"))
	assert.Equal(t, Trigrams("cost of capital"), Trigrams("cost, of. capital!"))
}

func TestTrigramsHandlesMultibyteRunes(t *testing.T) {
	got := Trigrams("café")
	assert.Contains(t, got, "afé")
	assert.Contains(t, got, "fé ")
}

func TestScoreIdenticalTexts(t *testing.T) {
	assert.Equal(t, 1.0, Score("What is WACC?", "What is WACC?"))
}

func TestScoreIgnoresCaseAndSpacing(t *testing.T) {
	assert.Equal(t, 1.0, Score("What is WACC?", "what   IS wacc"))
}

func TestScoreDisjointTexts(t *testing.T) {
	assert.Equal(t, 0.0, Score("alpha", "zzz"))
}

func TestScoreEmptyInput(t *testing.T) {
	assert.Equal(t, 0.0, Score("", "anything"))
	assert.Equal(t, 0.0, Score("anything", ""))
	assert.Equal(t, 0.0, Score("", ""))
}

func TestScorePartialOverlap(t *testing.T) {
	score := Score("What is the weighted average cost of capital?",
		"Explain the weighted average cost of capital.")
	assert.Greater(t, score, 0.5)
	assert.Less(t, score, 1.0)
}

func TestScoreIsSymmetric(t *testing.T) {
	a := "How do you calculate terminal value?"
	b := "How is terminal value calculated?"
	assert.Equal(t, Score(a, b), Score(b, a))
}

func TestScoreUnrelatedQuestionsStayLow(t *testing.T) {
	score := Score("What is WACC?", "Walk me through an LBO model.")
	assert.Less(t, score, 0.3)
}
