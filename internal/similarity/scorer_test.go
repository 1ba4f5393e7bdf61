package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_Symmetry(t *testing.T) {
	scorer := NewScorer()

	pairs := [][2]string{
		{"Payment for office supplies", "Office supplies purchase"},
		{"Electricity bill", "Office supplies purchase"},
		{"ACME Corp invoice 1234", "acme corp invoice 5678"},
		{"", "Rent payment"},
		{"Coffee", "Coffee"},
	}

	for _, pair := range pairs {
		assert.InDelta(t, scorer.Score(pair[0], pair[1]), scorer.Score(pair[1], pair[0]), 1e-12,
			"score must be symmetric for %q / %q", pair[0], pair[1])
	}
}

func TestScorer_Reflexivity(t *testing.T) {
	scorer := NewScorer()

	for _, text := range []string{
		"Payment for office supplies",
		"Electricity Bill Payment",
		"  Mixed   CASE, punctuation!  ",
	} {
		assert.Equal(t, 1.0, scorer.Score(text, text), "score(a,a) must be 1 for %q", text)
	}
}

func TestScorer_EmptyStrings(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 1.0, scorer.Score("", ""))
	assert.Equal(t, 0.0, scorer.Score("", "Rent payment"))
	assert.Equal(t, 0.0, scorer.Score("Rent payment", ""))
	// Punctuation-only text normalizes to empty.
	assert.Equal(t, 1.0, scorer.Score("...", "!!!"))
}

func TestScorer_NearDuplicates(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a        string
		b        string
		minScore float64
		maxScore float64
	}{
		{
			name:     "reordered phrasing scores above propagation threshold",
			a:        "Payment for office supplies",
			b:        "Office supplies purchase",
			minScore: 0.7,
			maxScore: 1.0,
		},
		{
			name:     "unrelated descriptions score low",
			a:        "Electricity bill",
			b:        "Payment for office supplies",
			minScore: 0.0,
			maxScore: 0.5,
		},
		{
			name:     "case and punctuation are ignored",
			a:        "ACME CORP - Monthly Invoice",
			b:        "acme corp monthly invoice",
			minScore: 1.0,
			maxScore: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.minScore)
			assert.LessOrEqual(t, got, tt.maxScore)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Payment   for OFFICE supplies! ", "payment for office supplies"},
		{"ACME-CORP #1234", "acmecorp 1234"},
		{"", ""},
		{"...", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}
