// Package similarity scores textual similarity between transaction
// descriptions and explanations.
package similarity

import (
	"sort"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
)

// Scorer computes a normalized similarity score between two texts using a
// sequence-alignment ratio over sorted tokens. Stateless and safe for
// concurrent use.
type Scorer struct {
	metric strutil.StringMetric
}

// NewScorer creates a text similarity scorer.
func NewScorer() *Scorer {
	return &Scorer{metric: sequenceRatio{}}
}

// Score returns a similarity in [0,1]. The score is symmetric and
// reflexive: Score(a, b) == Score(b, a) and Score(a, a) == 1. Two empty
// strings score 1; one empty string scores 0.
func (s *Scorer) Score(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)

	if na == "" && nb == "" {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}

	ka := tokenKey(na)
	kb := tokenKey(nb)
	if ka == kb {
		return 1
	}
	// Canonical argument order keeps the metric exactly symmetric.
	if ka > kb {
		ka, kb = kb, ka
	}

	return clamp01(strutil.Similarity(ka, kb, s.metric))
}

// Normalize standardizes text for matching: lowercase, punctuation
// stripped, whitespace collapsed.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// tokenKey sorts the words of normalized text so that reordered phrasings
// still align.
func tokenKey(normalized string) string {
	fields := strings.Fields(normalized)
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
