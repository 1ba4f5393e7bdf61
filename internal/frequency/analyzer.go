// Package frequency ranks previously used explanations by how often they
// appear, surfacing defaults for manual review.
package frequency

import (
	"fmt"
	"sort"

	"github.com/ledgerhand/ledgerhand/internal/model"
)

// ExplanationCount is one ranked entry: an explanation and how many
// transactions carry it.
type ExplanationCount struct {
	Explanation string
	Count       int
}

// Analyzer aggregates explanations across a set of transactions. It only
// ranks; it never assigns.
type Analyzer struct{}

// NewAnalyzer creates a frequency analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze counts transactions carrying a non-empty explanation and returns
// them ordered by descending count. Ties are broken by first-seen order.
func (a *Analyzer) Analyze(txns []model.Transaction) []ExplanationCount {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)

	for i, txn := range txns {
		if !txn.HasExplanation() {
			continue
		}
		if _, seen := counts[txn.Explanation]; !seen {
			firstSeen[txn.Explanation] = i
		}
		counts[txn.Explanation]++
	}

	ranked := make([]ExplanationCount, 0, len(counts))
	for explanation, count := range counts {
		ranked = append(ranked, ExplanationCount{Explanation: explanation, Count: count})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return firstSeen[ranked[i].Explanation] < firstSeen[ranked[j].Explanation]
	})

	return ranked
}

// Hint returns the top-ranked explanation as a non-binding candidate, with
// the account most recently associated with that explanation, if any.
// Confidence is the share of explained transactions using it.
func (a *Analyzer) Hint(txns []model.Transaction) (model.ClassificationCandidate, bool) {
	ranked := a.Analyze(txns)
	if len(ranked) == 0 {
		return model.ClassificationCandidate{}, false
	}

	total := 0
	for _, entry := range ranked {
		total += entry.Count
	}

	top := ranked[0]

	accountID := ""
	for _, txn := range txns {
		if txn.Explanation == top.Explanation && txn.IsClassified() {
			accountID = txn.AccountID
			break
		}
	}

	return model.ClassificationCandidate{
		AccountID:   accountID,
		Explanation: top.Explanation,
		Confidence:  float64(top.Count) / float64(total),
		Rationale:   fmt.Sprintf("explanation used by %d of %d explained transactions", top.Count, total),
		Source:      model.SourceFrequency,
	}, true
}
