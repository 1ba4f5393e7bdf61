// Package propagate copies explanations between near-duplicate
// transactions within a batch.
package propagate

import (
	"log/slog"

	"github.com/ledgerhand/ledgerhand/internal/model"
	"github.com/ledgerhand/ledgerhand/internal/similarity"
)

// DefaultThreshold is the minimum description similarity for propagation.
const DefaultThreshold = 0.70

// Propagator fills missing explanations from similar transactions in the
// same batch. Pairwise, batch-scoped; no cross-batch memory.
type Propagator struct {
	scorer    *similarity.Scorer
	threshold float64
}

// NewPropagator creates a propagator. A threshold <= 0 selects
// DefaultThreshold.
func NewPropagator(scorer *similarity.Scorer, threshold float64) *Propagator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Propagator{scorer: scorer, threshold: threshold}
}

// Propagate returns a copy of the batch with explanations filled in where
// an explained transaction's description scores at or above the threshold.
// Sources are the transactions as given: a freshly propagated explanation
// never becomes a source within the same call, so the result does not
// depend on iteration order. When several sources match one target, the
// earliest source in input order wins. Existing explanations are never
// overwritten.
//
// Comparisons are O(n²) over the batch, which stays acceptable while a
// batch is one uploaded statement.
func (p *Propagator) Propagate(txns []model.Transaction) ([]model.Transaction, []model.SimilarityResult) {
	out := make([]model.Transaction, len(txns))
	copy(out, txns)

	var results []model.SimilarityResult

	for j := range out {
		if txns[j].HasExplanation() {
			continue
		}

		for i := range txns {
			if i == j || !txns[i].HasExplanation() {
				continue
			}

			score := p.scorer.Score(txns[i].Description, txns[j].Description)
			if score < p.threshold {
				continue
			}

			out[j].Explanation = txns[i].Explanation
			results = append(results, model.SimilarityResult{
				SourceID:       txns[i].ID,
				TargetID:       txns[j].ID,
				TextSimilarity: score,
			})

			slog.Debug("propagated explanation",
				"source_id", txns[i].ID,
				"target_id", txns[j].ID,
				"similarity", score)
			break
		}
	}

	return out, results
}
