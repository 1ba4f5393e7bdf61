// Package session implements the interactive explanation-propagation
// workflow: debounced similarity search as the user edits, followed by a
// confirm-or-decline replication step.
package session

import (
	"context"

	"github.com/ledgerhand/ledgerhand/internal/model"
)

// Candidate is one similar transaction returned by a search.
type Candidate struct {
	ID                 string
	Description        string
	Explanation        string
	TextSimilarity     float64
	SemanticSimilarity float64
}

// Searcher finds transactions similar to the text being edited.
type Searcher interface {
	Search(ctx context.Context, description, explanation string) ([]Candidate, error)
}

// Replicator copies the source transaction's explanation onto one target
// and returns the explanation as persisted.
type Replicator interface {
	Replicate(ctx context.Context, targetID, sourceID string) (string, error)
}

// ReplicationResult records the outcome for a single candidate, plus the
// explanation as persisted when the copy succeeded.
type ReplicationResult struct {
	model.ReplicationOutcome
	Explanation string
}

// Succeeded reports whether the candidate received the explanation.
func (r ReplicationResult) Succeeded() bool {
	return r.Err == nil
}
