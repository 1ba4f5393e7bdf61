package engine

import (
	"context"

	"github.com/ledgerhand/ledgerhand/internal/model"
)

// Classifier defines the contract for the remote classification stage.
type Classifier interface {
	Classify(ctx context.Context, txn model.Transaction) (model.ClassificationCandidate, error)
}
