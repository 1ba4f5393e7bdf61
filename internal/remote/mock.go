package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/ledgerhand/ledgerhand/internal/model"
)

// MockClassifier is a test implementation of the orchestrator's classifier
// dependency. It records every call and returns configured responses.
type MockClassifier struct {
	responses map[string]model.ClassificationCandidate
	failures  map[string]error
	calls     []model.Transaction
	mu        sync.Mutex
}

// NewMockClassifier creates an empty mock classifier.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		responses: make(map[string]model.ClassificationCandidate),
		failures:  make(map[string]error),
	}
}

// SetResponse configures the candidate returned for a transaction ID.
func (m *MockClassifier) SetResponse(transactionID string, candidate model.ClassificationCandidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	candidate.Source = model.SourceRemote
	m.responses[transactionID] = candidate
}

// SetError configures a failure for a transaction ID.
func (m *MockClassifier) SetError(transactionID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[transactionID] = err
}

// Classify returns the configured response for the transaction, or an
// unavailable error when nothing was configured.
func (m *MockClassifier) Classify(ctx context.Context, txn model.Transaction) (model.ClassificationCandidate, error) {
	if err := ctx.Err(); err != nil {
		return model.ClassificationCandidate{}, Unavailable(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, txn)

	if err, ok := m.failures[txn.ID]; ok {
		return model.ClassificationCandidate{}, err
	}
	if candidate, ok := m.responses[txn.ID]; ok {
		return candidate, nil
	}

	return model.ClassificationCandidate{}, Unavailable(fmt.Errorf("no response configured for %s", txn.ID))
}

// Calls returns the transactions classified so far.
func (m *MockClassifier) Calls() []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]model.Transaction, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns how many classification calls were made.
func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
