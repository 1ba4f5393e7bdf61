package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/ledgerhand/ledgerhand/internal/common"
	"github.com/ledgerhand/ledgerhand/internal/propagate"
	"github.com/ledgerhand/ledgerhand/internal/service"
	"github.com/ledgerhand/ledgerhand/internal/session"
	"github.com/ledgerhand/ledgerhand/internal/similarity"
)

// DefaultSearchLimit caps how many candidates a search returns.
const DefaultSearchLimit = 5

// SimilaritySearcher implements session.Searcher against local storage:
// it scores the edited description against every unexplained transaction.
type SimilaritySearcher struct {
	storage   *SQLiteStorage
	scorer    *similarity.Scorer
	threshold float64
	limit     int
}

// NewSimilaritySearcher creates a searcher over the given storage.
func NewSimilaritySearcher(storage *SQLiteStorage) *SimilaritySearcher {
	return &SimilaritySearcher{
		storage:   storage,
		scorer:    similarity.NewScorer(),
		threshold: propagate.DefaultThreshold,
		limit:     DefaultSearchLimit,
	}
}

// Search returns unexplained transactions whose descriptions score above
// the propagation threshold, best matches first.
func (s *SimilaritySearcher) Search(ctx context.Context, description, _ string) ([]session.Candidate, error) {
	transactions, err := s.storage.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	var candidates []session.Candidate
	for _, txn := range transactions {
		if txn.HasExplanation() {
			continue
		}
		score := s.scorer.Score(description, txn.Description)
		if score < s.threshold {
			continue
		}
		candidates = append(candidates, session.Candidate{
			ID:             txn.ID,
			Description:    txn.Description,
			Explanation:    txn.Explanation,
			TextSimilarity: score,
			// No separate semantic model locally; mirror the text score.
			SemanticSimilarity: score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].TextSimilarity > candidates[j].TextSimilarity
	})
	if len(candidates) > s.limit {
		candidates = candidates[:s.limit]
	}
	return candidates, nil
}

// ExplanationReplicator implements session.Replicator against local
// storage. The source explanation is re-read inside the same database
// transaction that writes the target, so the copied text is exactly what
// the source holds at replication time.
type ExplanationReplicator struct {
	storage *SQLiteStorage
}

// NewExplanationReplicator creates a replicator over the given storage.
func NewExplanationReplicator(storage *SQLiteStorage) *ExplanationReplicator {
	return &ExplanationReplicator{storage: storage}
}

// Replicate copies the source transaction's explanation onto the target
// and returns the explanation as written.
func (r *ExplanationReplicator) Replicate(ctx context.Context, targetID, sourceID string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(targetID, "targetID"); err != nil {
		return "", err
	}
	if err := validateString(sourceID, "sourceID"); err != nil {
		return "", err
	}

	tx, err := r.storage.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var explanation string
	err = tx.QueryRowContext(ctx,
		"SELECT explanation FROM transactions WHERE id = ?", sourceID).Scan(&explanation)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("source transaction %s: %w", sourceID, common.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read source %s: %w", sourceID, err)
	}
	if explanation == "" {
		return "", fmt.Errorf("source transaction %s has no explanation", sourceID)
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE transactions SET explanation = ? WHERE id = ?", explanation, targetID)
	if err != nil {
		return "", fmt.Errorf("failed to update target %s: %w", targetID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("target transaction %s: %w", targetID, common.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit replication: %w", err)
	}
	return explanation, nil
}
