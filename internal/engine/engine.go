// Package engine implements the tiered classification pipeline for
// batches of bank transactions.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ledgerhand/ledgerhand/internal/common"
	"github.com/ledgerhand/ledgerhand/internal/frequency"
	"github.com/ledgerhand/ledgerhand/internal/model"
	"github.com/ledgerhand/ledgerhand/internal/propagate"
	"github.com/ledgerhand/ledgerhand/internal/remote"
	"github.com/ledgerhand/ledgerhand/internal/rules"
	"github.com/ledgerhand/ledgerhand/internal/similarity"
)

// Config holds configuration options for the orchestrator.
type Config struct {
	// Progress, when set, is invoked after each remote call completes.
	Progress             func(done, total int)
	PropagationThreshold float64
	MaxConcurrent        int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PropagationThreshold: propagate.DefaultThreshold,
		MaxConcurrent:        5,
	}
}

// Batch is one classification request: the transactions to annotate, the
// keyword rule table to apply, and optional historical context for
// frequency ranking. All inputs are read-only to the orchestrator.
type Batch struct {
	Transactions []model.Transaction
	Rules        []rules.Rule
	History      []model.Transaction
}

// TransactionError pairs a failed transaction with its error.
type TransactionError struct {
	Err           error
	TransactionID string
}

// FailureSummary aggregates remote failures for a batch. Individual
// errors are preserved; they are never silently dropped.
type FailureSummary struct {
	ByKind map[remote.ErrorKind]int
	Errors []TransactionError
}

// Total returns the number of failed remote calls.
func (s FailureSummary) Total() int {
	return len(s.Errors)
}

// Result is the fully merged outcome of one batch run. Transactions carry
// explanations filled by fuzzy propagation; accounts are proposed through
// Candidates and never applied by the orchestrator itself.
type Result struct {
	Candidates   map[string]model.ClassificationCandidate // by transaction ID
	Hints        map[string]model.ClassificationCandidate // frequency hints for unresolved transactions
	Transactions []model.Transaction
	Propagations []model.SimilarityResult
	Summary      FailureSummary
}

// PropagationRequests groups the batch's propagations by source
// transaction, in input order. Each request is an all-or-none unit the
// caller applies or discards as a whole.
func (r *Result) PropagationRequests() []model.PropagationRequest {
	var requests []model.PropagationRequest
	index := make(map[string]int)
	for _, prop := range r.Propagations {
		i, ok := index[prop.SourceID]
		if !ok {
			i = len(requests)
			index[prop.SourceID] = i
			requests = append(requests, model.PropagationRequest{SourceID: prop.SourceID})
		}
		requests[i].Targets = append(requests[i].Targets, prop)
	}
	return requests
}

// Unresolved lists the IDs of transactions no stage produced a candidate
// for. A valid terminal state, not an error.
func (r *Result) Unresolved() []string {
	var ids []string
	for _, txn := range r.Transactions {
		if txn.IsClassified() {
			continue
		}
		if _, ok := r.Candidates[txn.ID]; ok {
			continue
		}
		ids = append(ids, txn.ID)
	}
	return ids
}

// Orchestrator runs the tiered pipeline: cheap local stages first, then a
// bounded concurrent fan-out to the remote classifier for whatever is
// left.
type Orchestrator struct {
	classifier    Classifier
	propagator    *propagate.Propagator
	analyzer      *frequency.Analyzer
	progress      func(done, total int)
	maxConcurrent int
}

// New creates an orchestrator with the given remote classifier.
func New(classifier Classifier, cfg Config) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}

	return &Orchestrator{
		classifier:    classifier,
		propagator:    propagate.NewPropagator(similarity.NewScorer(), cfg.PropagationThreshold),
		analyzer:      frequency.NewAnalyzer(),
		progress:      cfg.Progress,
		maxConcurrent: cfg.MaxConcurrent,
	}
}

// ClassifyBatch annotates a batch. Local stages run synchronously; only
// transactions they leave unresolved are dispatched to the remote
// classifier. A single remote failure never aborts the batch; caller
// cancellation abandons in-flight calls and reports the batch incomplete
// rather than returning a partial result as success.
func (o *Orchestrator) ClassifyBatch(ctx context.Context, batch Batch) (*Result, error) {
	result := &Result{
		Candidates: make(map[string]model.ClassificationCandidate),
		Hints:      make(map[string]model.ClassificationCandidate),
		Summary:    FailureSummary{ByKind: make(map[remote.ErrorKind]int)},
	}

	if len(batch.Transactions) == 0 {
		result.Transactions = []model.Transaction{}
		return result, nil
	}

	slog.Info("Starting batch classification",
		"transactions", len(batch.Transactions),
		"rules", len(batch.Rules),
		"history", len(batch.History))

	// Stage 1: local resolution. Fuzzy propagation first, keyword rules
	// for whatever it leaves untouched.
	txns, propagations := o.propagator.Propagate(batch.Transactions)
	result.Transactions = txns
	result.Propagations = propagations

	sourceByID := make(map[string]model.Transaction, len(batch.Transactions))
	for _, txn := range batch.Transactions {
		sourceByID[txn.ID] = txn
	}

	for _, prop := range propagations {
		source := sourceByID[prop.SourceID]
		result.Candidates[prop.TargetID] = model.ClassificationCandidate{
			AccountID:   source.AccountID,
			Explanation: source.Explanation,
			Confidence:  prop.TextSimilarity,
			Rationale:   fmt.Sprintf("explanation propagated from transaction %s", prop.SourceID),
			Source:      model.SourceFuzzy,
		}
	}

	matcher := rules.NewMatcher(batch.Rules)
	for _, txn := range txns {
		if o.isResolved(txn, result) {
			continue
		}
		if rule, ok := matcher.Match(txn.Description); ok {
			result.Candidates[txn.ID] = model.ClassificationCandidate{
				AccountID:  rule.AccountID,
				Confidence: 0.9,
				Rationale:  fmt.Sprintf("description contains keyword %q", rule.Keyword),
				Source:     model.SourceRule,
			}
		}
	}

	// Stage 2: frequency hinting over batch plus history. Non-binding;
	// attached only to transactions still unresolved.
	corpus := make([]model.Transaction, 0, len(txns)+len(batch.History))
	corpus = append(corpus, txns...)
	corpus = append(corpus, batch.History...)

	if hint, ok := o.analyzer.Hint(corpus); ok {
		for _, txn := range txns {
			if !o.isResolved(txn, result) {
				result.Hints[txn.ID] = hint
			}
		}
	}

	// Stage 3: remote fan-out for the remainder.
	var unresolved []model.Transaction
	for _, txn := range txns {
		if !o.isResolved(txn, result) {
			unresolved = append(unresolved, txn)
		}
	}

	if len(unresolved) == 0 {
		slog.Info("Batch resolved locally", "candidates", len(result.Candidates))
		return result, nil
	}

	candidates, failures, err := o.fanOut(ctx, unresolved)
	if err != nil {
		return nil, err
	}

	// Stage 4: merge. Failed transactions keep their hint, if any, and
	// stay unresolved.
	for id, candidate := range candidates {
		result.Candidates[id] = candidate
	}
	for _, failure := range failures {
		kind := remote.KindUnavailable
		if k, ok := remote.KindOf(failure.Err); ok {
			kind = k
		}
		result.Summary.ByKind[kind]++
		result.Summary.Errors = append(result.Summary.Errors, failure)
	}

	slog.Info("Batch classification complete",
		"candidates", len(result.Candidates),
		"unresolved", len(result.Unresolved()),
		"remote_failures", result.Summary.Total())

	return result, nil
}

// isResolved reports whether a transaction needs no further stage: it
// either already carries an account or some stage produced a candidate.
// Frequency hints do not resolve.
func (o *Orchestrator) isResolved(txn model.Transaction, result *Result) bool {
	if txn.IsClassified() {
		return true
	}
	_, ok := result.Candidates[txn.ID]
	return ok
}

// fanOut dispatches one remote call per transaction, bounded by the
// configured concurrency ceiling, and waits for all of them.
func (o *Orchestrator) fanOut(ctx context.Context, txns []model.Transaction) (map[string]model.ClassificationCandidate, []TransactionError, error) {
	candidates := make([]model.ClassificationCandidate, len(txns))
	errs := make([]error, len(txns))

	sem := make(chan struct{}, o.maxConcurrent)
	var wg sync.WaitGroup
	var done int
	var mu sync.Mutex

	for i, txn := range txns {
		wg.Add(1)
		go func(idx int, transaction model.Transaction) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[idx] = remote.Unavailable(ctx.Err())
				return
			}

			candidate, err := o.classifier.Classify(ctx, transaction)
			if err != nil {
				errs[idx] = err
			} else {
				candidates[idx] = candidate
			}

			if o.progress != nil {
				mu.Lock()
				done++
				o.progress(done, len(txns))
				mu.Unlock()
			}
		}(i, txn)
	}

	wg.Wait()

	if ctx.Err() != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrClassificationIncomplete, ctx.Err())
	}

	merged := make(map[string]model.ClassificationCandidate)
	var failures []TransactionError
	for i, txn := range txns {
		if errs[i] != nil {
			failures = append(failures, TransactionError{TransactionID: txn.ID, Err: errs[i]})
			continue
		}
		merged[txn.ID] = candidates[i]
	}

	return merged, failures, nil
}
