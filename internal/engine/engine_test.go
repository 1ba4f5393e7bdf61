package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerhand/ledgerhand/internal/common"
	"github.com/ledgerhand/ledgerhand/internal/model"
	"github.com/ledgerhand/ledgerhand/internal/remote"
	"github.com/ledgerhand/ledgerhand/internal/rules"
)

func testTxn(id, description string) model.Transaction {
	return model.Transaction{
		ID:          id,
		Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: description,
		Amount:      decimal.NewFromFloat(-42.50),
	}
}

func TestClassifyBatchMixed(t *testing.T) {
	source := testTxn("txn-1", "payment for office supplies")
	source.Explanation = "Stationery"
	source.AccountID = "6100"

	fuzzyTarget := testTxn("txn-2", "office supplies purchase")
	ruleTarget := testTxn("txn-3", "electricity bill march")
	remoteTarget := testTxn("txn-4", "wire to acme consulting llc")
	failTarget := testTxn("txn-5", "misc adjustment 9914")

	mock := remote.NewMockClassifier()
	mock.SetResponse("txn-4", model.ClassificationCandidate{
		AccountID:  "7200",
		Confidence: 0.8,
		Rationale:  "consulting fees",
		Source:     model.SourceRemote,
	})
	mock.SetError("txn-5", remote.Unavailable(errors.New("service down")))

	orch := New(mock, DefaultConfig())
	result, err := orch.ClassifyBatch(context.Background(), Batch{
		Transactions: []model.Transaction{source, fuzzyTarget, ruleTarget, remoteTarget, failTarget},
		Rules:        []rules.Rule{{Keyword: "electricity", AccountID: "5100"}},
	})
	require.NoError(t, err)

	// Fuzzy propagation filled the explanation and proposed the account.
	require.Len(t, result.Propagations, 1)
	assert.Equal(t, "txn-1", result.Propagations[0].SourceID)
	assert.Equal(t, "txn-2", result.Propagations[0].TargetID)
	fuzzy, ok := result.Candidates["txn-2"]
	require.True(t, ok)
	assert.Equal(t, model.SourceFuzzy, fuzzy.Source)
	assert.Equal(t, "6100", fuzzy.AccountID)
	assert.Equal(t, "Stationery", fuzzy.Explanation)

	rule, ok := result.Candidates["txn-3"]
	require.True(t, ok)
	assert.Equal(t, model.SourceRule, rule.Source)
	assert.Equal(t, "5100", rule.AccountID)
	assert.InDelta(t, 0.9, rule.Confidence, 0.001)

	rem, ok := result.Candidates["txn-4"]
	require.True(t, ok)
	assert.Equal(t, model.SourceRemote, rem.Source)
	assert.Equal(t, "7200", rem.AccountID)

	// Only the locally unresolved transactions reached the classifier.
	assert.Equal(t, 2, mock.CallCount())

	assert.Equal(t, []string{"txn-5"}, result.Unresolved())
	assert.Equal(t, 1, result.Summary.Total())
	assert.Equal(t, 1, result.Summary.ByKind[remote.KindUnavailable])
	require.Len(t, result.Summary.Errors, 1)
	assert.Equal(t, "txn-5", result.Summary.Errors[0].TransactionID)
}

func TestClassifyBatchIdempotent(t *testing.T) {
	a := testTxn("txn-1", "payment for office supplies")
	a.Explanation = "Stationery"
	a.AccountID = "6100"
	b := testTxn("txn-2", "electricity bill march")
	b.Explanation = "Power"
	b.AccountID = "5100"

	mock := remote.NewMockClassifier()
	orch := New(mock, DefaultConfig())

	result, err := orch.ClassifyBatch(context.Background(), Batch{
		Transactions: []model.Transaction{a, b},
	})
	require.NoError(t, err)

	assert.Zero(t, mock.CallCount())
	assert.Empty(t, result.Unresolved())
	assert.Empty(t, result.Candidates)
	assert.Empty(t, result.Propagations)
}

func TestPropagationRequestsGroupBySource(t *testing.T) {
	stationery := testTxn("txn-1", "payment for office supplies")
	stationery.Explanation = "Stationery"
	stationery.AccountID = "6100"
	fitness := testTxn("txn-3", "monthly gym membership fee")
	fitness.Explanation = "Fitness"
	fitness.AccountID = "5400"

	mock := remote.NewMockClassifier()
	orch := New(mock, DefaultConfig())
	result, err := orch.ClassifyBatch(context.Background(), Batch{
		Transactions: []model.Transaction{
			stationery,
			testTxn("txn-2", "office supplies purchase"),
			fitness,
			testTxn("txn-4", "gym membership monthly fee"),
			testTxn("txn-5", "purchase for office supplies"),
		},
	})
	require.NoError(t, err)
	assert.Zero(t, mock.CallCount())

	requests := result.PropagationRequests()
	require.Len(t, requests, 2)

	assert.Equal(t, "txn-1", requests[0].SourceID)
	require.Len(t, requests[0].Targets, 2)
	assert.Equal(t, "txn-2", requests[0].Targets[0].TargetID)
	assert.Equal(t, "txn-5", requests[0].Targets[1].TargetID)
	for _, target := range requests[0].Targets {
		assert.GreaterOrEqual(t, target.TextSimilarity, 0.7)
	}

	assert.Equal(t, "txn-3", requests[1].SourceID)
	require.Len(t, requests[1].Targets, 1)
	assert.Equal(t, "txn-4", requests[1].Targets[0].TargetID)
}

func TestClassifyBatchEmpty(t *testing.T) {
	mock := remote.NewMockClassifier()
	orch := New(mock, DefaultConfig())

	result, err := orch.ClassifyBatch(context.Background(), Batch{})
	require.NoError(t, err)
	assert.Empty(t, result.Transactions)
	assert.Empty(t, result.Candidates)
}

func TestClassifyBatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := remote.NewMockClassifier()
	orch := New(mock, DefaultConfig())

	_, err := orch.ClassifyBatch(ctx, Batch{
		Transactions: []model.Transaction{testTxn("txn-1", "wire to acme consulting llc")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrClassificationIncomplete)
}

func TestClassifyBatchFrequencyHints(t *testing.T) {
	history := []model.Transaction{}
	for i := 0; i < 3; i++ {
		txn := testTxn("hist", "monthly groceries")
		txn.Explanation = "Groceries"
		txn.AccountID = "5200"
		history = append(history, txn)
	}
	odd := testTxn("hist-odd", "cinema tickets")
	odd.Explanation = "Entertainment"
	odd.AccountID = "5300"
	history = append(history, odd)

	target := testTxn("txn-1", "unknown merchant 52311")

	mock := remote.NewMockClassifier()
	mock.SetError("txn-1", remote.Unavailable(errors.New("service down")))

	orch := New(mock, DefaultConfig())
	result, err := orch.ClassifyBatch(context.Background(), Batch{
		Transactions: []model.Transaction{target},
		History:      history,
	})
	require.NoError(t, err)

	// The remote call failed, so the non-binding hint is all we have.
	hint, ok := result.Hints["txn-1"]
	require.True(t, ok)
	assert.Equal(t, "Groceries", hint.Explanation)
	assert.Equal(t, "5200", hint.AccountID)
	assert.Equal(t, model.SourceFrequency, hint.Source)
	assert.InDelta(t, 0.75, hint.Confidence, 0.001)

	assert.Equal(t, []string{"txn-1"}, result.Unresolved())
}

// blockingClassifier counts concurrent calls so the fan-out ceiling can be
// observed.
type blockingClassifier struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (c *blockingClassifier) Classify(_ context.Context, txn model.Transaction) (model.ClassificationCandidate, error) {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.peak {
		c.peak = c.inFlight
	}
	c.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()

	return model.ClassificationCandidate{
		AccountID: "9000",
		Source:    model.SourceRemote,
	}, nil
}

func TestClassifyBatchConcurrencyBound(t *testing.T) {
	classifier := &blockingClassifier{}
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 2
	orch := New(classifier, cfg)

	var txns []model.Transaction
	descriptions := []string{
		"alpha vendor invoice",
		"beta hosting renewal",
		"gamma courier delivery",
		"delta insurance premium",
		"epsilon travel booking",
		"zeta equipment lease",
	}
	for i, desc := range descriptions {
		txns = append(txns, testTxn(string(rune('a'+i)), desc))
	}

	result, err := orch.ClassifyBatch(context.Background(), Batch{Transactions: txns})
	require.NoError(t, err)

	assert.LessOrEqual(t, classifier.peak, 2)
	assert.Len(t, result.Candidates, len(txns))
}

func TestClassifyBatchProgress(t *testing.T) {
	mock := remote.NewMockClassifier()
	for _, id := range []string{"txn-1", "txn-2"} {
		mock.SetResponse(id, model.ClassificationCandidate{
			AccountID: "9000",
			Source:    model.SourceRemote,
		})
	}

	var mu sync.Mutex
	var reported []int
	cfg := DefaultConfig()
	cfg.Progress = func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, done)
		// The total is the remote fan-out size, not the batch size:
		// locally resolved transactions never tick the progress hook.
		assert.Equal(t, 2, total)
	}

	orch := New(mock, cfg)
	_, err := orch.ClassifyBatch(context.Background(), Batch{
		Transactions: []model.Transaction{
			testTxn("txn-1", "wire to acme consulting llc"),
			testTxn("txn-2", "cloudy skies hosting invoice"),
			testTxn("txn-3", "electricity bill march"),
		},
		Rules: []rules.Rule{{Keyword: "electricity", AccountID: "5100"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, reported)
}
