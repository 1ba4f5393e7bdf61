package frequency

import (
	"testing"

	"github.com/ledgerhand/ledgerhand/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txn(id, explanation, accountID string) model.Transaction {
	return model.Transaction{ID: id, Description: "desc " + id, Explanation: explanation, AccountID: accountID}
}

func TestAnalyzer_Analyze(t *testing.T) {
	analyzer := NewAnalyzer()

	t.Run("orders by descending count", func(t *testing.T) {
		ranked := analyzer.Analyze([]model.Transaction{
			txn("1", "Rent", ""),
			txn("2", "Stationery", ""),
			txn("3", "Rent", ""),
			txn("4", "Rent", ""),
			txn("5", "Stationery", ""),
		})

		require.Len(t, ranked, 2)
		assert.Equal(t, ExplanationCount{Explanation: "Rent", Count: 3}, ranked[0])
		assert.Equal(t, ExplanationCount{Explanation: "Stationery", Count: 2}, ranked[1])
	})

	t.Run("ties break by first seen order", func(t *testing.T) {
		ranked := analyzer.Analyze([]model.Transaction{
			txn("1", "Fuel", ""),
			txn("2", "Rent", ""),
			txn("3", "Rent", ""),
			txn("4", "Fuel", ""),
		})

		require.Len(t, ranked, 2)
		assert.Equal(t, "Fuel", ranked[0].Explanation)
		assert.Equal(t, "Rent", ranked[1].Explanation)
	})

	t.Run("skips transactions without explanations", func(t *testing.T) {
		ranked := analyzer.Analyze([]model.Transaction{
			txn("1", "", ""),
			txn("2", "", ""),
		})
		assert.Empty(t, ranked)
	})
}

func TestAnalyzer_Hint(t *testing.T) {
	analyzer := NewAnalyzer()

	t.Run("no explained transactions yields no hint", func(t *testing.T) {
		_, ok := analyzer.Hint([]model.Transaction{txn("1", "", "")})
		assert.False(t, ok)
	})

	t.Run("hint carries the dominant explanation and its account", func(t *testing.T) {
		hint, ok := analyzer.Hint([]model.Transaction{
			txn("1", "Rent", "acct-rent"),
			txn("2", "Rent", ""),
			txn("3", "Rent", ""),
			txn("4", "Fuel", "acct-vehicle"),
		})

		require.True(t, ok)
		assert.Equal(t, "Rent", hint.Explanation)
		assert.Equal(t, "acct-rent", hint.AccountID)
		assert.Equal(t, model.SourceFrequency, hint.Source)
		assert.InDelta(t, 0.75, hint.Confidence, 1e-9)
	})
}
