// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single bank-statement line.
type Transaction struct {
	Date        time.Time
	ID          string
	Description string // Raw statement text, never mutated by the pipeline
	Explanation string // Free-text annotation, empty until supplied
	AccountID   string // Ledger account, empty until classified
	Amount      decimal.Decimal
}

// HasExplanation reports whether the transaction carries an explanation.
func (t *Transaction) HasExplanation() bool {
	return t.Explanation != ""
}

// IsClassified reports whether the transaction has been assigned an account.
func (t *Transaction) IsClassified() bool {
	return t.AccountID != ""
}

// Hash creates a stable key for caching and duplicate detection.
func (t *Transaction) Hash() string {
	data := fmt.Sprintf("%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount.String(),
		t.Description)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
