// Package service defines the boundary contracts consumed by the pipeline.
package service

import (
	"context"
	"time"

	"github.com/ledgerhand/ledgerhand/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate     *time.Time
	EndDate       *time.Time
	Unclassified  bool // only transactions without an account
	ExplainedOnly bool // only transactions carrying an explanation
	Limit         int
}

// Storage defines the contract for the persistence collaborator. The
// pipeline never opens storage directly; implementations live outside
// the core packages.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	UpdateExplanation(ctx context.Context, id, explanation string) error
	UpdateAccount(ctx context.Context, id, accountID string) error

	// Chart of accounts (read-mostly reference data)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	SaveAccount(ctx context.Context, account *model.Account) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
