package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	TransactionCredit TransactionKind = "credit"
	TransactionDebit  TransactionKind = "debit"
)

type Wallet struct {
	UserID    string          `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// WalletTransaction is an immutable ledger entry.
type WalletTransaction struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Kind           TransactionKind `json:"kind"`
	Amount         decimal.Decimal `json:"amount"` // always positive; Kind gives the sign
	BalanceAfter   decimal.Decimal `json:"balanceAfter"`
	Detail         string          `json:"detail"`
	OrderID        *string         `json:"orderId,omitempty"`
	IdempotencyKey *string         `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// WalletDelta is a signed balance change. Negative amounts are debits.
type WalletDelta struct {
	UserID         string
	Amount         decimal.Decimal
	Reason         string
	OrderID        string
	IdempotencyKey string
}

type WalletRepository interface {
	// GetForUpdate locks the wallet row for the surrounding transaction.
	// Returns ErrWalletNotFound when the user has no wallet yet.
	GetForUpdate(ctx context.Context, userID string) (*Wallet, error)
	Get(ctx context.Context, userID string) (*Wallet, error)
	Create(ctx context.Context, userID string) (*Wallet, error)
	UpdateBalance(ctx context.Context, userID string, balance decimal.Decimal) error
	// HasTransaction reports whether a transaction with the idempotency key exists.
	HasTransaction(ctx context.Context, idempotencyKey string) (bool, error)
	// AppendTransaction returns ErrDuplicateTransaction on an idempotency key clash.
	AppendTransaction(ctx context.Context, tx *WalletTransaction) error
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]WalletTransaction, int64, error)
}
