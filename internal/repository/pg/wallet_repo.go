package pg

import (
	"context"
	"errors"

	"shipwise-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type walletRepository struct {
	db DB
}

func NewWalletRepository(db DB) domain.WalletRepository {
	return &walletRepository{db: db}
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w       domain.Wallet
		balance pgtype.Numeric
	)
	if err := row.Scan(&w.UserID, &balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	w.Balance = numericToDecimal(balance)
	return &w, nil
}

// GetForUpdate must run inside a transaction; the row stays locked until it ends.
func (r *walletRepository) GetForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	return scanWallet(conn(ctx, r.db).QueryRow(ctx,
		`SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`, userID))
}

func (r *walletRepository) Get(ctx context.Context, userID string) (*domain.Wallet, error) {
	return scanWallet(conn(ctx, r.db).QueryRow(ctx,
		`SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1`, userID))
}

// Create inserts an empty wallet (if missing) and returns it locked.
func (r *walletRepository) Create(ctx context.Context, userID string) (*domain.Wallet, error) {
	if _, err := conn(ctx, r.db).Exec(ctx,
		`INSERT INTO wallets (user_id, balance) VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return nil, err
	}
	return r.GetForUpdate(ctx, userID)
}

func (r *walletRepository) UpdateBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE wallets SET balance = $2, updated_at = now() WHERE user_id = $1`,
		userID, decimalToNumeric(balance))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}

func (r *walletRepository) HasTransaction(ctx context.Context, idempotencyKey string) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM wallet_transactions WHERE idempotency_key = $1)`, idempotencyKey).Scan(&exists)
	return exists, err
}

func (r *walletRepository) AppendTransaction(ctx context.Context, t *domain.WalletTransaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO wallet_transactions (id, user_id, kind, amount, balance_after, detail, order_id, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		t.ID, t.UserID, string(t.Kind), decimalToNumeric(t.Amount), decimalToNumeric(t.BalanceAfter),
		t.Detail, stringPtrToText(t.OrderID), stringPtrToText(t.IdempotencyKey),
	).Scan(&t.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateTransaction
	}
	return err
}

func (r *walletRepository) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]domain.WalletTransaction, int64, error) {
	var total int64
	if err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM wallet_transactions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT id, user_id, kind, amount, balance_after, detail, order_id, created_at
		FROM wallet_transactions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var txs []domain.WalletTransaction
	for rows.Next() {
		var (
			t            domain.WalletTransaction
			kind         string
			amount       pgtype.Numeric
			balanceAfter pgtype.Numeric
			orderID      pgtype.Text
		)
		if err := rows.Scan(&t.ID, &t.UserID, &kind, &amount, &balanceAfter, &t.Detail, &orderID, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		t.Kind = domain.TransactionKind(kind)
		t.Amount = numericToDecimal(amount)
		t.BalanceAfter = numericToDecimal(balanceAfter)
		t.OrderID = textToStringPtr(orderID)
		txs = append(txs, t)
	}
	return txs, total, rows.Err()
}
