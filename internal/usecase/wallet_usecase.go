package usecase

import (
	"context"
	"errors"
	"fmt"

	"shipwise-backend/internal/domain"
	"shipwise-backend/pkg/logger"
	"shipwise-backend/pkg/metrics"

	"github.com/shopspring/decimal"
)

type WalletUsecase struct {
	repo          domain.WalletRepository
	txManager     domain.TransactionManager
	allowNegative bool
}

func NewWalletUsecase(repo domain.WalletRepository, txManager domain.TransactionManager, allowNegative bool) *WalletUsecase {
	return &WalletUsecase{
		repo:          repo,
		txManager:     txManager,
		allowNegative: allowNegative,
	}
}

// rechargeBrackets are checked top down; the first threshold the credit
// reaches decides the discount percentage.
var rechargeBrackets = []struct {
	min     decimal.Decimal
	percent decimal.Decimal
}{
	{decimal.NewFromInt(50000), decimal.NewFromInt(8)},
	{decimal.NewFromInt(30000), decimal.NewFromInt(6)},
	{decimal.NewFromInt(20000), decimal.NewFromInt(4)},
	{decimal.NewFromInt(10000), decimal.NewFromInt(2)},
	{decimal.NewFromInt(5000), decimal.NewFromInt(1)},
}

// RechargeDiscount returns the bonus credited on top of a recharge of amount.
func RechargeDiscount(amount decimal.Decimal) decimal.Decimal {
	for _, b := range rechargeBrackets {
		if amount.GreaterThanOrEqual(b.min) {
			return amount.Mul(b.percent).Div(decimal.NewFromInt(100)).Round(2)
		}
	}
	return decimal.Zero
}

// ApplyDelta changes a wallet balance by a signed amount and appends the
// matching ledger entry in the same transaction. A missing wallet counts as a
// zero balance and is created on first write.
//
// Returns ErrDuplicateTransaction when delta.IdempotencyKey was already used;
// callers treat that as "already applied".
func (u *WalletUsecase) ApplyDelta(ctx context.Context, delta domain.WalletDelta) (decimal.Decimal, error) {
	if delta.Amount.IsZero() {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	var balance decimal.Decimal
	err := u.txManager.Do(ctx, func(ctx context.Context) error {
		if delta.IdempotencyKey != "" {
			seen, err := u.repo.HasTransaction(ctx, delta.IdempotencyKey)
			if err != nil {
				return err
			}
			if seen {
				return domain.ErrDuplicateTransaction
			}
		}

		wallet, err := u.repo.GetForUpdate(ctx, delta.UserID)
		if errors.Is(err, domain.ErrWalletNotFound) {
			wallet, err = u.repo.Create(ctx, delta.UserID)
		}
		if err != nil {
			return err
		}

		next := wallet.Balance.Add(delta.Amount)
		if delta.Amount.IsNegative() && next.IsNegative() && !u.allowNegative {
			return fmt.Errorf("%w: balance %s, debit %s", domain.ErrInsufficientFunds,
				wallet.Balance.StringFixed(2), delta.Amount.Abs().StringFixed(2))
		}

		if err := u.repo.UpdateBalance(ctx, delta.UserID, next); err != nil {
			return err
		}

		entry := &domain.WalletTransaction{
			UserID:       delta.UserID,
			Kind:         domain.TransactionCredit,
			Amount:       delta.Amount.Abs(),
			BalanceAfter: next,
			Detail:       delta.Reason,
		}
		if delta.Amount.IsNegative() {
			entry.Kind = domain.TransactionDebit
		}
		if delta.OrderID != "" {
			entry.OrderID = &delta.OrderID
		}
		if delta.IdempotencyKey != "" {
			entry.IdempotencyKey = &delta.IdempotencyKey
		}
		if err := u.repo.AppendTransaction(ctx, entry); err != nil {
			return err
		}

		balance = next
		metrics.WalletTransactionsTotal.WithLabelValues(string(entry.Kind)).Inc()
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

type CreditResult struct {
	Balance  decimal.Decimal `json:"balance"`
	Credited decimal.Decimal `json:"credited"`
	Discount decimal.Decimal `json:"discount"`
}

// Credit records a recharge: the principal plus the bracket discount as a
// second ledger entry. A non-empty reference makes the recharge idempotent.
func (u *WalletUsecase) Credit(ctx context.Context, userID string, amount decimal.Decimal, detail, reference string) (*CreditResult, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if detail == "" {
		detail = "Wallet recharge"
	}

	res := &CreditResult{Credited: amount, Discount: RechargeDiscount(amount)}
	err := u.txManager.Do(ctx, func(ctx context.Context) error {
		principal := domain.WalletDelta{UserID: userID, Amount: amount, Reason: detail}
		if reference != "" {
			principal.IdempotencyKey = "recharge:" + reference
		}
		bal, err := u.ApplyDelta(ctx, principal)
		if err != nil {
			return err
		}
		res.Balance = bal

		if res.Discount.IsPositive() {
			bonus := domain.WalletDelta{
				UserID: userID,
				Amount: res.Discount,
				Reason: fmt.Sprintf("Recharge discount on %s", amount.StringFixed(2)),
			}
			if reference != "" {
				bonus.IdempotencyKey = "recharge:" + reference + ":discount"
			}
			if res.Balance, err = u.ApplyDelta(ctx, bonus); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("user_id", userID).
		Str("amount", amount.StringFixed(2)).
		Str("discount", res.Discount.StringFixed(2)).
		Msg("Wallet recharged")
	return res, nil
}

// EnsureFunds fails with ErrInsufficientFunds when a debit of amount would
// overdraw the wallet. The check is advisory; ApplyDelta enforces it again
// under the row lock.
func (u *WalletUsecase) EnsureFunds(ctx context.Context, userID string, amount decimal.Decimal) error {
	if u.allowNegative || !amount.IsPositive() {
		return nil
	}
	balance, err := u.Balance(ctx, userID)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return fmt.Errorf("%w: balance %s, charges %s", domain.ErrInsufficientFunds,
			balance.StringFixed(2), amount.StringFixed(2))
	}
	return nil
}

// Applied reports whether a ledger entry with the idempotency key exists.
func (u *WalletUsecase) Applied(ctx context.Context, idempotencyKey string) (bool, error) {
	return u.repo.HasTransaction(ctx, idempotencyKey)
}

// Balance returns zero for users that never had a wallet.
func (u *WalletUsecase) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	w, err := u.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrWalletNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

func (u *WalletUsecase) Transactions(ctx context.Context, userID string, page, limit int) ([]domain.WalletTransaction, domain.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	txs, total, err := u.repo.ListTransactions(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return txs, domain.NewPagination(page, limit, total), nil
}
