package pg_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shipwise-backend/internal/domain"
	"shipwise-backend/internal/repository/pg"
	"shipwise-backend/internal/repository/pg/mocks"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func walletRow(userID, balance string) rowFunc {
	return func(dest ...any) error {
		*dest[0].(*string) = userID
		d := decimal.RequireFromString(balance)
		*dest[1].(*pgtype.Numeric) = pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
		*dest[2].(*time.Time) = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		*dest[3].(*time.Time) = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
		return nil
	}
}

func TestWalletRepo_GetForUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("locks the row", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		repo := pg.NewWalletRepository(mockDB)

		mockDB.EXPECT().QueryRow(gomock.Any(), gomock.Any(), gomock.Eq("user-1")).
			DoAndReturn(func(_ context.Context, sql string, _ ...any) pgx.Row {
				assert.Contains(t, sql, "FOR UPDATE")
				return walletRow("user-1", "512.50")
			})

		w, err := repo.GetForUpdate(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", w.UserID)
		assert.Equal(t, "512.50", w.Balance.StringFixed(2))
	})

	t.Run("plain read does not lock", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		repo := pg.NewWalletRepository(mockDB)

		mockDB.EXPECT().QueryRow(gomock.Any(), gomock.Any(), gomock.Eq("user-1")).
			DoAndReturn(func(_ context.Context, sql string, _ ...any) pgx.Row {
				assert.NotContains(t, sql, "FOR UPDATE")
				return walletRow("user-1", "0")
			})

		_, err := repo.Get(ctx, "user-1")
		require.NoError(t, err)
	})

	t.Run("missing wallet", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		repo := pg.NewWalletRepository(mockDB)

		mockDB.EXPECT().QueryRow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(rowFunc(func(...any) error { return pgx.ErrNoRows }))

		_, err := repo.GetForUpdate(ctx, "user-404")
		assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	})
}

func TestWalletRepo_AppendTransaction(t *testing.T) {
	ctx := context.Background()
	key := "booking:ord-1"
	entry := func() *domain.WalletTransaction {
		return &domain.WalletTransaction{
			UserID:         "user-1",
			Kind:           domain.TransactionDebit,
			Amount:         decimal.NewFromInt(150),
			BalanceAfter:   decimal.NewFromInt(350),
			IdempotencyKey: &key,
		}
	}

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		repo := pg.NewWalletRepository(mockDB)

		created := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
		mockDB.EXPECT().QueryRow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(rowFunc(func(dest ...any) error {
				*dest[0].(*time.Time) = created
				return nil
			}))

		tx := entry()
		require.NoError(t, repo.AppendTransaction(ctx, tx))
		assert.NotEmpty(t, tx.ID)
		assert.Equal(t, created, tx.CreatedAt)
	})

	t.Run("reused idempotency key", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		repo := pg.NewWalletRepository(mockDB)

		mockDB.EXPECT().QueryRow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(rowFunc(func(...any) error {
				return &pgconn.PgError{Code: "23505", ConstraintName: "wallet_transactions_idempotency_key_key"}
			}))

		assert.ErrorIs(t, repo.AppendTransaction(ctx, entry()), domain.ErrDuplicateTransaction)
	})

	t.Run("other database error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		repo := pg.NewWalletRepository(mockDB)

		expectedErr := errors.New("database error")
		mockDB.EXPECT().QueryRow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(rowFunc(func(...any) error { return expectedErr }))

		assert.Equal(t, expectedErr, repo.AppendTransaction(ctx, entry()))
	})
}

func TestWalletRepo_HasTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDB := mocks.NewMockDB(ctrl)
	repo := pg.NewWalletRepository(mockDB)

	mockDB.EXPECT().QueryRow(gomock.Any(), gomock.Any(), gomock.Eq("refund:ord-1")).Return(existsRow(true))

	seen, err := repo.HasTransaction(context.Background(), "refund:ord-1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestWalletRepo_UpdateBalance_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDB := mocks.NewMockDB(ctrl)
	repo := pg.NewWalletRepository(mockDB)

	mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Eq("user-404"), gomock.Any()).Return(tag("UPDATE 0"), nil)

	assert.ErrorIs(t, repo.UpdateBalance(context.Background(), "user-404", decimal.NewFromInt(1)), domain.ErrWalletNotFound)
}
