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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// rowFunc adapts a scan function to pgx.Row.
type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

func existsRow(exists bool) rowFunc {
	return func(dest ...any) error {
		*dest[0].(*bool) = exists
		return nil
	}
}

func tag(s string) pgconn.CommandTag { return pgconn.NewCommandTag(s) }

func TestOrderRepo_CompareAndSetStatus(t *testing.T) {
	ctx := context.Background()
	from, to := domain.OrderStatusUnshipped, domain.OrderStatusReadyToShip

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		repo := pg.NewOrderRepository(mockDB)

		mockDB.EXPECT().Exec(
			gomock.Any(),
			gomock.Any(),
			gomock.Eq("ord-1"),
			gomock.Eq(string(from)),
			gomock.Eq(string(to)),
		).Return(tag("UPDATE 1"), nil)

		assert.NoError(t, repo.CompareAndSetStatus(ctx, "ord-1", from, to))
	})

	t.Run("status moved on", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		repo := pg.NewOrderRepository(mockDB)

		mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(tag("UPDATE 0"), nil)
		mockDB.EXPECT().QueryRow(gomock.Any(), gomock.Any(), gomock.Eq("ord-1")).Return(existsRow(true))

		assert.ErrorIs(t, repo.CompareAndSetStatus(ctx, "ord-1", from, to), domain.ErrStatusConflict)
	})

	t.Run("order not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		repo := pg.NewOrderRepository(mockDB)

		mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(tag("UPDATE 0"), nil)
		mockDB.EXPECT().QueryRow(gomock.Any(), gomock.Any(), gomock.Eq("ord-404")).Return(existsRow(false))

		assert.ErrorIs(t, repo.CompareAndSetStatus(ctx, "ord-404", from, to), domain.ErrOrderNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		repo := pg.NewOrderRepository(mockDB)

		expectedErr := errors.New("database error")
		mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(pgconn.CommandTag{}, expectedErr)

		assert.Equal(t, expectedErr, repo.CompareAndSetStatus(ctx, "ord-1", from, to))
	})
}

func TestOrderRepo_ClaimBooking(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		tag     string
		claimed bool
	}{
		{"claim taken", "UPDATE 1", true},
		{"booked or claimed elsewhere", "UPDATE 0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockDB := mocks.NewMockDB(ctrl)
			repo := pg.NewOrderRepository(mockDB)

			mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Eq("ord-1"), gomock.Eq(120.0)).
				DoAndReturn(func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
					assert.Contains(t, sql, "awb_id IS NULL AND lrnum IS NULL")
					assert.Contains(t, sql, "booking_claimed_at IS NULL OR booking_claimed_at <")
					return tag(tt.tag), nil
				})

			claimed, err := repo.ClaimBooking(ctx, "ord-1", 2*time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tt.claimed, claimed)
		})
	}
}

func TestOrderRepo_SaveBooking(t *testing.T) {
	ctx := context.Background()
	order := &domain.Order{ID: "ord-1", AWB: "AWB1", BookingPhase: domain.BookingPhaseNone}

	t.Run("stored while ready to ship", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		repo := pg.NewOrderRepository(mockDB)

		mockDB.EXPECT().Exec(
			gomock.Any(),
			gomock.Any(),
			gomock.Eq("ord-1"),
			gomock.Eq(string(domain.OrderStatusReadyToShip)),
			gomock.Eq("AWB1"),
			gomock.Eq(""),
			gomock.Any(),
			gomock.Any(),
			gomock.Any(),
		).DoAndReturn(func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			assert.Contains(t, sql, "current_status = $2")
			assert.Contains(t, sql, "awb_id IS NULL AND lrnum IS NULL")
			assert.Contains(t, sql, "booking_claimed_at = NULL")
			return tag("UPDATE 1"), nil
		})

		assert.NoError(t, repo.SaveBooking(ctx, order))
	})

	t.Run("cancelled meanwhile", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		repo := pg.NewOrderRepository(mockDB)

		mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any()).Return(tag("UPDATE 0"), nil)

		assert.ErrorIs(t, repo.SaveBooking(ctx, order), domain.ErrStatusConflict)
	})
}

func TestOrderRepo_Update_LeavesNarrowColumnsAlone(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDB := mocks.NewMockDB(ctrl)
	repo := pg.NewOrderRepository(mockDB)

	mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			for _, col := range []string{"current_status", "awb_id", "lrnum", "label_url", "label_job_id", "carrier_cancelled_at"} {
				assert.NotContains(t, sql, col)
			}
			assert.Len(t, args, 12)
			return tag("UPDATE 1"), nil
		})

	require.NoError(t, repo.Update(context.Background(), &domain.Order{ID: "ord-1", LabelURL: "stale"}))
}

func TestOrderRepo_Update_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDB := mocks.NewMockDB(ctrl)
	repo := pg.NewOrderRepository(mockDB)

	mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any()).Return(tag("UPDATE 0"), nil)

	assert.ErrorIs(t, repo.Update(context.Background(), &domain.Order{ID: "ord-404"}), domain.ErrOrderNotFound)
}

func TestOrderRepo_SetLabel(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDB := mocks.NewMockDB(ctrl)
	repo := pg.NewOrderRepository(mockDB)

	mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Eq("ord-1"), gomock.Eq("J1"), gomock.Eq("")).
		DoAndReturn(func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			assert.Contains(t, sql, "CASE WHEN label_url = '' THEN $3 ELSE label_url END")
			assert.Contains(t, sql, "CASE WHEN label_job_id = '' THEN $2 ELSE label_job_id END")
			return tag("UPDATE 1"), nil
		})

	assert.NoError(t, repo.SetLabel(context.Background(), "ord-1", "J1", ""))
}

func TestOrderRepo_SetLabelByLRN(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		tag     string
		changed bool
	}{
		{"first delivery", "UPDATE 1", true},
		{"redelivery of the same url", "UPDATE 0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockDB := mocks.NewMockDB(ctrl)
			repo := pg.NewOrderRepository(mockDB)

			mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Eq("LR100"), gomock.Eq("J1"), gomock.Eq("https://cdn/l.pdf")).
				DoAndReturn(func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
					assert.Contains(t, sql, "label_url IS DISTINCT FROM $3")
					return tag(tt.tag), nil
				})

			changed, err := repo.SetLabelByLRN(ctx, "LR100", "J1", "https://cdn/l.pdf")
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestOrderRepo_MarkCarrierCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDB := mocks.NewMockDB(ctrl)
	repo := pg.NewOrderRepository(mockDB)

	at := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Eq("ord-1"), gomock.Eq(at)).
		DoAndReturn(func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			assert.Contains(t, sql, "carrier_cancelled_at IS NULL")
			return tag("UPDATE 0"), nil
		})

	assert.NoError(t, repo.MarkCarrierCancelled(context.Background(), "ord-1", at))
}

func TestOrderRepo_GetByID_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDB := mocks.NewMockDB(ctrl)
	repo := pg.NewOrderRepository(mockDB)

	mockDB.EXPECT().QueryRow(gomock.Any(), gomock.Any(), gomock.Eq("ord-404")).
		Return(rowFunc(func(...any) error { return pgx.ErrNoRows }))

	_, err := repo.GetByID(context.Background(), "ord-404")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
