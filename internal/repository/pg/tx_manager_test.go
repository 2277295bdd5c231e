package pg_test

import (
	"context"
	"errors"
	"testing"

	"shipwise-backend/internal/repository/pg"
	"shipwise-backend/internal/repository/pg/mocks"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// fakeTx records how a transaction ended. Begin opens a savepoint, the way
// pgx does on a Tx.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	savepoints []*fakeTx
	execs      []string
}

func (tx *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	sp := &fakeTx{}
	tx.savepoints = append(tx.savepoints, sp)
	return sp, nil
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

func (tx *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	tx.execs = append(tx.execs, sql)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func TestTransactionManager_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		tx := &fakeTx{}
		mockDB.EXPECT().Begin(gomock.Any()).Return(tx, nil)

		err := pg.NewTransactionManager(mockDB).Do(ctx, func(context.Context) error { return nil })
		require.NoError(t, err)
		assert.True(t, tx.committed)
		assert.False(t, tx.rolledBack)
	})

	t.Run("rollback on error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		tx := &fakeTx{}
		mockDB.EXPECT().Begin(gomock.Any()).Return(tx, nil)

		boom := errors.New("boom")
		err := pg.NewTransactionManager(mockDB).Do(ctx, func(context.Context) error { return boom })
		assert.Equal(t, boom, err)
		assert.True(t, tx.rolledBack)
		assert.False(t, tx.committed)
	})

	t.Run("rollback on panic", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		tx := &fakeTx{}
		mockDB.EXPECT().Begin(gomock.Any()).Return(tx, nil)

		assert.Panics(t, func() {
			_ = pg.NewTransactionManager(mockDB).Do(ctx, func(context.Context) error { panic("bad") })
		})
		assert.True(t, tx.rolledBack)
	})

	t.Run("begin error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		expectedErr := errors.New("pool closed")
		mockDB.EXPECT().Begin(gomock.Any()).Return(nil, expectedErr)

		called := false
		err := pg.NewTransactionManager(mockDB).Do(ctx, func(context.Context) error { called = true; return nil })
		assert.Equal(t, expectedErr, err)
		assert.False(t, called)
	})

	t.Run("nested call uses a savepoint", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		outer := &fakeTx{}
		mockDB.EXPECT().Begin(gomock.Any()).Return(outer, nil).Times(1)
		tm := pg.NewTransactionManager(mockDB)

		inner := errors.New("inner failed")
		err := tm.Do(ctx, func(ctx context.Context) error {
			assert.Equal(t, inner, tm.Do(ctx, func(context.Context) error { return inner }))
			return nil
		})
		require.NoError(t, err)

		require.Len(t, outer.savepoints, 1)
		assert.True(t, outer.savepoints[0].rolledBack)
		assert.True(t, outer.committed)
	})

	t.Run("repositories write through the transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mocks.NewMockDB(ctrl)
		tx := &fakeTx{}
		mockDB.EXPECT().Begin(gomock.Any()).Return(tx, nil)
		// no Exec expectation: the pool must not be used inside Do
		repo := pg.NewOrderRepository(mockDB)

		err := pg.NewTransactionManager(mockDB).Do(ctx, func(ctx context.Context) error {
			return repo.CompareAndSetStatus(ctx, "ord-1", "UNSHIPPED", "READY TO SHIP")
		})
		require.NoError(t, err)
		require.Len(t, tx.execs, 1)
		assert.Contains(t, tx.execs[0], "UPDATE orders SET current_status")
	})
}
