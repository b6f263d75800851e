// internal/repository/memory/ledger_store_test.go
package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/repository"
	"balance-ledger/internal/util"
)

// seed commits a user with the given balance.
func seed(t *testing.T, s *LedgerStore, userID int64, amount string) {
	t.Helper()
	err := s.RunAtomic(context.Background(), []int64{userID}, func(ctx context.Context, u repository.Unit) error {
		if _, err := u.CreateUser(ctx, domain.NewSystemUser(userID)); err != nil {
			return err
		}
		b := domain.NewBalance(userID)
		b.Credit(decimal.RequireFromString(amount))
		return u.SaveBalance(ctx, b)
	})
	require.NoError(t, err)
}

func TestRunAtomicCommitsStagedWrites(t *testing.T) {
	s := NewLedgerStore(time.Second)
	ctx := context.Background()

	var txn *domain.Transaction
	err := s.RunAtomic(ctx, []int64{1}, func(ctx context.Context, u repository.Unit) error {
		created, err := u.CreateUser(ctx, domain.NewSystemUser(1))
		require.NoError(t, err)
		assert.True(t, created)

		b := domain.NewBalance(1)
		b.Credit(decimal.RequireFromString("10.00"))
		require.NoError(t, u.SaveBalance(ctx, b))

		// Visible inside the unit, not outside it.
		inside, err := u.GetBalance(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "10.00", domain.FormatAmount(inside.Amount))
		_, err = s.GetBalance(ctx, 1)
		assert.ErrorIs(t, err, util.ErrNotFound)

		txn = domain.NewTransaction(1, domain.TransactionTypeDeposit, decimal.RequireFromString("10.00"), nil, nil)
		return u.AppendTransaction(ctx, txn)
	})
	require.NoError(t, err)

	balance, err := s.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "10.00", domain.FormatAmount(balance.Amount))
	assert.NotZero(t, balance.ID)
	assert.EqualValues(t, 1, txn.ID)
}

func TestRunAtomicRollsBackOnError(t *testing.T) {
	s := NewLedgerStore(time.Second)
	seed(t, s, 1, "50.00")
	ctx := context.Background()

	err := s.RunAtomic(ctx, []int64{1}, func(ctx context.Context, u repository.Unit) error {
		b, err := u.GetBalance(ctx, 1)
		require.NoError(t, err)
		b.Credit(decimal.RequireFromString("1.00"))
		require.NoError(t, u.SaveBalance(ctx, b))
		require.NoError(t, u.AppendTransaction(ctx, domain.NewTransaction(1, domain.TransactionTypeDeposit, decimal.RequireFromString("1.00"), nil, nil)))
		return util.ErrInsufficientFunds
	})
	assert.Same(t, util.ErrInsufficientFunds, err)

	balance, err := s.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "50.00", domain.FormatAmount(balance.Amount))
	_, total, err := s.GetTransactionsByUserID(ctx, 1, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestRunAtomicRollsBackOnPanic(t *testing.T) {
	s := NewLedgerStore(100 * time.Millisecond)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.RunAtomic(ctx, []int64{1}, func(ctx context.Context, u repository.Unit) error {
			_, _ = u.CreateUser(ctx, domain.NewSystemUser(1))
			panic("boom")
		})
	})

	// The lock was released and nothing was committed.
	err := s.RunAtomic(ctx, []int64{1}, func(ctx context.Context, u repository.Unit) error {
		_, err := u.GetUser(ctx, 1)
		return err
	})
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestUnitRejectsUnlockedUsers(t *testing.T) {
	s := NewLedgerStore(time.Second)
	err := s.RunAtomic(context.Background(), []int64{1}, func(ctx context.Context, u repository.Unit) error {
		_, err := u.GetBalance(ctx, 2)
		return err
	})
	assert.ErrorIs(t, err, ErrNotLocked)
}

func TestUnitEnforcesStorageConstraints(t *testing.T) {
	s := NewLedgerStore(time.Second)
	ctx := context.Background()

	t.Run("BalanceNeedsUser", func(t *testing.T) {
		err := s.RunAtomic(ctx, []int64{3}, func(ctx context.Context, u repository.Unit) error {
			return u.SaveBalance(ctx, domain.NewBalance(3))
		})
		assert.Error(t, err)
	})

	t.Run("NegativeBalance", func(t *testing.T) {
		err := s.RunAtomic(ctx, []int64{3}, func(ctx context.Context, u repository.Unit) error {
			_, _ = u.CreateUser(ctx, domain.NewSystemUser(3))
			b := domain.NewBalance(3)
			b.Amount = decimal.RequireFromString("-1")
			return u.SaveBalance(ctx, b)
		})
		assert.Error(t, err)
	})

	t.Run("RelatedUserOnlyOnTransfers", func(t *testing.T) {
		related := int64(4)
		err := s.RunAtomic(ctx, []int64{3}, func(ctx context.Context, u repository.Unit) error {
			_, _ = u.CreateUser(ctx, domain.NewSystemUser(3))
			return u.AppendTransaction(ctx, domain.NewTransaction(3, domain.TransactionTypeDeposit, decimal.NewFromInt(1), nil, &related))
		})
		assert.ErrorContains(t, err, "only allowed on transfers")
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		err := s.RunAtomic(ctx, []int64{3}, func(ctx context.Context, u repository.Unit) error {
			_, _ = u.CreateUser(ctx, domain.NewSystemUser(3))
			return u.AppendTransaction(ctx, domain.NewTransaction(3, domain.TransactionTypeDeposit, decimal.Zero, nil, nil))
		})
		assert.Error(t, err)
	})
}

func TestCreateUserIsIdempotent(t *testing.T) {
	s := NewLedgerStore(time.Second)
	seed(t, s, 8, "0")

	err := s.RunAtomic(context.Background(), []int64{8}, func(ctx context.Context, u repository.Unit) error {
		created, err := u.CreateUser(ctx, domain.NewSystemUser(8))
		assert.False(t, created)
		return err
	})
	require.NoError(t, err)
}

func TestLockTimeoutIsConflict(t *testing.T) {
	s := NewLedgerStore(50 * time.Millisecond)
	ctx := context.Background()
	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.RunAtomic(ctx, []int64{2}, func(ctx context.Context, u repository.Unit) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	called := false
	err := s.RunAtomic(ctx, []int64{2, 1}, func(ctx context.Context, u repository.Unit) error {
		called = true
		return nil
	})
	close(release)

	assert.ErrorIs(t, err, util.ErrStorageConflict)
	assert.False(t, called)
	require.NoError(t, <-done)

	// User 1 was released when the wait for user 2 gave up.
	err = s.RunAtomic(ctx, []int64{1}, func(ctx context.Context, u repository.Unit) error { return nil })
	assert.NoError(t, err)
}

func TestCanceledContextStopsWaiting(t *testing.T) {
	s := NewLedgerStore(time.Minute)
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.RunAtomic(context.Background(), []int64{1}, func(ctx context.Context, u repository.Unit) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.RunAtomic(ctx, []int64{1}, func(ctx context.Context, u repository.Unit) error { return nil })
	assert.True(t, errors.Is(err, context.Canceled))
	assert.ErrorIs(t, err, util.ErrStorageConflict)
	assert.NotEqual(t, util.KindInternal, util.KindOf(err))
}

func TestOppositeLockOrdersDoNotDeadlock(t *testing.T) {
	s := NewLedgerStore(5 * time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		ids := []int64{1, 2}
		if i%2 == 1 {
			ids = []int64{2, 1}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.RunAtomic(ctx, ids, func(ctx context.Context, u repository.Unit) error { return nil }))
		}()
	}
	wg.Wait()
}

func TestGetTransactionsByUserIDPaginatesNewestFirst(t *testing.T) {
	s := NewLedgerStore(time.Second)
	seed(t, s, 1, "0")
	seed(t, s, 2, "0")
	ctx := context.Background()

	for _, userID := range []int64{1, 2, 1, 1} {
		err := s.RunAtomic(ctx, []int64{userID}, func(ctx context.Context, u repository.Unit) error {
			return u.AppendTransaction(ctx, domain.NewTransaction(userID, domain.TransactionTypeDeposit, decimal.NewFromInt(userID), nil, nil))
		})
		require.NoError(t, err)
	}

	page, total, err := s.GetTransactionsByUserID(ctx, 1, 2, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.EqualValues(t, 3, page[0].ID)
	assert.EqualValues(t, 1, page[1].ID)
}
