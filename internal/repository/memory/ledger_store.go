// internal/repository/memory/ledger_store.go
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/repository"
	"balance-ledger/internal/util"
)

// LedgerStore is an in-memory implementation of repository.LedgerStore.
// Each user has a one-slot channel used as a lock so waits can be bounded;
// committed state is guarded by mu.
type LedgerStore struct {
	mu            sync.RWMutex
	users         map[int64]domain.User
	balances      map[int64]domain.Balance
	transactions  []domain.Transaction
	nextBalanceID int64
	nextTxID      int64

	locksMu     sync.Mutex
	locks       map[int64]chan struct{}
	lockTimeout time.Duration
}

// NewLedgerStore creates an empty store. A non-positive lockTimeout uses repository.DefaultLockTimeout.
func NewLedgerStore(lockTimeout time.Duration) *LedgerStore {
	if lockTimeout <= 0 {
		lockTimeout = repository.DefaultLockTimeout
	}
	return &LedgerStore{
		users:       make(map[int64]domain.User),
		balances:    make(map[int64]domain.Balance),
		locks:       make(map[int64]chan struct{}),
		lockTimeout: lockTimeout,
	}
}

// GetBalance returns a copy of the committed balance of a user.
func (s *LedgerStore) GetBalance(ctx context.Context, userID int64) (*domain.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balance, ok := s.balances[userID]
	if !ok {
		return nil, util.ErrNotFound
	}
	return &balance, nil
}

// GetTransactionsByUserID returns committed records of a user, newest first.
func (s *LedgerStore) GetTransactionsByUserID(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.Transaction{}
	var total int64
	for i := len(s.transactions) - 1; i >= 0; i-- {
		txn := s.transactions[i]
		if txn.UserID != userID {
			continue
		}
		if total >= int64(offset) && len(result) < limit {
			result = append(result, txn)
		}
		total++
	}
	return result, total, nil
}

// RunAtomic runs fn holding the locks of userIDs. Writes are staged in the unit and
// become visible only when fn returns nil.
func (s *LedgerStore) RunAtomic(ctx context.Context, userIDs []int64, fn repository.AtomicFunc) error {
	ids := repository.LockOrder(userIDs)

	release, err := s.acquire(ctx, ids)
	if err != nil {
		return err
	}
	defer release()

	unit := newUnit(s, ids)
	if err := fn(ctx, unit); err != nil {
		return err
	}
	s.commit(unit)
	return nil
}

func (s *LedgerStore) userLock(userID int64) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[userID] = lock
	}
	return lock
}

// acquire takes the locks of ids in the given (ascending) order within lockTimeout.
func (s *LedgerStore) acquire(ctx context.Context, ids []int64) (func(), error) {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	held := make([]chan struct{}, 0, len(ids))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, id := range ids {
		lock := s.userLock(id)
		select {
		case lock <- struct{}{}:
			held = append(held, lock)
		case <-timer.C:
			release()
			return nil, fmt.Errorf("%w: timed out after %s waiting for lock on user %d", util.ErrStorageConflict, s.lockTimeout, id)
		case <-ctx.Done():
			release()
			return nil, fmt.Errorf("%w: stopped waiting for lock on user %d: %w", util.ErrStorageConflict, id, ctx.Err())
		}
	}
	return release, nil
}

func (s *LedgerStore) commit(u *unit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, user := range u.users {
		s.users[id] = user
	}
	for id, balance := range u.balances {
		if existing, ok := s.balances[id]; ok {
			balance.ID = existing.ID
		} else {
			s.nextBalanceID++
			balance.ID = s.nextBalanceID
		}
		s.balances[id] = balance
	}
	for _, txn := range u.pending {
		s.nextTxID++
		txn.ID = s.nextTxID
		s.transactions = append(s.transactions, *txn)
	}
}

var _ repository.LedgerStore = (*LedgerStore)(nil)
