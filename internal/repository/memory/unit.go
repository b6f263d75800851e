// internal/repository/memory/unit.go
package memory

import (
	"context"
	"errors"
	"fmt"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/util"
)

// ErrNotLocked is returned when a unit touches a user it did not lock.
var ErrNotLocked = errors.New("user is not locked by this unit of work")

// unit stages writes on top of the committed state of its store.
type unit struct {
	store    *LedgerStore
	locked   map[int64]bool
	users    map[int64]domain.User
	balances map[int64]domain.Balance
	pending  []*domain.Transaction
}

func newUnit(store *LedgerStore, ids []int64) *unit {
	locked := make(map[int64]bool, len(ids))
	for _, id := range ids {
		locked[id] = true
	}
	return &unit{
		store:    store,
		locked:   locked,
		users:    make(map[int64]domain.User),
		balances: make(map[int64]domain.Balance),
	}
}

func (u *unit) checkLocked(userID int64) error {
	if !u.locked[userID] {
		return fmt.Errorf("%w: %d", ErrNotLocked, userID)
	}
	return nil
}

func (u *unit) lookupUser(userID int64) (domain.User, bool) {
	if user, ok := u.users[userID]; ok {
		return user, true
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	user, ok := u.store.users[userID]
	return user, ok
}

func (u *unit) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	if err := u.checkLocked(userID); err != nil {
		return nil, err
	}
	user, ok := u.lookupUser(userID)
	if !ok {
		return nil, util.ErrNotFound
	}
	return &user, nil
}

func (u *unit) CreateUser(ctx context.Context, user *domain.User) (bool, error) {
	if err := u.checkLocked(user.ID); err != nil {
		return false, err
	}
	if _, ok := u.lookupUser(user.ID); ok {
		return false, nil
	}
	u.users[user.ID] = *user
	return true, nil
}

func (u *unit) GetBalance(ctx context.Context, userID int64) (*domain.Balance, error) {
	if err := u.checkLocked(userID); err != nil {
		return nil, err
	}
	if balance, ok := u.balances[userID]; ok {
		return &balance, nil
	}
	return u.store.GetBalance(ctx, userID)
}

func (u *unit) SaveBalance(ctx context.Context, balance *domain.Balance) error {
	if err := u.checkLocked(balance.UserID); err != nil {
		return err
	}
	if _, ok := u.lookupUser(balance.UserID); !ok {
		return fmt.Errorf("failed to save balance: user %d does not exist", balance.UserID)
	}
	if balance.Amount.IsNegative() {
		return fmt.Errorf("failed to save balance for user %d: balance must not be negative", balance.UserID)
	}
	u.balances[balance.UserID] = *balance
	return nil
}

func (u *unit) AppendTransaction(ctx context.Context, txn *domain.Transaction) error {
	if err := u.checkLocked(txn.UserID); err != nil {
		return err
	}
	if _, ok := u.lookupUser(txn.UserID); !ok {
		return fmt.Errorf("failed to create transaction: user %d does not exist", txn.UserID)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("failed to create transaction: amount must be positive")
	}
	if txn.RelatedUserID != nil && !txn.Type.IsTransfer() {
		return fmt.Errorf("failed to create transaction: related user is only allowed on transfers, got %s", txn.Type)
	}
	u.pending = append(u.pending, txn)
	return nil
}
