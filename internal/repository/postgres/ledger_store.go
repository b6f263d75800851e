// internal/repository/postgres/ledger_store.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/repository"
	"balance-ledger/pkg/db"
)

const (
	setLockTimeoutQuery = `SELECT set_config('lock_timeout', $1, true)`
	advisoryLockQuery   = `SELECT pg_advisory_xact_lock($1)`
)

// LedgerStore implements repository.LedgerStore on PostgreSQL.
// Per-user exclusivity comes from transaction-scoped advisory locks keyed by user ID, which also
// cover users that have no rows yet.
type LedgerStore struct {
	dbBeginner      db.DBTxBeginner       // For starting transactions (e.g., *sqlx.DB)
	dbExecutor      repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	userRepo        repository.UserRepository
	balanceRepo     repository.BalanceRepository
	transactionRepo repository.TransactionRepository
	beginTx         db.BeginTxFunc
	commitTx        db.CommitTxFunc
	rollbackTx      db.RollbackTxFunc
	lockTimeout     time.Duration
}

// NewLedgerStore creates a new PostgreSQL-backed LedgerStore.
func NewLedgerStore(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	userRepo repository.UserRepository,
	balanceRepo repository.BalanceRepository,
	transactionRepo repository.TransactionRepository,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	lockTimeout time.Duration,
) *LedgerStore {
	if lockTimeout <= 0 {
		lockTimeout = repository.DefaultLockTimeout
	}
	return &LedgerStore{
		dbBeginner:      dbBeginner,
		dbExecutor:      dbExecutor,
		userRepo:        userRepo,
		balanceRepo:     balanceRepo,
		transactionRepo: transactionRepo,
		beginTx:         beginTx,
		commitTx:        commitTx,
		rollbackTx:      rollbackTx,
		lockTimeout:     lockTimeout,
	}
}

// GetBalance reads the committed balance of a user.
func (s *LedgerStore) GetBalance(ctx context.Context, userID int64) (*domain.Balance, error) {
	balance, err := s.balanceRepo.GetBalanceByUserID(ctx, s.dbExecutor, userID)
	if err != nil {
		return nil, classifyError(err)
	}
	return balance, nil
}

// GetTransactionsByUserID reads one page of committed history.
func (s *LedgerStore) GetTransactionsByUserID(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, int64, error) {
	transactions, total, err := s.transactionRepo.GetTransactionsByUserID(ctx, s.dbExecutor, userID, limit, offset)
	if err != nil {
		return nil, 0, classifyError(err)
	}
	return transactions, total, nil
}

// RunAtomic runs fn inside one database transaction holding advisory locks on userIDs.
func (s *LedgerStore) RunAtomic(ctx context.Context, userIDs []int64, fn repository.AtomicFunc) error {
	ids := repository.LockOrder(userIDs)

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return classifyError(fmt.Errorf("run atomic: failed to begin transaction: %w", err))
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("run atomic: transaction controller does not implement DBExecutor")
	}

	if _, err := txExecutor.ExecContext(ctx, setLockTimeoutQuery, formatTimeout(s.lockTimeout)); err != nil {
		return classifyError(fmt.Errorf("run atomic: failed to set lock timeout: %w", err))
	}
	for _, id := range ids {
		if _, err := txExecutor.ExecContext(ctx, advisoryLockQuery, id); err != nil {
			return classifyError(fmt.Errorf("run atomic: failed to lock user %d: %w", id, err))
		}
	}

	unit := &pgUnit{
		q:               txExecutor,
		userRepo:        s.userRepo,
		balanceRepo:     s.balanceRepo,
		transactionRepo: s.transactionRepo,
	}
	if err := fn(ctx, unit); err != nil {
		return classifyError(err)
	}

	if err := s.commitTx(txController); err != nil {
		return classifyError(fmt.Errorf("run atomic: failed to commit transaction: %w", err))
	}
	return nil
}

func formatTimeout(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// pgUnit binds the repositories to one open transaction.
type pgUnit struct {
	q               repository.DBExecutor
	userRepo        repository.UserRepository
	balanceRepo     repository.BalanceRepository
	transactionRepo repository.TransactionRepository
}

func (u *pgUnit) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return u.userRepo.GetUserByID(ctx, u.q, userID)
}

func (u *pgUnit) CreateUser(ctx context.Context, user *domain.User) (bool, error) {
	return u.userRepo.CreateUser(ctx, u.q, user)
}

func (u *pgUnit) GetBalance(ctx context.Context, userID int64) (*domain.Balance, error) {
	return u.balanceRepo.GetBalanceByUserID(ctx, u.q, userID)
}

func (u *pgUnit) SaveBalance(ctx context.Context, balance *domain.Balance) error {
	return u.balanceRepo.UpsertBalance(ctx, u.q, balance)
}

func (u *pgUnit) AppendTransaction(ctx context.Context, txn *domain.Transaction) error {
	return u.transactionRepo.CreateTransaction(ctx, u.q, txn)
}

var _ repository.LedgerStore = (*LedgerStore)(nil)
