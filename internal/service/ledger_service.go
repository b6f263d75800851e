// internal/service/ledger_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/events"
	"balance-ledger/internal/repository"
	"balance-ledger/internal/util"
)

// Pagination bounds for transaction history.
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// LedgerService defines the balance-affecting operations of the ledger.
type LedgerService interface {
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal, comment *string) (*domain.Balance, *domain.Transaction, error)
	Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, comment *string) (*domain.Balance, *domain.Transaction, error)
	Transfer(ctx context.Context, fromUserID, toUserID int64, amount decimal.Decimal, comment *string) (*domain.TransferResult, error)
	GetBalance(ctx context.Context, userID int64) (*domain.Balance, error)
	GetTransactionHistory(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, int64, error)
}

// ledgerService implements the LedgerService interface. It holds no per-request state.
type ledgerService struct {
	store       repository.LedgerStore
	provisioner UserProvisioner
	publisher   events.Publisher
	logger      *slog.Logger
}

// NewLedgerService creates a new instance of LedgerService.
func NewLedgerService(
	store repository.LedgerStore,
	provisioner UserProvisioner,
	publisher events.Publisher,
	logger *slog.Logger,
) LedgerService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ledgerService{
		store:       store,
		provisioner: provisioner,
		publisher:   publisher,
		logger:      logger,
	}
}

// Deposit credits a user's balance, provisioning the user on first use.
func (s *ledgerService) Deposit(ctx context.Context, userID int64, amount decimal.Decimal, comment *string) (*domain.Balance, *domain.Transaction, error) {
	if err := validateMovement(userID, amount, comment); err != nil {
		return nil, nil, s.fail("deposit", fmt.Errorf("deposit: %w", err), slog.Int64("user_id", userID))
	}

	var (
		balance     *domain.Balance
		transaction *domain.Transaction
		provisioned bool
	)
	err := s.store.RunAtomic(ctx, []int64{userID}, func(ctx context.Context, unit repository.Unit) error {
		existed, err := s.provisioner.EnsureUser(ctx, unit, userID)
		if err != nil {
			return err
		}
		provisioned = !existed
		b, err := loadOrInitBalance(ctx, unit, userID)
		if err != nil {
			return err
		}
		if err := credit(b, amount); err != nil {
			return err
		}
		if err := unit.SaveBalance(ctx, b); err != nil {
			return err
		}
		t := domain.NewTransaction(userID, domain.TransactionTypeDeposit, amount, comment, nil)
		if err := unit.AppendTransaction(ctx, t); err != nil {
			return err
		}
		balance, transaction = b, t
		return nil
	})
	if err != nil {
		return nil, nil, s.fail("deposit", fmt.Errorf("deposit: %w", err), slog.Int64("user_id", userID))
	}
	if provisioned {
		s.logProvisioned(userID)
	}

	s.publish(ctx, events.NewBalanceChanged(transaction, balance))
	return balance, transaction, nil
}

// Withdraw debits an existing user's balance.
func (s *ledgerService) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, comment *string) (*domain.Balance, *domain.Transaction, error) {
	if err := validateMovement(userID, amount, comment); err != nil {
		return nil, nil, s.fail("withdraw", fmt.Errorf("withdraw: %w", err), slog.Int64("user_id", userID))
	}

	var (
		balance     *domain.Balance
		transaction *domain.Transaction
	)
	err := s.store.RunAtomic(ctx, []int64{userID}, func(ctx context.Context, unit repository.Unit) error {
		b, err := unit.GetBalance(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get balance of user %d: %w", userID, err)
		}
		if !b.Debit(amount) {
			return util.ErrInsufficientFunds
		}
		if err := unit.SaveBalance(ctx, b); err != nil {
			return err
		}
		t := domain.NewTransaction(userID, domain.TransactionTypeWithdraw, amount, comment, nil)
		if err := unit.AppendTransaction(ctx, t); err != nil {
			return err
		}
		balance, transaction = b, t
		return nil
	})
	if err != nil {
		return nil, nil, s.fail("withdraw", fmt.Errorf("withdraw: %w", err), slog.Int64("user_id", userID))
	}

	s.publish(ctx, events.NewBalanceChanged(transaction, balance))
	return balance, transaction, nil
}

// Transfer moves money between two users, provisioning the recipient if needed.
func (s *ledgerService) Transfer(ctx context.Context, fromUserID, toUserID int64, amount decimal.Decimal, comment *string) (*domain.TransferResult, error) {
	attrs := []any{slog.Int64("from_user_id", fromUserID), slog.Int64("to_user_id", toUserID)}
	if !domain.ValidUserID(fromUserID) || !domain.ValidUserID(toUserID) {
		return nil, s.fail("transfer", fmt.Errorf("transfer: %w: user id must be positive", util.ErrInvalidInput), attrs...)
	}
	if fromUserID == toUserID {
		return nil, s.fail("transfer", fmt.Errorf("transfer: %w", util.ErrSameUserTransfer), attrs...)
	}
	if err := validateMovement(fromUserID, amount, comment); err != nil {
		return nil, s.fail("transfer", fmt.Errorf("transfer: %w", err), attrs...)
	}

	var (
		result      *domain.TransferResult
		provisioned bool
	)
	err := s.store.RunAtomic(ctx, []int64{fromUserID, toUserID}, func(ctx context.Context, unit repository.Unit) error {
		from, err := unit.GetBalance(ctx, fromUserID)
		if err != nil {
			return fmt.Errorf("failed to get balance of user %d: %w", fromUserID, err)
		}
		if !from.Debit(amount) {
			return util.ErrInsufficientFunds
		}

		existed, err := s.provisioner.EnsureUser(ctx, unit, toUserID)
		if err != nil {
			return err
		}
		provisioned = !existed
		to, err := loadOrInitBalance(ctx, unit, toUserID)
		if err != nil {
			return err
		}
		if err := credit(to, amount); err != nil {
			return err
		}

		if err := unit.SaveBalance(ctx, from); err != nil {
			return err
		}
		if err := unit.SaveBalance(ctx, to); err != nil {
			return err
		}

		out := domain.NewTransaction(fromUserID, domain.TransactionTypeTransferOut, amount, comment, &toUserID)
		if err := unit.AppendTransaction(ctx, out); err != nil {
			return err
		}
		in := domain.NewTransaction(toUserID, domain.TransactionTypeTransferIn, amount, comment, &fromUserID)
		if err := unit.AppendTransaction(ctx, in); err != nil {
			return err
		}

		result = &domain.TransferResult{From: from, To: to, Out: out, In: in}
		return nil
	})
	if err != nil {
		return nil, s.fail("transfer", fmt.Errorf("transfer: %w", err), attrs...)
	}
	if provisioned {
		s.logProvisioned(toUserID)
	}

	s.publish(ctx,
		events.NewBalanceChanged(result.Out, result.From),
		events.NewBalanceChanged(result.In, result.To),
	)
	return result, nil
}

// GetBalance reads a user's committed balance. It never provisions.
func (s *ledgerService) GetBalance(ctx context.Context, userID int64) (*domain.Balance, error) {
	if !domain.ValidUserID(userID) {
		return nil, fmt.Errorf("get balance: %w: user id must be positive", util.ErrInvalidInput)
	}
	balance, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		return nil, s.fail("get_balance", fmt.Errorf("get balance: %w", err), slog.Int64("user_id", userID))
	}
	return balance, nil
}

// GetTransactionHistory returns a page of a user's records, newest first, and the total count.
func (s *ledgerService) GetTransactionHistory(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, int64, error) {
	if !domain.ValidUserID(userID) {
		return nil, 0, fmt.Errorf("get transaction history: %w: user id must be positive", util.ErrInvalidInput)
	}
	if offset < 0 {
		return nil, 0, fmt.Errorf("get transaction history: %w: offset must not be negative", util.ErrInvalidInput)
	}
	limit = HistoryLimit(limit)

	if _, err := s.store.GetBalance(ctx, userID); err != nil {
		return nil, 0, s.fail("get_transaction_history", fmt.Errorf("get transaction history: %w", err), slog.Int64("user_id", userID))
	}
	transactions, total, err := s.store.GetTransactionsByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, s.fail("get_transaction_history", fmt.Errorf("get transaction history: %w", err), slog.Int64("user_id", userID))
	}
	return transactions, total, nil
}

// HistoryLimit returns the page size actually served for a requested limit.
func HistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}

// validateMovement checks the inputs shared by every balance-changing operation.
func validateMovement(userID int64, amount decimal.Decimal, comment *string) error {
	if !domain.ValidUserID(userID) {
		return fmt.Errorf("%w: user id must be positive", util.ErrInvalidInput)
	}
	if !domain.ValidAmount(amount) {
		return fmt.Errorf("%w: amount must be positive with at most %d decimal places", util.ErrInvalidInput, domain.AmountScale)
	}
	if !domain.ValidComment(comment) {
		return fmt.Errorf("%w: comment must be at most %d characters", util.ErrInvalidInput, domain.MaxCommentLength)
	}
	return nil
}

// loadOrInitBalance returns the user's balance, or a fresh 0.00 balance when the row is missing.
func loadOrInitBalance(ctx context.Context, unit repository.Unit, userID int64) (*domain.Balance, error) {
	balance, err := unit.GetBalance(ctx, userID)
	if errors.Is(err, util.ErrNotFound) {
		return domain.NewBalance(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of user %d: %w", userID, err)
	}
	return balance, nil
}

func credit(balance *domain.Balance, amount decimal.Decimal) error {
	balance.Credit(amount)
	if balance.Amount.GreaterThan(domain.MaxAmount) {
		return fmt.Errorf("%w: balance of user %d would exceed %s", util.ErrInvalidInput, balance.UserID, domain.FormatAmount(domain.MaxAmount))
	}
	return nil
}

func (s *ledgerService) logProvisioned(userID int64) {
	s.logger.Info("user auto-provisioned", slog.Int64("user_id", userID))
}

// publish emits events after commit. Failures are logged and never reach the caller.
func (s *ledgerService) publish(ctx context.Context, evts ...events.BalanceChanged) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evts...); err != nil {
		s.logger.Error("failed to publish balance events", "error", err, "count", len(evts))
	}
}

// fail logs err at a level matching its kind and returns it unchanged.
func (s *ledgerService) fail(op string, err error, attrs ...any) error {
	attrs = append(attrs, slog.String("op", op), slog.String("kind", string(util.KindOf(err))))
	switch {
	case util.IsBusiness(err):
		s.logger.Info("ledger operation rejected", append(attrs, slog.String("reason", err.Error()))...)
	case util.KindOf(err) == util.KindStorageConflict:
		s.logger.Warn("ledger operation not applied", append(attrs, slog.String("error", err.Error()))...)
	default:
		s.logger.Error("ledger operation failed", append(attrs, slog.String("error", err.Error()))...)
	}
	return err
}
