//go:build integration

// internal/repository/postgres/ledger_store_integration_test.go
package postgres_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/events"
	"balance-ledger/internal/repository"
	"balance-ledger/internal/repository/postgres"
	"balance-ledger/internal/service"
	"balance-ledger/internal/util"
	"balance-ledger/migrations"
	"balance-ledger/pkg/db"
)

// setupPostgres starts a disposable PostgreSQL container, applies the schema and returns a connection.
func setupPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	database, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(database.DB, migrations.FS, "ledger_test", slog.Default()))
	return database
}

func newStore(database *sqlx.DB, lockTimeout time.Duration) *postgres.LedgerStore {
	return postgres.NewLedgerStore(
		database,
		database,
		postgres.NewUserRepository(),
		postgres.NewBalanceRepository(),
		postgres.NewTransactionRepository(),
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		lockTimeout,
	)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestIntegration_LedgerStore(t *testing.T) {
	database := setupPostgres(t)
	store := newStore(database, 2*time.Second)
	svc := service.NewLedgerService(store, service.NewUserProvisioner(), events.NopPublisher{}, slog.Default())
	ctx := context.Background()

	t.Run("DepositProvisionsUser", func(t *testing.T) {
		balance, txn, err := svc.Deposit(ctx, 999, amount("100.00"), nil)
		require.NoError(t, err)
		assert.Equal(t, "100.00", domain.FormatAmount(balance.Amount))
		assert.NotZero(t, txn.ID)

		var user domain.User
		require.NoError(t, database.GetContext(ctx, &user, `SELECT id, is_system_created, created_at, updated_at FROM users WHERE id = 999`))
		assert.True(t, user.IsSystemCreated)
	})

	t.Run("RollbackLeavesNoTrace", func(t *testing.T) {
		err := store.RunAtomic(ctx, []int64{1234}, func(ctx context.Context, unit repository.Unit) error {
			if _, err := unit.CreateUser(ctx, domain.NewSystemUser(1234)); err != nil {
				return err
			}
			b := domain.NewBalance(1234)
			b.Credit(amount("5.00"))
			if err := unit.SaveBalance(ctx, b); err != nil {
				return err
			}
			return util.ErrInsufficientFunds
		})
		assert.ErrorIs(t, err, util.ErrInsufficientFunds)

		_, err = store.GetBalance(ctx, 1234)
		assert.ErrorIs(t, err, util.ErrNotFound)
	})

	t.Run("TransferWritesLinkedRecords", func(t *testing.T) {
		_, _, err := svc.Deposit(ctx, 1, amount("300.00"), nil)
		require.NoError(t, err)
		_, _, err = svc.Deposit(ctx, 2, amount("100.00"), nil)
		require.NoError(t, err)

		comment := "gift"
		_, err = svc.Transfer(ctx, 1, 2, amount("150.00"), &comment)
		require.NoError(t, err)

		from, err := store.GetBalance(ctx, 1)
		require.NoError(t, err)
		to, err := store.GetBalance(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "150.00", domain.FormatAmount(from.Amount))
		assert.Equal(t, "250.00", domain.FormatAmount(to.Amount))

		history, total, err := store.GetTransactionsByUserID(ctx, 1, 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Equal(t, domain.TransactionTypeTransferOut, history[0].Type)
		require.NotNil(t, history[0].RelatedUserID)
		assert.EqualValues(t, 2, *history[0].RelatedUserID)
	})

	t.Run("ConcurrentDepositsDoNotLoseUpdates", func(t *testing.T) {
		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := svc.Deposit(ctx, 77, amount("1.25"), nil)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		balance, err := store.GetBalance(ctx, 77)
		require.NoError(t, err)
		assert.Equal(t, "25.00", domain.FormatAmount(balance.Amount))
	})

	t.Run("LockTimeoutSurfacesConflict", func(t *testing.T) {
		short := newStore(database, 100*time.Millisecond)
		held := make(chan struct{})
		release := make(chan struct{})
		done := make(chan error, 1)

		go func() {
			done <- store.RunAtomic(ctx, []int64{555}, func(ctx context.Context, unit repository.Unit) error {
				close(held)
				<-release
				return nil
			})
		}()
		<-held

		err := short.RunAtomic(ctx, []int64{555}, func(ctx context.Context, unit repository.Unit) error {
			return nil
		})
		close(release)

		assert.ErrorIs(t, err, util.ErrStorageConflict)
		require.NoError(t, <-done)
	})
}
