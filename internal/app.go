// internal/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	router "balance-ledger/internal/api"
	"balance-ledger/internal/api/handler"
	"balance-ledger/internal/config"
	"balance-ledger/internal/events"
	"balance-ledger/internal/events/kafka"
	"balance-ledger/internal/repository"
	"balance-ledger/internal/repository/memory"
	"balance-ledger/internal/repository/postgres"
	"balance-ledger/internal/service"
	"balance-ledger/internal/util"
	"balance-ledger/migrations"
	"balance-ledger/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB // nil on the memory backend

	Store     repository.LedgerStore
	Publisher events.Publisher

	// Services
	LedgerService service.LedgerService

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		util.InitLogger("info")
		app.Logger = util.GetLogger()
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.LogLevel)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.", "backend", cfg.Backend)

	// 3. Ledger store
	if err := app.initStore(); err != nil {
		return err
	}

	// 4. Event publisher
	if len(cfg.Kafka.Brokers) > 0 {
		app.Publisher = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		app.Logger.Info("Kafka publisher initialized.", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		app.Publisher = events.NopPublisher{}
		app.Logger.Info("No Kafka brokers configured, balance events are not published.")
	}

	// 5. Initialize Services
	app.LedgerService = service.NewLedgerService(
		app.Store,
		service.NewUserProvisioner(),
		app.Publisher,
		app.Logger,
	)
	app.Logger.Info("Services initialized.")

	// 6. Initialize HTTP Handlers and Router
	ledgerHandler := handler.NewLedgerHandler(app.LedgerService, app.Logger)
	app.HTTPHandler = router.NewRouter(ledgerHandler, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

func (app *Application) initStore() error {
	if app.Config.Backend == config.BackendMemory {
		app.Store = memory.NewLedgerStore(app.Config.LockTimeout)
		app.Logger.Warn("Using in-memory ledger store, data is lost on restart.")
		return nil
	}

	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	if app.Config.Migrate {
		if err := db.RunMigrations(database.DB, migrations.FS, app.Config.DB.DBName, app.Logger); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	// Pass the concrete db.BeginTx, db.CommitTx, db.RollbackTx functions from pkg/db
	app.Store = postgres.NewLedgerStore(
		app.DB, // This is the DBTxBeginner
		app.DB, // This is the DBExecutor
		postgres.NewUserRepository(),
		postgres.NewBalanceRepository(),
		postgres.NewTransactionRepository(),
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		app.Config.LockTimeout,
	)
	app.Logger.Info("Repositories initialized.")
	return nil
}

// HTTP server timeouts. Writes outlive the per-request handler timeout so its 503 reaches the client.
const (
	serverReadTimeout   = 10 * time.Second
	serverWriteSlack    = 5 * time.Second
	serverIdleTimeout   = 120 * time.Second
	ShutdownGracePeriod = handler.DefaultTimeout
)

// NewHTTPServer builds the HTTP server for the initialized handler.
func (app *Application) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:              ":" + app.Config.ServerPort,
		Handler:           app.HTTPHandler,
		ReadHeaderTimeout: serverReadTimeout,
		ReadTimeout:       serverReadTimeout,
		WriteTimeout:      handler.DefaultTimeout + serverWriteSlack,
		IdleTimeout:       serverIdleTimeout,
	}
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	var errs []error
	if app.Publisher != nil {
		if err := app.Publisher.Close(); err != nil {
			app.Logger.Error("Failed to close event publisher", "error", err)
			errs = append(errs, fmt.Errorf("failed to close event publisher: %w", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		} else {
			app.Logger.Info("Database connection closed.")
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
