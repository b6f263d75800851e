// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	app "balance-ledger/internal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.NewApplication()
	if err := application.Initialize(ctx); err != nil {
		application.Logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	server := application.NewHTTPServer()
	serverErr := make(chan error, 1)
	go func() {
		application.Logger.Info("Starting HTTP server", "addr", server.Addr, "backend", application.Config.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		application.Logger.Info("Shutdown signal received")
	case err := <-serverErr:
		application.Logger.Error("HTTP server stopped unexpectedly", "error", err)
		exitCode = 1
	}

	// In-flight requests get as long as the handler timeout allows them.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownGracePeriod)

	if err := server.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error("HTTP server shutdown failed", "error", err)
		exitCode = 1
	}
	if err := application.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error("Application shutdown failed", "error", err)
		exitCode = 1
	}

	cancel()
	stop()

	application.Logger.Info("Ledger stopped", "exit_code", exitCode)
	os.Exit(exitCode)
}
