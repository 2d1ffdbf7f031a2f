// Package main our entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/johndosdos/hybridchat/internal/auth"
	"github.com/johndosdos/hybridchat/internal/broker"
	"github.com/johndosdos/hybridchat/internal/config"
	"github.com/johndosdos/hybridchat/internal/database"
	"github.com/johndosdos/hybridchat/internal/handler"
	ratelimiter "github.com/johndosdos/hybridchat/internal/rate_limiter"
	ws "github.com/johndosdos/hybridchat/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(cfg.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting application...")

	// Init DB
	dbConn, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := migrate(dbConn); err != nil {
		return err
	}

	dbQueries := database.New(dbConn)

	// The in-memory registry starts empty, so nobody is online yet.
	if err := dbQueries.ResetPresence(ctx); err != nil {
		return err
	}
	if err := seedAdmin(ctx, dbQueries, cfg); err != nil {
		return err
	}

	var wg sync.WaitGroup

	// The persister outlives the hub so presence changes from the final
	// disconnects still reach the database.
	persistCtx, stopPersist := context.WithCancel(context.Background())
	defer stopPersist()
	persister := broker.NewPersister(dbQueries, cfg.PersistWorkers, cfg.PersistQueue)
	wg.Add(1)
	go func() {
		defer wg.Done()
		persister.Run(persistCtx)
	}()

	// hub.Run is our central hub that is always listening for client related events.
	hub := ws.NewHub(persister)
	go hub.Run(ctx)

	authLimiter := ratelimiter.NewIPRateLimiter(cfg.AuthRate, cfg.AuthWindow, ratelimiter.CleanupOpts{
		TTL:      10 * cfg.AuthWindow,
		Interval: cfg.AuthWindow,
	})
	defer authLimiter.Stop()

	// No read or write timeouts: websocket and event-stream connections are
	// long lived.
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		Handler: handler.NewRouter(handler.RouterOpts{
			Store: dbQueries,
			Hub:   hub,
			Tokens: handler.TokenOpts{
				Issuer: cfg.JWTIssuer,
				Secret: cfg.JWTSecret,
				TTL:    cfg.TokenTTL,
			},
			AllowedOrigins: cfg.AllowedOrigins,
			AuthLimiter:    authLimiter,
			EventsInterval: cfg.EventsInterval,
			Ws: handler.WsOpts{
				OriginPatterns: cfg.AllowedOrigins,
				SendBuffer:     cfg.SendBuffer,
				MaxFrameBytes:  cfg.MaxFrameBytes,
				PingInterval:   cfg.PingInterval,
				MessageRate:    cfg.MessageRate,
				MessageWindow:  cfg.MessageWindow,
				RequireToken:   cfg.WSRequireToken,
				Verifier:       auth.Verifier{Secret: cfg.JWTSecret},
			},
		}),
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received; shutting down...")
	case err := <-serverErr:
		stop()
		<-hub.Done()
		stopPersist()
		wg.Wait()
		return err
	}

	// Closing the hub retires every client, which ends their handlers.
	<-hub.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown incomplete", "error", err)
	}

	stopPersist()
	wg.Wait()

	slog.Info("Server stopped")
	return nil
}

func migrate(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return database.Migrate(db)
}

// ErrAdminNameTaken means the configured admin username belongs to a regular
// account.
var ErrAdminNameTaken = errors.New("admin username is taken by a non-admin account")

type adminStore interface {
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	GetUserByUsername(ctx context.Context, username string) (database.User, error)
}

// seedAdmin creates the admin account named by ADMIN_USERNAME, ADMIN_EMAIL and
// ADMIN_PASSWORD when the email and password are set. An existing admin
// account is left untouched.
func seedAdmin(ctx context.Context, db adminStore, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	hashedPw, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	_, err = db.CreateUser(ctx, database.CreateUserParams{
		FirstName:      "Admin",
		LastName:       "User",
		Username:       cfg.AdminUsername,
		Email:          cfg.AdminEmail,
		HashedPassword: hashedPw,
		IsAdmin:        true,
	})
	switch {
	case errors.Is(err, database.ErrDuplicateUser):
		return checkExistingAdmin(ctx, db, cfg)
	case err != nil:
		return err
	}

	slog.Info("admin account created", "username", cfg.AdminUsername, "email", cfg.AdminEmail)
	return nil
}

// checkExistingAdmin runs when the admin insert collided with an existing row.
// The collision may be on the email rather than the username, so only a row
// under the admin username that is not an admin is an error.
func checkExistingAdmin(ctx context.Context, db adminStore, cfg config.Config) error {
	existing, err := db.GetUserByUsername(ctx, cfg.AdminUsername)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return fmt.Errorf("seed admin: email %s is already registered to another user", cfg.AdminEmail)
	case err != nil:
		return fmt.Errorf("seed admin: %w", err)
	case !existing.IsAdmin:
		return fmt.Errorf("seed admin %q: %w", cfg.AdminUsername, ErrAdminNameTaken)
	}

	slog.Debug("admin account already exists", "username", cfg.AdminUsername)
	return nil
}
