package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"blog/internal/auth"
	"blog/internal/config"
	"blog/internal/db"
	"blog/internal/handlers"
	"blog/internal/media"
	"blog/internal/observability"
	"blog/internal/store"
)

// app is the wiring shared by every command.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *sql.DB
	tokens  *auth.Manager
	storage *media.Storage
	stores  *store.Stores
}

func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	log := observability.InitLogger(cfg.ServiceName, cfg.LogLevel)

	dbc, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(ctx, dbc); err != nil {
		dbc.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	storage, err := media.NewStorage(cfg.MediaRoot, cfg.MediaURL)
	if err != nil {
		dbc.Close()
		return nil, err
	}

	tokens := auth.NewManager(dbc)
	janitor := &media.Janitor{Storage: storage, Log: log}

	return &app{
		cfg:     cfg,
		log:     log,
		db:      dbc,
		tokens:  tokens,
		storage: storage,
		stores:  store.New(dbc, tokens, janitor),
	}, nil
}

func (a *app) Close() {
	_ = a.log.Sync()
	a.db.Close()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply the schema and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			h := handlers.New(a.cfg, a.db, a.tokens, a.stores, a.storage, a.log)
			srv := &http.Server{
				Addr:              a.cfg.HTTPAddr,
				Handler:           h.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("listening", zap.String("addr", a.cfg.HTTPAddr), zap.String("media_root", a.storage.Root()))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.log.Info("received signal, initiating shutdown")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutCtx); err != nil {
				return err
			}
			a.log.Info("server stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			a.log.Info("schema applied", zap.String("database", a.cfg.DatabasePath))
			return nil
		},
	}
}

func deleteUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deleteuser <username>",
		Short: "Delete a user with its profile, posts and their images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.stores.Users.GetByUsername(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no user named %q", args[0])
			}
			if err != nil {
				return err
			}
			if err := a.stores.Users.Delete(cmd.Context(), u.ID); err != nil {
				return err
			}
			a.log.Info("user deleted", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
			fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", u.Username)
			return nil
		},
	}
}
