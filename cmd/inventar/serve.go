package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/inventar/internal/app"
	"github.com/erazemk/inventar/internal/config"
)

func newServeCmd(c *cli) *cobra.Command {
	var adminName, adminEmail string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := ensureAdmin(ctx, a, cmd, adminName, adminEmail); err != nil {
				return err
			}
			return c.serve(ctx, a)
		},
	}
	cmd.Flags().StringVar(&adminName, "admin-name", "Admin", "Super Admin name on first run")
	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@localhost", "Super Admin email on first run")
	return cmd
}

// ensureAdmin creates the first Super Admin when the store has no users.
func ensureAdmin(ctx context.Context, a *app.App, cmd *cobra.Command, name, email string) error {
	users, err := a.Repo.Users(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	u, err := a.Users.Bootstrap(ctx, name, email, password)
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}
	printInitResult(cmd.OutOrStdout(), describeStore(a.Config), u.Email, password)
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func (c *cli) serve(ctx context.Context, a *app.App) error {
	log := c.log.Logger

	c.cfg.Watch(func(next *config.Config) {
		if err := c.log.SetLevel(next.Log.Level); err != nil {
			log.Warn("ignoring log level change", zap.Error(err))
			return
		}
		log.Info("config reloaded", zap.String("log_level", next.Log.Level))
	}, func(err error) {
		log.Warn("config reload failed", zap.Error(err))
	})

	handler, err := a.Handler(ctx)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              c.cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       c.cfg.Server.ReadTimeout,
		WriteTimeout:      c.cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		// Event streams end when the process is asked to stop.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server started", zap.String("addr", server.Addr), zap.String("storage", describeStore(c.cfg)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped, closing store")
	return nil
}

func describeStore(cfg *config.Config) string {
	if cfg.Storage.Backend == "redis" {
		return "redis://" + cfg.Storage.Redis.Addr
	}
	return cfg.Storage.Path
}
