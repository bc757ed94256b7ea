package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"civicportal/internal/auth"
	"civicportal/internal/config"
	"civicportal/internal/db"
	"civicportal/internal/httpserver"
	"civicportal/internal/logging"
	"civicportal/internal/portal"
	"civicportal/internal/remote"
)

const purgeInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portal HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger := logging.New(cfg.LogLevel, cfg.LogFormat)
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, closeStore, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		sessions, err := auth.NewService(store, auth.Options{
			Secret: cfg.SessionSecret,
			TTL:    cfg.SessionTTL,
			Secure: cfg.SecureCookies,
		})
		if err != nil {
			return err
		}

		client := remote.New(cfg.APIBaseURL, cfg.UpstreamTimeout, logger)
		guard := auth.NewGuard(sessions, client, logger)
		pages, err := portal.New(logger, sessions, client, cfg.BoardCacheSize)
		if err != nil {
			return err
		}
		guard.OnRevoke(pages.Forget)

		go purgeSessions(ctx, sessions, logger)

		handler := httpserver.NewRouter(logger, cfg.AllowedOrigins, sessions, guard, pages)
		server := httpserver.New(cfg.HTTPAddr, handler, cfg.UpstreamTimeout, logger)
		logger.Info("portal configured", "api", cfg.APIBaseURL, "persistent_sessions", cfg.DBDSN != "")
		return server.Run(ctx)
	},
}

// openStore picks Postgres when a DSN is configured and an in-process store
// otherwise.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.Store, func(), error) {
	if cfg.DBDSN == "" {
		logger.Warn("no database configured, sessions will not survive a restart")
		return auth.NewMemoryStore(), func() {}, nil
	}
	dbConn, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Migrate(ctx, dbConn, "sql"); err != nil {
		dbConn.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return auth.NewPGStore(dbConn), func() { dbConn.Close() }, nil
}

func purgeSessions(ctx context.Context, sessions *auth.Service, logger *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Purge(ctx)
			if err != nil {
				logger.Error("purge sessions", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("purged idle sessions", "count", n)
			}
		}
	}
}
