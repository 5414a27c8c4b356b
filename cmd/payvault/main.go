package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	driveadapter "github.com/ericfisherdev/payvault/internal/adapter/driven/drive"
	"github.com/ericfisherdev/payvault/internal/adapter/driven/googleauth"
	sqliteadapter "github.com/ericfisherdev/payvault/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/payvault/internal/adapter/driving/http"
	"github.com/ericfisherdev/payvault/internal/application"
	"github.com/ericfisherdev/payvault/internal/config"
	"github.com/ericfisherdev/payvault/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load optional .env, then configuration (fail fast on bad env vars).
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"folder_name", cfg.FolderName,
		"token_ttl", cfg.TokenTTL,
		"oauth_configured", cfg.HasOAuthClient(),
		"persistence_enabled", cfg.SecretKey != nil,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	authorizer := googleauth.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectAddr)

	// 6. Wire application services.
	auth := application.NewAuthSession(credentialStore, authorizer, cfg.TokenTTL)
	provider := application.NewDriveClientProvider(func(ctx context.Context, token string) (driven.DriveClient, error) {
		return driveadapter.NewClient(ctx, token, cfg.FolderName, cfg.FilePrefix)
	})
	syncSvc := application.NewSyncService(auth, provider)

	// 7. Warm up from a persisted credential; skipped silently when no fresh
	// credential exists, so startup never triggers an interactive consent flow.
	if cred, err := credentialStore.Load(ctx); err == nil && cred.FreshAt(time.Now(), cfg.TokenTTL) {
		go func() {
			if err := syncSvc.Refresh(ctx); err != nil {
				slog.Warn("initial refresh failed", "error", err)
			}
		}()
	}

	// 8. Create HTTP handler and server.
	apiHandler := httphandler.NewHandler(syncSvc, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("payvault started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal, then drain the HTTP server.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
