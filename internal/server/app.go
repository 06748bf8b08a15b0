// Package server initializes and runs the identity server. It opens the
// database, runs migrations, wires the authentication service with its
// collaborators, and manages graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rendlabs/rend/internal/logging"
	"github.com/rendlabs/rend/internal/server/config"
	"github.com/rendlabs/rend/internal/server/googleauth"
	"github.com/rendlabs/rend/internal/server/httpapi"
	"github.com/rendlabs/rend/internal/server/mail"
	"github.com/rendlabs/rend/internal/server/repositories/repomanager"
	"github.com/rendlabs/rend/internal/server/services"
	"github.com/rendlabs/rend/internal/server/wallet"
)

const (
	noncePurgeInterval = time.Minute
	shutdownTimeout    = 10 * time.Second
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	authService *services.AuthService
	httpServer  *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	google := googleauth.New(googleauth.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
	})

	var mailer mail.Mailer
	if cfg.EmailFrom != "" {
		mailer = mail.NewSESMailer(cfg)
	} else {
		mailer = mail.NewLogMailer(logger)
	}

	authService := services.NewAuthService(db, rm, cfg, wallet.DefaultVerifiers(), google, mailer, logger)
	httpServer := httpapi.NewServer(authService, cfg, logger)

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		authService: authService,
		httpServer:  httpServer,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runNonceJanitor periodically evicts expired wallet challenges until ctx is
// cancelled.
func (app *App) runNonceJanitor(ctx context.Context) {
	ticker := time.NewTicker(noncePurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := app.authService.PurgeExpiredNonces(ctx)
			if err != nil {
				app.logger.Error(ctx, "nonce purge failed", "error", err)
				continue
			}
			if deleted > 0 {
				app.logger.Debug(ctx, "purged expired nonces", "count", deleted)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runNonceJanitor(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Start(); err != nil && err != http.ErrServerClosed {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "http shutdown error", "error", err)
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}

	app.logger.Info(context.Background(), "app stopped")
}
