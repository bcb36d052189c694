// Package server initializes and runs the application server. It opens the
// database, runs migrations, wires the payment gateway, blob store and
// mailer into the services, handles graceful shutdown and starts the public
// HTTP endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/corrigo/corrigo/internal/logging"
	"github.com/corrigo/corrigo/internal/server/config"
	"github.com/corrigo/corrigo/internal/server/httpapi"
	"github.com/corrigo/corrigo/internal/server/mail"
	"github.com/corrigo/corrigo/internal/server/payment"
	"github.com/corrigo/corrigo/internal/server/repositories/repomanager"
	"github.com/corrigo/corrigo/internal/server/services"
	"github.com/corrigo/corrigo/internal/server/storage"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs, err := storage.NewS3BlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	gateway := payment.NewStripeGateway(cfg.StripeAPIKey, cfg.StripeWebhookSecret)
	mailer := mail.NewSMTPMailer(cfg)

	custodian := services.NewFileCustodian(db, repos, blobs, logger)
	orderService := services.NewOrderService(db, repos, gateway, custodian, cfg, logger)
	activationService := services.NewActivationService(db, repos, custodian, mailer, cfg, logger)
	webhookService := services.NewWebhookService(db, repos, gateway, activationService, mailer, cfg, logger)

	handler := httpapi.NewHandler(orderService, activationService, webhookService, logger)
	httpServer := httpapi.NewServer(cfg.EndpointAddrHTTP, handler, logger)

	return &App{config: cfg, logger: logger, db: db, httpServer: httpServer}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
