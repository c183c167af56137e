// Package server wires the mediashare components together and runs the
// HTTP API until the process is asked to stop.
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
	"time"

	"github.com/dmitrijs2005/mediashare/internal/logging"
	"github.com/dmitrijs2005/mediashare/internal/server/auth"
	"github.com/dmitrijs2005/mediashare/internal/server/config"
	"github.com/dmitrijs2005/mediashare/internal/server/httpapi"
	"github.com/dmitrijs2005/mediashare/internal/server/media"
	"github.com/dmitrijs2005/mediashare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mediashare/internal/server/services"
)

const startupTimeout = 15 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	http     *httpapi.HTTPServer
	shutdown []func() error
}

// openDB is a seam for tests.
var openDB = func(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, slog.LevelInfo)

	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	hasher := auth.NewBcryptHasher(c.BcryptCost)
	rm := repomanager.NewPostgresRepositoryManager(hasher)
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	gw, err := media.NewS3Gateway(ctx, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("media gateway init error: %w", err)
	}

	tokens := auth.NewTokenService(c)
	registrar := services.NewRegistrationService(db, rm, gw, logger)
	sessions := services.NewSessionService(db, rm, tokens, hasher, logger)
	accounts := services.NewAccountService(db, rm, gw, hasher, logger)

	hs, err := httpapi.NewHTTPServer(c, logger, registrar, sessions, accounts)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("http server init error: %w", err)
	}

	return &App{config: c, logger: logger, db: db, http: hs, shutdown: []func() error{db.Close}}, nil
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "address", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	for _, f := range app.shutdown {
		if err := f(); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
