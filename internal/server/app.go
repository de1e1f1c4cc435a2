// Package server wires the API server: Postgres storage, goose migrations,
// services, and the HTTP endpoint, with signal-driven shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/Psheikomaniac/cashcow-go/internal/logging"
	"github.com/Psheikomaniac/cashcow-go/internal/server/config"
	"github.com/Psheikomaniac/cashcow-go/internal/server/httpapi"
	"github.com/Psheikomaniac/cashcow-go/internal/server/migrations"
	"github.com/Psheikomaniac/cashcow-go/internal/server/services"
)

// App bundles the running server's dependencies.
type App struct {
	config *config.Config
	log    logging.Logger
	db     *sql.DB
	http   *httpapi.Server
}

// NewApp opens the database, applies migrations and wires the services.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := openDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	userService := services.NewUserService(db, c)
	penaltyService := services.NewPenaltyService(db)
	httpServer := httpapi.NewServer(c.EndpointAddr, log, userService, penaltyService, []byte(c.SecretKey))

	return &App{config: c, log: log, db: db, http: httpServer}, nil
}

func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return db, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a termination signal or a listener failure.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.log.Info(ctx, "starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.http.Run(ctx); err != nil {
		app.log.Error(ctx, "http server stopped", "error", err)
		return err
	}
	return nil
}
