// Package cli implements the interactive REPL of the penalty tracker client.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"os"

	"github.com/Psheikomaniac/cashcow-go/internal/client/config"
	"github.com/Psheikomaniac/cashcow-go/internal/client/connectivity"
	"github.com/Psheikomaniac/cashcow-go/internal/client/gateway"
	"github.com/Psheikomaniac/cashcow-go/internal/client/repositories/metadata"
	"github.com/Psheikomaniac/cashcow-go/internal/client/services"
	"github.com/Psheikomaniac/cashcow-go/internal/client/storage"
	clisync "github.com/Psheikomaniac/cashcow-go/internal/client/sync"
	"github.com/Psheikomaniac/cashcow-go/internal/logging"
)

// App wires the client together: local store, remote gateway, sync
// orchestrator, connectivity monitor and the REPL on top of them.
type App struct {
	config *config.Config
	log    logging.Logger

	db             *sql.DB
	authService    *services.AuthService
	penaltyService *services.PenaltyService
	orchestrator   *clisync.Orchestrator
	monitor        *connectivity.Monitor

	reader *bufio.Reader
}

// NewApp opens the local database and builds the full dependency graph.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := storage.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, err
	}

	a := &App{
		config: c,
		log:    log,
		db:     db,
		reader: bufio.NewReader(os.Stdin),
	}

	md := metadata.NewSQLiteRepository(db)

	// The auth service is the gateway's credential source, and the gateway is
	// the auth service's remote API; the gateway side is bound late.
	a.authService = services.NewAuthService(nil, md)
	gw := gateway.NewHTTPGateway(c.ServerURL, c.RequestTimeout, a.authService)
	a.authService.SetGateway(gw)

	a.orchestrator = clisync.New(db, gw, log, clisync.Config{
		BatchSize:      c.SyncBatchSize,
		AttemptCeiling: c.SyncAttemptCeiling,
		InitialBackoff: c.SyncInitialBackoff,
		MaxBackoff:     c.SyncMaxBackoff,
	})
	a.penaltyService = services.NewPenaltyService(db, a.orchestrator.TriggerSync)
	a.monitor = connectivity.NewMonitor(gw, log, c.OnlineCheckInterval, a.orchestrator.TriggerSync)

	return a, nil
}

// Run starts the background workers and enters the REPL. It returns when the
// user exits or input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.db.Close()

	go a.orchestrator.Run(ctx)
	go a.monitor.Run(ctx)

	a.Root(ctx)
}
