// Package app wires configuration, storage, messaging and the module
// services into one runnable unit.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	nc "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"

	"github.com/Stouckie/Scrimpilot/api"
	arbservice "github.com/Stouckie/Scrimpilot/app/modules/arbitration/application"
	arbdb "github.com/Stouckie/Scrimpilot/app/modules/arbitration/infrastructure/repositories"
	ladderservice "github.com/Stouckie/Scrimpilot/app/modules/ladder/application"
	ladderdb "github.com/Stouckie/Scrimpilot/app/modules/ladder/infrastructure/repositories"
	scrimservice "github.com/Stouckie/Scrimpilot/app/modules/scrim/application"
	scrimqueue "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/queue"
	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
	teamservice "github.com/Stouckie/Scrimpilot/app/modules/team/application"
	teamdb "github.com/Stouckie/Scrimpilot/app/modules/team/infrastructure/repositories"
	userservice "github.com/Stouckie/Scrimpilot/app/modules/user/application"
	userdb "github.com/Stouckie/Scrimpilot/app/modules/user/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/app/shared/platform"
	"github.com/Stouckie/Scrimpilot/config"
	"github.com/Stouckie/Scrimpilot/internal/eventbus"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
	"github.com/Stouckie/Scrimpilot/internal/observability"
)

// App holds every running component.
type App struct {
	Cfg    *config.Config
	Logger *slog.Logger

	db       *bun.DB
	natsConn *nc.Conn
	bus      eventbus.EventBus
	queue    *scrimqueue.Service

	Users       *userservice.Service
	Teams       *teamservice.Service
	Scrims      *scrimservice.Service
	Ladders     *ladderservice.Service
	Arbitration *arbservice.Service

	httpServer *http.Server
}

// New wires the application from configuration.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := observability.NewLogger(cfg.Environment)
	metrics := observability.NewPrometheusMetrics(prometheus.DefaultRegisterer)
	tracer := observability.Tracer()

	db := ledger.OpenDB(cfg.Postgres.DSN)
	if err := ledger.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger schema: %w", err)
	}

	natsConn, err := nc.Connect(cfg.NATS.URL, nc.Name("scrimpilot"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	bus, err := eventbus.NewNATS(cfg.NATS.URL, logger)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	gateway := platform.NewGateway(natsConn, bus, logger)

	members := ledger.NewBunStore[userdb.Member](db, userdb.CollectionName, logger)
	teams := ledger.NewBunStore[teamdb.Team](db, teamdb.CollectionName, logger)
	orgs := ledger.NewBunStore[teamdb.Org](db, teamdb.OrgCollectionName, logger)
	scrims := ledger.NewBunStore[scrimdb.Scrim](db, scrimdb.CollectionName, logger)
	ladders := ledger.NewBunStore[ladderdb.Ladder](db, ladderdb.CollectionName, logger)
	tickets := ledger.NewBunStore[arbdb.Ticket](db, arbdb.CollectionName, logger)

	userSvc := userservice.NewService(members, logger, metrics, tracer)
	teamSvc := teamservice.NewService(teams, orgs, ladders, logger, metrics, tracer)
	arbSvc := arbservice.NewService(tickets, scrims, ladders, gateway,
		cfg.Arbitration.ConflictFallback, logger, metrics, tracer)

	queue, err := scrimqueue.NewService(ctx, cfg.Postgres.DSN, db, gateway,
		cfg.Scheduler.NoShowGrace, logger, metrics)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to create match queue: %w", err)
	}

	scrimSvc := scrimservice.NewService(scrims, teams, members,
		reliabilityAdapter{teamSvc}, arbSvc, queue, gateway, gateway,
		cfg.Scheduler.CheckInRequired, logger, metrics, tracer)
	queue.BindNoShow(scrimSvc)

	ladderSvc := ladderservice.NewService(ladders, teams, members, arbSvc, gateway,
		logger, metrics, tracer)

	server := api.NewServer(*cfg, userSvc, teamSvc, scrimSvc, ladderSvc, arbSvc, logger)

	return &App{
		Cfg:         cfg,
		Logger:      logger,
		db:          db,
		natsConn:    natsConn,
		bus:         bus,
		queue:       queue,
		Users:       userSvc,
		Teams:       teamSvc,
		Scrims:      scrimSvc,
		Ladders:     ladderSvc,
		Arbitration: arbSvc,
		httpServer: &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: server.Router(),
		},
	}, nil
}

// reliabilityAdapter narrows the team service to what the scrim service
// needs.
type reliabilityAdapter struct {
	teams *teamservice.Service
}

func (a reliabilityAdapter) ApplyPenalty(ctx context.Context, teamID string, delta float64, cooldown time.Duration, reason string) error {
	_, err := a.teams.ApplyReliabilityChange(ctx, teamID, delta, cooldown, reason)
	return err
}

// Run starts the queue and the HTTP listener, re-registering timers for
// every active match first, and blocks until the context ends.
func (a *App) Run(ctx context.Context) error {
	if err := a.queue.Start(ctx); err != nil {
		return err
	}
	active, err := a.Scrims.ActiveScrims(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active matches: %w", err)
	}
	if err := a.queue.Resync(ctx, active); err != nil {
		return fmt.Errorf("failed to resync match timers: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("HTTP API listening", slog.String("addr", a.Cfg.HTTP.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown stops every component, releasing resources in reverse order.
func (a *App) Shutdown(ctx context.Context) {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown failed", slog.Any("error", err))
	}
	if err := a.queue.Stop(ctx); err != nil {
		a.Logger.Error("Queue shutdown failed", slog.Any("error", err))
	}
	if err := a.bus.Close(); err != nil {
		a.Logger.Error("Event bus close failed", slog.Any("error", err))
	}
	a.natsConn.Close()
	if err := a.db.Close(); err != nil {
		a.Logger.Error("Database close failed", slog.Any("error", err))
	}
}
