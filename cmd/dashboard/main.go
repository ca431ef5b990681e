package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/STTM-NSU/tradier-dashboard/internal/config"
	"github.com/STTM-NSU/tradier-dashboard/internal/journal"
	"github.com/STTM-NSU/tradier-dashboard/internal/logger"
	"github.com/STTM-NSU/tradier-dashboard/internal/orders"
	"github.com/STTM-NSU/tradier-dashboard/internal/postgres"
	"github.com/STTM-NSU/tradier-dashboard/internal/refresh"
	"github.com/STTM-NSU/tradier-dashboard/internal/server"
	"github.com/STTM-NSU/tradier-dashboard/internal/session"
	"github.com/STTM-NSU/tradier-dashboard/internal/tradier"
)

const (
	_dashboardCfgFilePath = "./configs/dashboard.yaml"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadDashboardConfig(_dashboardCfgFilePath)
	if err != nil {
		log.Fatalf("%s: can't load dashboard cfg", err)
	}

	zapLogger, loggerSync, err := logger.NewZapLogger(logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		log.Fatalf("%s: can't init logger", err)
	}
	defer loggerSync()

	if envErr != nil {
		zapLogger.Warnf("can't detect .env file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := tradier.NewClient(cfg.Tradier, zapLogger)
	defer client.Close()
	zapLogger.Infof("tradier %s environment at %s", cfg.Tradier.Environment, client.Endpoint())

	var recorder journal.Recorder = journal.NewMemory(cfg.Journal.Size)
	if cfg.Journal.Enabled {
		pgConfig := postgres.NewConfigFromEnv().Setup()
		zapLogger.Debugf("trying to connect to db at %s:%s/%s", pgConfig.Host, pgConfig.Port, pgConfig.DBName)
		db, err := postgres.NewDB(ctx, pgConfig)
		if err != nil {
			zapLogger.Fatalf("%s: can't connect to db", err)
		}
		defer db.Close()

		pgJournal := journal.NewPostgres(db)
		if err := pgJournal.Migrate(ctx); err != nil {
			zapLogger.Fatalf("%s: can't migrate journal", err)
		}
		recorder = pgJournal
	}

	store := session.NewStore()
	coordinator := refresh.NewCoordinator(client, store, cfg.Refresh, zapLogger)
	workflow := orders.NewWorkflow(client, store, coordinator, recorder, cfg.Orders, zapLogger)

	router := server.NewRouter(server.Deps{
		Store:     store,
		Refresher: coordinator,
		Orders:    workflow,
		Gateway:   client,
		Journal:   recorder,
	}, zapLogger)
	httpServer := server.NewHTTPServer(ctx, cfg.Server.Port, router, zapLogger)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		coordinator.Run(gCtx)
		return nil
	})
	g.Go(func() error {
		return httpServer.Run(gCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Errorf("%s: dashboard stopped with error", err)
	}
	zapLogger.Infoln("graceful shutdown finished")
}
