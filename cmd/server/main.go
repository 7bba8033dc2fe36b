package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"labyrinth/app/internal/config"
	appdb "labyrinth/app/internal/db"
	apphttp "labyrinth/app/internal/http"
	"labyrinth/app/internal/labyrinth"
	applog "labyrinth/app/internal/log"
	"labyrinth/app/internal/metrics"
	"labyrinth/app/internal/tarpit"
	"labyrinth/app/internal/visitor"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}
	defer flush()

	dbConn, err := appdb.Open(appdb.Options{Path: cfg.DBPath})
	if err != nil {
		return eris.Wrap(err, "opening database")
	}
	defer func() {
		if closeErr := appdb.Close(dbConn); closeErr != nil {
			logger.WithError(closeErr).Error("closing database")
		}
	}()

	if err := visitor.Migrate(ctx, dbConn, logger); err != nil {
		return eris.Wrap(err, "running migrations")
	}

	visits, err := visitor.NewRepository(dbConn, logger)
	if err != nil {
		return eris.Wrap(err, "building visit repository")
	}

	trapMetrics := metrics.New()

	generator := labyrinth.NewGenerator(labyrinth.GeneratorOptions{
		Logger:    logger,
		SentryHub: sentryHub,
		Metrics:   trapMetrics,
	})

	pageParams := labyrinth.RawParams{
		labyrinth.ParamCorpus:   cfg.CorpusPath,
		labyrinth.ParamBasePath: cfg.BasePath,
	}
	if cfg.BlockSize != "" {
		pageParams[labyrinth.ParamBlockSize] = cfg.BlockSize
	}
	if cfg.TotalSize != "" {
		pageParams[labyrinth.ParamTotalSize] = cfg.TotalSize
	}

	transport, err := apphttp.NewServer(apphttp.Options{
		Generator:  generator,
		Visits:     visits,
		Tarpit:     tarpit.New(tarpit.Options{Logger: logger, Metrics: trapMetrics}),
		Database:   dbConn,
		Logger:     logger,
		SentryHub:  sentryHub,
		Metrics:    trapMetrics,
		PageParams: pageParams,
		RateLimiter: apphttp.RateLimiterSettings{
			RequestsPerSecond: cfg.RateLimitPerSecond,
			Burst:             cfg.RateLimitBurst,
			ClientTTL:         cfg.RateLimitClientTTL,
		},
	})
	if err != nil {
		return eris.Wrap(err, "initialising http transport")
	}

	httpServer := &stdhttp.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.ServerPort),
		Handler: transport.Handler(),
	}

	logger.WithFields(logrus.Fields{
		"addr":      httpServer.Addr,
		"base_path": cfg.BasePath,
		"corpus":    cfg.CorpusPath,
	}).Info("starting http server")

	serverErrCh := make(chan error, 1)
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			return eris.Wrap(err, "http server error")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutting down http server")
	}

	logger.Info("http server shut down cleanly")
	return nil
}
