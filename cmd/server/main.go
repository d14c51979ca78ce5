package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"sante/internal/app"
	"sante/internal/platform/config"
	"sante/internal/platform/httpserver"
	"sante/internal/platform/kafka"
	"sante/internal/platform/logger"
	"sante/internal/platform/postgres"
	"sante/internal/platform/redis"
)

const (
	relayPartitions  = 3
	relayReplication = 1
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run wires infrastructure, starts the neurons and serves HTTP until SIGINT or
// SIGTERM, then shuts everything down within the configured timeout.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var infra app.Infra

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		infra.DB = db
		log.Info("postgres storage enabled")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		infra.Redis = rc
		log.Info("redis enabled for reset codes and rate limiting")
	}

	producer, err := kafka.NewProducer(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	if producer != nil {
		defer producer.Close(context.Background())
		if err := producer.EnsureTopic(ctx, relayPartitions, relayReplication); err != nil {
			return err
		}
		infra.Producer = producer
		log.Info("kafka relay enabled", "topic", producer.Topic(), "event_types", cfg.Kafka.EventTypes)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if rc != nil {
		reg.MustRegister(rc)
	}

	a, err := app.New(cfg, log, reg, infra)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}

	srv := httpserver.New(cfg.Server, a.Handler)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting sante", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return errors.Join(srv.Shutdown(shutdownCtx), a.Stop(shutdownCtx))
	})
	return g.Wait()
}
