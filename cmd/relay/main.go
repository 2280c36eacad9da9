package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/552020/futura-prealpha/internal/config"
	"github.com/552020/futura-prealpha/internal/credential"
	"github.com/552020/futura-prealpha/internal/delivery"
	"github.com/552020/futura-prealpha/internal/hook"
	"github.com/552020/futura-prealpha/internal/httpserver"
	"github.com/552020/futura-prealpha/internal/mqhandler"
	"github.com/552020/futura-prealpha/internal/relay"
	"github.com/552020/futura-prealpha/internal/repository"
	"github.com/552020/futura-prealpha/pkg/db"
	"github.com/552020/futura-prealpha/pkg/logger"
	"github.com/552020/futura-prealpha/pkg/mq"
	"github.com/552020/futura-prealpha/pkg/otel"
	redisclient "github.com/552020/futura-prealpha/pkg/redis"
	"github.com/552020/futura-prealpha/pkg/util"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.Log)
	defer log.Sync()

	log.Info("Starting futura-relay...",
		zap.String("collection", cfg.Relay.Collection),
		zap.String("credential_strategy", cfg.Relay.Credentials.Strategy),
		zap.Bool("db", cfg.DB.Enabled()),
		zap.Bool("mq", cfg.MQ.URL != ""),
	)

	shutdownOtel, err := otel.Init(otel.Config{
		ServiceName:    "futura-relay",
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.OTel.Endpoint,
		Enabled:        cfg.OTel.Enabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownOtel()

	// Document store
	var (
		docs  credential.DocumentReader
		store httpserver.Pinger
	)
	if cfg.DB.Enabled() {
		dbConn, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			log.Fatal("Failed to init DB", zap.Error(err))
		}
		defer dbConn.Close()
		repo := repository.NewDocumentRepository(dbConn, log)
		docs, store = repo, repo
	} else {
		log.Warn("No database configured, using in-memory document store")
		mem := repository.NewMemoryDocuments()
		docs, store = mem, mem
	}

	// Credentials
	var resolver credential.Resolver
	switch cfg.Relay.Credentials.Strategy {
	case credential.StrategyStore:
		resolver = credential.NewStoreResolver(docs, cfg.Relay.Credentials.PrimaryID, cfg.Relay.Credentials.FallbackID, log)
	default:
		resolver = credential.NewEnvResolver(cfg.Relay.Credentials.EnvVar, os.LookupEnv, log)
	}

	client := delivery.NewClient(delivery.Options{
		Endpoint:         cfg.Relay.Endpoint,
		Timeout:          cfg.Relay.Timeout,
		MaxResponseBytes: cfg.Relay.MaxResponseBytes,
		KeyPrefix:        cfg.Relay.KeyPrefix,
	}, log)
	pipeline := relay.NewPipeline(resolver, client, cfg.Relay.Credentials.Owner, log)

	// Dispatch table: only new email-request documents reach the pipeline.
	dispatcher := hook.NewDispatcher(log)
	dispatcher.Register(hook.SetDoc, cfg.Relay.Collection, pipeline.Handle)

	// MQ adapter
	var (
		consumer *mq.Consumer
		broker   httpserver.Broker
	)
	if cfg.MQ.URL != "" {
		rdb := redisclient.NewRedisClient(cfg.Redis)
		if rdb != nil {
			defer rdb.Close()
		}
		deduper := util.NewDeduper(rdb, cfg.Relay.DedupTTL, log)

		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer publisher.Close()
		broker = publisher

		consumer, err = mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Queue, "store.#", log)
		if err != nil {
			log.Fatal("Failed to init consumer", zap.Error(err))
		}
		defer consumer.Close()

		consumer.SetHandler(mqhandler.NewMutationHandler(dispatcher, deduper, log).Handle)
		consumer.SetDeadLetter(publisher)

		go func() {
			log.Info("Starting store mutation consumer...")
			if err := consumer.StartConsuming(); err != nil {
				log.Fatal("Mutation consumer failed", zap.Error(err))
			}
		}()
	}

	// HTTP server: hook endpoint, health checks, metrics
	router := httpserver.NewRouter(log, dispatcher, store, broker)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("futura-relay is fully initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down futura-relay gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if consumer != nil {
		consumer.Stop()
		if err := consumer.Wait(shutdownCtx); err != nil {
			log.Error("Consumer did not settle in-flight messages", zap.Error(err))
		} else {
			log.Info("Consumer stopped")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("futura-relay shutdown complete")
}
