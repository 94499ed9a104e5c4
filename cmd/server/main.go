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

	"landcert/internal/audit"
	"landcert/internal/certificate/assets"
	"landcert/internal/certificate/compose"
	"landcert/internal/certificate/service"
	"landcert/internal/certificate/store"
	"landcert/internal/jwtauth"
	"landcert/internal/platform/config"
	"landcert/internal/platform/httpserver"
	"landcert/internal/platform/logger"
	"landcert/internal/platform/metrics"
	"landcert/internal/platform/middleware"
	"landcert/internal/platform/postgres"
	"landcert/internal/platform/redisclient"
	transport "landcert/internal/transport/http"
	"landcert/internal/verify"
)

const auditBuffer = 256

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		os.Stderr.WriteString("build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	certStore := store.NewPostgres(db)

	// The verification cache is optional; without Redis every lookup hits
	// Postgres directly.
	var (
		verifyCache verify.Cache
		invalidator transport.CacheInvalidator
	)
	if cfg.Redis.URL != "" {
		client, err := redisclient.New(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		rc := verify.NewRedisCache(client, log)
		verifyCache = rc
		invalidator = rc
	}

	// Audit events flow through a buffered channel so the broker never sits
	// on the request path. Without brokers the memory sink keeps the trail
	// in-process.
	var terminalSink audit.Sink = audit.NewMemorySink()
	if len(cfg.Kafka.Brokers) > 0 {
		ks, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer ks.Close()
		terminalSink = ks
	}
	channelSink := audit.NewChannelSink(auditBuffer)
	worker := audit.NewWorker(terminalSink, channelSink.Inbox())
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", zap.Error(err))
		}
	}()
	publisher := audit.NewPublisher(channelSink)

	m := metrics.New()
	resolver := assets.NewResolver(cfg.Asset.FetchTimeout, log)
	composer := compose.New(compose.Options{UnicodeFontPath: cfg.Compose.UnicodeFontPath})

	certService := service.New(certStore, resolver, composer, publisher, m, log)
	verifyService := verify.New(certStore, verifyCache, m, log)

	tokens := jwtauth.New(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	var validator middleware.TokenValidator = jwtauth.NewMiddlewareAdapter(tokens)

	router := transport.NewRouter(transport.RouterConfig{
		Certificates: transport.NewCertificateHandler(certService, invalidator, log),
		Verify:       transport.NewVerifyHandler(verifyService, log),
		Validator:    validator,
		Registry:     m.Registry,
		Logger:       log,
	})

	srv := httpserver.New(cfg.Server.Addr(), router, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Addr()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
