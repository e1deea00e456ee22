package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mentorly/config"
	"mentorly/internal/database"
	"mentorly/internal/middleware"
	"mentorly/internal/router"
	"mentorly/internal/service"
	"mentorly/internal/worker"
	"mentorly/pkg/logger"
	"mentorly/pkg/mq"
	"mentorly/pkg/obs"
	"mentorly/pkg/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.NewLogger(cfg.Log.Level)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	if cfg.Tracing.Enabled {
		shutdown, err := obs.InitTracer(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Server.Env)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	if err := database.SeedPackages(db); err != nil {
		return err
	}

	verifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}

	var events service.EventPublisher = service.NoopPublisher{}
	if cfg.Events.AMQPURL != "" {
		pub, err := mq.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return err
		}
		defer pub.Close()
		pool := worker.NewPool(cfg.Events.BufferSize, pub, log)
		pool.Start(cfg.Events.Workers)
		defer pool.Shutdown()
		events = pool
		log.Info("event publishing enabled", "exchange", cfg.Events.Exchange)
	} else {
		log.Info("event publishing disabled: set EVENTS_AMQP_URL to enable")
	}

	stop := make(chan struct{})
	defer close(stop)
	ipLimiter := middleware.NewKeyedRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	userLimiter := middleware.NewKeyedRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	go ipLimiter.RunSweeper(time.Minute, stop)
	go userLimiter.RunSweeper(time.Minute, stop)

	engine := router.Setup(cfg, router.Deps{
		DB:          db,
		Logger:      log,
		Verifier:    verifier,
		Meetings:    service.NewRoomMeetingService(cfg.Meeting.BaseURL),
		Events:      events,
		IPLimiter:   ipLimiter,
		UserLimiter: userLimiter,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func newVerifier(cfg *config.Config) (payment.Verifier, error) {
	if cfg.Payment.Provider == "omise" {
		v, err := payment.NewOmiseVerifier(cfg.Omise.PublicKey, cfg.Omise.SecretKey)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	return payment.StubVerifier{}, nil
}
