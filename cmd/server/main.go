package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	authhandler "tipjar/internal/auth/handler"
	authmetrics "tipjar/internal/auth/metrics"
	authservice "tipjar/internal/auth/service"
	"tipjar/internal/auth/store/nonce"
	httpapi "tipjar/internal/http"
	jwttoken "tipjar/internal/jwt_token"
	"tipjar/internal/ledger/events"
	ledgerhandler "tipjar/internal/ledger/handler"
	ledgermetrics "tipjar/internal/ledger/metrics"
	"tipjar/internal/ledger/publisher/kafka"
	ledgerservice "tipjar/internal/ledger/service"
	"tipjar/internal/ledger/stream"
	"tipjar/internal/platform/config"
	"tipjar/internal/platform/httpserver"
	"tipjar/internal/platform/logger"
	platformmetrics "tipjar/internal/platform/metrics"
	platformredis "tipjar/internal/platform/redis"
	ratelimitmetrics "tipjar/internal/ratelimit/metrics"
	ratelimitmw "tipjar/internal/ratelimit/middleware"
	ratelimitmodels "tipjar/internal/ratelimit/models"
	"tipjar/internal/ratelimit/store/bucket"
)

const sweepInterval = time.Minute

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if cfg.Auth.DevSigningKey {
		log.Warn("JWT_SIGNING_KEY not set, using development key")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checks := []httpserver.Checker{}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	checks = append(checks, httpserver.CheckFunc("store", store.Ping))

	hub := stream.NewHub()
	sinks := []events.Sink{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kafka.NewClient(kafka.Config{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.Topic, 1, 1); err != nil {
			log.Warn("could not provision kafka topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		sinks = append(sinks, kafka.New(client, cfg.Kafka.Topic, kafka.WithLogger(log)))
		checks = append(checks, httpserver.CheckFunc("kafka", client.Ping))
		log.Info("kafka sink enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	dispatcher := events.NewDispatcher(sinks, events.WithLogger(log), events.WithBuffer(cfg.EventBuffer))

	ledger, err := ledgerservice.New(store,
		ledgerservice.WithLogger(log),
		ledgerservice.WithMetrics(ledgermetrics.New(reg)),
		ledgerservice.WithPublisher(dispatcher),
		ledgerservice.WithMinDonation(cfg.MinDonation),
	)
	if err != nil {
		return err
	}
	custody, err := ledger.Init(ctx, cfg.Owner)
	if err != nil {
		return fmt.Errorf("initialize ledger: %w", err)
	}
	log.Info("ledger ready",
		"owner", custody.Owner.String(),
		"balance_wei", custody.Balance.String(),
		"store", cfg.Store.Backend,
	)

	var challenges authservice.ChallengeStore
	var buckets ratelimitmw.BucketStore
	var sweeper *nonce.InMemoryStore
	var memBuckets *bucket.InMemoryBucketStore
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	switch {
	case errors.Is(err, platformredis.ErrNotConfigured):
		sweeper = nonce.NewInMemory()
		memBuckets = bucket.NewInMemoryBucketStore()
		challenges, buckets = sweeper, memBuckets
	case err != nil:
		return err
	default:
		defer redisClient.Close()
		challenges = nonce.NewRedis(redisClient.Client)
		buckets = bucket.NewRedisStore(redisClient.Client)
		checks = append(checks, redisClient)
	}
	limiter := ratelimitmw.New(buckets, log,
		ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimitmw.WithLimit(ratelimitmodels.ClassAuth, ratelimitmodels.Limit{Requests: cfg.RateLimit.AuthPerMinute, Window: time.Minute}),
	)

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	auth, err := authservice.New(challenges, jwtService,
		authservice.WithLogger(log),
		authservice.WithMetrics(authmetrics.New(reg)),
		authservice.WithChallengeTTL(cfg.Auth.ChallengeTTL),
		authservice.WithTokenTTL(cfg.Auth.TokenTTL),
	)
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Logger:   log,
		Metrics:  platformmetrics.NewHTTP(reg),
		Gatherer: reg,
		Health:   httpserver.Health(checks...),
		Routes: []httpapi.Registrar{
			authhandler.New(auth, log, limiter.ByIP(ratelimitmodels.ClassAuth)),
			ledgerhandler.New(ledger, stream.NewHandler(hub, ledger, log), jwtService.Validator(), log),
		},
	})
	srv := httpserver.New(cfg.Addr, router)
	// Hijacked stream connections are not tracked by Shutdown.
	srv.RegisterOnShutdown(hub.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Runs until Close so events from draining requests still go out.
		return dispatcher.Run(context.Background())
	})
	g.Go(func() error {
		serveErr := httpserver.Run(gctx, srv, cfg.ShutdownTimeout, log)
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := dispatcher.Close(closeCtx); err != nil {
			log.Warn("event dispatcher did not drain", "error", err, "dropped", dispatcher.Dropped())
		}
		return serveErr
	})
	if sweeper != nil {
		g.Go(func() error {
			sweepMemory(gctx, sweeper, memBuckets, log)
			return nil
		})
	}
	return g.Wait()
}

// sweepMemory bounds the in-memory stores when Redis is not configured.
func sweepMemory(ctx context.Context, challenges *nonce.InMemoryStore, buckets *bucket.InMemoryBucketStore, log *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			expired, _ := challenges.Sweep(ctx, now)
			idle := buckets.Sweep(time.Minute)
			if expired > 0 || idle > 0 {
				log.Debug("in-memory stores swept", "challenges", expired, "buckets", idle)
			}
		}
	}
}
