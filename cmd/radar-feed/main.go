// Package main is the entry point for the radar feed service. It holds the
// streaming connection to the event feed, maintains the live event buffer
// and optionally mirrors buffer snapshots to Redis for other consumers.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/open-feature/go-sdk/openfeature"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/internal/config"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/internal/stream"
	radarerrors "github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/errors"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/logger"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/metrics"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/redis"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/tracing"
)

const serviceVersion = "1.0.0"

func main() {
	log := logger.New(logger.Config{
		Environment: os.Getenv("APP_ENV"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		ServiceName: "radar-feed",
	})
	defer func() {
		if err := log.Sync(); err != nil {
			log.Warn("failed to sync logger", zap.Error(err))
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	if err := cfg.ValidateFeed(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracingCfg := tracing.DefaultConfig()
	tracingCfg.ServiceName = "radar-feed"
	tracingCfg.ServiceVersion = serviceVersion
	tracingCfg.Environment = cfg.AppEnv
	_, shutdownTracing, err := tracing.Init(tracingCfg)
	if err != nil {
		log.Warn("failed to initialize tracing, continuing without it", zap.Error(err))
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				log.Warn("failed to shutdown tracing", zap.Error(err))
			}
		}()
	}

	// Feature flags come from the environment in this deployment; the
	// provider is swappable without touching the manager.
	if err := openfeature.SetProviderAndWait(stream.NewEnvProvider(os.Environ())); err != nil {
		log.Warn("failed to register feature flag provider", zap.Error(err))
	}

	buffer := stream.NewEventBuffer(cfg.BufferCapacity)
	dispatcher := stream.NewDispatcher(buffer, log)
	manager := stream.NewManager(stream.ManagerConfig{
		URL:              cfg.FeedURL,
		Credential:       cfg.FeedToken,
		HandshakeTimeout: cfg.HandshakeTimeout,
		Gate:             stream.NewFeatureGate(log),
		Dispatcher:       dispatcher,
		Log:              log,
	})

	if cfg.MirrorEnabled {
		client, err := redis.NewClient(redis.Config{
			Host:         cfg.RedisHost,
			Port:         cfg.RedisPort,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
			MaxRetries:   cfg.RedisMaxRetries,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() {
			if err := client.Close(); err != nil {
				log.Warn("failed to close redis client", zap.Error(err))
			}
		}()

		cache := redis.NewCache(client, redis.NamespaceRadar, redis.ContextStream)
		mirror := stream.NewMirror(cache, buffer, dispatcher, cfg.MirrorInterval, log)
		if err := mirror.Start(ctx); err != nil {
			log.Fatal("failed to start snapshot mirror", zap.Error(err))
		}
		log.Info("snapshot mirror enabled", zap.Duration("interval", cfg.MirrorInterval))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	opsServer := &http.Server{
		Addr:              ":" + cfg.OpsPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second, // Mitigate Slowloris
	}

	switch err := manager.Connect(ctx); {
	case err == nil:
		log.Info("feed connection starting", zap.String("url", cfg.FeedURL))
	case errors.Is(err, radarerrors.ErrFeedDisabled):
		log.Warn("live feed disabled by feature flag, serving metrics only")
	default:
		log.Fatal("failed to start feed connection", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting ops server", zap.String("address", opsServer.Addr))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("received shutdown signal")
		manager.Disconnect()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return opsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("service exited with error", zap.Error(err))
	}
	log.Info("service stopped gracefully")
}
