// Package main is the entry point for the radar gateway. It terminates
// caller credentials, enforces plan tiers per route and forwards requests
// to the upstream API with a freshly minted service credential.
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
	"golang.org/x/sync/errgroup"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/internal/config"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/internal/gateway"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/logger"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/metrics"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/tracing"
)

const serviceVersion = "1.0.0"

func main() {
	log := logger.New(logger.Config{
		Environment: os.Getenv("APP_ENV"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		ServiceName: "radar-gateway",
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
	if err := cfg.ValidateGateway(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracingCfg := tracing.DefaultConfig()
	tracingCfg.ServiceName = "radar-gateway"
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

	var routes gateway.RouteSource
	watcher, err := gateway.NewRouteWatcher(cfg.RouteTablePath, log)
	if err != nil {
		log.Warn("route table unavailable, using compiled-in defaults",
			zap.String("path", cfg.RouteTablePath),
			zap.Error(err))
		routes = gateway.NewStaticRoutes(gateway.DefaultRouteTable())
	} else {
		watcher.Start(ctx)
		defer func() {
			if err := watcher.Stop(); err != nil {
				log.Warn("failed to stop route watcher", zap.Error(err))
			}
		}()
		routes = watcher
	}

	resolver := gateway.NewIntrospectionResolver(cfg.IntrospectionURL, log)
	minter := gateway.NewMinter([]byte(cfg.FeedTokenSecret), cfg.FeedTokenTTL)
	forwarder, err := gateway.NewForwarder(cfg.UpstreamURL, cfg.UpstreamTimeout, log)
	if err != nil {
		log.Fatal("failed to configure upstream forwarder", zap.Error(err))
	}

	handler := gateway.NewHandler(gateway.HandlerConfig{
		Routes:      routes,
		Resolver:    resolver,
		Minter:      minter,
		Forwarder:   forwarder,
		AdminSecret: cfg.AdminSecret,
		Log:         log,
	})

	health := gateway.NewHealth(log)
	go health.Watch(ctx, 30*time.Second, resolver.Ping)

	mux := http.NewServeMux()
	health.Register(mux)
	mux.Handle("/", gateway.RequestLogger(log, handler))

	gatewayServer := &http.Server{
		Addr:              ":" + cfg.GatewayPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second, // Mitigate Slowloris
	}

	opsMux := http.NewServeMux()
	opsMux.Handle("/metrics", metrics.Handler())
	opsServer := &http.Server{
		Addr:              ":" + cfg.OpsPort,
		Handler:           opsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting gateway server",
			zap.String("address", gatewayServer.Addr),
			zap.String("upstream", cfg.UpstreamURL))
		if err := gatewayServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := gatewayServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("failed to shutdown gateway server", zap.Error(err))
		}
		return opsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("service exited with error", zap.Error(err))
	}
	log.Info("service stopped gracefully")
}
