// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PelorusMarine/PelorusSim/pkg/logging"
	"github.com/PelorusMarine/PelorusSim/services/bridge/config"
	"github.com/PelorusMarine/PelorusSim/services/bridge/observability"
	"github.com/PelorusMarine/PelorusSim/services/bridge/routes"
	"github.com/PelorusMarine/PelorusSim/services/datatree"
	"github.com/PelorusMarine/PelorusSim/services/whatif"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("bridge-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Service: "bridge",
		LogDir:  cfg.LogDir,
		JSON:    cfg.LogDir != "",
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// --- Init the tracer, only when a collector is configured ---
	if cfg.OTLPEndpoint != "" {
		cleanup, err := initTracer(cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	}

	// --- Data tree runtime ---
	store := datatree.NewStore(cfg.SelfID)
	bus := datatree.NewBus(store)
	host := datatree.NewPutHost()

	// --- Injection engine ---
	injector := whatif.NewInjector(store, bus, whatif.InjectorConfig{
		VesselContext: cfg.SelfID,
		ReadbackURL:   cfg.ReadbackURL,
	})
	registry := whatif.NewRegistry(store, injector, cfg.TreeURL)
	intercepts := whatif.NewInterceptRegistry(host, injector)

	db, err := whatif.OpenScenarioDB(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to open the scenario database: %v", err)
	}
	scenarios := whatif.NewScenarioStore(db, registry, intercepts)

	metrics := observability.NewBridgeMetrics()
	hub := whatif.NewHub(registry, metrics)

	feed, unsubscribe := bus.Subscribe()
	go hub.Run(feed)

	router := gin.Default()
	if cfg.OTLPEndpoint != "" {
		router.Use(otelgin.Middleware("bridge-service"))
	}

	routes.SetupRoutes(router, routes.Deps{
		Registry:      registry,
		Injector:      injector,
		Intercepts:    intercepts,
		Scenarios:     scenarios,
		Hub:           hub,
		Host:          host,
		VesselContext: cfg.SelfID,
		Metrics:       metrics,
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}

	// Handle graceful shutdown. ListenAndServe returns as soon as Shutdown
	// is called, so main waits for the teardown to finish before exiting;
	// the badger database in particular must be closed cleanly.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-quit
		slog.Info("shutting down the bridge server")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}

		intercepts.TeardownAll()
		unsubscribe()
		bus.Close()
		if err := db.Close(); err != nil {
			slog.Error("scenario database close failed", "error", err)
		}
	}()

	slog.Info("starting the bridge server", "port", cfg.Port, "self", cfg.SelfID)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to start server: %v", err)
	}
	<-shutdownDone
}
