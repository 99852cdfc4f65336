package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/bitrix"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/config"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/logger"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/metrics"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/telemetry"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/interfaces/http/middleware"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logCfg := logger.ForService(cfg.App.Name, cfg.App.Env)
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.Output = cfg.Log.Output
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Bitrix24 proxy",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tp, err := telemetry.NewTracerProvider(telemetry.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	var collector *metrics.Collector
	clientOpts := []bitrix.ClientOption{bitrix.WithLogger(log.Named("bitrix"))}
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(metrics.DefaultNamespace)
		clientOpts = append(clientOpts, bitrix.WithObserver(collector))
	}

	client, err := bitrix.NewClient(&bitrix.ClientConfig{
		Scheme:          cfg.Bitrix.Scheme,
		Timeout:         cfg.Bitrix.Timeout,
		RateLimit:       cfg.Bitrix.RateLimit,
		RateBurst:       cfg.Bitrix.RateBurst,
		MaxResponseSize: cfg.Bitrix.MaxResponseSize,
	}, clientOpts...)
	if err != nil {
		log.Fatal("Failed to create Bitrix24 client", zap.Error(err))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:  log,
		Invoker: client,
		Metrics: collector,
		CORS:    corsConfig,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Tracing.ServiceName,
			Enabled:     cfg.Tracing.Enabled,
		},
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		StaticDir:      cfg.Static.Dir,
		Production:     cfg.App.IsProduction(),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	if cfg.App.IsProduction() {
		log.Info("Serving frontend bundle", zap.String("dir", cfg.Static.Dir))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}
