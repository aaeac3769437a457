package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sifan077/TinyLink/config"
	apprepository "github.com/sifan077/TinyLink/internal/app/repository"
	appserver "github.com/sifan077/TinyLink/internal/app/server"
	appservice "github.com/sifan077/TinyLink/internal/app/service"
	"github.com/sifan077/TinyLink/internal/http/middleware"
	infraArchive "github.com/sifan077/TinyLink/internal/infra/archive"
	"github.com/sifan077/TinyLink/internal/infra/logger"
	infraNATS "github.com/sifan077/TinyLink/internal/infra/nats"
	infraPrometheus "github.com/sifan077/TinyLink/internal/infra/prometheus"
	infraRedis "github.com/sifan077/TinyLink/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
		Service:     appserver.ServiceName,
		Version:     appserver.Version,
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.Int("port", cfg.Server.Port),
		zap.Int("code_length", cfg.Shortener.CodeLength),
		zap.Int("default_validity_minutes", cfg.Shortener.DefaultValidityMinutes),
		zap.Duration("sweep_interval", cfg.Sweeper.Interval),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.Bool("archive_enabled", cfg.Archive.Enabled),
		zap.Bool("prometheus_enabled", cfg.Prometheus.Enabled),
	)

	deps := appservice.LinkServiceDeps{
		Logger: log,
		Links:  apprepository.NewMemoryLinkRepository(),
		Generator: appservice.NewCodeGenerator(
			cfg.Shortener.CodeLength,
			cfg.Shortener.MaxAttempts,
			uint(cfg.Shortener.BloomCapacity),
		),
		DefaultValidity: time.Duration(cfg.Shortener.DefaultValidityMinutes) * time.Minute,
	}

	if cfg.Archive.Enabled {
		archiveDB, err := infraArchive.Open(ctx, cfg.Archive)
		if err != nil {
			log.Fatal("Failed to open archive database", zap.Error(err))
		}
		sqlDB, err := archiveDB.DB()
		if err != nil {
			log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
		}
		defer sqlDB.Close()

		deps.Archive = apprepository.NewArchiveRepository(archiveDB)
		log.Info("Archive database ready", zap.String("driver", cfg.Archive.Driver))
	}

	var createLimiter fiber.Handler
	if cfg.Redis.Enabled {
		redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		limitCfg := middleware.DefaultRateLimitConfig()
		limitCfg.MaxRequests = cfg.RateLimit.MaxRequests
		limitCfg.Window = cfg.RateLimit.Window
		createLimiter = middleware.RateLimit(redisClient, limitCfg, log)
		log.Info("Connected to Redis successfully",
			zap.Int("rate_limit", limitCfg.MaxRequests),
			zap.Duration("window", limitCfg.Window),
		)
	}

	if cfg.NATS.Enabled {
		natsConn, js, err := infraNATS.Connect(cfg.NATS)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Drain()

		publisher, err := appservice.NewJetStreamPublisher(js)
		if err != nil {
			log.Fatal("Failed to prepare click stream", zap.Error(err))
		}
		deps.Publisher = publisher
		log.Info("Connected to NATS successfully", zap.String("url", infraNATS.URL(cfg.NATS)))
	}

	var observer middleware.RequestObserver
	if cfg.Prometheus.Enabled {
		metrics := infraPrometheus.NewMetrics(prometheus.DefaultRegisterer)
		deps.Metrics = metrics
		observer = metrics

		promServer := infraPrometheus.NewServer(cfg.Prometheus, prometheus.DefaultGatherer)
		go func() {
			log.Info("Starting Prometheus metrics server", zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	}

	links := appservice.NewLinkService(deps)

	sweeper := appservice.NewExpirySweeper(log, links, cfg.Sweeper.Interval)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	server := appserver.New(appserver.Dependencies{
		Logger:        log,
		Links:         links,
		BaseURL:       cfg.Server.BaseURL,
		BodyLimit:     cfg.Server.BodyLimit,
		Metrics:       observer,
		CreateLimiter: createLimiter,
	})

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	log.Info("Starting HTTP server", zap.String("addr", addr))
	if err := server.Run(ctx, addr, cfg.Server.ShutdownTimeout); err != nil {
		log.Error("Fiber server exited", zap.Error(err))
	}
	log.Info("Server stopped")
}
