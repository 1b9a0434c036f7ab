package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"securedoc/internal/config"
	"securedoc/internal/database"
	"securedoc/internal/database/migration"
	handlers "securedoc/internal/http/handler"
	"securedoc/internal/http/middleware"
	"securedoc/internal/judge"
	"securedoc/internal/otel"
	"securedoc/internal/repository/postgres"
	"securedoc/internal/service"
	"securedoc/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Tracing (OTLP); degrades to noop when the exporter is unreachable.
	shutdownTracing, err := otel.Init(ctx, time.Local)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracing(ctx)

	// PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.Local, cfg.Database.Host); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		logger.Fatal("failed to initialize object storage", zap.Error(err))
	}

	// The security judge. Runtime failures fail open inside the adapter;
	// missing configuration fails loudly here.
	sessionJudge, closeJudge, err := judge.NewGemini(ctx, cfg.Judge, cfg.Security, logger)
	if err != nil {
		logger.Fatal("failed to initialize judge", zap.Error(err))
	}
	defer closeJudge()

	// Repositories and services
	docRepo := postgres.NewDocumentPostgres(db)
	shopRepo := postgres.NewShopPostgres(db)
	docSvc := service.NewDocumentService(objStore, docRepo, shopRepo, cfg.Security, cfg.ShareURL)
	shopSvc := service.NewShopService(shopRepo, docRepo)
	revoker := service.NewRevocationService(docRepo, logger)

	// Metrics: one shared registry for the request middleware and the
	// session counters.
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	promMW, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		logger.Fatal("failed to register http metrics", zap.Error(err))
	}
	metrics, err := handlers.NewMetrics(registry)
	if err != nil {
		logger.Fatal("failed to register domain metrics", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(otelfiber.Middleware())
	app.Use(promMW.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:       db,
		Docs:     docSvc,
		Shops:    shopSvc,
		Judge:    sessionJudge,
		Revoker:  revoker,
		Security: cfg.Security,
		Metrics:  metrics,
		Log:      logger,
	})

	addr := ":" + cfg.Port
	logger.Info("server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
