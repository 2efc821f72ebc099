package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	analyticsapp "github.com/termin/backend/internal/application/analytics"
	billingapp "github.com/termin/backend/internal/application/billing"
	projectapp "github.com/termin/backend/internal/application/project"
	"github.com/termin/backend/internal/infrastructure/auth"
	"github.com/termin/backend/internal/infrastructure/cache"
	"github.com/termin/backend/internal/infrastructure/config"
	"github.com/termin/backend/internal/infrastructure/logger"
	"github.com/termin/backend/internal/infrastructure/persistence"
	"github.com/termin/backend/internal/interfaces/http/handler"
	"github.com/termin/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting termin backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	quotationRepo := persistence.NewGormQuotationRepository(db.DB)
	paymentMilestoneRepo := persistence.NewGormPaymentMilestoneRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	projectRepo := persistence.NewGormProjectRepository(db.DB)
	projectMilestoneRepo := persistence.NewGormProjectMilestoneRepository(db.DB)
	reportRepo := persistence.NewGormReportRepository(db.DB)

	// Report cache is optional. Analytics fall back to direct queries
	// when Redis is unavailable.
	var reportCache analyticsapp.ReportCache
	redisCache, err := cache.NewRedisReportCache(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, report caching disabled", zap.Error(err))
	} else {
		reportCache = redisCache
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Error("Error closing redis", zap.Error(err))
			}
		}()
	}

	// Application services
	paymentScheduleService := billingapp.NewPaymentScheduleService(
		quotationRepo,
		paymentMilestoneRepo,
		invoiceRepo,
		projectMilestoneRepo,
	)
	milestoneService := projectapp.NewMilestoneService(projectRepo, projectMilestoneRepo)
	analyticsService := analyticsapp.NewMilestoneAnalyticsService(reportRepo, reportCache)

	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP layer
	engine := router.NewEngine(cfg, log, jwtService)
	router.NewRouter(engine).
		Register(handler.NewPaymentMilestoneHandler(paymentScheduleService)).
		Register(handler.NewProjectMilestoneHandler(milestoneService)).
		Register(handler.NewAnalyticsHandler(analyticsService)).
		Setup()

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("Server stopped")
	}
}
