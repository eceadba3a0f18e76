package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/otcheredev/lab-report-portal/internal/cache"
	"github.com/otcheredev/lab-report-portal/internal/config"
	"github.com/otcheredev/lab-report-portal/internal/database"
	"github.com/otcheredev/lab-report-portal/internal/handlers"
	"github.com/otcheredev/lab-report-portal/internal/ledger"
	"github.com/otcheredev/lab-report-portal/internal/metrics"
	"github.com/otcheredev/lab-report-portal/internal/middleware"
	"github.com/otcheredev/lab-report-portal/internal/policy"
	"github.com/otcheredev/lab-report-portal/internal/repository"
	"github.com/otcheredev/lab-report-portal/internal/services"
	"github.com/otcheredev/lab-report-portal/internal/session"
	"github.com/otcheredev/lab-report-portal/internal/storage"
	"github.com/otcheredev/lab-report-portal/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting Lab Report Portal")

	ctx := context.Background()

	// Load business catalog and ledger
	catalog, err := policy.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load catalog")
	}
	pol := policy.New(catalog)
	table := ledger.LoadOrEmpty(cfg.Ledger.Path)

	appMetrics := metrics.New(prometheus.DefaultRegisterer, cfg.Metrics.Prefix)
	checks := make(map[string]handlers.CheckFunc)

	// Initialize repositories
	var (
		userRepo  repository.UserStore
		auditRepo repository.AuditStore
	)
	if cfg.Database.Enabled {
		db, err := database.Connect(database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
			LogLevel: cfg.Database.LogLevel,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer database.Close(db)

		userRepo = repository.NewUserRepository(db)
		auditRepo = repository.NewAuditRepository(db)
		checks["database"] = func(ctx context.Context) error { return database.Ping(ctx, db) }
	} else {
		userRepo = repository.NewMemoryUserRepository()
		auditRepo = repository.NewMemoryAuditRepository(0)
		log.Info().Msg("Database disabled, keeping users and audit logs in memory")
	}

	if _, err := repository.SeedUsers(ctx, userRepo, catalog); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed users")
	}

	// Initialize cache
	var cacheImpl cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		checks["redis"] = redisCache.Ping
		cacheImpl = redisCache
		log.Info().Msg("Redis cache initialized")
	} else {
		cacheImpl = cache.NewMemoryCache()
		log.Info().Msg("Memory cache initialized")
	}
	defer cacheImpl.Close()

	// Initialize file store
	baseStore, err := storage.NewStore(ctx, storage.Config{
		Type:    storage.Type(cfg.Storage.Type),
		BaseDir: cfg.Storage.BaseDir,
		S3: storage.S3Config{
			Bucket:   cfg.Storage.S3Bucket,
			Region:   cfg.Storage.S3Region,
			Endpoint: cfg.Storage.S3Endpoint,
			Prefix:   cfg.Storage.S3Prefix,
		},
		GCS: storage.GCSConfig{
			Bucket: cfg.Storage.GCSBucket,
			Prefix: cfg.Storage.GCSPrefix,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize file store")
	}
	defer baseStore.Close()

	var filesTTL = cfg.Cache.FilesTTL
	if !cfg.Cache.Enabled {
		filesTTL = 0
	}
	fileStore := storage.NewCachedStore(baseStore, cacheImpl, filesTTL, appMetrics)

	// Initialize sessions
	sessions, err := session.NewManager(cacheImpl, session.Config{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize sessions")
	}

	// Initialize services
	authService := services.NewAuthService(userRepo, auditRepo, pol, appMetrics)
	reportService := services.NewReportService(pol, table, fileStore, auditRepo, appMetrics)

	// Initialize handlers
	routes := handlers.Routes{
		Health:   handlers.NewHealthHandler(checks),
		Session:  handlers.NewSessionHandler(authService, sessions),
		Report:   handlers.NewReportHandler(authService, reportService, sessions, pol),
		Admin:    handlers.NewAdminHandler(authService),
		Sessions: sessions,
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		defer limiter.Close()
		routes.LoginLimiter = limiter.Middleware
	}

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.ClientAddress(cfg.Server.TrustProxy))
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	if cfg.Metrics.Enabled {
		r.Use(appMetrics.Middleware)
	}
	r.Use(chimiddleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	routes.Mount(r)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
