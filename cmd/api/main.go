package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"golang.org/x/time/rate"

	"github.com/pixelandcode07/guptodhan-sub002/config"
	"github.com/pixelandcode07/guptodhan-sub002/internal/delivery/http/middleware"
	v1 "github.com/pixelandcode07/guptodhan-sub002/internal/delivery/http/v1"
	"github.com/pixelandcode07/guptodhan-sub002/internal/infrastructure/cache"
	"github.com/pixelandcode07/guptodhan-sub002/internal/infrastructure/steadfast"
	"github.com/pixelandcode07/guptodhan-sub002/internal/repository/postgres"
	"github.com/pixelandcode07/guptodhan-sub002/internal/usecase"
	"github.com/pixelandcode07/guptodhan-sub002/pkg/logger"
	"github.com/pixelandcode07/guptodhan-sub002/pkg/storage"
	"github.com/pixelandcode07/guptodhan-sub002/pkg/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.JWTSecret)

	// Initialize Logger
	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	// Initialize Database
	pgxPool, err := postgres.NewPgxPool(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Successfully connected to PostgreSQL")

	// Initialize Repositories
	orderRepo := postgres.NewOrderRepository(pgxPool)
	txManager := postgres.NewTransactionManager(pgxPool)

	// Initialize Cache (In-Memory)
	// Default expiration 10m, cleanup every 30m
	memCache := cache.NewMemoryCache(10*time.Minute, 30*time.Minute)

	// Courier Adapter (Steadfast)
	courier := steadfast.NewClient(
		cfg.SteadfastBaseURL,
		cfg.SteadfastAPIKey,
		cfg.SteadfastSecretKey,
		cfg.SteadfastTimeout,
	)

	// Invoice Archive (R2): optional, skipped when no account is configured
	var archive usecase.InvoiceArchiver
	if cfg.R2AccountID != "" {
		r2, err := storage.NewR2Archive(
			context.Background(),
			cfg.R2AccountID,
			cfg.R2AccessKeyID,
			cfg.R2AccessKeySecret,
			cfg.R2BucketName,
			cfg.R2PublicURL,
			cfg.R2UploadTimeout,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize R2 invoice archive")
		}
		archive = r2
		log.Info().Str("bucket", cfg.R2BucketName).Msg("Invoice archival enabled")
	} else {
		log.Info().Msg("Invoice archival disabled, R2 not configured")
	}

	// Fulfillment Module
	fulfillmentUC := usecase.NewFulfillmentUsecase(orderRepo, courier, txManager)
	invoiceUC := usecase.NewInvoiceUsecase(orderRepo, memCache, archive, cfg.InvoiceCacheTTL)
	adminOrderHandler := v1.NewAdminOrderHandler(fulfillmentUC, invoiceUC)

	// Set up Router
	mux := http.NewServeMux()

	// Must chain: AuthMiddleware -> AdminMiddleware -> Handler
	adminMiddleware := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(middleware.AdminMiddleware(h))
	}

	mux.Handle("GET /api/v1/admin/orders", adminMiddleware(adminOrderHandler.ListOrders))
	mux.Handle("GET /api/v1/admin/orders/{id}", adminMiddleware(adminOrderHandler.GetOrder))
	mux.Handle("PATCH /api/v1/admin/orders/{id}/status", adminMiddleware(adminOrderHandler.UpdateStatus))
	mux.Handle("POST /api/v1/admin/orders/{id}/shipment", adminMiddleware(adminOrderHandler.CreateShipment))
	mux.Handle("GET /api/v1/admin/orders/{id}/invoice", adminMiddleware(adminOrderHandler.GetInvoice))
	mux.Handle("GET /api/v1/admin/orders/{id}/history", adminMiddleware(adminOrderHandler.GetOrderHistory))

	// Health Check
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok", "db": "connected"}`))
	}
	mux.HandleFunc("GET /api/v1/health", healthHandler)
	mux.HandleFunc("GET /health", healthHandler) // Support root health check for Load Balancers

	addr := fmt.Sprintf(":%s", cfg.Port)

	// Rate Limiter with lifecycle management
	rateLimiter := middleware.NewRateLimiter(
		context.Background(),
		rate.Limit(cfg.RateLimitRPS),
		cfg.RateLimitBurst,
		time.Minute,   // cleanup period
		3*time.Minute, // client TTL
	)

	// Apply CORS (with config injection), Request Logger, Rate Limit, and Gzip
	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = middleware.RequestLogger(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = gziphandler.GzipHandler(handler)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Graceful Shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	log.Info().Msgf("Server starting on %s", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	rateLimiter.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	pgxPool.Close()
	log.Info().Msg("Server exited properly")
}
