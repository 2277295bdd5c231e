package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shipwise-backend/config"
	"shipwise-backend/internal/delivery/http/middleware"
	v1 "shipwise-backend/internal/delivery/http/v1"
	"shipwise-backend/internal/domain"
	"shipwise-backend/internal/infrastructure/cache"
	"shipwise-backend/internal/infrastructure/carrier"
	"shipwise-backend/internal/infrastructure/carrier/aggregator"
	"shipwise-backend/internal/infrastructure/carrier/freight"
	"shipwise-backend/internal/infrastructure/carrier/parcel"
	"shipwise-backend/internal/infrastructure/events"
	"shipwise-backend/internal/repository/pg"
	"shipwise-backend/internal/usecase"
	"shipwise-backend/pkg/logger"
	"shipwise-backend/pkg/metrics"
	"shipwise-backend/pkg/storage"
	"shipwise-backend/pkg/utils"

	"github.com/NYTimes/gziphandler"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.JWTSecret)

	// Initialize Logger
	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	rootCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	pgxPool, err := pg.NewPgxPool(rootCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pgxPool.Close()
	log.Info().Msg("Successfully connected to PostgreSQL via pgx")

	// Repositories
	orderRepo := pg.NewOrderRepository(pgxPool)
	warehouseRepo := pg.NewWarehouseRepository(pgxPool)
	walletRepo := pg.NewWalletRepository(pgxPool)
	remittanceRepo := pg.NewRemittanceRepository(pgxPool)
	profileRepo := pg.NewUserProfileRepository(pgxPool)
	txManager := pg.NewTransactionManager(pgxPool)

	// Default expiration 30m, cleanup every 10m. Holds carrier tokens and rate quotes.
	memCache := cache.NewMemoryCache(30*time.Minute, 10*time.Minute)

	// --- Carriers ---
	credentials := carrier.NewCredentialCache(memCache, cfg.CredentialSkew)
	clientConfig := func(kind domain.CarrierKind, baseURL string) carrier.ClientConfig {
		return carrier.ClientConfig{
			Carrier:      kind,
			BaseURL:      baseURL,
			Timeout:      cfg.CarrierTimeout,
			MaxRetries:   cfg.CarrierMaxRetries,
			RetryBackoff: cfg.CarrierRetryBackoff,
			RatePerSec:   cfg.CarrierRatePerSec,
			Burst:        cfg.CarrierBurst,
		}
	}

	parcelAdapter := parcel.New(
		carrier.NewClient(clientConfig(domain.CarrierParcel, cfg.ParcelBaseURL),
			carrier.APIKeyAuth{Carrier: domain.CarrierParcel, Key: cfg.ParcelAPIKey}),
		parcel.Config{
			CourierID:  cfg.ParcelCourierID,
			Mode:       cfg.ParcelMode,
			PickupTime: cfg.ParcelPickupTime,
		},
	)

	freightLoc, err := time.LoadLocation(cfg.FreightTimezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.FreightTimezone).Msg("Unknown freight timezone, using UTC")
		freightLoc = time.UTC
	}
	freightAdapter := freight.New(
		carrier.NewClient(clientConfig(domain.CarrierFreight, cfg.FreightBaseURL),
			carrier.BearerAuth{Carrier: domain.CarrierFreight, Credentials: credentials}),
		freight.Config{
			Username:   cfg.FreightUsername,
			Password:   cfg.FreightPassword,
			CourierID:  cfg.FreightCourierID,
			CutoffHour: cfg.FreightCutoffHour,
			Location:   freightLoc,
			PickupSlot: cfg.FreightPickupSlot,
		},
	)
	credentials.Register(domain.CarrierFreight, freightAdapter.Login, cfg.FreightTokenRefresh)

	aggregatorIDs, err := config.ParseIntList(cfg.AggregatorCourierIDs)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid AGGREGATOR_COURIER_IDS")
	}
	if len(aggregatorIDs) == 0 {
		aggregatorIDs = domain.DefaultAggregatorCourierIDs
	}
	aggregatorAdapter := aggregator.New(
		carrier.NewClient(clientConfig(domain.CarrierAggregator, cfg.AggregatorBaseURL),
			carrier.BearerAuth{Carrier: domain.CarrierAggregator, Credentials: credentials}),
		aggregator.Config{
			Email:       cfg.AggregatorEmail,
			Password:    cfg.AggregatorPassword,
			Members:     aggregatorIDs,
			LogoBaseURL: cfg.AggregatorLogoBaseURL,
		},
	)
	credentials.Register(domain.CarrierAggregator, aggregatorAdapter.Login, cfg.AggregatorTokenRefresh)

	router, err := carrier.NewRouter(domain.CourierSets{
		Parcel:     cfg.ParcelCourierID,
		Freight:    cfg.FreightCourierID,
		Aggregator: aggregatorIDs,
	}, parcelAdapter, freightAdapter, aggregatorAdapter)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid courier configuration")
	}
	credentials.Start(rootCtx)

	// --- Optional infrastructure ---
	shipmentOpts := usecase.ShipmentOptions{
		ClaimTTL:         cfg.BookingClaimTTL,
		AllowZeroCharges: cfg.AllowZeroCharges,
		TrackCache:       memCache,
		TrackTTL:         cfg.TrackCacheTTL,
	}

	if cfg.ArchiveEnabled() {
		r2Storage, err := storage.NewR2Storage(
			rootCtx,
			cfg.R2AccountID,
			cfg.R2AccessKeyID,
			cfg.R2AccessKeySecret,
			cfg.R2BucketName,
			cfg.R2PublicURL,
			cfg.R2UploadTimeout,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize R2 Storage")
		}
		shipmentOpts.Labels = r2Storage
	}

	var publisher *events.StatusPublisher
	if cfg.KafkaEnabled() {
		publisher = events.NewStatusPublisher(events.ParseBrokers(cfg.KafkaBrokers), cfg.KafkaShipmentTopic)
		shipmentOpts.Events = publisher
	}

	// --- Usecases ---
	rateUC := usecase.NewRateUsecase(router, memCache, usecase.RateConfig{
		Markups: map[domain.CarrierKind]decimal.Decimal{
			domain.CarrierParcel:     decimal.NewFromFloat(cfg.MarkupParcel),
			domain.CarrierAggregator: decimal.NewFromFloat(cfg.MarkupAggregator),
			domain.CarrierFreight:    decimal.NewFromFloat(cfg.MarkupFreight),
		},
		B2BMarkups: map[domain.CarrierKind]decimal.Decimal{
			domain.CarrierFreight: decimal.NewFromFloat(cfg.MarkupFreightB2B),
		},
		CacheTTL: cfg.RateCacheTTL,
	})
	shipmentOpts.Quotes = rateUC

	walletUC := usecase.NewWalletUsecase(walletRepo, txManager, cfg.WalletAllowNegative)
	remittanceUC := usecase.NewRemittanceUsecase(remittanceRepo, profileRepo, nil)
	shipmentUC := usecase.NewShipmentUsecase(orderRepo, warehouseRepo, router, walletUC, remittanceUC, txManager, shipmentOpts)
	warehouseUC := usecase.NewWarehouseUsecase(warehouseRepo, router, cfg.CarrierTimeout*3)

	sweeper := usecase.NewTrackingSweeper(orderRepo, shipmentUC, usecase.SweepConfig{
		Interval:    cfg.SweepInterval,
		Concurrency: cfg.SweepConcurrency,
		BatchSize:   cfg.SweepBatchSize,
	})
	sweeper.Start(rootCtx)

	var consumer *events.OrderEventConsumer
	if cfg.KafkaEnabled() {
		consumer = events.NewOrderEventConsumer(events.ParseBrokers(cfg.KafkaBrokers), cfg.KafkaOrderTopic, cfg.KafkaGroupID, shipmentUC, 0)
		consumer.Start(rootCtx)
		log.Info().Str("topic", cfg.KafkaOrderTopic).Msg("Order event consumer started")
	}

	// --- Handlers ---
	rateHandler := v1.NewRateHandler(rateUC)
	shipmentHandler := v1.NewShipmentHandler(shipmentUC)
	internalHandler := v1.NewInternalHandler(shipmentUC, walletUC)
	walletHandler := v1.NewWalletHandler(walletUC)
	remittanceHandler := v1.NewRemittanceHandler(remittanceUC)
	warehouseHandler := v1.NewWarehouseHandler(warehouseUC)

	mux := http.NewServeMux()

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(h)
	}
	adminMiddleware := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(middleware.AdminMiddleware(h))
	}
	internalOnly := middleware.SharedTokenMiddleware("X-Internal-Token", cfg.InternalToken)
	webhookOnly := middleware.SharedTokenMiddleware("X-Webhook-Token", cfg.WebhookToken)

	// Rates
	mux.Handle("POST /api/v1/rates", authed(rateHandler.GetRates))
	mux.Handle("POST /api/v1/rates/b2b", authed(rateHandler.GetRatesB2B))

	// Shipments
	mux.Handle("POST /api/v1/orders/{id}/ship", authed(shipmentHandler.Ship))
	mux.Handle("POST /api/v1/orders/{id}/pickup", authed(shipmentHandler.SchedulePickup))
	mux.Handle("POST /api/v1/orders/{id}/label", authed(shipmentHandler.GenerateLabel))
	mux.Handle("POST /api/v1/orders/{id}/cancel", authed(shipmentHandler.Cancel))
	mux.Handle("GET /api/v1/orders/{id}/history", authed(shipmentHandler.History))
	// Public and unauthenticated; limited well below the global rate.
	trackLimiter := middleware.NewRateLimiter(
		rootCtx,
		rate.Limit(cfg.TrackRatePerSec),
		cfg.TrackRateBurst,
		time.Minute,
		3*time.Minute,
	)
	mux.Handle("GET /api/v1/tracking/{ref}", trackLimiter.Middleware()(http.HandlerFunc(shipmentHandler.Track)))

	// Wallet & COD
	mux.Handle("GET /api/v1/wallet", authed(walletHandler.GetBalance))
	mux.Handle("GET /api/v1/wallet/transactions", authed(walletHandler.ListTransactions))
	mux.Handle("GET /api/v1/remittances", authed(remittanceHandler.List))

	// Warehouses
	mux.Handle("POST /api/v1/warehouses", authed(warehouseHandler.Create))
	mux.Handle("GET /api/v1/warehouses/{name}", authed(warehouseHandler.Get))

	// Admin
	mux.Handle("POST /api/v1/admin/remittances/{orderId}/remit", adminMiddleware(remittanceHandler.MarkRemitted))

	// Service to service
	mux.Handle("POST /api/v1/internal/order-events", internalOnly(http.HandlerFunc(internalHandler.OrderEvent)))
	mux.Handle("POST /api/v1/internal/wallet/credit", internalOnly(http.HandlerFunc(internalHandler.CreditWallet)))

	// Carrier callbacks
	mux.Handle("POST /api/v1/webhooks/freight/label", webhookOnly(http.HandlerFunc(shipmentHandler.FreightLabelWebhook)))

	mux.Handle("GET /metrics", metrics.Handler())

	// Health Check
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pgxPool.Ping(ctx); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "db": "unreachable"})
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "db": "connected"})
	}
	mux.HandleFunc("GET /api/v1/health", healthHandler)
	mux.HandleFunc("GET /health", healthHandler) // Support root health check for Load Balancers

	addr := fmt.Sprintf(":%s", cfg.Port)

	// 50 req/s, burst 100, cleanup every minute, TTL 3 minutes
	rateLimiter := middleware.NewRateLimiter(
		rootCtx,
		50,            // requests per second
		100,           // burst
		time.Minute,   // cleanup period
		3*time.Minute, // client TTL
	)

	// Apply CORS, Request Logger, Rate Limit, and Gzip
	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = middleware.RequestLogger(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = gziphandler.GzipHandler(handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful Shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.ServiceStart("shipwise-backend", "1.0.0", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop intake before the workers that depend on it.
	if consumer != nil {
		if err := consumer.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Failed to close order event consumer")
		}
	}
	sweeper.Shutdown()
	warehouseUC.Wait()
	credentials.Shutdown()
	rateLimiter.Shutdown()
	trackLimiter.Shutdown()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close status publisher")
		}
	}
	stopWorkers()

	logger.ServiceStop("shipwise-backend")
}
