package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/client-portal-go/internal/authz"
	"github.com/boddenberg/client-portal-go/internal/config"
	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/handler"
	"github.com/boddenberg/client-portal-go/internal/infra/blob"
	"github.com/boddenberg/client-portal-go/internal/infra/cache"
	"github.com/boddenberg/client-portal-go/internal/infra/memstore"
	"github.com/boddenberg/client-portal-go/internal/infra/mongostore"
	"github.com/boddenberg/client-portal-go/internal/infra/observability"
	"github.com/boddenberg/client-portal-go/internal/infra/ratelimit"
	"github.com/boddenberg/client-portal-go/internal/infra/resilience"
	"github.com/boddenberg/client-portal-go/internal/port"
	"github.com/boddenberg/client-portal-go/internal/service"
	"github.com/boddenberg/client-portal-go/internal/webhook"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Bool("dev_mode", cfg.DevMode),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("jwt_ttl", cfg.JWTTTL),
		zap.String("webhook_mac_scheme", cfg.WebhookMACScheme),
		zap.Bool("redis_limiter", cfg.RedisAddr != ""),
		zap.Bool("s3_documents", cfg.S3Bucket != ""),
	)

	ctx := context.Background()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(ctx, "client-portal", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		Timeout:        cfg.StoreTimeout,
	}

	health := service.NewHealthService(cfg.StoreTimeout, logger)

	// --- Store ---
	var store port.Store
	switch cfg.StoreBackend {
	case config.BackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		mongo, err := mongostore.Connect(connectCtx, mongostore.Options{
			URI:          cfg.MongoURI,
			Database:     cfg.MongoDatabase,
			Transactions: cfg.MongoTransactions,
			Resilience:   resilienceCfg,
		}, metrics, logger)
		if err != nil {
			cancel()
			logger.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		if err := mongo.EnsureIndexes(connectCtx); err != nil {
			logger.Warn("could not ensure indexes", zap.Error(err))
		}
		cancel()
		store = mongo
		logger.Info("using MongoDB as data backend", zap.String("database", cfg.MongoDatabase))
	default:
		store = memstore.New()
		logger.Warn("using in-memory data backend, data is lost on restart")
	}
	health.Register("store", store)

	// --- Login rate limiter ---
	var limiter port.RateLimiter
	if cfg.RedisAddr != "" {
		rl, err := ratelimit.NewRedis(ctx, ratelimit.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer rl.Close()
		limiter = rl
		health.Register("redis", rl)
	} else {
		limiter = ratelimit.NewMemory(clockwork.NewRealClock(), 0)
	}

	// --- Document storage ---
	var blobs port.BlobStore
	if cfg.S3Bucket != "" {
		s3, err := blob.NewS3(ctx, blob.Options{
			Bucket:     cfg.S3Bucket,
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Resilience: resilienceCfg,
		})
		if err != nil {
			logger.Fatal("failed to configure S3", zap.Error(err))
		}
		blobs = s3
	}

	// --- Cache ---
	catalogCache := cache.New[[]*domain.Service](cfg.CacheTTL)
	defer catalogCache.Close()

	// --- Authorization ---
	issuer := authz.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL, authz.WithIssuer(cfg.JWTIssuer))
	pipeline := authz.NewPipeline(
		authz.NewTokenVerifier(cfg.JWTSecret),
		authz.NewTenantResolver(store, store),
		authz.NewResourceGuard(store),
		metrics,
		logger,
	)

	var verifier *webhook.Verifier
	if cfg.WebhookSecret != "" {
		scheme, err := webhook.ParseScheme(cfg.WebhookMACScheme)
		if err != nil {
			logger.Fatal("invalid webhook MAC scheme", zap.Error(err))
		}
		verifier, err = webhook.NewVerifier(cfg.WebhookSecret, scheme)
		if err != nil {
			logger.Fatal("failed to build webhook verifier", zap.Error(err))
		}
		if scheme == webhook.SchemeLegacy {
			logger.Warn("webhook uses the legacy sha256(payload||secret) MAC")
		}
	} else {
		logger.Warn("webhook secret not set, /s2sTxnEnd disabled")
	}

	// --- Services ---
	secretaries, err := service.NewMemberService(domain.MemberSecretary, store, logger)
	if err != nil {
		logger.Fatal("member service", zap.Error(err))
	}
	shareholders, err := service.NewMemberService(domain.MemberShareholder, store, logger)
	if err != nil {
		logger.Fatal("member service", zap.Error(err))
	}

	services := handler.Services{
		Auth: service.NewAuthService(store, issuer, limiter, service.AuthOptions{
			LoginRateLimit:  cfg.LoginRateLimit,
			LoginRateWindow: cfg.LoginRateWindow,
		}, metrics, logger),
		Companies:    service.NewCompanyService(store, blobs, logger),
		Billing:      service.NewBillingService(store, logger),
		Secretaries:  secretaries,
		Shareholders: shareholders,
		Catalog:      service.NewCatalogService(store, catalogCache, metrics, logger),
		Ledger:       service.NewLedgerService(store, logger),
		Health:       health,
	}

	// --- Router ---
	router := handler.NewRouter(services, handler.Options{
		Pipeline:       pipeline,
		Webhook:        verifier,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		UploadMaxBytes: cfg.UploadMaxBytes,
		Metrics:        metrics,
		Logger:         logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Warn("closing store", zap.Error(err))
	}

	logger.Info("server stopped")
}
