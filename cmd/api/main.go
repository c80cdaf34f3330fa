package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/shopverse/checkout-api/internal/config"
	"github.com/shopverse/checkout-api/internal/domain/invoice"
	"github.com/shopverse/checkout-api/internal/domain/order"
	"github.com/shopverse/checkout-api/internal/domain/payment"
	"github.com/shopverse/checkout-api/internal/domain/pricing"
	"github.com/shopverse/checkout-api/internal/domain/redemption"
	"github.com/shopverse/checkout-api/internal/domain/spin"
	"github.com/shopverse/checkout-api/internal/domain/storefront"
	"github.com/shopverse/checkout-api/internal/domain/wallet"
	"github.com/shopverse/checkout-api/internal/middleware"
	"github.com/shopverse/checkout-api/internal/pkg/database"
	"github.com/shopverse/checkout-api/internal/pkg/jwt"
	"github.com/shopverse/checkout-api/internal/pkg/logger"
	paymentpkg "github.com/shopverse/checkout-api/internal/pkg/payment"
	"github.com/shopverse/checkout-api/internal/pkg/razorpay"
	pkgresponse "github.com/shopverse/checkout-api/internal/pkg/response"
	"github.com/shopverse/checkout-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, LogFile: cfg.LogFile}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise logger")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting checkout API")

	pool := database.DefaultPoolConfig()
	pool.MaxOpenConns = cfg.DBMaxOpenConns
	pool.MaxIdleConns = cfg.DBMaxIdleConns
	pool.ConnMaxLifetime = cfg.DBConnMaxLifetime

	db, err := database.NewPostgres(cfg.DatabaseURL, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	store, err := storage.New(context.Background(), storage.Config{
		LocalPath:   cfg.InvoiceDir,
		S3Endpoint:  cfg.S3Endpoint,
		S3Region:    cfg.S3Region,
		S3Bucket:    cfg.S3Bucket,
		S3AccessKey: cfg.S3AccessKey,
		S3SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create invoice storage")
	}

	h, err := buildHandlers(cfg, db, rdb, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build services")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, h),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + cfg.GatewayTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// handlers is everything the router mounts
type handlers struct {
	auth       func(http.Handler) http.Handler
	spinLimit  func(http.Handler) http.Handler
	ready      func(ctx context.Context) error
	wallet     *wallet.Handler
	spin       *spin.Handler
	redemption *redemption.Handler
	order      *order.Handler
	payment    *payment.Handler
}

func buildHandlers(cfg *config.Config, db *sqlx.DB, rdb *redis.Client, store storage.Storage) (*handlers, error) {
	rules := pricing.Rules{
		FreeDeliveryThreshold: cfg.FreeDeliveryThreshold,
		FlatDeliveryFee:       cfg.FlatDeliveryFee,
		CoinsPerCurrencyUnit:  cfg.CoinsPerCurrencyUnit,
		MaxCoinDiscountBps:    cfg.MaxCoinDiscountBps,
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	prizes, err := spin.ParseTable(cfg.SpinPrizes)
	if err != nil {
		return nil, err
	}

	// ---------- Repositories ----------
	walletRepo := wallet.NewRepository(db)
	spinRepo := spin.NewRepository(db)
	storeRepo := storefront.NewRepository(db)
	orderRepo := order.NewRepository(db)
	paymentRepo := payment.NewRepository(db)

	var markers redemption.Store
	var counter middleware.Counter
	if rdb != nil {
		markers = redemption.NewRedisStore(rdb, cfg.CheckoutStateTTL)
		counter = middleware.NewRedisCounter(rdb)
	} else {
		markers = redemption.NewMemoryStore(cfg.CheckoutStateTTL)
	}

	gateways := paymentpkg.NewRegistry()
	gateways.Register(paymentpkg.NewRazorpayProvider(razorpay.Config{
		KeyID:         cfg.RazorpayKeyID,
		KeySecret:     cfg.RazorpayKeySecret,
		WebhookSecret: cfg.RazorpayWebhookSecret,
		Timeout:       cfg.GatewayTimeout,
	}))
	gateway, err := gateways.Get(paymentpkg.ProviderRazorpay)
	if err != nil {
		return nil, err
	}

	// ---------- Services ----------
	walletSvc := wallet.NewService(walletRepo, wallet.SpinPolicy{MaxSpins: cfg.MaxSpinsPerWindow, Window: cfg.SpinWindow})
	spinSvc := spin.NewService(spinRepo, walletSvc, prizes, spin.RandomDrawer, spin.Policy{MaxSpins: cfg.MaxSpinsPerWindow, Window: cfg.SpinWindow})
	redemptionSvc := redemption.NewService(markers, storeRepo, walletSvc, rules)
	orderSvc := order.NewService(orderRepo, storeRepo, walletSvc, redemptionSvc, rules, cfg.Currency)
	paymentSvc := payment.NewService(paymentRepo, orderSvc, gateway)
	invoiceSvc := invoice.NewService(orderSvc, paymentSvc, store, cfg.StoreName)

	// ---------- Handlers ----------
	return &handlers{
		auth:       middleware.Auth(jwt.NewService(cfg.JWTSecret)),
		spinLimit:  middleware.RateLimitPerUser(counter, "spin", cfg.SpinRateLimit, time.Minute),
		ready:      db.PingContext,
		wallet:     wallet.NewHandler(walletSvc),
		spin:       spin.NewHandler(spinSvc),
		redemption: redemption.NewHandler(redemptionSvc),
		order:      order.NewHandler(orderSvc).WithInvoice(invoice.NewHandler(invoiceSvc).Download),
		payment:    payment.NewHandler(paymentSvc),
	}, nil
}

func newRouter(cfg *config.Config, h *handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{"status": "ok"})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			logger.LogError(ctx, err, "readiness check failed")
			pkgresponse.ServiceUnavailable(w, "NOT_READY", "Database unavailable", 5*time.Second)
			return
		}
		pkgresponse.OK(w, map[string]string{"status": "ready"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/wallet", h.wallet.Routes(h.auth))
		r.Mount("/spin", h.spin.Routes(h.auth, h.spinLimit))
		r.Mount("/checkout", h.redemption.Routes(h.auth))
		r.Mount("/orders", h.order.Routes(h.auth))
		r.Mount("/admin/orders", h.order.AdminRoutes(h.auth))
		r.Mount("/payments", h.payment.Routes(h.auth))
	})

	r.Mount("/webhooks", h.payment.WebhookRoutes())

	return r
}
