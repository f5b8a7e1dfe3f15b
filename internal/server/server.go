package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wrenfield/polarkit/internal/config"
	"github.com/wrenfield/polarkit/internal/email"
	"github.com/wrenfield/polarkit/internal/handler"
	"github.com/wrenfield/polarkit/internal/metrics"
	"github.com/wrenfield/polarkit/internal/middleware"
	"github.com/wrenfield/polarkit/internal/polar"
	"github.com/wrenfield/polarkit/internal/purchases"
	"github.com/wrenfield/polarkit/internal/store"
	syncsvc "github.com/wrenfield/polarkit/internal/sync"
)

type Server struct {
	db             *sql.DB
	webhookH       *handler.WebhookHandler
	purchasesH     *handler.PurchasesHandler
	checkoutH      *handler.CheckoutHandler
	authH          *handler.AuthHandler
	sessionStore   *store.SessionStore
	magicLinkStore *store.MagicLinkStore
	rateLimiter    *middleware.RateLimiter
	registry       *prometheus.Registry
	logger         *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	magicLinkStore := store.NewMagicLinkStore(db)
	orderStore := store.NewOrderStore(db)
	subscriptionStore := store.NewSubscriptionStore(db)
	productStore := store.NewProductStore(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	polarCfg := polar.Config{
		AccessToken:        cfg.PolarAccessToken,
		Environment:        cfg.PolarEnvironment,
		WebhookSecret:      cfg.PolarWebhookSecret,
		OrderWebhookSecret: cfg.PolarOrderWebhookSecret,
		SuccessURL:         cfg.CheckoutSuccessURL,
	}
	polarClient := polar.NewClient(polarCfg)

	var emailClient *email.Client
	if cfg.PostmarkToken != "" && cfg.FromEmail != "" {
		emailClient = email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)
	}

	syncService := syncsvc.NewService(
		polarClient, userStore, subscriptionStore, productStore,
		collector, logger.With("component", "sync"),
	)
	purchaseService := purchases.NewService(orderStore, subscriptionStore, productStore)

	return &Server{
		db: db,
		webhookH: handler.NewWebhookHandler(
			polarCfg, userStore, orderStore, productStore, syncService,
			emailClient, collector, logger.With("component", "webhook"),
		),
		purchasesH: handler.NewPurchasesHandler(
			userStore, purchaseService, syncService,
			collector, logger.With("component", "purchases"),
		),
		checkoutH: handler.NewCheckoutHandler(
			polarClient, userStore, logger.With("component", "checkout"),
		),
		authH: handler.NewAuthHandler(
			userStore, sessionStore, magicLinkStore, emailClient,
			logger.With("component", "auth"),
		),
		sessionStore:   sessionStore,
		magicLinkStore: magicLinkStore,
		rateLimiter:    middleware.NewRateLimiter(cfg.RateLimitPerMinute),
		registry:       registry,
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// MagicLinkStore returns the magic link store for cleanup tasks.
func (s *Server) MagicLinkStore() *store.MagicLinkStore {
	return s.magicLinkStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	rateLimited := middleware.RateLimit(s.rateLimiter)
	requireAuth := middleware.RequireAuth(s.sessionStore)
	optionalAuth := middleware.OptionalAuth(s.sessionStore)

	// Webhooks authenticate with signatures, not sessions.
	mux.HandleFunc("POST /webhooks/polar/orders", s.webhookH.HandleOrderEvents)
	mux.HandleFunc("POST /webhooks/polar/events", s.webhookH.HandleSubscriptionEvents)

	mux.Handle("POST /auth/login", rateLimited(http.HandlerFunc(s.authH.HandleLogin)))
	mux.Handle("GET /auth/verify", rateLimited(http.HandlerFunc(s.authH.HandleVerify)))
	mux.HandleFunc("POST /auth/logout", s.authH.HandleLogout)

	mux.Handle("GET /api/purchases", optionalAuth(http.HandlerFunc(s.purchasesH.HandleList)))
	mux.Handle("POST /api/sync", requireAuth(http.HandlerFunc(s.purchasesH.HandleSync)))
	mux.Handle("POST /api/catalog/sync", requireAuth(http.HandlerFunc(s.purchasesH.HandleCatalogSync)))
	mux.Handle("POST /api/checkout", optionalAuth(http.HandlerFunc(s.checkoutH.HandleCheckout)))
	mux.Handle("POST /api/portal", requireAuth(rateLimited(http.HandlerFunc(s.checkoutH.HandlePortal))))

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", metrics.SetupMetricsRoute(s.registry))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
