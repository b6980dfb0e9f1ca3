package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/bookablehq/bookable-core/internal/audit"
	"github.com/bookablehq/bookable-core/internal/cache"
	"github.com/bookablehq/bookable-core/internal/config"
	"github.com/bookablehq/bookable-core/internal/database"
	"github.com/bookablehq/bookable-core/internal/handlers"
	"github.com/bookablehq/bookable-core/internal/impersonation"
	"github.com/bookablehq/bookable-core/internal/middleware"
	"github.com/bookablehq/bookable-core/internal/repository"
	"github.com/bookablehq/bookable-core/internal/services"
	"github.com/bookablehq/bookable-core/internal/session"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
	"github.com/bookablehq/bookable-core/pkg/logger"
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
	log.Info().Msg("Starting bookable-core")

	// Connect to database
	dbConfig := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		LogLevel: cfg.Database.LogLevel,
	}

	if err := database.Connect(dbConfig); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	// Initialize lookup cache
	var cacheImpl cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.Type == "redis" {
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		cacheImpl, err = cache.NewRedisCache(addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Msg("Redis cache initialized")
	} else {
		cacheImpl = cache.NewMemoryCache()
		log.Info().Msg("Memory cache initialized")
	}

	// Initialize session store
	var sessionStore session.Store
	if cfg.Session.Store == "redis" {
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		sessionStore, err = session.NewRedisStore(addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis for sessions")
		}
		log.Info().Msg("Redis session store initialized")
	} else {
		sessionStore = session.NewMemoryStore()
		log.Info().Msg("Memory session store initialized")
	}

	// The root handle is the only unscoped entry point; it is constructed
	// exactly once here and handed to platform-level components.
	rootDB := tenantdb.AsRoot(database.DB)

	// Initialize repositories
	tenantRepo, err := repository.NewTenantRepository(rootDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create tenant repository")
	}
	userRepo, err := repository.NewUserRepository(rootDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create user repository")
	}
	billingRepo, err := repository.NewBillingRepository(rootDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create billing repository")
	}
	customerRepo := repository.NewCustomerRepository()
	invoiceRepo := repository.NewInvoiceRepository()
	auditRepo := repository.NewAuditRepository()

	// Initialize audit recorder and impersonation manager
	recorder, err := audit.NewRecorder(rootDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create audit recorder")
	}
	tenantLookup := services.NewTenantLookup(tenantRepo, cacheImpl, cfg.Cache.TTL)
	impersonationMgr := impersonation.NewManager(userRepo, tenantLookup, recorder, sessionStore)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(userRepo, sessionStore, []byte(cfg.Auth.TokenSecret), cfg.Session.TTL)
	customerHandler := handlers.NewCustomerHandler(customerRepo)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceRepo)
	auditLogHandler := handlers.NewAuditLogHandler(auditRepo)
	adminHandler := handlers.NewAdminHandler(impersonationMgr, recorder)
	tenantAdminHandler := handlers.NewTenantAdminHandler(tenantRepo, billingRepo, tenantLookup)

	// Middleware
	sessionAuth := middleware.SessionAuth(sessionStore, []byte(cfg.Auth.TokenSecret))
	resolver := middleware.NewTenantResolver(tenantLookup, database.DB)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints (no authentication required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Authentication
	r.Post("/api/v1/auth/login", authHandler.Login)
	r.With(sessionAuth).Post("/api/v1/auth/logout", authHandler.Logout)

	// Tenant-facing API: every route below runs through the resolver, which
	// binds the scoped handle for the request.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(sessionAuth)
		r.Use(resolver.Resolve)

		r.Post("/customers", customerHandler.CreateCustomer)
		r.Get("/customers", customerHandler.ListCustomers)
		r.Get("/customers/{id}", customerHandler.GetCustomer)
		r.Patch("/customers/{id}", customerHandler.UpdateCustomer)
		r.Delete("/customers/{id}", customerHandler.DeleteCustomer)
		r.Post("/customers/{id}/loyalty", customerHandler.CreditLoyaltyPoints)

		r.Get("/invoices", invoiceHandler.ListInvoices)
		r.Get("/invoices/{id}", invoiceHandler.GetInvoice)
		r.Post("/invoices/{id}/pay", invoiceHandler.MarkInvoicePaid)

		r.Get("/audit-logs", auditLogHandler.ListAuditLogs)
	})

	// Operator control endpoints. Impersonation start/stop deliberately sit
	// outside the resolver chain: they mutate which tenant subsequent
	// requests bind to, and must work even when the current effective tenant
	// is suspended.
	r.Route("/admin/v1", func(r chi.Router) {
		r.Use(sessionAuth)
		r.Use(middleware.RequireOperator)

		r.Post("/impersonation", adminHandler.StartImpersonation)
		r.Delete("/impersonation", adminHandler.StopImpersonation)
		r.Get("/impersonation/events", adminHandler.ListImpersonationEvents)

		r.Get("/tenants", tenantAdminHandler.ListTenants)
		r.Post("/tenants/{id}/suspend", tenantAdminHandler.SuspendTenant)
		r.Post("/tenants/{id}/unsuspend", tenantAdminHandler.UnsuspendTenant)
		r.Get("/tenants/{id}/ledger", tenantAdminHandler.GetTenantLedger)
	})

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
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
