package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/tidyguru/backend/src/config"
	"github.com/username/tidyguru/backend/src/database"
	"github.com/username/tidyguru/backend/src/handlers"
	"github.com/username/tidyguru/backend/src/logger"
	"github.com/username/tidyguru/backend/src/processors"
	"github.com/username/tidyguru/backend/src/security"
	"github.com/username/tidyguru/backend/src/services"
	"golang.org/x/time/rate"
)

func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				logger.L.Warn("Rate limit exceeded",
					"method", r.Method,
					"path", r.URL.Path,
					"remoteAddr", r.RemoteAddr)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func enableCORS(allowed []string) func(http.Handler) http.Handler {
	allowedOrigins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		allowedOrigins[strings.TrimRight(o, "/")] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowedOrigins[origin] || allowedOrigins["*"] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, X-Request-ID, If-None-Match")
				w.Header().Set("Access-Control-Expose-Headers", "ETag, X-Request-ID, Content-Disposition")
			} else if origin == "" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			if r.Method == http.MethodOptions {
				logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("TidyGuru backend server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	defer database.DB.Close()
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing caches...", "ttl", config.Cfg.CacheTTL)
	reportCache := cache.New(config.Cfg.CacheTTL, services.CacheCleanupInterval)
	seenUserCache := cache.New(10*time.Minute, services.CacheCleanupInterval)

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AccessTokenExpiry)
	userService := services.NewUserService(database.DB, seenUserCache)
	uploadService := services.NewUploadService(database.DB, reportCache, config.Cfg.MaxRows)
	dashboardService := services.NewDashboardService(uploadService, processors.NewDashboardProcessor(), reportCache)
	exportService := services.NewExportService()
	whopClient := services.NewWhopClient(config.Cfg.WhopAPIBaseURL, config.Cfg.WhopAPIKey)
	subscriptionService := services.NewSubscriptionService(database.DB, whopClient, config.Cfg.WhopProductID, config.Cfg.RequireSubscription)

	userHandler := handlers.NewUserHandler(authService, userService)
	uploadHandler := handlers.NewUploadHandler(uploadService, dashboardService, config.Cfg.MaxUploadSizeBytes)
	dashboardHandler := handlers.NewDashboardHandler(uploadService, dashboardService, exportService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService, config.Cfg.WhopWebhookSecret)
	healthHandler := handlers.NewHealthHandler(database.DB)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	auth := userHandler.AuthMiddleware
	paid := handlers.SubscriptionMiddleware(subscriptionService, config.Cfg.RequireSubscription)

	apiRouter.HandleFunc("GET /api/health", healthHandler.HandleHealth)
	apiRouter.HandleFunc("GET /api/sample.csv", dashboardHandler.HandleSampleCSV)
	apiRouter.HandleFunc("POST /api/webhooks/whop", subscriptionHandler.HandleWhopWebhook)

	apiRouter.HandleFunc("GET /api/me", auth(userHandler.HandleGetMe))
	apiRouter.HandleFunc("POST /api/parse", auth(uploadHandler.HandleParse))
	apiRouter.HandleFunc("POST /api/uploads", auth(paid(uploadHandler.HandleUpload)))
	apiRouter.HandleFunc("GET /api/uploads", auth(uploadHandler.HandleListUploads))
	apiRouter.HandleFunc("GET /api/uploads/{id}", auth(uploadHandler.HandleGetUpload))
	apiRouter.HandleFunc("PATCH /api/uploads/{id}", auth(uploadHandler.HandleRenameUpload))
	apiRouter.HandleFunc("DELETE /api/uploads/{id}", auth(uploadHandler.HandleDeleteUpload))
	apiRouter.HandleFunc("GET /api/uploads/{id}/dashboard", auth(dashboardHandler.HandleGetDashboard))
	apiRouter.HandleFunc("GET /api/uploads/{id}/export.csv", auth(dashboardHandler.HandleExportCSV))
	apiRouter.HandleFunc("GET /api/subscription", auth(subscriptionHandler.HandleGetStatus))
	apiRouter.HandleFunc("POST /api/subscription/sync", auth(subscriptionHandler.HandleSync))
	apiRouter.HandleFunc("POST /api/subscription/cancel", auth(subscriptionHandler.HandleCancel))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "TidyGuru Backend is running"})
			return
		}
		logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
		http.NotFound(w, r)
	})

	logger.L.Info("Applying global middleware...")
	limiter := rate.NewLimiter(rate.Limit(config.Cfg.RateLimitRPS), config.Cfg.RateLimitBurst)
	finalHandler := handlers.RequestIDMiddleware(enableCORS(config.Cfg.AllowedOrigins)(rateLimitMiddleware(limiter)(rootMux)))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
