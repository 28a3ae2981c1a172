package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/username/paydown/backend/src/config"
	"github.com/username/paydown/backend/src/database"
	"github.com/username/paydown/backend/src/handlers"
	"github.com/username/paydown/backend/src/logger"
	"github.com/username/paydown/backend/src/metrics"
	"github.com/username/paydown/backend/src/security"
	"github.com/username/paydown/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
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

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Paydown backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}
	if len(config.Cfg.CSRFAuthKey) < 32 {
		logger.L.Error("CSRF_AUTH_KEY must be at least 32 bytes long.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing plan cache...")
	planCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	debtService := services.NewDebtService(database.DB, planCache)
	planService := services.NewPlanService(database.DB, debtService, planCache)

	userHandler := handlers.NewUserHandler(authService)
	planHandler := handlers.NewPlanHandler(planService)
	debtHandler := handlers.NewDebtHandler(debtService)
	billHandler := handlers.NewBillHandler(planService)
	accountHandler := handlers.NewAccountHandler(planService)
	goalHandler := handlers.NewGoalHandler(planService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("GET /api/auth/csrf", handlers.GetCSRFToken)

	csrfProtection := handlers.CSRFMiddleware()

	authActionRouter := http.NewServeMux()
	authActionRouter.HandleFunc("POST /login", userHandler.LoginUserHandler)
	authActionRouter.HandleFunc("POST /register", userHandler.RegisterUserHandler)
	authActionRouter.HandleFunc("POST /refresh", userHandler.RefreshTokenHandler)
	authActionRouter.Handle("POST /logout", userHandler.AuthMiddleware(http.HandlerFunc(userHandler.LogoutUserHandler)))
	apiRouter.Handle("/api/auth/", http.StripPrefix("/api/auth", csrfProtection(authActionRouter)))

	applyCsrfAndAuth := func(handler http.HandlerFunc) http.Handler {
		return csrfProtection(userHandler.AuthMiddleware(handler))
	}

	// Allocation plan and strategy
	apiRouter.Handle("GET /api/paycheck-plan", applyCsrfAndAuth(planHandler.HandleGetPlan))
	apiRouter.Handle("POST /api/paycheck-plan/extra-payment", applyCsrfAndAuth(planHandler.HandleExtraPayment))
	apiRouter.Handle("POST /api/paycheck-plan/emergency-fund", applyCsrfAndAuth(planHandler.HandleEmergencyFund))
	apiRouter.Handle("POST /api/paycheck-plan/sync-baseline", applyCsrfAndAuth(planHandler.HandleSyncBaseline))
	apiRouter.Handle("GET /api/strategy", applyCsrfAndAuth(planHandler.HandleGetStrategy))
	apiRouter.Handle("PUT /api/strategy", applyCsrfAndAuth(planHandler.HandleUpdateStrategy))

	// Debts
	apiRouter.Handle("GET /api/debts", applyCsrfAndAuth(debtHandler.HandleListDebts))
	apiRouter.Handle("POST /api/debts", applyCsrfAndAuth(debtHandler.HandleCreateDebt))
	apiRouter.Handle("GET /api/debts/freedom", applyCsrfAndAuth(debtHandler.HandleFreedomProjection))
	apiRouter.Handle("GET /api/debts/{id}", applyCsrfAndAuth(debtHandler.HandleGetDebt))
	apiRouter.Handle("PUT /api/debts/{id}", applyCsrfAndAuth(debtHandler.HandleUpdateDebt))
	apiRouter.Handle("DELETE /api/debts/{id}", applyCsrfAndAuth(debtHandler.HandleDeleteDebt))
	apiRouter.Handle("POST /api/debts/{id}/payments", applyCsrfAndAuth(debtHandler.HandleRecordPayment))
	apiRouter.Handle("GET /api/debts/{id}/payoff", applyCsrfAndAuth(debtHandler.HandlePayoffProjection))

	// Quick payments
	apiRouter.Handle("GET /api/quick-payments", applyCsrfAndAuth(debtHandler.HandleListQuickPayments))
	apiRouter.Handle("POST /api/quick-payments", applyCsrfAndAuth(debtHandler.HandleCreateQuickPayment))

	// Bills
	apiRouter.Handle("GET /api/bills", applyCsrfAndAuth(billHandler.HandleListBills))
	apiRouter.Handle("POST /api/bills", applyCsrfAndAuth(billHandler.HandleCreateBill))
	apiRouter.Handle("PUT /api/bills/{id}", applyCsrfAndAuth(billHandler.HandleUpdateBill))
	apiRouter.Handle("DELETE /api/bills/{id}", applyCsrfAndAuth(billHandler.HandleDeleteBill))
	apiRouter.Handle("GET /api/bills/{id}/payments", applyCsrfAndAuth(billHandler.HandleListBillPayments))
	apiRouter.Handle("POST /api/bills/{id}/pay", applyCsrfAndAuth(billHandler.HandleMarkBillPaid))

	// Bank accounts
	apiRouter.Handle("GET /api/bank-accounts", applyCsrfAndAuth(accountHandler.HandleListAccounts))
	apiRouter.Handle("POST /api/bank-accounts", applyCsrfAndAuth(accountHandler.HandleCreateAccount))
	apiRouter.Handle("PUT /api/bank-accounts/{id}", applyCsrfAndAuth(accountHandler.HandleUpdateAccount))
	apiRouter.Handle("DELETE /api/bank-accounts/{id}", applyCsrfAndAuth(accountHandler.HandleDeleteAccount))

	// Savings goals
	apiRouter.Handle("GET /api/goals", applyCsrfAndAuth(goalHandler.HandleListGoals))
	apiRouter.Handle("POST /api/goals", applyCsrfAndAuth(goalHandler.HandleCreateGoal))
	apiRouter.Handle("PUT /api/goals/{id}", applyCsrfAndAuth(goalHandler.HandleUpdateGoal))
	apiRouter.Handle("DELETE /api/goals/{id}", applyCsrfAndAuth(goalHandler.HandleDeleteGoal))

	rootMux.Handle("/api/", apiRouter)
	rootMux.Handle("GET /metrics", promhttp.Handler())

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Paydown backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := metrics.Middleware(enableCORS(rateLimitMiddleware(rootMux)))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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
