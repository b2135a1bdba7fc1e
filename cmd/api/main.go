package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/paisabook/paisabook-api/internal/config"
	"github.com/paisabook/paisabook-api/internal/database"
	"github.com/paisabook/paisabook-api/internal/handlers"
	"github.com/paisabook/paisabook-api/internal/jobs"
	"github.com/paisabook/paisabook-api/internal/middleware"
	"github.com/paisabook/paisabook-api/internal/repository"
	"github.com/paisabook/paisabook-api/internal/services"
	"github.com/paisabook/paisabook-api/internal/storage"
	"github.com/paisabook/paisabook-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Paisabook API
// @version 1.0
// @description Double-entry bookkeeping backend for micro-lending operations

// @contact.name API Support
// @contact.email support@paisabook.app

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Warn if Resend email is not configured
	if cfg.ResendAPIKey == "" {
		logger.Warn("Resend email disabled: RESEND_API_KEY not set. Overdue reminders and account emails will fail.")
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	// Apply schema migrations
	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Initialize report archive storage
	archive, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, worker, cfg, db, archive)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, cfg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown background worker
	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Redirect root to swagger
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Authentication (public)
		v1.POST("/auth/login", h.Auth.Login)

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Admin-only routes
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				// User management
				admin.POST("/users", h.User.Create)
				admin.GET("/users", h.User.Index)
				admin.GET("/users/:user_id", h.User.Show)
				admin.PUT("/users/:user_id/status", h.User.SetStatus)

				// Manual ledger corrections
				admin.POST("/transactions/adjust", h.Transaction.Adjust)
				admin.DELETE("/transactions/:transaction_id", h.Transaction.Delete)

				// Loan lifecycle overrides
				admin.POST("/loans/:loan_id/default", h.Loan.Default)
				admin.POST("/loans/accrue", h.Loan.Accrue)
			}

			// Accounts
			accounts := protected.Group("/accounts")
			{
				accounts.POST("", h.Account.Create)
				accounts.GET("", h.Account.Index)
				accounts.GET("/:account_id", h.Account.Show)
				accounts.PUT("/:account_id", h.Account.Update)
				accounts.PUT("/:account_id/active", h.Account.SetActive)
				accounts.GET("/:account_id/audit", h.Account.Audit)
				accounts.POST("/:account_id/transfer", h.Account.Transfer)
				accounts.POST("/:account_id/deposit", h.Account.Deposit)
				accounts.POST("/:account_id/withdraw", h.Account.Withdraw)
			}

			// Customers
			customers := protected.Group("/customers")
			{
				customers.POST("", h.Customer.Create)
				customers.GET("", h.Customer.Index)
				customers.GET("/:customer_id", h.Customer.Show)
				customers.PUT("/:customer_id", h.Customer.Update)
				customers.POST("/:customer_id/distribute", h.Customer.DistributeCorporation)
				customers.POST("/:customer_id/collect", h.Customer.CollectCorporation)
			}

			// Loans
			loans := protected.Group("/loans")
			{
				loans.POST("", h.Loan.Create)
				loans.GET("", h.Loan.Index)
				loans.GET("/:loan_id", h.Loan.Show)
				loans.POST("/:loan_id/collect", h.Loan.Collect)
				loans.POST("/:loan_id/close", h.Loan.Close)
			}

			// Transactions
			transactions := protected.Group("/transactions")
			{
				transactions.GET("", h.Transaction.Index)
				transactions.GET("/summary", h.Transaction.Summary)
				transactions.GET("/stats", h.Transaction.Stats)
				transactions.GET("/:transaction_id", h.Transaction.Show)
				transactions.PUT("/:transaction_id/remarks", h.Transaction.UpdateRemarks)
			}

			// Reports
			reports := protected.Group("/reports")
			{
				reports.GET("/accounts/:account_id/statement", h.Report.AccountStatement)
				reports.GET("/transactions", h.Report.TransactionRegister)
				reports.GET("/loans", h.Report.LoanBook)
			}

			// Background jobs
			protected.GET("/jobs/status", h.Job.Status)
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) {
	// Accrue interest on loans whose due date has passed. Runs once at
	// startup so due dates missed during downtime catch up immediately.
	worker.ScheduleEveryImmediate(cfg.AccrualInterval, func(ctx context.Context) error {
		logger.Info("[Job] Accruing loan interest...")
		accrued, err := svcs.Loan.AccrueInterest(ctx, time.Now())
		if accrued > 0 {
			logger.Info("[Job] Interest accrued", "loans", accrued)
		}
		return err
	})

	// Remind customers with overdue loans
	worker.ScheduleEvery(cfg.ReminderInterval, func(ctx context.Context) error {
		logger.Info("[Job] Sending overdue loan reminders...")
		queued, err := svcs.Loan.SendOverdueReminders(ctx, time.Now())
		if queued > 0 {
			logger.Info("[Job] Reminders queued", "count", queued)
		}
		return err
	})

	logger.Info("Scheduled recurring jobs")
}
