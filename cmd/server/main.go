package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/config"
	"github.com/staynest/rental-backend/internal/database"
	"github.com/staynest/rental-backend/internal/handlers"
	"github.com/staynest/rental-backend/internal/middleware"
	"github.com/staynest/rental-backend/internal/services"
	"github.com/staynest/rental-backend/pkg/jwt"
	"github.com/staynest/rental-backend/pkg/notify"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting StayNest rental backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Repositories
	txManager := database.NewTxManager(db)
	propertyRepo := database.NewPropertyRepository(db)
	availabilityRepo := database.NewAvailabilityRepository(db)
	promotionRepo := database.NewPromotionRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	paymentRepo := database.NewBookingPaymentRepository(db)
	ledgerRepo := database.NewHostLedgerRepository(db)
	payoutRepo := database.NewPayoutRepository(db)
	eventRepo := database.NewProviderEventRepository(db)
	paymentAuditRepo := database.NewPaymentAuditRepository(db, logger)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	auditService := services.NewAuditService(db)
	notifier := newNotifier(cfg.Notify, logger)
	provider := services.NewProviderService(&cfg.Payment, cfg.Booking.CurrencyMinorUnits, cfg.Server.IsProduction(), logger)

	availabilityService := services.NewAvailabilityService(txManager, availabilityRepo, propertyRepo, logger)
	payoutService := services.NewPayoutService(
		txManager,
		ledgerRepo,
		payoutRepo,
		provider,
		notifier,
		logger,
		cfg.Booking.Currency,
		cfg.Booking.CurrencyMinorUnits,
	)
	reconciler := services.NewPaymentReconciler(services.PaymentReconcilerDeps{
		Tx:                 txManager,
		Bookings:           bookingRepo,
		Properties:         propertyRepo,
		Promotions:         promotionRepo,
		Payments:           paymentRepo,
		Ledger:             ledgerRepo,
		Events:             eventRepo,
		Audit:              paymentAuditRepo,
		Provider:           provider,
		Payouts:            payoutService,
		Notifier:           notifier,
		Logger:             logger,
		Currency:           cfg.Booking.Currency,
		MinorUnits:         cfg.Booking.CurrencyMinorUnits,
		PlatformFeePercent: cfg.Booking.PlatformFeePercent,
	})
	bookingService := services.NewBookingService(services.BookingServiceDeps{
		Tx:           txManager,
		Bookings:     bookingRepo,
		Properties:   propertyRepo,
		Promotions:   promotionRepo,
		Payments:     paymentRepo,
		Availability: availabilityService,
		Refunder:     reconciler,
		Notifier:     notifier,
		Logger:       logger,
		MinorUnits:   cfg.Booking.CurrencyMinorUnits,
	})

	// Initialize and start cron service
	cronService := services.NewCronService(
		cfg.Cron,
		cfg.Booking.HorizonRollEnabled,
		availabilityService,
		bookingService,
		payoutService,
		auditService,
		logger,
	)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("Cron service started")

	logger.Info("Services initialized")

	// Handlers
	if err := handlers.RegisterValidators(); err != nil {
		logger.Fatalf("Failed to register request validators: %v", err)
	}
	var auditLogger handlers.AuditLogger
	if cfg.Security.EnableAuditLog {
		auditLogger = auditService
	}
	bookingHandler := handlers.NewBookingHandler(bookingService, auditLogger, logger)
	paymentHandler := handlers.NewPaymentHandler(reconciler, auditService, logger)
	payoutHandler := handlers.NewPayoutHandler(payoutService, auditLogger, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService, logger)
	adminHandler := handlers.NewAdminHandler(cronService, paymentAuditRepo, auditService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     append(cfg.CORS.AllowedHeaders, services.SignatureHeader, middleware.RequestIDHeader),
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	auth := middleware.AuthMiddleware(jwtService)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Property calendar (public) and horizon refresh (host or admin)
		properties := v1.Group("/properties")
		{
			properties.GET("/:id/availability", availabilityHandler.Calendar)
			properties.POST("/:id/availability/horizon",
				auth, middleware.RequireRole(middleware.RoleHost, middleware.RoleAdmin), availabilityHandler.Horizon)
		}

		// Guest booking routes
		bookings := v1.Group("/bookings")
		{
			bookingsProtected := bookings.Group("")
			bookingsProtected.Use(auth)
			{
				bookingsProtected.POST("/quote", bookingHandler.Quote)
				bookingsProtected.POST("", bookingHandler.Create)
				bookingsProtected.GET("", bookingHandler.List)
				bookingsProtected.GET("/:id", bookingHandler.Get)
				bookingsProtected.PUT("/:id", bookingHandler.Update)
				bookingsProtected.DELETE("/:id", bookingHandler.Cancel)
				bookingsProtected.GET("/:id/review-eligibility", bookingHandler.ReviewEligibility)
			}
		}

		// Payment routes; the webhook authenticates by signature
		payments := v1.Group("/payments")
		{
			payments.POST("/webhook", paymentHandler.Webhook)

			paymentsProtected := payments.Group("")
			paymentsProtected.Use(auth)
			{
				paymentsProtected.POST("/checkout", paymentHandler.Checkout)
				paymentsProtected.POST("/confirm", paymentHandler.Confirm)
			}
		}

		// Host routes
		host := v1.Group("/host")
		host.Use(auth, middleware.RequireRole(middleware.RoleHost))
		{
			host.GET("/bookings", bookingHandler.HostList)
			host.POST("/bookings/:id/confirm", bookingHandler.HostConfirm)
			host.POST("/bookings/:id/deny", bookingHandler.HostDeny)
			host.POST("/bookings/:id/cancel", bookingHandler.HostCancel)
			host.POST("/bookings/:id/check-in", bookingHandler.HostCheckIn)
			host.POST("/bookings/:id/check-out", bookingHandler.HostCheckOut)

			host.GET("/balance", payoutHandler.Balance)
			host.POST("/payouts", payoutHandler.Request)
			host.GET("/payouts", payoutHandler.List)
			host.GET("/payouts/export", payoutHandler.Export)
			host.GET("/payouts/:id", payoutHandler.Get)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(auth, middleware.RequireRole(middleware.RoleAdmin))
		{
			admin.GET("/jobs", adminHandler.JobStatus)
			admin.POST("/jobs/:name/run", adminHandler.RunJob)
			admin.POST("/bookings/:id/refund", paymentHandler.Refund)
			admin.GET("/bookings/:id/payment-audits", adminHandler.BookingPaymentTrail)
			admin.GET("/payments/mismatches", adminHandler.AmountMismatches)
			admin.GET("/users/:id/activity", adminHandler.UserActivity)
			admin.POST("/payouts/:id/process", payoutHandler.Process)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop cron service
	logger.Info("Stopping cron service...")
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// newNotifier picks the notification channel for booking and payout events
func newNotifier(cfg config.NotifyConfig, logger *logrus.Logger) notify.Notifier {
	if cfg.Mode == "http" {
		logger.WithField("api_url", cfg.APIURL).Info("Notifications delivered over HTTP gateway")
		return notify.NewHTTPGateway(notify.HTTPConfig{
			APIURL: cfg.APIURL,
			APIKey: cfg.APIKey,
			Sender: cfg.Sender,
		})
	}
	logger.Info("Notifications written to log only")
	return notify.NewLogNotifier(logger)
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"request_id": middleware.GetRequestID(c),
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}

		// Add user context if available
		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
			fields["roles"] = userCtx.Roles
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		// Log based on status code
		status := c.Writer.Status()
		if status >= 500 {
			entry.Error("Request completed with server error")
		} else if status >= 400 {
			entry.Warn("Request completed with client error")
		} else {
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
