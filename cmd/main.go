package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"referral-engine/internal/auth"
	"referral-engine/internal/config"
	"referral-engine/internal/database"
	"referral-engine/internal/handlers"
	"referral-engine/internal/jobs"
	"referral-engine/internal/metrics"
	"referral-engine/internal/repository"
	"referral-engine/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Register metrics
	metrics.Init()

	// Initialize repository
	repo := repository.NewRepository(database.GetDB())

	// Initialize services; the affiliate settings snapshot is injected
	// rather than fetched ad hoc per call
	settings := &cfg.Affiliate
	notificationService := services.NewNotificationService(repo)
	tierService := services.NewTierService(repo, settings, notificationService)
	visitService := services.NewVisitService(repo, settings, cfg.App.IPHashSalt)
	conversionService := services.NewConversionService(repo, settings, tierService, notificationService)
	fraudService := services.NewFraudService(repo, settings)
	whitelistService := services.NewWhitelistService(repo)
	linkService := services.NewLinkService(repo)

	// Initialize handlers
	visitHandler := handlers.NewVisitHandler(visitService)
	conversionHandler := handlers.NewConversionHandler(conversionService)
	fraudHandler := handlers.NewFraudHandler(fraudService, whitelistService)
	adminHandler := handlers.NewAdminHandler(repo, tierService, linkService, notificationService)

	// Start the scheduled fraud sweep
	sweepJob := jobs.NewFraudSweepJob(fraudService, notificationService, cfg.App.FraudSweepSpec)
	if err := sweepJob.Start(); err != nil {
		log.Fatalf("Failed to start fraud sweep job: %v", err)
	}

	// Set up Gin router
	router := gin.Default()

	allowedOrigins := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public attribution routes: visits come from landing pages,
	// conversions from the checkout backend
	api := router.Group("/api")
	{
		api.POST("/referral/visit", visitHandler.RecordVisit)
		api.POST("/referral/conversion", conversionHandler.RecordConversion)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(auth.AdminMiddleware())
	{
		// Fraud surface
		admin.GET("/fraud/scan", fraudHandler.Scan)
		admin.GET("/fraud/whitelist", fraudHandler.ListWhitelistedIPs)
		admin.POST("/fraud/whitelist", fraudHandler.AddWhitelistedIP)
		admin.DELETE("/fraud/whitelist/:ip", fraudHandler.RemoveWhitelistedIP)

		// Tier management
		admin.GET("/tiers/:referrerId", adminHandler.GetTier)
		admin.POST("/tiers/lock", adminHandler.LockTier)
		admin.POST("/tiers/unlock", adminHandler.UnlockTier)

		// Link provisioning
		admin.POST("/links", adminHandler.ProvisionLink)

		// Earnings feed for tax/earnings reporting
		admin.GET("/earnings", adminHandler.GetEarnings)

		// Notification queue for the external dispatcher
		admin.GET("/notifications/pending", adminHandler.GetPendingNotifications)
		admin.POST("/notifications/dispatched", adminHandler.MarkNotificationsDispatched)

		// Audit trail
		admin.GET("/audit-logs", adminHandler.GetAuditLogs)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	sweepJob.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
