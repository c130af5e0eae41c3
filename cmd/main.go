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

	"forecast-market/internal/auth"
	"forecast-market/internal/config"
	"forecast-market/internal/database"
	"forecast-market/internal/handlers"
	"forecast-market/internal/jobs"
	"forecast-market/internal/oracle"
	"forecast-market/internal/services"
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

	db := database.GetDB()

	// Initialize oracle adapter
	confirmer := oracle.NewSolanaConfirmer(cfg.Oracle.SolanaNetwork, cfg.Oracle.WalletPrivateKey)
	oracleAdapter := oracle.NewGatewayClient(cfg.Oracle.GatewayURL, cfg.Oracle.RequestTimeout, confirmer)

	// Initialize services
	authService := services.NewAuthService(db)
	adminService := services.NewAdminService(db)
	bondService := services.NewBondService(db)
	contestService := services.NewContestService(db, bondService, cfg.Settlement)
	payoutService := services.NewPayoutService(db)
	settlementService := services.NewSettlementService(
		db,
		bondService,
		contestService,
		payoutService,
		oracleAdapter,
		cfg.Settlement,
		cfg.Oracle.DefaultLiveness,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, authService)
	marketHandler := handlers.NewMarketHandler(db)
	settlementHandler := handlers.NewSettlementHandler(db, settlementService, contestService)
	adminHandler := handlers.NewAdminHandler(db)
	triggerHandler := handlers.NewTriggerHandler(settlementService, cfg.Settlement.TreasuryUserID)

	// Start the local settlement sweeper. External cron hitting the trigger
	// endpoints covers deployments where this process is not long-lived.
	sweeper := jobs.NewSettlementSweeper(settlementService, 1*time.Minute)
	go sweeper.Start()
	defer sweeper.Stop()
	log.Println("Settlement sweeper started")

	// Set up Gin router
	router := gin.Default()

	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
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

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
	}

	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public market routes
	router.GET("/api/markets", marketHandler.GetMarkets)
	router.GET("/api/markets/:id", marketHandler.GetMarketByID)
	router.GET("/api/markets/:id/settlement", settlementHandler.GetSettlement)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.POST("/markets", marketHandler.CreateMarket)

		// Settlement endpoints
		api.POST("/markets/:id/settlement/propose", settlementHandler.ProposeSettlement)
		api.POST("/markets/:id/settlement/contest", settlementHandler.OpenContest)
		api.POST("/contests/:id/votes", settlementHandler.CastVote)

		api.GET("/notifications", settlementHandler.GetNotifications)
	}

	// Scheduler trigger endpoints: shared-secret bearer or admin session.
	isAdmin := func(userID uint) bool {
		_, err := adminService.GetAdminByUserID(userID)
		return err == nil
	}
	triggers := router.Group("/api/triggers")
	triggers.Use(auth.TriggerAuthMiddleware(cfg.App.TriggerSecret, isAdmin))
	{
		triggers.POST("/check-settlements", triggerHandler.CheckPendingSettlements)
		triggers.POST("/force-settle-pending", triggerHandler.ForceSettlePending)
		triggers.POST("/oracle-sweep", triggerHandler.OracleSweep)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(adminHandler.AdminMiddleware())
	{
		admin.GET("/logs", adminHandler.GetAdminLogs)
		admin.GET("/issues", adminHandler.GetIssues)
		admin.POST("/issues/:id/resolve", adminHandler.ResolveIssue)

		admin.POST("/markets/:id/suspend", adminHandler.SuspendMarket)
		admin.POST("/markets/:id/cancel", adminHandler.CancelMarket)
		admin.POST("/markets/:id/resume", adminHandler.ResumeMarket)
		admin.POST("/markets/:id/force-settle", settlementHandler.ForceSettle)
		admin.POST("/markets/:id/escalate-oracle", settlementHandler.EscalateToOracle)
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
