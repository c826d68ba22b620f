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

	"trade-router/internal/auth"
	"trade-router/internal/blockchain"
	"trade-router/internal/config"
	"trade-router/internal/database"
	"trade-router/internal/handlers"
	"trade-router/internal/jobs"
	"trade-router/internal/jupiter"
	"trade-router/internal/services"
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

	// Initialize Solana client and execution venue
	solanaClient := blockchain.NewSolanaClient(
		cfg.Solana.Network,
		cfg.Solana.RPCURL,
		cfg.Solana.ServerWalletPrivateKey,
	)
	jupiterClient := jupiter.NewClient(cfg.Jupiter.BaseURL)

	// The fee rail signs with the server wallet only. Fees payable from user
	// wallets land in the uncaptured listing until signed client-side.
	if cfg.App.FeeWalletAddress != "" {
		log.Printf("Fee wallet %s configured: fee transfers from user wallets cannot be signed server-side and will be recorded as uncaptured", cfg.App.FeeWalletAddress)
	}

	// Initialize services
	settingsService := services.NewSettingsService(db)
	referralService := services.NewReferralService(db)
	rewardService := services.NewRewardService(db, settingsService, referralService)
	authService := services.NewAuthService(db, referralService)
	swapService := services.NewSwapService(
		db,
		jupiterClient,
		solanaClient,
		cfg.App.TradingFeeBps,
		cfg.App.FeeWalletAddress,
	)
	payoutService := services.NewPayoutService(
		db,
		rewardService,
		settingsService,
		solanaClient,
		solanaClient.ServerWalletAddress(),
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	referralHandler := handlers.NewReferralHandler(referralService, rewardService)
	tradingHandler := handlers.NewTradingHandler(swapService, rewardService)
	adminHandler := handlers.NewAdminHandler(settingsService, swapService)

	// Start the periodic reward payout job
	payoutJob := jobs.NewRewardPayoutJob(payoutService, settingsService)
	payoutJob.Start()
	log.Println("Reward payout job started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
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

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
	}

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Referral endpoints
		api.GET("/referral/dashboard", referralHandler.GetDashboard)
		api.POST("/referral/rotate", referralHandler.RotateLink)
		api.POST("/referral/apply", referralHandler.ApplyReferralCode)
		api.GET("/referral/rewards", referralHandler.GetRewardHistory)

		// Trading endpoints
		api.POST("/trade/swap", tradingHandler.Swap)

		// Admin endpoints
		admin := api.Group("/admin")
		{
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)
			admin.GET("/fees/uncaptured", adminHandler.GetFailedFeeTransfers)
		}
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
		log.Printf("Wallet auth: POST http://localhost:%s/auth/wallet", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
