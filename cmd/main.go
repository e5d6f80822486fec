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

	"trueque-market/internal/auth"
	"trueque-market/internal/config"
	"trueque-market/internal/database"
	"trueque-market/internal/handlers"
	"trueque-market/internal/jobs"
	"trueque-market/internal/realtime"
	"trueque-market/internal/repository"
	"trueque-market/internal/services"
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

	// Initialize repository and realtime hub
	repo := repository.NewRepository(database.GetDB())
	hub := realtime.NewHub()

	// Initialize services
	notificationService := services.NewNotificationService(repo, hub)
	ledger := services.NewGarmentLedger(repo)
	authService := services.NewAuthService(repo)
	userService := services.NewUserService(repo)
	garmentService := services.NewGarmentService(repo)
	tradeService := services.NewTradeService(repo, ledger, notificationService, hub, cfg.Trade)
	chatService := services.NewChatService(repo, notificationService, hub)
	reputationService := services.NewReputationService(repo, notificationService, cfg.Reputation)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, userService)
	garmentHandler := handlers.NewGarmentHandler(garmentService, ledger)
	tradeHandler := handlers.NewTradeHandler(tradeService)
	chatHandler := handlers.NewChatHandler(chatService)
	reputationHandler := handlers.NewReputationHandler(reputationService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	eventsHandler := handlers.NewEventsHandler(hub, tradeService)

	// Start expiration sweeper
	sweeper := jobs.NewExpirationSweeper(tradeService, notificationService, cfg.Trade.SweepInterval)
	go sweeper.Start()

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
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
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Garment endpoints
		api.POST("/garments", garmentHandler.CreateGarment)
		api.GET("/garments", garmentHandler.ListGarments)
		api.GET("/garments/mine", garmentHandler.ListMyGarments)
		api.GET("/garments/:id", garmentHandler.GetGarment)
		api.GET("/garments/:id/availability", garmentHandler.GetAvailability)
		api.POST("/garments/:id/withdraw", garmentHandler.WithdrawGarment)

		// Trade lifecycle endpoints
		api.POST("/trades", tradeHandler.CreateTrade)
		api.GET("/trades", tradeHandler.ListTrades)
		api.GET("/trades/:id", tradeHandler.GetTrade)
		api.POST("/trades/:id/accept", tradeHandler.AcceptTrade)
		api.POST("/trades/:id/reject", tradeHandler.RejectTrade)
		api.POST("/trades/:id/cancel", tradeHandler.CancelTrade)
		api.POST("/trades/:id/complete", tradeHandler.CompleteTrade)

		// Negotiation chat endpoints
		api.POST("/trades/:id/messages", chatHandler.PostMessage)
		api.GET("/trades/:id/messages", chatHandler.ListMessages)
		api.POST("/trades/:id/messages/read", chatHandler.MarkRead)

		// Evaluation and reputation endpoints
		api.POST("/trades/:id/evaluations", reputationHandler.SubmitEvaluation)
		api.GET("/users/:id/reputation", reputationHandler.GetReputation)

		// Notification endpoints
		api.GET("/notifications", notificationHandler.ListNotifications)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)

		// Realtime event stream
		api.GET("/events", eventsHandler.Subscribe)
	}

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
