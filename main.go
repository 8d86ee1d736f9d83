package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cashwise/cashwise-api/billing"
	"github.com/cashwise/cashwise-api/config"
	"github.com/cashwise/cashwise-api/handlers"
	"github.com/cashwise/cashwise-api/middleware"
	"github.com/cashwise/cashwise-api/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db, err := config.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	log.Println("✅ Database connected successfully")

	if err := config.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	processor := billing.NewProcessor(
		billing.NewPostgresSubscriptionStore(db),
		billing.NewPostgresExpenseStore(db),
	)

	schedule := os.Getenv("BILLING_SCHEDULE")
	if schedule == "" {
		schedule = billing.DefaultSchedule
	}

	wsHandler := handlers.NewWSHandler()

	scheduler := billing.NewScheduler(processor, schedule)
	scheduler.Notify = func(householdID string) {
		wsHandler.BroadcastEvent(householdID, "expenses_updated")
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start billing scheduler:", err)
	}
	log.Printf("⏰ Billing scheduler running (%s)", schedule)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down billing scheduler...")
		scheduler.Stop()
		os.Exit(0)
	}()

	router := gin.Default()

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	corsConfig := cors.Config{
		AllowOrigins:     []string{frontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	router.Use(cors.New(corsConfig))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		log.Printf("📨 %s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
		c.Next()
		duration := time.Since(start)
		log.Printf("✅ %s %s - %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), duration)
	})

	router.Use(middleware.RateLimiter())

	v1 := router.Group("/api/v1")
	{
		routes.SetupAuthRoutes(v1, db)
		v1.GET("/ws/households/:id", wsHandler.HandleWS)

		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			routes.SetupUserRoutes(protected, db)
			routes.SetupHouseholdRoutes(protected, db)
			routes.SetupSubscriptionRoutes(protected, db, processor, wsHandler)
			routes.SetupExpenseRoutes(protected, db, wsHandler)
			routes.SetupIncomeRoutes(protected, db)
			routes.SetupBudgetRoutes(protected, db)
			routes.SetupAIRoutes(protected)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Server starting on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
