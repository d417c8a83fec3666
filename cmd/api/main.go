package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/maxbattle-api/internal/config"
	"github.com/yourusername/maxbattle-api/internal/handler"
	"github.com/yourusername/maxbattle-api/internal/middleware"
	pgRepo "github.com/yourusername/maxbattle-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/maxbattle-api/internal/repository/redis"
	"github.com/yourusername/maxbattle-api/internal/service"
	ws "github.com/yourusername/maxbattle-api/internal/websocket"
	"github.com/yourusername/maxbattle-api/pkg/auth"
	"github.com/yourusername/maxbattle-api/pkg/database"
	"github.com/yourusername/maxbattle-api/pkg/payment"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	tournamentRepo := pgRepo.NewTournamentRepo(db)
	transactionRepo := pgRepo.NewTransactionRepo(db)
	notificationRepo := pgRepo.NewNotificationRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode

	// JWT сервис для сессионных кук
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs, cfg.JWT.CookieName, isProduction)

	// Платёжный шлюз
	gateway := payment.NewRazorpayGateway(cfg.Payment.KeyID, cfg.Payment.KeySecret)

	// Почтовый сервис
	var emailService service.EmailService
	if cfg.Email.Enabled {
		emailService, err = service.NewResendEmailService(cfg.Email.APIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize email service: %v", err)
			os.Exit(1)
		}
	} else {
		log.Println("Email sending is disabled, using noop email service")
		emailService = &service.NoopEmailService{}
	}

	// WebSocket hub для push-уведомлений
	hub := ws.NewHub()
	go hub.Run()

	// Инициализируем сервисы
	authService := service.NewAuthService(
		userRepo, transactionRepo, notificationRepo, cacheRepo,
		emailService, jwtService, db,
		cfg.OTP.TTLMinutes, cfg.OTP.ResendCooldownSec, cfg.Referral.BonusAmount,
	)
	tournamentService := service.NewTournamentService(tournamentRepo, notificationRepo, db, hub)
	prizeService := service.NewPrizeService(tournamentRepo, userRepo, db, hub)
	walletService := service.NewWalletService(userRepo, transactionRepo, gateway, db, hub)
	userService := service.NewUserService(userRepo, cacheRepo)
	notificationService := service.NewNotificationService(notificationRepo, hub)

	// Планировщик турниров
	scheduler, err := service.NewScheduler(tournamentRepo, tournamentService)
	if err != nil {
		log.Printf("Failed to initialize scheduler: %v", err)
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		log.Printf("Failed to start scheduler: %v", err)
		os.Exit(1)
	}

	// Инициализируем обработчики
	authHandler := handler.NewAuthHandler(authService, jwtService)
	tournamentHandler := handler.NewTournamentHandler(tournamentService, prizeService)
	walletHandler := handler.NewWalletHandler(walletService)
	userHandler := handler.NewUserHandler(userService, tournamentService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	adminHandler := handler.NewAdminHandler(userService, walletService, emailService)
	wsHandler := handler.NewWSHandler(hub, jwtService)

	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://maxbattle.vercel.app", "http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/verify-otp", authHandler.VerifyOTP)
			authGroup.POST("/resend-otp", authHandler.ResendOTP)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.GET("/status", authMiddleware.RequireAuth(), authHandler.Status)
		}

		tournaments := api.Group("/tournaments")
		{
			tournaments.GET("", authMiddleware.OptionalAuth(), tournamentHandler.List)
			tournaments.GET("/stats", tournamentHandler.Stats)

			adminCreate := tournaments.Group("")
			adminCreate.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
			{
				adminCreate.POST("", tournamentHandler.Create)
			}

			tournamentWithID := tournaments.Group("/:id")
			tournamentWithID.Use(middleware.ExtractUintParam("id", "tournamentID"))
			{
				tournamentWithID.GET("", authMiddleware.OptionalAuth(), tournamentHandler.Get)
				tournamentWithID.GET("/players", tournamentHandler.GetPlayers)

				authedTournaments := tournamentWithID.Group("")
				authedTournaments.Use(authMiddleware.RequireAuth())
				{
					authedTournaments.POST("/join", tournamentHandler.Join)
				}

				adminTournaments := tournamentWithID.Group("")
				adminTournaments.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
				{
					adminTournaments.PUT("", tournamentHandler.Update)
					adminTournaments.DELETE("", tournamentHandler.Delete)
					adminTournaments.PUT("/status", tournamentHandler.UpdateStatus)
					adminTournaments.POST("/notify-room", tournamentHandler.NotifyRoom)
				}
			}
		}

		transactions := api.Group("/transactions")
		transactions.Use(authMiddleware.RequireAuth())
		{
			transactions.GET("", walletHandler.ListTransactions)
			transactions.POST("/create-order", walletHandler.CreateOrder)
			transactions.POST("/verify-payment", walletHandler.VerifyPayment)
			transactions.POST("/withdraw", walletHandler.Withdraw)
			transactions.POST("/spin", walletHandler.Spin)
		}

		users := api.Group("/users")
		{
			users.GET("/leaderboard", userHandler.GetLeaderboard)
			users.GET("/referralCodes", userHandler.ListReferralCodes)

			authedUsers := users.Group("")
			authedUsers.Use(authMiddleware.RequireAuth())
			{
				authedUsers.GET("/my-tournaments", userHandler.GetMyTournaments)
				authedUsers.GET("/referral-stats", userHandler.GetReferralStats)
				authedUsers.POST("/upi/:id", middleware.ExtractUintParam("id", "targetUserID"), userHandler.AddUPI)
			}
		}

		notifications := api.Group("/notifications")
		notifications.Use(authMiddleware.RequireAuth())
		{
			notifications.GET("", notificationHandler.List)
			notifications.POST("/:id/read", middleware.ExtractUintParam("id", "notificationID"), notificationHandler.MarkRead)
			notifications.POST("/delete-read", notificationHandler.DeleteRead)
		}

		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:id/status", middleware.ExtractUintParam("id", "targetUserID"), adminHandler.SetUserStatus)
			admin.POST("/send-email", adminHandler.SendEmail)

			admin.GET("/transactions", adminHandler.ListTransactions)
			admin.GET("/transactions/export", adminHandler.ExportTransactions)
			admin.POST("/withdrawals/:id/approve", middleware.ExtractUintParam("id", "transactionID"), adminHandler.ApproveWithdrawal)
			admin.POST("/withdrawals/:id/reject", middleware.ExtractUintParam("id", "transactionID"), adminHandler.RejectWithdrawal)

			admin.POST("/tournaments/:id/distribute-prizes", middleware.ExtractUintParam("id", "tournamentID"), tournamentHandler.DistributePrizes)
		}
	}

	router.GET("/ws", wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Останавливаем планировщик и websocket hub
	if err := scheduler.Stop(); err != nil {
		log.Printf("Error stopping scheduler: %v", err)
	}
	hub.Close()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
