package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/studylion/studypartner-backend/internal/cache"
	"github.com/studylion/studypartner-backend/internal/handlers"
	"github.com/studylion/studypartner-backend/internal/middleware"
	"github.com/studylion/studypartner-backend/internal/repository"
	"github.com/studylion/studypartner-backend/internal/service"
	"github.com/studylion/studypartner-backend/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	zlog, err := newLogger()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zlog.Sync()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "StudyPartner Backend",
		// Support resource-post attachments up to 15MB + overhead.
		BodyLimit: 16 * 1024 * 1024, // 16MB
	})

	// Middleware
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		zlog.Warn("redis connection failed, running without cache", zap.Error(err))
		redisCache = nil
	} else {
		zlog.Info("redis cache connected")
	}

	studyCache := cache.NewStudyCache(redisCache)

	// Initialize S3/MinIO storage (best-effort; attachment endpoints return 503 if missing)
	var s3Store *storage.S3Storage
	if cfg, err := storage.LoadS3ConfigFromEnv(); err != nil {
		zlog.Warn("object storage not configured", zap.Error(err))
	} else if st, err := storage.NewS3Storage(cfg); err != nil {
		zlog.Warn("object storage initialization failed", zap.Error(err))
	} else {
		s3Store = st
		zlog.Info("object storage initialized", zap.String("bucket", cfg.Bucket))
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	studyRepo := repository.NewStudyRepository(db)
	memberRepo := repository.NewStudyMemberRepository(db)
	postRepo := repository.NewStudyPostRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo)
	notifService := service.NewNotificationService(notifRepo, userRepo)
	studyService := service.NewStudyService(studyRepo, memberRepo, userRepo, notifService, studyCache, zlog)
	queryService := service.NewStudyQueryService(studyRepo, memberRepo, studyCache)

	var store service.ObjectStore
	if s3Store != nil {
		store = s3Store
	}
	postService := service.NewStudyPostService(postRepo, studyRepo, memberRepo, userRepo, store)

	// Daily notification retention sweep.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			removed, err := notifService.DeleteOld()
			if err != nil {
				zlog.Warn("notification sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				zlog.Info("notification sweep", zap.Int64("removed", removed))
			}
		}
	}()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	studyHandler := handlers.NewStudyHandler(studyService, queryService)
	postHandler := handlers.NewStudyPostHandler(postService)
	notifHandler := handlers.NewNotificationHandler(notifService)

	// Public routes. The limiter guards credential endpoints only; it must not
	// throttle the rest of /api/users.
	api := app.Group("/api")
	authLimiter := limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	})
	api.Post("/users/register", authLimiter, authHandler.Register)
	api.Post("/users/login", authLimiter, authHandler.Login)

	// Protected routes
	protected := api.Group("/", middleware.AuthRequired())
	protected.Get("/users/me", userHandler.GetMe)
	protected.Put("/users/me", userHandler.UpdateProfile)

	// Study routes. Static segments before the :studyId wildcard.
	protected.Post("/studies", studyHandler.CreateStudy)
	protected.Get("/studies", studyHandler.ListStudies)
	protected.Get("/studies/search", studyHandler.SearchStudies)
	protected.Get("/studies/popular", studyHandler.ListPopular)
	protected.Get("/studies/my-studies", studyHandler.GetMyStudies)
	protected.Get("/studies/category/:category", studyHandler.ListByCategory)
	protected.Get("/studies/location/:location", studyHandler.ListByLocation)
	protected.Get("/studies/status/:status", studyHandler.ListByStatus)
	protected.Get("/studies/:studyId", studyHandler.GetStudy)
	protected.Put("/studies/:studyId", studyHandler.UpdateStudy)
	protected.Delete("/studies/:studyId", studyHandler.DeleteStudy)
	protected.Post("/studies/:studyId/join", studyHandler.JoinStudy)
	protected.Post("/studies/:studyId/leave", studyHandler.LeaveStudy)
	protected.Get("/studies/:studyId/join-status", studyHandler.GetJoinStatus)
	protected.Post("/studies/:studyId/reconcile", studyHandler.ReconcileStudy)

	// Study post routes
	protected.Post("/studies/:studyId/posts", postHandler.CreatePost)
	protected.Get("/studies/:studyId/posts", postHandler.ListStudyPosts)
	protected.Get("/studies/:studyId/posts/type/:type", postHandler.ListStudyPostsByType)
	protected.Get("/posts/search", postHandler.SearchPosts)
	protected.Get("/posts/:postId", postHandler.GetPost)
	protected.Put("/posts/:postId", postHandler.UpdatePost)
	protected.Delete("/posts/:postId", postHandler.DeletePost)
	protected.Post("/posts/:postId/attachment", postHandler.UploadAttachment)
	protected.Get("/posts/:postId/attachment", postHandler.DownloadAttachment)

	// Notification routes
	protected.Get("/notifications", notifHandler.ListNotifications)
	protected.Get("/notifications/unread", notifHandler.ListUnread)
	protected.Get("/notifications/unread/count", notifHandler.CountUnread)
	protected.Put("/notifications/:id/read", notifHandler.MarkRead)
	protected.Put("/notifications/read-all", notifHandler.MarkAllRead)
	protected.Delete("/notifications/:id", notifHandler.DeleteNotification)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "StudyPartner is running",
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	zlog.Info("server starting", zap.String("port", port))
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
