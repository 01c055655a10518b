// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mural/internal/cache"
	"mural/internal/config"
	"mural/internal/database"
	"mural/internal/middleware"
	"mural/internal/models"
	"mural/internal/repository"
	"mural/internal/service"
	"mural/internal/uploader"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	auth    *middleware.Auth
	limiter *middleware.RateLimiter

	userRepo     repository.UserRepository
	postRepo     repository.PostRepository
	activityRepo repository.ActivityRepository
	uploader     uploader.Uploader

	activityService *service.ActivityService
	userService     *service.UserService
	postService     *service.PostService
	adminService    *service.AdminService
}

// NewServer creates a server instance, establishing its own DB and Redis
// connections from config.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	up, err := uploader.NewDiskUploader(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		return nil, fmt.Errorf("upload storage init failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, up)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, up uploader.Uploader) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	prom := fiberprometheus.New("mural-api")

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		auth:           middleware.NewAuth(cfg, redisClient),
		limiter:        middleware.NewRateLimiter(cfg, redisClient),
		userRepo:       userRepo,
		postRepo:       postRepo,
		activityRepo:   activityRepo,
		uploader:       up,
	}
	s.activityService = service.NewActivityService(activityRepo, userRepo, postRepo)
	s.userService = service.NewUserService(userRepo, s.activityService)
	s.postService = service.NewPostService(postRepo, userRepo, s.activityService)
	s.adminService = service.NewAdminService(userRepo, s.userService, s.activityService)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Propagate request ID and user ID into the request context
	app.Use(middleware.ContextMiddleware())

	// Tracing spans per request
	app.Use(middleware.TracingMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Structured logging (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Uploaded files
	app.Static(s.config.UploadBaseURL, s.config.UploadDir)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", s.Signup)
	auth.Post("/login", s.limiter.Limit(10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.auth.Required, s.Logout)
	auth.Get("/check-auth", s.auth.Required, s.CheckAuth)
	auth.Get("/profile", s.auth.Required, s.GetProfile)
	auth.Put("/profile", s.auth.Required, s.UpdateProfile)

	// User routes
	users := api.Group("/users", s.auth.Required)
	// Static paths before the generic /:id routes
	users.Get("/getAll", s.GetUsers)
	users.Get("/blocked", s.GetBlockedUsers)
	users.Get("/:id/posts", s.GetUserPosts)
	users.Post("/:id/follow", s.FollowUser)
	users.Delete("/:id/unfollow", s.UnfollowUser)
	users.Post("/:id/block", s.BlockUser)
	users.Delete("/:id/unblock", s.UnblockUser)
	users.Delete("/:id", middleware.ModeratorRequired, s.DeleteUser)
	users.Get("/:id", s.GetUser)

	// Post routes
	posts := api.Group("/posts", s.auth.Required)
	posts.Get("/getAll", s.GetPosts)
	posts.Post("/upload", s.UploadPost)
	posts.Get("/like/:postId", s.ToggleLike)
	posts.Delete("/:postId/like/:userId", middleware.ModeratorRequired, s.RemoveLike)
	posts.Delete("/:postId", s.DeletePost)

	// Activity feed
	activities := api.Group("/activities", s.auth.Required)
	activities.Get("/getAll", s.GetActivities)

	// Admin routes
	admin := api.Group("/admin", s.auth.Required)
	admin.Post("/create", middleware.OwnerRequired, s.CreateAdmin)
	admin.Get("/getAll", middleware.OwnerRequired, s.GetAdmins)
	admin.Get("/users", middleware.ModeratorRequired, s.GetAdminUsers)
	admin.Delete("/:adminId", middleware.OwnerRequired, s.DeleteAdmin)
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server.
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName:   "Mural API",
		BodyLimit: uploader.MaxUploadSizeBytes + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Error: fiberErr.Message})
			}
			log.Printf("Error: %v", err)
			return models.RespondError(c, err)
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
