// Package server wires the HTTP API: routing, middleware and handlers.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/notifications"
	"yatube/internal/repository"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"

	_ "yatube/docs"
)

// Server holds the Fiber app and every dependency the handlers need.
type Server struct {
	app   *fiber.App
	cfg   *config.Config
	db    *gorm.DB
	cache *cache.Service

	users    repository.UserRepository
	groups   repository.GroupRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	follows  repository.FollowRepository

	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	imageService   *service.ImageService

	hub      *notifications.Hub
	notifier *notifications.RedisNotifier

	subscriberCancel context.CancelFunc
}

// NewServer connects to Postgres and Redis from cfg and assembles the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	cacheSvc := cache.New(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cacheSvc), nil
}

// NewServerWithDeps assembles the server from pre-built dependencies.
// Handler tests use it with in-memory SQLite and miniredis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, cacheSvc *cache.Service) *Server {
	s := &Server{
		cfg:   cfg,
		db:    db,
		cache: cacheSvc,
	}

	s.users = repository.NewUserRepository(db, cacheSvc)
	s.groups = repository.NewGroupRepository(db, cacheSvc)
	s.posts = repository.NewPostRepository(db)
	s.comments = repository.NewCommentRepository(db)
	s.follows = repository.NewFollowRepository(db)

	s.hub = notifications.NewHub()
	s.notifier = notifications.NewRedisNotifier(cacheSvc.Client(), s.hub, s.follows)

	s.postService = service.NewPostService(s.posts, s.groups, s.notifier)
	s.commentService = service.NewCommentService(s.comments, s.posts)
	s.followService = service.NewFollowService(s.follows, s.users)
	s.imageService = service.NewImageService(cfg.UploadDir, cfg.ImageMaxUploadSizeMB)

	s.app = fiber.New(fiber.Config{
		AppName:      "yatube",
		BodyLimit:    (cfg.ImageMaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: errorHandler,
	})

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(middleware.ContextMiddleware())
	s.app.Use(middleware.TracingMiddleware())

	prom := middleware.InitMetrics("yatube")
	prom.RegisterAt(s.app, "/metrics")
	s.app.Use(middleware.MetricsMiddleware(prom))

	s.app.Use(helmet.New())
	s.app.Use(middleware.StructuredLogger())

	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	s.app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			// Health and metrics endpoints are probed constantly.
			path := c.Path()
			return path == "/health/live" || path == "/health/ready" || path == "/metrics"
		},
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/", s.Index)

	s.app.Get("/about/author", s.AboutAuthor)
	s.app.Get("/about/tech", s.AboutTech)

	s.app.Get("/health/live", s.HealthLive)
	s.app.Get("/health/ready", s.HealthReady)
	s.app.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "yatube metrics"}))
	s.app.Get("/swagger/*", swagger.HandlerDefault)

	// Credential endpoints get a tight per-IP Redis window on top of the
	// global limiter.
	auth := s.app.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.cache.Client(), 10, time.Minute, "auth_signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.cache.Client(), 10, time.Minute, "auth_login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	s.app.Get("/groups", s.GroupList)
	s.app.Get("/group/:slug", s.GroupPosts)

	// Write endpoints get a per-user Redis window so one account cannot
	// flood the feed past the global limiter.
	s.app.Post("/new", s.AuthRequired(),
		middleware.RateLimit(s.cache.Client(), 30, time.Minute, "post_create"), s.CreatePost)
	s.app.Get("/follow", s.AuthRequired(), s.FollowIndex)

	s.app.Get("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	s.registerWebSocket()

	s.app.Static("/media", s.cfg.UploadDir)

	// Wildcard profile routes go last so they cannot shadow anything above.
	// Follow toggles are links in the original UI, so GET is canonical;
	// POST is accepted for API clients.
	s.app.Get("/:username/follow", s.AuthRequired(), s.Follow)
	s.app.Post("/:username/follow", s.AuthRequired(), s.Follow)
	s.app.Get("/:username/unfollow", s.AuthRequired(), s.Unfollow)
	s.app.Post("/:username/unfollow", s.AuthRequired(), s.Unfollow)
	s.app.Get("/:username/:postID/edit", s.AuthRequired(), s.EditPostForm)
	s.app.Post("/:username/:postID/edit", s.AuthRequired(), s.EditPost)
	s.app.Post("/:username/:postID/comment", s.AuthRequired(),
		middleware.RateLimit(s.cache.Client(), 30, time.Minute, "comment_create"), s.AddComment)
	s.app.Get("/:username/:postID", s.PostDetail)
	s.app.Get("/:username", s.Profile)
}

// HealthLive reports process liveness.
func (s *Server) HealthLive(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// HealthReady reports whether the backing stores answer.
func (s *Server) HealthReady(c *fiber.Ctx) error {
	ctx := c.UserContext()

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded", "database": err.Error(),
		})
	}

	status := fiber.Map{"status": "ok", "database": "ok"}
	if pingErr := s.cache.Ping(ctx); pingErr != nil {
		// Redis being down degrades caching, not correctness.
		status["cache"] = "unavailable"
	} else {
		status["cache"] = "ok"
	}
	return c.JSON(status)
}

// App exposes the Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the Redis subscriber bridge and serves HTTP until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.subscriberCancel = cancel
	s.notifier.StartSubscriber(ctx)

	addr := fmt.Sprintf(":%s", s.cfg.Port)
	middleware.Logger.Info("server listening", slog.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and drains everything gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.subscriberCancel != nil {
		s.subscriberCancel()
	}
	s.hub.Shutdown()
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return err
	}
	if err := s.cache.Close(); err != nil {
		middleware.Logger.Warn("cache close failed", slog.String("error", err.Error()))
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
