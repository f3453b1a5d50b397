// Package server wires the HTTP, GraphQL and WebSocket surfaces of the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"feedql/internal/auth"
	"feedql/internal/cache"
	"feedql/internal/config"
	"feedql/internal/database"
	"feedql/internal/graph"
	"feedql/internal/middleware"
	"feedql/internal/models"
	"feedql/internal/notifications"
	"feedql/internal/observability"
	"feedql/internal/repository"
	"feedql/internal/service"
	"feedql/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds the application's dependencies and the Fiber app built from them.
type Server struct {
	config      *config.Config
	db          *gorm.DB
	redis       *redis.Client
	app         *fiber.App
	tokens      *auth.TokenService
	images      *storage.ImageStore
	hub         *notifications.Hub
	notifier    *notifications.Notifier
	broadcaster *notifications.Broadcaster
	userSvc     *service.UserService
	postSvc     *service.PostService
	graphql     *graph.Handler

	shutdownCtx context.Context
	shutdownFn  context.CancelFunc
}

// NewServerWithDeps builds a server around an open database and an optional
// Redis client. A nil client keeps post events inside this process.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	images, err := storage.NewImageStore(cfg.ImageDir)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	hub := notifications.NewHub()
	notifier := notifications.NewNotifier(redisClient)
	broadcaster := notifications.NewBroadcaster(hub, notifier)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	userSvc := service.NewUserService(userRepo, tokens, auth.NewHasher(cfg.BcryptCost))
	postSvc := service.NewPostService(postRepo, userRepo, broadcaster, images)

	schema, err := graph.NewSchema(graph.NewResolver(userSvc, postSvc))
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}

	return &Server{
		config:      cfg,
		db:          db,
		redis:       redisClient,
		tokens:      tokens,
		images:      images,
		hub:         hub,
		notifier:    notifier,
		broadcaster: broadcaster,
		userSvc:     userSvc,
		postSvc:     postSvc,
		graphql:     graph.NewHandler(schema),
	}, nil
}

// SetupMiddleware configures the middleware chain for the application.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	app.Use(observability.HTTPMetrics(s.config.ServiceName).Middleware)

	// Images are embedded by a client served from another origin.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses carry its headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.AllowedOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Content-Type, Authorization",
	}))

	app.Use(middleware.AuthGate(s.tokens))

	if s.redis != nil {
		app.Use(middleware.RateLimit(s.redis, s.config.RateLimitPerMinute, time.Minute, "global"))
		return
	}
	if s.config.RateLimitPerMinute > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        s.config.RateLimitPerMinute,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions || os.Getenv("APP_ENV") == "test"
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				if id := middleware.IdentityFrom(c); id.IsAuthenticated() {
					return fmt.Sprintf("user:%d", id.UserID())
				}
				return "ip:" + c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"message": "Too many requests, please try again later.",
				})
			},
		}))
	}
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	observability.HTTPMetrics(s.config.ServiceName).RegisterAt(app, "/metrics")
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "feedql metrics",
	}))

	app.Put("/post-image", s.UploadImage)

	app.Get("/graphql", s.graphql.ServeHTTP)
	app.Post("/graphql", s.graphql.ServeHTTP)

	app.Static("/"+strings.TrimSuffix(storage.URLPrefix, "/"), s.images.Dir(), fiber.Static{
		MaxAge: 3600,
	})

	app.Use("/ws", s.WebSocketUpgrade)
	app.Get("/ws", s.WebSocketFeedHandler())
}

// App returns the Fiber application, building it on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:   "feedql",
		BodyLimit: s.config.MaxUploadBytes,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Message: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled request error",
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// StartWiring connects the hub to the Redis broadcast channel. Without Redis
// it only prepares the shutdown context.
func (s *Server) StartWiring() {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	if !s.notifier.Enabled() {
		return
	}
	go func() {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start hub wiring",
				slog.String("hub", s.hub.Name()),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Start wires the hub and serves HTTP until the app is shut down.
func (s *Server) Start() error {
	s.StartWiring()
	app := s.App()

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, closes live subscribers, drains pending
// background work and releases the database and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub",
			slog.String("hub", s.hub.Name()),
			slog.String("error", err.Error()),
		)
	}

	s.broadcaster.Wait()
	s.images.Wait()

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
	}
	cache.Close(s.redis)

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
